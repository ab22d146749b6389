package domain

type EventType string

const (
	EventEarlyReturnRequested     EventType = "EARLY_RETURN_REQUESTED"
	EventEarlyReturnUpdated       EventType = "EARLY_RETURN_UPDATED"
	EventEarlyReturnCancelled     EventType = "EARLY_RETURN_CANCELLED"
	EventEarlyReturnDeleted       EventType = "EARLY_RETURN_DELETED"
	EventEarlyReturnAcknowledged  EventType = "EARLY_RETURN_ACKNOWLEDGED"
	EventEarlyReturnReturned      EventType = "EARLY_RETURN_RETURNED"
	EventEarlyReturnCompleted     EventType = "EARLY_RETURN_COMPLETED"
	EventEarlyReturnAutoCompleted EventType = "EARLY_RETURN_AUTO_COMPLETED"
	EventExtensionRequested       EventType = "EXTENSION_REQUESTED"
	EventExtensionApproved        EventType = "EXTENSION_APPROVED"
	EventExtensionRejected        EventType = "EXTENSION_REJECTED"
	EventExtensionCancelled       EventType = "EXTENSION_CANCELLED"
)

type Notification struct {
	ID         int64             `json:"id"`
	UserID     string            `json:"user_id"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	IsRead     bool              `json:"is_read"`
	Attributes map[string]string `json:"attributes"`
	CreatedOn  string            `json:"created_on"`
}
