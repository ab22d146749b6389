package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/repository"
)

var eventTitles = map[domain.EventType]string{
	domain.EventEarlyReturnRequested:     "Early return requested",
	domain.EventEarlyReturnUpdated:       "Early return updated",
	domain.EventEarlyReturnCancelled:     "Early return cancelled",
	domain.EventEarlyReturnDeleted:       "Early return withdrawn",
	domain.EventEarlyReturnAcknowledged:  "Early return acknowledged",
	domain.EventEarlyReturnReturned:      "Items returned",
	domain.EventEarlyReturnCompleted:     "Early return completed",
	domain.EventEarlyReturnAutoCompleted: "Early return completed automatically",
	domain.EventExtensionRequested:       "Extension requested",
	domain.EventExtensionApproved:        "Extension approved",
	domain.EventExtensionRejected:        "Extension rejected",
	domain.EventExtensionCancelled:       "Extension cancelled",
}

type notifier struct {
	notes repository.NotificationRepository
	users repository.UserRepository
	email EmailSender
}

// NewNotifier stores an in-app notification for every event and mirrors it
// by email when a sender is configured. email may be nil.
func NewNotifier(notes repository.NotificationRepository, users repository.UserRepository, email EmailSender) Notifier {
	return &notifier{notes: notes, users: users, email: email}
}

func (n *notifier) Notify(ctx context.Context, userID string, event domain.EventType, payload map[string]string) {
	title, ok := eventTitles[event]
	if !ok {
		title = string(event)
	}
	attrs := make(map[string]string, len(payload)+1)
	for k, v := range payload {
		attrs[k] = v
	}
	attrs["event"] = string(event)

	note := &domain.Notification{
		UserID:     userID,
		Title:      title,
		Message:    notificationMessage(event, payload),
		Attributes: attrs,
	}
	if err := n.notes.Create(ctx, note); err != nil {
		logger.Error("Failed to store notification", "userID", userID, "event", event, "error", err)
	}

	if n.email == nil {
		return
	}
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		logger.Warn("Cannot email notification, user lookup failed", "userID", userID, "event", event, "error", err)
		return
	}
	if user.Email == "" {
		return
	}
	body := fmt.Sprintf("Hello %s,\n\n%s\n\nBest regards,\nThe Rentals Team", user.Name, note.Message)
	if err := n.email.SendEmail(ctx, user.Email, user.Name, title, body); err != nil {
		logger.Error("Failed to email notification", "userID", userID, "event", event, "error", err)
	}
}

func notificationMessage(event domain.EventType, payload map[string]string) string {
	sub := payload["sub_order_id"]
	switch event {
	case domain.EventEarlyReturnRequested:
		return fmt.Sprintf("The renter of sub-order %s wants to return it on %s.", sub, payload["requested_return_date"])
	case domain.EventEarlyReturnUpdated:
		return fmt.Sprintf("The early return of sub-order %s now falls on %s.", sub, payload["requested_return_date"])
	case domain.EventEarlyReturnCancelled, domain.EventEarlyReturnDeleted:
		return fmt.Sprintf("The early return of sub-order %s was withdrawn; the rental runs to its original end date.", sub)
	case domain.EventEarlyReturnAcknowledged:
		return fmt.Sprintf("The return shipment for sub-order %s has been acknowledged.", sub)
	case domain.EventEarlyReturnReturned:
		return fmt.Sprintf("The items of sub-order %s are back. Please inspect them and confirm the return.", sub)
	case domain.EventEarlyReturnCompleted, domain.EventEarlyReturnAutoCompleted:
		return fmt.Sprintf("The early return of sub-order %s is complete. Deposit refunded: %s.", sub, payload["refund_amount"])
	case domain.EventExtensionRequested:
		return fmt.Sprintf("The renter of sub-order %s asks to extend it to %s for %s.", sub, payload["new_end_date"], payload["extension_cost"])
	case domain.EventExtensionApproved:
		return fmt.Sprintf("Your extension of sub-order %s to %s was approved.", sub, payload["new_end_date"])
	case domain.EventExtensionRejected:
		return fmt.Sprintf("Your extension of sub-order %s was rejected: %s", sub, payload["rejection_reason"])
	case domain.EventExtensionCancelled:
		return fmt.Sprintf("The renter withdrew the extension request for sub-order %s.", sub)
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+payload[k])
	}
	return strings.Join(parts, ", ")
}
