package domain

import (
	"errors"
	"fmt"
	"time"
)

type ErrorKind string

const (
	KindInvalidDateRange       ErrorKind = "INVALID_DATE_RANGE"
	KindDuplicateActiveRequest ErrorKind = "DUPLICATE_ACTIVE_REQUEST"
	KindConflictingRequest     ErrorKind = "CONFLICTING_REQUEST"
	KindNotEditable            ErrorKind = "NOT_EDITABLE"
	KindReasonRequired         ErrorKind = "REASON_REQUIRED"
	KindPaymentCaptureFailed   ErrorKind = "PAYMENT_CAPTURE_FAILED"
	KindRefundFailed           ErrorKind = "REFUND_FAILED"
	KindStaleRequest           ErrorKind = "STALE_REQUEST"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindUnauthorized           ErrorKind = "UNAUTHORIZED"
	KindInvalidDeduction       ErrorKind = "INVALID_DEDUCTION"
	KindNoActiveItems          ErrorKind = "NO_ACTIVE_ITEMS"
	KindInvalidArgument        ErrorKind = "INVALID_ARGUMENT"
)

// Error carries enough structure for a client to render a specific message:
// the kind, the offending field and value, and for conflicts the id and state
// of the request that is in the way.
type Error struct {
	Kind          ErrorKind `json:"kind"`
	Message       string    `json:"message"`
	Field         string    `json:"field,omitempty"`
	Value         string    `json:"value,omitempty"`
	ConflictID    string    `json:"conflict_id,omitempty"`
	ConflictState string    `json:"conflict_state,omitempty"`
	Retryable     bool      `json:"retryable,omitempty"`
	Err           error     `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s=%s)", e.Field, e.Value)
	}
	if e.ConflictID != "" {
		msg += fmt.Sprintf(" [conflict %s in %s]", e.ConflictID, e.ConflictState)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind, so errors.Is(err, ErrNotEditable) works for any NotEditable error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidDateRange       = &Error{Kind: KindInvalidDateRange}
	ErrDuplicateActiveRequest = &Error{Kind: KindDuplicateActiveRequest}
	ErrConflictingRequest     = &Error{Kind: KindConflictingRequest}
	ErrNotEditable            = &Error{Kind: KindNotEditable}
	ErrReasonRequired         = &Error{Kind: KindReasonRequired}
	ErrPaymentCaptureFailed   = &Error{Kind: KindPaymentCaptureFailed}
	ErrRefundFailed           = &Error{Kind: KindRefundFailed}
	ErrStaleRequest           = &Error{Kind: KindStaleRequest}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrUnauthorized           = &Error{Kind: KindUnauthorized}
	ErrInvalidDeduction       = &Error{Kind: KindInvalidDeduction}
	ErrNoActiveItems          = &Error{Kind: KindNoActiveItems}
	ErrInvalidArgument        = &Error{Kind: KindInvalidArgument}
)

// KindOf returns the kind of err, or "" if it is not a domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func NewInvalidDateRange(field string, value time.Time, msg string) *Error {
	return &Error{Kind: KindInvalidDateRange, Message: msg, Field: field, Value: value.Format("2006-01-02")}
}

func NewDuplicateActiveRequest(conflictID string, state string) *Error {
	return &Error{
		Kind:          KindDuplicateActiveRequest,
		Message:       "a non-terminal request already exists for this sub-order",
		ConflictID:    conflictID,
		ConflictState: state,
	}
}

func NewConflictingRequest(msg, conflictID, state string) *Error {
	return &Error{Kind: KindConflictingRequest, Message: msg, ConflictID: conflictID, ConflictState: state}
}

func NewNotEditable(field, value, msg string) *Error {
	return &Error{Kind: KindNotEditable, Message: msg, Field: field, Value: value}
}

func NewReasonRequired(field string) *Error {
	return &Error{Kind: KindReasonRequired, Message: "a reason is required", Field: field}
}

func NewPaymentCaptureFailed(msg string, err error) *Error {
	return &Error{Kind: KindPaymentCaptureFailed, Message: msg, Retryable: true, Err: err}
}

func NewRefundFailed(msg string, err error) *Error {
	return &Error{Kind: KindRefundFailed, Message: msg, Retryable: true, Err: err}
}

func NewStaleRequest(msg, conflictID, state string) *Error {
	return &Error{Kind: KindStaleRequest, Message: msg, ConflictID: conflictID, ConflictState: state}
}

func NewNotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found", Field: "id", Value: id}
}

func NewUnauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func NewInvalidDeduction(value Amount, msg string) *Error {
	return &Error{Kind: KindInvalidDeduction, Message: msg, Field: "quality_check.deduction_amount", Value: fmt.Sprintf("%d", value)}
}

func NewNoActiveItems(subOrderID string) *Error {
	return &Error{Kind: KindNoActiveItems, Message: "sub-order has no active line items", Field: "sub_order_id", Value: subOrderID}
}

func NewInvalidArgument(field, value, msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: msg, Field: field, Value: value}
}

// IsRejection marks business-rule rejections, which are logged at warn rather
// than error. Payment and refund failures are not rejections.
func (e *Error) IsRejection() bool {
	return e.Kind != KindPaymentCaptureFailed && e.Kind != KindRefundFailed
}
