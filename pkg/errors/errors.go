package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is wrapped by every "x not found" error so callers can match
// the whole family with errors.Is.
var ErrNotFound = errors.New("not found")

// Domain errors for the coupon system
var (
	ErrCouponNotFound       = fmt.Errorf("coupon %w", ErrNotFound)
	ErrScheduleNotFound     = fmt.Errorf("schedule %w", ErrNotFound)
	ErrIssueNotFound        = fmt.Errorf("coupon issue %w", ErrNotFound)
	ErrAcquisitionNotFound  = fmt.Errorf("acquisition %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
	ErrOperatorNotFound     = fmt.Errorf("operator %w", ErrNotFound)
	ErrShopNotFound         = fmt.Errorf("shop %w", ErrNotFound)

	ErrInvalidID = errors.New("invalid id")
	ErrDuplicate = errors.New("duplicate key")

	ErrCapacityExceeded = errors.New("acquisition limit reached")
	ErrWindowClosed     = errors.New("coupon issue is not open for acquisition")
	ErrAlreadyAcquired  = errors.New("coupon already acquired by this user")
	ErrSlotUnavailable  = errors.New("no acquisition slot available")

	ErrUnauthorized       = errors.New("unauthorized")
	ErrAuthExpired        = errors.New("authentication expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// FieldErrors maps an input field key to the messages reported for it.
type FieldErrors map[string][]string

// Add appends msg to the messages of field.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Merge copies every message from other into fe.
func (fe FieldErrors) Merge(other FieldErrors) {
	for field, msgs := range other {
		fe[field] = append(fe[field], msgs...)
	}
}

// Has reports whether field has at least one message.
func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// Err returns a *ValidationError when fe is non-empty, nil otherwise.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return &ValidationError{Fields: fe}
}

// ValidationError carries per-field messages for inline display.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Fields extracts the field errors from err, if it is a validation error.
func Fields(err error) (FieldErrors, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	return nil, false
}
