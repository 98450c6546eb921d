package services

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFields             = errors.New("missing fields")
	ErrInvalidEmail              = errors.New("invalid email")
	ErrPastDate                  = errors.New("past date")
	ErrInvalidVisitorCount       = errors.New("invalid visitor count")
	ErrSlotNotFound              = errors.New("slot not found")
	ErrBookingLimitReached       = errors.New("booking limit reached")
	ErrCapacityExceeded          = errors.New("capacity exceeded")
	ErrDataAccess                = errors.New("data access error")
	ErrPaymentUnavailable        = errors.New("payment unavailable")
	ErrPaymentLinkCreationFailed = errors.New("payment link creation failed")
	ErrInternal                  = errors.New("internal error")

	ErrBookingNotFound   = errors.New("booking not found")
	ErrAlreadyCancelled  = errors.New("booking already cancelled")
	ErrInvalidReschedule = errors.New("invalid reschedule")
	ErrSlotExists        = errors.New("slot already exists")
	ErrSlotHasBookings   = errors.New("slot has bookings")
)

// BookingError pairs a taxonomy sentinel with the message shown to the visitor.
type BookingError struct {
	Kind    error
	Message string
}

func (e *BookingError) Error() string { return e.Message }

func (e *BookingError) Unwrap() error { return e.Kind }

func newBookingError(kind error, format string, args ...any) *BookingError {
	return &BookingError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func dataAccessError(op string, err error) *BookingError {
	return &BookingError{
		Kind:    ErrDataAccess,
		Message: fmt.Sprintf("Database error: %s: %v", op, err),
	}
}
