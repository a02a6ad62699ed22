package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrInvalidEmail     = errors.New("please provide a valid email address")
	ErrInvalidTravelers = errors.New("invalid number of travelers")
	ErrPastDate         = errors.New("preferred date cannot be in the past")
	ErrTourNotFound     = errors.New("tour not found or not available")
	ErrNotFound         = errors.New("booking not found")
	ErrForbidden        = errors.New("admin access required")
	ErrCannotCancel     = errors.New("this booking cannot be cancelled")
	ErrCannotUpdate     = errors.New("this booking can no longer be modified")
)

// ExistingBooking is the summary returned with a duplicate conflict.
type ExistingBooking struct {
	Reference string        `json:"booking_reference"`
	Status    BookingStatus `json:"booking_status"`
	CreatedAt time.Time     `json:"created_at"`
	TourTitle string        `json:"tour_title"`
}

// ConflictError reports an active booking for the same customer, tour and
// schedule.
type ConflictError struct {
	Existing ExistingBooking
}

func (e *ConflictError) Error() string {
	return "You already have an active booking for this tour on this date"
}

// TransitionError reports a staff action that the current status forbids.
type TransitionError struct {
	Action  string
	Current BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Cannot %s booking. Current status: %s", e.Action, e.Current)
}

var ErrInvalidStatus = errors.New("invalid status filter")
