package notification

import (
	"context"
	"errors"
)

// Kind identifies what happened and therefore which message is sent.
type Kind string

const (
	KindBookingCreated    Kind = "booking_created"
	KindBookingCancelled  Kind = "booking_cancelled"
	KindNewBooking        Kind = "new_booking"
	KindCancellation      Kind = "cancellation"
	KindAdminConfirmation Kind = "admin_confirmation"
	KindAdminDecline      Kind = "admin_decline"
	KindStaffMessage      Kind = "staff_message"
	KindContact           Kind = "contact"
	KindContactReply      Kind = "contact_auto_reply"
)

var (
	ErrUnsupportedKind = errors.New("unsupported notification kind")
	ErrNoRecipient     = errors.New("notification has no recipient")
)

// BookingInfo is the booking snapshot a notification is rendered from.
type BookingInfo struct {
	Reference       string
	CustomerName    string
	Email           string
	Phone           string
	TourTitle       string
	Date            string
	Time            string
	Travelers       int
	TotalAmount     int64
	Status          string
	SpecialRequests string
}

type MessageInfo struct {
	ConversationID int64
	SenderName     string
	SenderEmail    string
	Text           string
}

type ContactInfo struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// Result is the outcome of one best-effort dispatch. It never carries a
// panic and callers never fail a request because of it.
type Result struct {
	Sent bool
	Err  error
}

func (r Result) Failed() bool {
	return !r.Sent
}

// Dispatcher sends transactional notifications. Every method is safe to
// call after the triggering mutation has committed.
type Dispatcher interface {
	NotifyCustomer(ctx context.Context, b BookingInfo, kind Kind) Result
	NotifyOwner(ctx context.Context, b BookingInfo, kind Kind, extra string) Result
	NotifyAdminAction(ctx context.Context, b BookingInfo, kind Kind, detail string) Result
	NotifyStaffMessage(ctx context.Context, m MessageInfo) Result
	SendContact(ctx context.Context, c ContactInfo) (owner Result, reply Result)
}
