package contact

import (
	"context"
	"errors"
	"strings"

	"tourbooking/internal/domain/booking"
	"tourbooking/internal/domain/notification"
	"tourbooking/internal/logger"
	"tourbooking/internal/pkg/validator"
)

const defaultSubject = "Contact Form Submission"

var (
	ErrMissingFields  = errors.New("Name, email, and message are required.")
	ErrDeliveryFailed = errors.New("There was an issue sending your message. Please try again or contact us directly.")
)

// FieldErrors maps a form field to the rule it failed.
type FieldErrors map[string]string

func (FieldErrors) Error() string { return ErrMissingFields.Error() }

func (FieldErrors) Unwrap() error { return ErrMissingFields }

// Message is one contact form submission.
type Message struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,max=254"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Receipt reports what happened to the two emails of a submission.
type Receipt struct {
	EmailSent bool
	Warning   string
}

type Service struct {
	notifier notification.Dispatcher
}

func NewService(notifier notification.Dispatcher) *Service {
	return &Service{notifier: notifier}
}

// Submit forwards the message to the owner and sends the auto-reply. Only a
// failed owner email fails the call.
func (s *Service) Submit(ctx context.Context, m Message) (*Receipt, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Phone = strings.TrimSpace(m.Phone)
	m.Message = strings.TrimSpace(m.Message)
	m.Subject = strings.TrimSpace(m.Subject)
	if m.Subject == "" {
		m.Subject = defaultSubject
	}
	if errs := validator.Validate(m); errs != nil {
		return nil, FieldErrors(errs)
	}

	email, err := booking.ValidateEmail(m.Email)
	if err != nil {
		return nil, err
	}

	owner, reply := s.notifier.SendContact(ctx, notification.ContactInfo{
		Name:    m.Name,
		Email:   email,
		Phone:   m.Phone,
		Subject: m.Subject,
		Message: m.Message,
	})
	log := logger.WithContext(ctx)
	if owner.Failed() {
		log.Error("contact_owner_email_failed", "from", email, "error", owner.Err)
		return nil, ErrDeliveryFailed
	}
	log.Info("contact_message_forwarded", "from", email)

	receipt := &Receipt{EmailSent: true}
	if reply.Failed() {
		log.Warn("contact_auto_reply_failed", "to", email, "error", reply.Err)
		receipt.Warning = "Your message was received but the confirmation email could not be sent"
	}
	return receipt, nil
}
