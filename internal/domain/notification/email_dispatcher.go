package notification

import (
	"context"
	"time"

	"tourbooking/internal/logger"
	"tourbooking/internal/metrics"
)

// EmailDispatcher renders notifications and sends them through a Mailer.
// Transient transport failures are retried once. Every attempt is written
// to the delivery log when a repository is configured.
type EmailDispatcher struct {
	mailer     Mailer
	ownerEmail string
	deliveries *DeliveryRepository
	metrics    *metrics.Registry
	retryDelay time.Duration
}

type Option func(*EmailDispatcher)

func WithDeliveryLog(repo *DeliveryRepository) Option {
	return func(d *EmailDispatcher) { d.deliveries = repo }
}

func WithMetrics(reg *metrics.Registry) Option {
	return func(d *EmailDispatcher) { d.metrics = reg }
}

func WithRetryDelay(delay time.Duration) Option {
	return func(d *EmailDispatcher) { d.retryDelay = delay }
}

func NewEmailDispatcher(mailer Mailer, ownerEmail string, opts ...Option) *EmailDispatcher {
	d := &EmailDispatcher{
		mailer:     mailer,
		ownerEmail: ownerEmail,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ Dispatcher = (*EmailDispatcher)(nil)

func (d *EmailDispatcher) NotifyCustomer(ctx context.Context, b BookingInfo, kind Kind) Result {
	email, err := customerEmail(b, kind, "")
	if err != nil {
		return d.skip(ctx, kind, AudienceCustomer, b.Reference, err)
	}
	return d.send(ctx, kind, AudienceCustomer, b.Reference, email)
}

func (d *EmailDispatcher) NotifyOwner(ctx context.Context, b BookingInfo, kind Kind, extra string) Result {
	return d.send(ctx, kind, AudienceOwner, b.Reference, ownerEmail(d.ownerEmail, b, kind, extra))
}

// NotifyAdminAction tells the customer about a staff decision and copies the
// owner. The returned result reflects the customer email only.
func (d *EmailDispatcher) NotifyAdminAction(ctx context.Context, b BookingInfo, kind Kind, detail string) Result {
	email, err := customerEmail(b, kind, detail)
	if err != nil {
		return d.skip(ctx, kind, AudienceCustomer, b.Reference, err)
	}
	res := d.send(ctx, kind, AudienceCustomer, b.Reference, email)
	d.send(ctx, kind, AudienceOwner, b.Reference, ownerEmail(d.ownerEmail, b, kind, detail))
	return res
}

func (d *EmailDispatcher) NotifyStaffMessage(ctx context.Context, m MessageInfo) Result {
	return d.send(ctx, KindStaffMessage, AudienceOwner, "", staffMessageEmail(d.ownerEmail, m))
}

func (d *EmailDispatcher) SendContact(ctx context.Context, c ContactInfo) (Result, Result) {
	owner := d.send(ctx, KindContact, AudienceOwner, "", contactOwnerEmail(d.ownerEmail, c))
	reply := d.send(ctx, KindContactReply, AudienceCustomer, "", contactReplyEmail(c))
	return owner, reply
}

func (d *EmailDispatcher) send(ctx context.Context, kind Kind, audience Audience, reference string, email Email) Result {
	if email.To == "" {
		return d.skip(ctx, kind, audience, reference, ErrNoRecipient)
	}

	attempts := 1
	err := d.mailer.Send(ctx, email)
	if err != nil && IsTransient(err) {
		select {
		case <-ctx.Done():
		case <-time.After(d.retryDelay):
			attempts++
			err = d.mailer.Send(ctx, email)
		}
	}

	status := DeliverySent
	if err != nil {
		status = DeliveryFailed
		logger.WithContext(ctx).Warn("notification failed",
			"kind", kind,
			"audience", audience,
			"booking_reference", reference,
			"attempts", attempts,
			"error", err,
		)
	}

	d.record(ctx, &Delivery{
		Kind:             kind,
		Audience:         audience,
		Recipient:        email.To,
		BookingReference: reference,
		Subject:          email.Subject,
		Status:           status,
		Attempts:         attempts,
		Error:            errString(err),
	})

	return Result{Sent: err == nil, Err: err}
}

func (d *EmailDispatcher) skip(ctx context.Context, kind Kind, audience Audience, reference string, err error) Result {
	logger.WithContext(ctx).Warn("notification skipped", "kind", kind, "error", err)
	d.record(ctx, &Delivery{
		Kind:             kind,
		Audience:         audience,
		BookingReference: reference,
		Status:           DeliverySkipped,
		Attempts:         0,
		Error:            err.Error(),
	})
	return Result{Err: err}
}

func (d *EmailDispatcher) record(ctx context.Context, delivery *Delivery) {
	if d.metrics != nil {
		d.metrics.Notifications.WithLabelValues(string(delivery.Kind), string(delivery.Status)).Inc()
	}
	if d.deliveries == nil {
		return
	}
	// The delivery log must outlive a cancelled request context.
	if err := d.deliveries.Create(context.WithoutCancel(ctx), delivery); err != nil {
		logger.WithContext(ctx).Error("record notification delivery", "error", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
