package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tourbooking/internal/domain/auth"
	"tourbooking/internal/domain/catalog"
	"tourbooking/internal/domain/notification"
	"tourbooking/internal/logger"
	"tourbooking/internal/metrics"
)

const (
	maxTravelers       = 50
	upcomingLimit      = 5
	referenceAttempts  = 10
	defaultDeclineText = "Declined by admin"
)

type Service struct {
	repo     *Repository
	tours    catalog.TourLookup
	notifier notification.Dispatcher
	metrics  *metrics.Registry
	now      func() time.Time
}

type Option func(*Service)

func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Service) { s.metrics = reg }
}

// WithClock replaces time.Now, for tests and the sweeper.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo *Repository, tours catalog.TourLookup, notifier notification.Dispatcher, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		tours:    tours,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome is a committed mutation plus the result of its customer email.
type Outcome struct {
	Booking   *Booking
	EmailSent bool
	Warning   string
}

type CreateInput struct {
	TourID            uuid.UUID
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	NumberOfTravelers int
	Schedule          Schedule
	PreferredTime     string
	SpecialRequests   string
	CustomerNotes     string
	PaymentMethod     string
	DiscountAmount    int64
	TaxAmount         int64
	TotalAmount       *int64
	Travelers         []Traveler
}

// Create validates and stores a new pending booking, then notifies the
// customer and the owner. caller is nil for guests.
func (s *Service) Create(ctx context.Context, caller *auth.Principal, in CreateInput) (*Outcome, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return nil, fmt.Errorf("%w: first_name and last_name are required", ErrValidation)
	}
	if in.DiscountAmount < 0 || in.TaxAmount < 0 {
		return nil, fmt.Errorf("%w: amounts cannot be negative", ErrValidation)
	}
	if in.NumberOfTravelers < 1 || in.NumberOfTravelers > maxTravelers {
		return nil, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidTravelers, maxTravelers)
	}
	if len(in.Travelers) > in.NumberOfTravelers {
		return nil, fmt.Errorf("%w: more traveler records than travelers", ErrValidation)
	}

	email, err := ValidateEmail(in.Email)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if date, ok := in.Schedule.Date(); ok && date.Before(today(now)) {
		return nil, ErrPastDate
	}

	tour, err := s.tours.GetActiveTour(ctx, in.TourID)
	if err != nil {
		if errors.Is(err, catalog.ErrTourNotFound) {
			return nil, ErrTourNotFound
		}
		return nil, fmt.Errorf("load tour: %w", err)
	}
	if !tour.AcceptsTravelers(in.NumberOfTravelers) {
		return nil, fmt.Errorf("%w: this tour accepts %d to %d travelers", ErrInvalidTravelers, tour.MinPersons, tour.MaxPersons)
	}

	total := ComputeTotal(tour.Price, in.NumberOfTravelers, in.DiscountAmount, in.TaxAmount)
	if in.TotalAmount != nil {
		total = *in.TotalAmount
	}

	if in.PaymentMethod == "" {
		in.PaymentMethod = "card"
	}

	b := &Booking{
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Email:             email,
		Phone:             strings.TrimSpace(in.Phone),
		TourID:            tour.ID,
		NumberOfTravelers: in.NumberOfTravelers,
		PreferredTime:     in.PreferredTime,
		SpecialRequests:   in.SpecialRequests,
		CustomerNotes:     in.CustomerNotes,
		TourPrice:         tour.Price,
		DiscountAmount:    in.DiscountAmount,
		TaxAmount:         in.TaxAmount,
		TotalAmount:       total,
		Status:            StatusPending,
		PaymentStatus:     PaymentPending,
		PaymentMethod:     in.PaymentMethod,
		Travelers:         in.Travelers,
	}
	b.SetSchedule(in.Schedule)
	var changedBy *int64
	if caller != nil {
		id := caller.UserID
		b.UserID = &id
		changedBy = &id
	}

	err = s.repo.Transaction(ctx, func(tx *Repository) error {
		dup, err := tx.FindActiveDuplicate(ctx, DuplicateQuery{
			UserID:   b.UserID,
			Email:    email,
			TourID:   tour.ID,
			Schedule: in.Schedule,
		})
		if err != nil {
			return err
		}
		if dup != nil {
			return &ConflictError{Existing: existingSummary(dup)}
		}

		ref, err := s.uniqueReference(ctx, tx)
		if err != nil {
			return err
		}
		b.Reference = ref

		if err := tx.Create(ctx, b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return tx.AppendHistory(ctx, &StatusHistory{
			BookingID: b.ID,
			NewStatus: StatusPending,
			ChangedBy: changedBy,
			Reason:    "Booking created",
		})
	})
	if err != nil {
		return nil, err
	}

	b.Tour = tour
	s.observe(StatusPending)
	logger.WithContext(ctx).Info("booking created", "reference", b.Reference, "tour_id", tour.ID.String())

	info := bookingInfo(b)
	res := s.notifier.NotifyCustomer(ctx, info, notification.KindBookingCreated)
	s.logFailure(ctx, b.Reference, notification.KindBookingCreated, res)
	s.logFailure(ctx, b.Reference, notification.KindNewBooking,
		s.notifier.NotifyOwner(ctx, info, notification.KindNewBooking, ""))

	return outcome(b, res, "Booking created but confirmation email could not be sent"), nil
}

type UpdateInput struct {
	FirstName       *string
	LastName        *string
	Email           *string
	Phone           *string
	Schedule        *Schedule
	PreferredTime   *string
	SpecialRequests *string
}

// Update changes customer-editable details of an owned active booking whose
// date has not come yet.
func (s *Service) Update(ctx context.Context, caller auth.Principal, ref string, in UpdateInput) (*Booking, error) {
	fields := map[string]any{}
	setText := func(column string, v *string, required bool) error {
		if v == nil {
			return nil
		}
		val := strings.TrimSpace(*v)
		if required && val == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrValidation, column)
		}
		fields[column] = val
		return nil
	}
	if err := setText("first_name", in.FirstName, true); err != nil {
		return nil, err
	}
	if err := setText("last_name", in.LastName, true); err != nil {
		return nil, err
	}
	if err := setText("phone", in.Phone, false); err != nil {
		return nil, err
	}
	if err := setText("preferred_time", in.PreferredTime, false); err != nil {
		return nil, err
	}
	if err := setText("special_requests", in.SpecialRequests, false); err != nil {
		return nil, err
	}
	if in.Email != nil {
		email, err := ValidateEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		fields["email"] = email
	}

	now := s.now()
	if in.Schedule != nil {
		switch in.Schedule.Kind() {
		case ScheduleExactDate:
			date, _ := in.Schedule.Date()
			if !date.After(today(now)) {
				return nil, fmt.Errorf("%w: new date must be in the future", ErrPastDate)
			}
			fields["preferred_date"] = date
		case ScheduleFreeText:
			text, _ := in.Schedule.Description()
			fields["preferred_date"] = nil
			fields["availability_description"] = text
		case ScheduleUnset:
			fields["preferred_date"] = nil
			fields["availability_description"] = ""
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	id := caller.UserID
	var bookingID uuid.UUID
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		b, err := tx.GetByReference(ctx, ref)
		if err != nil {
			return err
		}
		if !ownedBy(b, caller) {
			return ErrNotFound
		}
		if !b.CanBeCancelled(now) {
			return ErrCannotUpdate
		}
		if err := tx.Update(ctx, b.ID, fields); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		bookingID = b.ID
		return tx.AppendHistory(ctx, &StatusHistory{
			BookingID: b.ID,
			OldStatus: b.Status,
			NewStatus: b.Status,
			ChangedBy: &id,
			Reason:    "Booking details updated by customer",
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetDetail(ctx, bookingID)
}

// Cancel cancels a booking owned by caller.
func (s *Service) Cancel(ctx context.Context, caller auth.Principal, ref string, reason CancellationReason, details string) (*Outcome, error) {
	now := s.now()
	by := caller.UserID
	var b *Booking
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		var err error
		b, err = tx.GetByReference(ctx, ref)
		if err != nil {
			return err
		}
		if !ownedBy(b, caller) {
			return ErrNotFound
		}
		if !b.CanBeCancelled(now) {
			return ErrCannotCancel
		}
		return s.cancel(ctx, tx, b, &by, reason, details, "Cancelled: "+reason.Label())
	})
	if err != nil {
		return nil, err
	}
	return s.afterCancel(ctx, b, reason), nil
}

// CancelGuest cancels a guest booking identified by reference and email.
func (s *Service) CancelGuest(ctx context.Context, ref, email string, reason CancellationReason, details string) (*Outcome, error) {
	now := s.now()
	var b *Booking
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		match, err := tx.FindByReferenceAndEmail(ctx, ref, email)
		if err != nil {
			return err
		}
		if match.UserID != nil {
			return ErrNotFound
		}
		b, err = tx.GetByReference(ctx, ref)
		if err != nil {
			return err
		}
		if !b.CanBeCancelled(now) {
			return ErrCannotCancel
		}
		return s.cancel(ctx, tx, b, nil, reason, details, "Guest cancellation: "+reason.Label())
	})
	if err != nil {
		return nil, err
	}
	return s.afterCancel(ctx, b, reason), nil
}

// cancel moves b to cancelled inside tx. It creates the cancellation record
// only when none exists and books a pending refund for paid bookings.
func (s *Service) cancel(ctx context.Context, tx *Repository, b *Booking, by *int64, reason CancellationReason, details, historyReason string) error {
	now := s.now()
	old := b.Status
	if err := tx.Update(ctx, b.ID, map[string]any{
		"booking_status":    StatusCancelled,
		"cancellation_date": now,
	}); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}

	exists, err := tx.HasCancellation(ctx, b.ID)
	if err != nil {
		return err
	}
	if !exists {
		if err := tx.CreateCancellation(ctx, &Cancellation{
			BookingID:     b.ID,
			Reason:        reason,
			ReasonDetails: details,
			CancelledBy:   by,
			RefundAmount:  b.TotalAmount,
		}); err != nil {
			return fmt.Errorf("create cancellation: %w", err)
		}
	}

	if err := tx.AppendHistory(ctx, &StatusHistory{
		BookingID: b.ID,
		OldStatus: old,
		NewStatus: StatusCancelled,
		ChangedBy: by,
		Reason:    historyReason,
	}); err != nil {
		return err
	}

	if b.PaymentStatus == PaymentPaid {
		if err := tx.AppendPayment(ctx, &Payment{
			BookingID: b.ID,
			Type:      PaymentTypeRefund,
			Amount:    b.TotalAmount,
			Status:    PaymentRecordPending,
		}); err != nil {
			return fmt.Errorf("record refund: %w", err)
		}
	}

	b.Status = StatusCancelled
	b.CancellationDate = &now
	return nil
}

func (s *Service) afterCancel(ctx context.Context, b *Booking, reason CancellationReason) *Outcome {
	s.observe(StatusCancelled)
	logger.WithContext(ctx).Info("booking cancelled", "reference", b.Reference, "reason", string(reason))

	info := bookingInfo(b)
	res := s.notifier.NotifyCustomer(ctx, info, notification.KindBookingCancelled)
	s.logFailure(ctx, b.Reference, notification.KindBookingCancelled, res)
	s.logFailure(ctx, b.Reference, notification.KindCancellation,
		s.notifier.NotifyOwner(ctx, info, notification.KindCancellation, "Cancellation reason: "+reason.Label()))

	return outcome(b, res, "Booking cancelled but confirmation email could not be sent")
}

// AdminConfirm moves a pending booking to confirmed.
func (s *Service) AdminConfirm(ctx context.Context, staff auth.Principal, ref string) (*Outcome, error) {
	if err := requireStaff(staff); err != nil {
		return nil, err
	}

	now := s.now()
	by := staff.UserID
	var b *Booking
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		var err error
		b, err = tx.GetByReference(ctx, ref)
		if err != nil {
			return err
		}
		if b.Status != StatusPending {
			return &TransitionError{Action: "confirm", Current: b.Status}
		}
		if err := tx.Update(ctx, b.ID, map[string]any{
			"booking_status":    StatusConfirmed,
			"confirmation_date": now,
		}); err != nil {
			return fmt.Errorf("confirm booking: %w", err)
		}
		b.Status = StatusConfirmed
		b.ConfirmationDate = &now
		return tx.AppendHistory(ctx, &StatusHistory{
			BookingID: b.ID,
			OldStatus: StatusPending,
			NewStatus: StatusConfirmed,
			ChangedBy: &by,
			Reason:    "Confirmed by admin",
		})
	})
	if err != nil {
		return nil, err
	}

	s.observe(StatusConfirmed)
	logger.WithContext(ctx).Info("booking confirmed", "reference", b.Reference, "staff_id", by)

	res := s.notifier.NotifyAdminAction(ctx, bookingInfo(b), notification.KindAdminConfirmation, "")
	s.logFailure(ctx, b.Reference, notification.KindAdminConfirmation, res)
	return outcome(b, res, "Booking confirmed but customer email could not be sent"), nil
}

// AdminDecline cancels any booking that is not already cancelled or
// completed.
func (s *Service) AdminDecline(ctx context.Context, staff auth.Principal, ref, reason string) (*Outcome, error) {
	if err := requireStaff(staff); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultDeclineText
	}

	by := staff.UserID
	var b *Booking
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		var err error
		b, err = tx.GetByReference(ctx, ref)
		if err != nil {
			return err
		}
		if !b.CanBeDeclined() {
			return &TransitionError{Action: "decline", Current: b.Status}
		}
		return s.cancel(ctx, tx, b, &by, ReasonOther, reason, "Declined by admin: "+reason)
	})
	if err != nil {
		return nil, err
	}

	s.observe(StatusCancelled)
	logger.WithContext(ctx).Info("booking declined", "reference", b.Reference, "staff_id", by)

	res := s.notifier.NotifyAdminAction(ctx, bookingInfo(b), notification.KindAdminDecline, reason)
	s.logFailure(ctx, b.Reference, notification.KindAdminDecline, res)
	return outcome(b, res, "Booking declined but customer email could not be sent"), nil
}

type PaymentInput struct {
	Amount               int64
	Gateway              string
	GatewayTransactionID string
	GatewayFee           int64
}

// AdminRecordPayment appends a completed payment to the ledger. Once the
// completed payments cover the total, the booking is marked paid.
func (s *Service) AdminRecordPayment(ctx context.Context, staff auth.Principal, ref string, in PaymentInput) (*Booking, error) {
	if err := requireStaff(staff); err != nil {
		return nil, err
	}
	if in.Amount <= 0 || in.GatewayFee < 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	now := s.now()
	var id uuid.UUID
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		b, err := tx.GetByReference(ctx, ref)
		if err != nil {
			return err
		}
		if b.Status == StatusCancelled {
			return &TransitionError{Action: "record payment for", Current: b.Status}
		}
		id = b.ID
		if err := tx.AppendPayment(ctx, &Payment{
			BookingID:            b.ID,
			Type:                 PaymentTypePayment,
			Amount:               in.Amount,
			Gateway:              in.Gateway,
			GatewayTransactionID: in.GatewayTransactionID,
			GatewayFee:           in.GatewayFee,
			Status:               PaymentRecordCompleted,
			ProcessedAt:          &now,
		}); err != nil {
			return fmt.Errorf("record payment: %w", err)
		}

		paid, err := tx.SumCompletedPayments(ctx, b.ID)
		if err != nil {
			return err
		}
		if paid >= b.TotalAmount && b.PaymentStatus != PaymentPaid {
			return tx.Update(ctx, b.ID, map[string]any{
				"payment_status": PaymentPaid,
				"transaction_id": in.GatewayTransactionID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetDetail(ctx, id)
}

// LookupGuest returns the booking whose reference and email both match.
func (s *Service) LookupGuest(ctx context.Context, ref, email string) (*Booking, error) {
	match, err := s.repo.FindByReferenceAndEmail(ctx, strings.TrimSpace(ref), email)
	if err != nil {
		return nil, err
	}
	return s.repo.GetDetail(ctx, match.ID)
}

func (s *Service) ListMine(ctx context.Context, caller auth.Principal) ([]Booking, error) {
	return s.repo.ListByUser(ctx, caller.UserID)
}

// GetMine returns ErrNotFound for bookings owned by someone else.
func (s *Service) GetMine(ctx context.Context, caller auth.Principal, ref string) (*Booking, error) {
	match, err := s.repo.FindOwned(ctx, ref, caller.UserID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetDetail(ctx, match.ID)
}

func (s *Service) Stats(ctx context.Context, caller auth.Principal) (*Stats, error) {
	return s.repo.StatsForUser(ctx, caller.UserID, today(s.now()))
}

func (s *Service) Upcoming(ctx context.Context, caller auth.Principal) ([]Booking, error) {
	return s.repo.ListUpcoming(ctx, caller.UserID, today(s.now()), upcomingLimit)
}

// AdminItem is a booking row in the staff listing.
type AdminItem struct {
	Booking
	TourTitle  string `json:"tour_title"`
	CanConfirm bool   `json:"can_confirm"`
	CanDecline bool   `json:"can_decline"`
}

// AdminList lists all bookings. An empty status or "all" disables the
// filter.
func (s *Service) AdminList(ctx context.Context, staff auth.Principal, status string) ([]AdminItem, error) {
	if err := requireStaff(staff); err != nil {
		return nil, err
	}

	var filter *BookingStatus
	if status != "" && status != "all" {
		st, ok := ParseStatus(status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		filter = &st
	}

	list, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]AdminItem, 0, len(list))
	for _, b := range list {
		item := AdminItem{
			Booking:    b,
			CanConfirm: b.Status == StatusPending,
			CanDecline: b.CanBeDeclined(),
		}
		if b.Tour != nil {
			item.TourTitle = b.Tour.Title
		}
		items = append(items, item)
	}
	return items, nil
}

// CompletePast marks confirmed bookings whose date is before today as
// completed. Each booking commits separately.
func (s *Service) CompletePast(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.repo.ListConfirmedBefore(ctx, today(now))
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, c := range candidates {
		changed := false
		err := s.repo.Transaction(ctx, func(tx *Repository) error {
			b, err := tx.GetByReference(ctx, c.Reference)
			if err != nil {
				return err
			}
			if b.Status != StatusConfirmed {
				return nil
			}
			if err := tx.Update(ctx, b.ID, map[string]any{
				"booking_status":  StatusCompleted,
				"completion_date": now,
			}); err != nil {
				return err
			}
			changed = true
			return tx.AppendHistory(ctx, &StatusHistory{
				BookingID: b.ID,
				OldStatus: StatusConfirmed,
				NewStatus: StatusCompleted,
				Reason:    "Tour date passed",
			})
		})
		if err != nil {
			return completed, fmt.Errorf("complete %s: %w", c.Reference, err)
		}
		if changed {
			completed++
			s.observe(StatusCompleted)
		}
	}
	return completed, nil
}

func (s *Service) uniqueReference(ctx context.Context, tx *Repository) (string, error) {
	for range referenceAttempts {
		ref, err := NewReference()
		if err != nil {
			return "", err
		}
		exists, err := tx.ReferenceExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
	}
	return "", errors.New("could not generate a unique booking reference")
}

func (s *Service) observe(status BookingStatus) {
	if s.metrics != nil {
		s.metrics.BookingTransitions.WithLabelValues(string(status)).Inc()
	}
}

func (s *Service) logFailure(ctx context.Context, ref string, kind notification.Kind, res notification.Result) {
	if res.Failed() {
		logger.WithContext(ctx).Warn("notification not delivered",
			"reference", ref, "kind", string(kind), "error", res.Err)
	}
}

func requireStaff(p auth.Principal) error {
	switch p.Role {
	case auth.RoleStaff:
		return nil
	case auth.RoleCustomer:
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

func ownedBy(b *Booking, p auth.Principal) bool {
	return b.UserID != nil && *b.UserID == p.UserID
}

func outcome(b *Booking, res notification.Result, warning string) *Outcome {
	out := &Outcome{Booking: b, EmailSent: res.Sent}
	if !res.Sent {
		out.Warning = warning
	}
	return out
}

func existingSummary(b *Booking) ExistingBooking {
	e := ExistingBooking{
		Reference: b.Reference,
		Status:    b.Status,
		CreatedAt: b.BookingDate,
	}
	if b.Tour != nil {
		e.TourTitle = b.Tour.Title
	}
	return e
}

func bookingInfo(b *Booking) notification.BookingInfo {
	info := notification.BookingInfo{
		Reference:       b.Reference,
		CustomerName:    b.FullName(),
		Email:           b.Email,
		Phone:           b.Phone,
		Date:            b.Schedule().String(),
		Time:            b.PreferredTime,
		Travelers:       b.NumberOfTravelers,
		TotalAmount:     b.TotalAmount,
		Status:          string(b.Status),
		SpecialRequests: b.SpecialRequests,
	}
	if b.Tour != nil {
		info.TourTitle = b.Tour.Title
	}
	return info
}
