package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn against a repository bound to a single transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// forUpdate adds a row lock where the dialect supports one. SQLite
// serializes writers already.
func (r *Repository) forUpdate(q *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (r *Repository) Create(ctx context.Context, b *Booking) error {
	return r.db.WithContext(ctx).Omit("Tour").Create(b).Error
}

func (r *Repository) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Booking{}).Where("booking_reference = ?", ref).Count(&count).Error
	return count > 0, err
}

// DuplicateQuery identifies the customer, tour and schedule of a new
// booking.
type DuplicateQuery struct {
	UserID   *int64
	Email    string
	TourID   uuid.UUID
	Schedule Schedule
}

// FindActiveDuplicate returns a pending or confirmed booking matching q, or
// nil. Authenticated customers match on user id or email, guests on email.
func (r *Repository) FindActiveDuplicate(ctx context.Context, q DuplicateQuery) (*Booking, error) {
	query := r.db.WithContext(ctx).
		Preload("Tour").
		Where("tour_id = ? AND booking_status IN ?", q.TourID, []BookingStatus{StatusPending, StatusConfirmed})

	email := strings.ToLower(q.Email)
	if q.UserID != nil {
		query = query.Where("(user_id = ? OR LOWER(email) = ?)", *q.UserID, email)
	} else {
		query = query.Where("LOWER(email) = ?", email)
	}

	switch q.Schedule.Kind() {
	case ScheduleExactDate:
		date, _ := q.Schedule.Date()
		query = query.Where("preferred_date = ?", date)
	case ScheduleFreeText:
		text, _ := q.Schedule.Description()
		query = query.Where("preferred_date IS NULL AND availability_description = ?", text)
	case ScheduleUnset:
		query = query.Where("preferred_date IS NULL AND (availability_description = '' OR availability_description IS NULL)")
	}

	var b Booking
	err := query.Order("booking_date ASC").First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByReference loads a booking with its tour and locks it for the rest of
// the transaction. Malformed references never reach the database.
func (r *Repository) GetByReference(ctx context.Context, ref string) (*Booking, error) {
	if !IsValidReference(ref) {
		return nil, ErrNotFound
	}
	var b Booking
	q := r.forUpdate(r.db.WithContext(ctx))
	err := q.Preload("Tour").Where("booking_reference = ?", ref).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetDetail loads a booking with every child collection.
func (r *Repository) GetDetail(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var b Booking
	err := r.db.WithContext(ctx).
		Preload("Tour").
		Preload("Travelers").
		Preload("Cancellation").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) FindOwned(ctx context.Context, ref string, userID int64) (*Booking, error) {
	var b Booking
	err := r.db.WithContext(ctx).
		Select("id").
		Where("booking_reference = ? AND user_id = ?", ref, userID).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) FindByReferenceAndEmail(ctx context.Context, ref, email string) (*Booking, error) {
	var b Booking
	err := r.db.WithContext(ctx).
		Select("id", "user_id").
		Where("booking_reference = ? AND LOWER(email) = ?", ref, strings.ToLower(strings.TrimSpace(email))).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Booking, error) {
	var list []Booking
	err := r.db.WithContext(ctx).
		Preload("Tour").
		Where("user_id = ?", userID).
		Order("booking_date DESC").
		Find(&list).Error
	return list, err
}

func (r *Repository) ListUpcoming(ctx context.Context, userID int64, from time.Time, limit int) ([]Booking, error) {
	var list []Booking
	err := r.db.WithContext(ctx).
		Preload("Tour").
		Where("user_id = ? AND booking_status IN ? AND preferred_date >= ?",
			userID, []BookingStatus{StatusPending, StatusConfirmed}, from).
		Order("preferred_date ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// ListAll returns every booking, newest first, optionally filtered by status.
func (r *Repository) ListAll(ctx context.Context, status *BookingStatus) ([]Booking, error) {
	q := r.db.WithContext(ctx).Preload("Tour").Order("booking_date DESC")
	if status != nil {
		q = q.Where("booking_status = ?", *status)
	}
	var list []Booking
	err := q.Find(&list).Error
	return list, err
}

type Stats struct {
	TotalBookings     int64 `json:"total_bookings"`
	ConfirmedBookings int64 `json:"confirmed_bookings"`
	CompletedBookings int64 `json:"completed_bookings"`
	CancelledBookings int64 `json:"cancelled_bookings"`
	PendingBookings   int64 `json:"pending_bookings"`
	TotalSpent        int64 `json:"total_spent"`
	UpcomingTours     int64 `json:"upcoming_tours"`
}

func (r *Repository) StatsForUser(ctx context.Context, userID int64, from time.Time) (*Stats, error) {
	var rows []struct {
		Status BookingStatus `gorm:"column:booking_status"`
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&Booking{}).
		Select("booking_status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("booking_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	st := &Stats{}
	for _, row := range rows {
		st.TotalBookings += row.Count
		switch row.Status {
		case StatusConfirmed:
			st.ConfirmedBookings = row.Count
		case StatusCompleted:
			st.CompletedBookings = row.Count
		case StatusCancelled:
			st.CancelledBookings = row.Count
		case StatusPending:
			st.PendingBookings = row.Count
		case StatusNoShow:
		}
	}

	err = r.db.WithContext(ctx).Model(&Booking{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("user_id = ? AND payment_status = ?", userID, PaymentPaid).
		Scan(&st.TotalSpent).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(&Booking{}).
		Where("user_id = ? AND booking_status IN ? AND preferred_date >= ?",
			userID, []BookingStatus{StatusPending, StatusConfirmed}, from).
		Count(&st.UpcomingTours).Error
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&Booking{}).Where("id = ?", id).Updates(fields).Error
}

func (r *Repository) AppendHistory(ctx context.Context, h *StatusHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *Repository) HasCancellation(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Cancellation{}).Where("booking_id = ?", bookingID).Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateCancellation(ctx context.Context, c *Cancellation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) AppendPayment(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// ListConfirmedBefore returns confirmed bookings dated before day.
func (r *Repository) ListConfirmedBefore(ctx context.Context, day time.Time) ([]Booking, error) {
	var list []Booking
	err := r.db.WithContext(ctx).
		Preload("Tour").
		Where("booking_status = ? AND preferred_date < ?", StatusConfirmed, day).
		Find(&list).Error
	return list, err
}

// SumCompletedPayments is completed payments minus completed refunds.
func (r *Repository) SumCompletedPayments(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	var rows []Payment
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, PaymentRecordCompleted).
		Find(&rows).Error
	if err != nil {
		return 0, err
	}
	var sum int64
	for _, p := range rows {
		switch p.Type {
		case PaymentTypePayment:
			sum += p.Amount
		case PaymentTypeRefund, PaymentTypePartialRefund:
			sum -= p.Amount
		}
	}
	return sum, nil
}
