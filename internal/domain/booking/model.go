package booking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tourbooking/internal/domain/catalog"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
	StatusNoShow    BookingStatus = "no_show"
)

// ParseStatus accepts the known status values only.
func ParseStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

// IsActive reports whether the booking still holds a place on the tour.
func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

type Booking struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Reference string    `json:"booking_reference" gorm:"column:booking_reference;type:varchar(9);not null;uniqueIndex"`
	UserID    *int64    `json:"user_id,omitempty" gorm:"index"`

	FirstName string `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName  string `json:"last_name" gorm:"type:varchar(100);not null"`
	Email     string `json:"email" gorm:"type:varchar(255);not null;index"`
	Phone     string `json:"phone" gorm:"type:varchar(32)"`

	TourID            uuid.UUID     `json:"tour_id" gorm:"type:uuid;not null;index"`
	Tour              *catalog.Tour `json:"tour,omitempty" gorm:"foreignKey:TourID;constraint:OnDelete:RESTRICT"`
	NumberOfTravelers int           `json:"number_of_travelers" gorm:"not null"`

	PreferredDate           *time.Time `json:"preferred_date" gorm:"index"`
	AvailabilityDescription string     `json:"availability_description" gorm:"type:text"`
	PreferredTime           string     `json:"preferred_time" gorm:"type:varchar(20)"`
	SpecialRequests         string     `json:"special_requests" gorm:"type:text"`

	TourPrice      int64 `json:"tour_price" gorm:"not null"`
	DiscountAmount int64 `json:"discount_amount" gorm:"not null;default:0"`
	TaxAmount      int64 `json:"tax_amount" gorm:"not null;default:0"`
	TotalAmount    int64 `json:"total_amount" gorm:"not null"`

	Status          BookingStatus `json:"booking_status" gorm:"column:booking_status;type:varchar(20);not null;default:pending;index"`
	PaymentStatus   PaymentStatus `json:"payment_status" gorm:"type:varchar(20);not null;default:pending"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty" gorm:"type:varchar(200)"`
	PaymentMethod   string        `json:"payment_method" gorm:"type:varchar(50);not null;default:card"`
	TransactionID   string        `json:"transaction_id,omitempty" gorm:"type:varchar(200)"`

	InternalNotes string `json:"-" gorm:"type:text"`
	CustomerNotes string `json:"customer_notes,omitempty" gorm:"type:text"`

	BookingDate      time.Time  `json:"booking_date" gorm:"autoCreateTime"`
	ConfirmationDate *time.Time `json:"confirmation_date,omitempty"`
	CancellationDate *time.Time `json:"cancellation_date,omitempty"`
	CompletionDate   *time.Time `json:"completion_date,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Travelers    []Traveler      `json:"travelers,omitempty" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	Cancellation *Cancellation   `json:"cancellation,omitempty" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	History      []StatusHistory `json:"status_history,omitempty" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	Payments     []Payment       `json:"payments,omitempty" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
}

func (Booking) TableName() string { return "bookings" }

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *Booking) FullName() string {
	return b.FirstName + " " + b.LastName
}

// Schedule returns the booking's date preference as a single value. An
// exact date wins over a stored description.
func (b *Booking) Schedule() Schedule {
	return scheduleFromColumns(b.PreferredDate, b.AvailabilityDescription)
}

// SetSchedule writes s to the legacy columns.
func (b *Booking) SetSchedule(s Schedule) {
	switch s.Kind() {
	case ScheduleExactDate:
		d := s.date
		b.PreferredDate = &d
	case ScheduleFreeText:
		b.PreferredDate = nil
		b.AvailabilityDescription = s.text
	case ScheduleUnset:
		b.PreferredDate = nil
		b.AvailabilityDescription = ""
	}
}

// CanBeCancelled holds while the booking is active and its date, if any,
// is strictly after today.
func (b *Booking) CanBeCancelled(now time.Time) bool {
	if !b.Status.IsActive() {
		return false
	}
	date, ok := b.Schedule().Date()
	if !ok {
		return true
	}
	return date.After(today(now))
}

// CanBeDeclined reports whether staff may still decline the booking.
func (b *Booking) CanBeDeclined() bool {
	switch b.Status {
	case StatusPending, StatusConfirmed, StatusNoShow:
		return true
	case StatusCancelled, StatusCompleted:
		return false
	default:
		return false
	}
}

// ComputeTotal is price*travelers - discount + tax.
func ComputeTotal(price int64, travelers int, discount, tax int64) int64 {
	return price*int64(travelers) - discount + tax
}

type Traveler struct {
	ID                    uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	BookingID             uuid.UUID  `json:"-" gorm:"type:uuid;not null;index"`
	FirstName             string     `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName              string     `json:"last_name" gorm:"type:varchar(100);not null"`
	DateOfBirth           *time.Time `json:"date_of_birth,omitempty"`
	Nationality           string     `json:"nationality,omitempty" gorm:"type:varchar(100)"`
	PassportNumber        string     `json:"passport_number,omitempty" gorm:"type:varchar(50)"`
	DietaryRequirements   string     `json:"dietary_requirements,omitempty" gorm:"type:text"`
	MobilityRequirements  string     `json:"mobility_requirements,omitempty" gorm:"type:text"`
	EmergencyContactName  string     `json:"emergency_contact_name,omitempty" gorm:"type:varchar(200)"`
	EmergencyContactPhone string     `json:"emergency_contact_phone,omitempty" gorm:"type:varchar(32)"`
}

func (Traveler) TableName() string { return "booking_travelers" }

func (t *Traveler) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// StatusHistory rows are append-only.
type StatusHistory struct {
	ID        uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	BookingID uuid.UUID     `json:"-" gorm:"type:uuid;not null;index"`
	OldStatus BookingStatus `json:"old_status" gorm:"type:varchar(20)"`
	NewStatus BookingStatus `json:"new_status" gorm:"type:varchar(20);not null"`
	ChangedBy *int64        `json:"changed_by,omitempty"`
	Reason    string        `json:"reason" gorm:"type:text"`
	CreatedAt time.Time     `json:"created_at" gorm:"index"`
}

func (StatusHistory) TableName() string { return "booking_status_history" }

func (h *StatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

type CancellationReason string

const (
	ReasonCustomerRequest          CancellationReason = "customer_request"
	ReasonTourCancelled            CancellationReason = "tour_cancelled"
	ReasonWeather                  CancellationReason = "weather"
	ReasonInsufficientParticipants CancellationReason = "insufficient_participants"
	ReasonForceMajeure             CancellationReason = "force_majeure"
	ReasonOther                    CancellationReason = "other"
)

// Label is the human readable form used in history rows and emails.
func (r CancellationReason) Label() string {
	switch r {
	case ReasonCustomerRequest:
		return "Customer Request"
	case ReasonTourCancelled:
		return "Tour Cancelled"
	case ReasonWeather:
		return "Weather Conditions"
	case ReasonInsufficientParticipants:
		return "Insufficient Participants"
	case ReasonForceMajeure:
		return "Force Majeure"
	case ReasonOther:
		return "Other"
	default:
		return string(r)
	}
}

func ParseCancellationReason(s string) (CancellationReason, bool) {
	r := CancellationReason(s)
	switch r {
	case ReasonCustomerRequest, ReasonTourCancelled, ReasonWeather,
		ReasonInsufficientParticipants, ReasonForceMajeure, ReasonOther:
		return r, true
	default:
		return "", false
	}
}

// Cancellation is at most one per booking.
type Cancellation struct {
	ID              uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	BookingID       uuid.UUID          `json:"-" gorm:"type:uuid;not null;uniqueIndex"`
	Reason          CancellationReason `json:"reason" gorm:"type:varchar(30);not null"`
	ReasonDetails   string             `json:"reason_details,omitempty" gorm:"type:text"`
	CancelledBy     *int64             `json:"cancelled_by,omitempty"`
	RefundAmount    int64              `json:"refund_amount" gorm:"not null"`
	RefundProcessed bool               `json:"refund_processed" gorm:"not null;default:false"`
	RefundReference string             `json:"refund_reference,omitempty" gorm:"type:varchar(100)"`
	RefundDate      *time.Time         `json:"refund_date,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

func (Cancellation) TableName() string { return "booking_cancellations" }

func (c *Cancellation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type PaymentType string

const (
	PaymentTypePayment       PaymentType = "payment"
	PaymentTypeRefund        PaymentType = "refund"
	PaymentTypePartialRefund PaymentType = "partial_refund"
)

type PaymentRecordStatus string

const (
	PaymentRecordPending    PaymentRecordStatus = "pending"
	PaymentRecordProcessing PaymentRecordStatus = "processing"
	PaymentRecordCompleted  PaymentRecordStatus = "completed"
	PaymentRecordFailed     PaymentRecordStatus = "failed"
	PaymentRecordCancelled  PaymentRecordStatus = "cancelled"
)

// Payment is an append-only ledger row. It is informational and does not
// drive Booking.PaymentStatus.
type Payment struct {
	ID                   uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	BookingID            uuid.UUID           `json:"-" gorm:"type:uuid;not null;index"`
	Type                 PaymentType         `json:"payment_type" gorm:"column:payment_type;type:varchar(20);not null"`
	Amount               int64               `json:"amount" gorm:"not null"`
	Currency             string              `json:"currency" gorm:"type:varchar(3);not null;default:USD"`
	Gateway              string              `json:"gateway" gorm:"type:varchar(50);not null;default:stripe"`
	GatewayTransactionID string              `json:"gateway_transaction_id,omitempty" gorm:"type:varchar(200)"`
	GatewayFee           int64               `json:"gateway_fee" gorm:"not null;default:0"`
	Status               PaymentRecordStatus `json:"status" gorm:"type:varchar(20);not null"`
	ProcessedAt          *time.Time          `json:"processed_at,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
}

func (Payment) TableName() string { return "booking_payments" }

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Models lists the tables owned by this package. The catalog tables must be
// migrated first.
func Models() []any {
	return []any{&Booking{}, &Traveler{}, &StatusHistory{}, &Cancellation{}, &Payment{}}
}
