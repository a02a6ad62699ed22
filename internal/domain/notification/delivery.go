package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

type Audience string

const (
	AudienceCustomer Audience = "customer"
	AudienceOwner    Audience = "owner"
)

// Delivery is one dispatch attempt. Rows are never updated.
type Delivery struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Kind             Kind           `json:"kind" gorm:"type:varchar(32);not null;index"`
	Audience         Audience       `json:"audience" gorm:"type:varchar(16);not null"`
	Recipient        string         `json:"recipient" gorm:"type:varchar(255)"`
	BookingReference string         `json:"booking_reference,omitempty" gorm:"type:varchar(9);index"`
	Subject          string         `json:"subject"`
	Status           DeliveryStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	Attempts         int            `json:"attempts" gorm:"not null;default:1"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime;index"`
}

func (Delivery) TableName() string { return "notification_deliveries" }

func (d *Delivery) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func Models() []any {
	return []any{&Delivery{}}
}

type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Create(ctx context.Context, d *Delivery) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// ListRecent returns the newest deliveries, optionally only for one booking.
func (r *DeliveryRepository) ListRecent(ctx context.Context, reference string, limit int) ([]Delivery, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if reference != "" {
		q = q.Where("booking_reference = ?", reference)
	}
	var out []Delivery
	err := q.Find(&out).Error
	return out, err
}

// DeleteOlderThan prunes the log and returns the number of removed rows.
func (r *DeliveryRepository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", time.Now().Add(-age)).
		Delete(&Delivery{})
	return res.RowsAffected, res.Error
}
