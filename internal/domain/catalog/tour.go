package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TourCategory struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Slug        string    `json:"slug" gorm:"type:varchar(120);not null;uniqueIndex"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
}

func (TourCategory) TableName() string { return "tour_categories" }

// Tour is a bookable product. Prices are stored in cents.
type Tour struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string    `json:"title" gorm:"type:varchar(200);not null"`
	Slug        string    `json:"slug" gorm:"type:varchar(220);not null;uniqueIndex"`
	Location    string    `json:"location" gorm:"type:varchar(200)"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price" gorm:"not null"`
	Duration    string    `json:"duration" gorm:"type:varchar(50)"`
	MinPersons  int       `json:"min_persons" gorm:"not null;default:1"`
	MaxPersons  int       `json:"max_persons" gorm:"not null;default:20"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true;index"`
	Rating      float64   `json:"rating" gorm:"not null;default:0"`
	ReviewCount int       `json:"review_count" gorm:"not null;default:0"`
	CategoryID  *int64    `json:"category_id,omitempty" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Category *TourCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (Tour) TableName() string { return "tours" }

func (t *Tour) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.MinPersons <= 0 {
		t.MinPersons = 1
	}
	return nil
}

// AcceptsTravelers reports whether n fits the tour's group size.
func (t *Tour) AcceptsTravelers(n int) bool {
	return n >= t.MinPersons && n <= t.MaxPersons
}

func Models() []any {
	return []any{&TourCategory{}, &Tour{}}
}
