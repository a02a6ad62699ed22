package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrTourNotFound = errors.New("tour not found")

// TourLookup is what the booking domain needs from the catalog.
type TourLookup interface {
	GetActiveTour(ctx context.Context, id uuid.UUID) (*Tour, error)
	GetTour(ctx context.Context, id uuid.UUID) (*Tour, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetActiveTour(ctx context.Context, id uuid.UUID) (*Tour, error) {
	var t Tour
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTourNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTour returns the tour regardless of its active flag, for rendering
// existing bookings.
func (r *Repository) GetTour(ctx context.Context, id uuid.UUID) (*Tour, error) {
	var t Tour
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTourNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Tour, error) {
	var t Tour
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("slug = ? AND is_active = ?", slug, true).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTourNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) ListActive(ctx context.Context, limit, offset int) ([]Tour, int64, error) {
	q := r.db.WithContext(ctx).Model(&Tour{}).Where("is_active = ?", true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tours []Tour
	err := q.Preload("Category").
		Order("rating DESC, title ASC").
		Limit(limit).Offset(offset).
		Find(&tours).Error
	return tours, total, err
}

func (r *Repository) ListCategories(ctx context.Context) ([]TourCategory, error) {
	var cats []TourCategory
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&cats).Error
	return cats, err
}
