package main

import (
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tourbooking/internal/config"
	"tourbooking/internal/database"
	"tourbooking/internal/domain/auth"
	"tourbooking/internal/domain/catalog"
	"tourbooking/internal/logger"
)

type seedTour struct {
	catalog.Tour
	category string
}

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config_invalid", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db_connect_failed", "error", err)
	}
	if err := database.Migrate(db, append(auth.Models(), catalog.Models()...)...); err != nil {
		logger.Fatal("db_migrate_failed", "error", err)
	}

	// ================== USERS ==================
	users := []struct {
		email, password, first, last string
		role                         auth.Role
	}{
		{"admin@tourbooking.local", "admin12345", "Tour", "Desk", auth.RoleStaff},
		{"demo@tourbooking.local", "demo12345", "Demo", "Traveler", auth.RoleCustomer},
	}
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal("hash_failed", "error", err)
		}
		row := auth.User{Email: u.email, PasswordHash: string(hash), Role: u.role, FirstName: u.first, LastName: u.last}
		if err := upsert(db, &row, "email", "password_hash", "role", "first_name", "last_name"); err != nil {
			logger.Fatal("seed_user_failed", "email", u.email, "error", err)
		}
		log.Info("user_seeded", "email", u.email, "role", u.role)
	}

	// ================== CATALOG ==================
	categories := map[string]*catalog.TourCategory{
		"historical": {Name: "Historical", Slug: "historical", IsActive: true},
		"nile":       {Name: "Nile Cruises", Slug: "nile", IsActive: true},
		"desert":     {Name: "Desert Adventures", Slug: "desert", IsActive: true},
	}
	for slug, cat := range categories {
		if err := upsert(db, cat, "slug", "name", "is_active"); err != nil {
			logger.Fatal("seed_category_failed", "slug", slug, "error", err)
		}
		if err := db.Where("slug = ?", slug).First(cat).Error; err != nil {
			logger.Fatal("seed_category_reload_failed", "slug", slug, "error", err)
		}
	}

	tours := []seedTour{
		{catalog.Tour{Title: "Giza Pyramids and Sphinx", Slug: "giza-pyramids", Location: "Giza", Price: 8500, Duration: "Full day", MaxPersons: 15, IsActive: true}, "historical"},
		{catalog.Tour{Title: "Valley of the Kings", Slug: "valley-of-the-kings", Location: "Luxor", Price: 12000, Duration: "Full day", MaxPersons: 12, IsActive: true}, "historical"},
		{catalog.Tour{Title: "Aswan to Luxor Cruise", Slug: "aswan-luxor-cruise", Location: "Aswan", Price: 65000, Duration: "4 days", MinPersons: 2, MaxPersons: 20, IsActive: true}, "nile"},
		{catalog.Tour{Title: "White Desert Camping", Slug: "white-desert", Location: "Farafra", Price: 24000, Duration: "2 days", MinPersons: 2, MaxPersons: 8, IsActive: true}, "desert"},
	}
	for i := range tours {
		t := &tours[i]
		t.CategoryID = &categories[t.category].ID
		if err := upsert(db, &t.Tour, "slug", "title", "location", "price", "duration", "min_persons", "max_persons", "is_active", "category_id"); err != nil {
			logger.Fatal("seed_tour_failed", "slug", t.Slug, "error", err)
		}
		log.Info("tour_seeded", "slug", t.Slug)
	}

	log.Info("seed_completed", "users", len(users), "categories", len(categories), "tours", len(tours))
}

// upsert inserts row or updates the listed columns when key already exists.
func upsert(db *gorm.DB, row any, key string, columns ...string) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: key}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(row).Error
}
