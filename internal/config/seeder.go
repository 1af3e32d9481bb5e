package config

import (
	"errors"
	"time"

	"foodlink/internal/adapters/persistence/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, log *zap.Logger, now func() time.Time) *Seeder {
	return &Seeder{db: db, log: log, now: now}
}

// Run executes all seeders. Categories are always ensured; demo accounts
// and donations only when demo is set.
func (s *Seeder) Run(demo bool) error {
	s.log.Info("running database seeders", zap.Bool("demo", demo))

	if err := s.seedCategories(); err != nil {
		return err
	}

	if demo {
		if err := s.seedDemoData(); err != nil {
			return err
		}
	}

	s.log.Info("database seeding completed")
	return nil
}

// DefaultCategories is the fixed food category catalog
var DefaultCategories = []models.Category{
	{Name: "Fruits & Vegetables", Description: "Fresh produce, fruits, and vegetables"},
	{Name: "Bakery Items", Description: "Bread, pastries, and baked goods"},
	{Name: "Dairy Products", Description: "Milk, cheese, yogurt, and dairy items"},
	{Name: "Meat & Seafood", Description: "Fresh and cooked meat, poultry, and seafood"},
	{Name: "Prepared Meals", Description: "Ready-to-eat meals and cooked food"},
	{Name: "Dry Goods", Description: "Rice, pasta, cereals, and non-perishable items"},
	{Name: "Beverages", Description: "Juices, soft drinks, and other beverages"},
	{Name: "Other", Description: "Miscellaneous food items"},
}

func (s *Seeder) seedCategories() error {
	created := 0
	for _, c := range DefaultCategories {
		category := c
		var existing models.Category
		err := s.db.Where("name = ?", category.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := s.db.Create(&category).Error; err != nil {
			return err
		}
		created++
	}

	s.log.Info("categories seeded", zap.Int("created", created), zap.Int("total", len(DefaultCategories)))
	return nil
}
