package config

import (
	"errors"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/core/domain"
	"foodlink/internal/core/expiry"
	"foodlink/internal/pkg/password"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DemoPassword is the password of every demo account
const DemoPassword = "password123"

func (s *Seeder) seedDemoData() error {
	donor, err := s.ensureDemoUser(models.User{
		Username: "greenbistro",
		Email:    "donor@foodlink.local",
		Role:     string(domain.RoleDonor),
		FullName: "Green Bistro",
		Phone:    "555-0100",
		Address:  "12 Market Street",
		City:     "Springfield",
		IsActive: true,
	})
	if err != nil {
		return err
	}

	if _, err := s.ensureDemoUser(models.User{
		Username:           "cityfoodbank",
		Email:              "ngo@foodlink.local",
		Role:               string(domain.RoleNGO),
		FullName:           "Dana Reyes",
		Phone:              "555-0200",
		Address:            "400 Harbor Road",
		City:               "Springfield",
		OrganizationName:   "City Food Bank",
		RegistrationNumber: "NGO-2024-0042",
		IsActive:           true,
	}); err != nil {
		return err
	}

	var count int64
	if err := s.db.Model(&models.FoodDonation{}).Where("donor_id = ?", donor.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	categoryID := func(name string) uint {
		var c models.Category
		s.db.Where("name = ?", name).First(&c)
		return c.ID
	}

	today := expiry.DateOf(s.now())
	donations := []models.FoodDonation{
		{
			DonorID:       donor.ID,
			CategoryID:    categoryID("Bakery Items"),
			Title:         "Day-old sourdough loaves",
			Description:   "Baked yesterday, still great for toast.",
			Quantity:      20,
			Unit:          "pieces",
			ExpiryDate:    today.AddDate(0, 0, 1),
			PickupAddress: "12 Market Street, back entrance",
			PickupCity:    "Springfield",
			Status:        string(domain.DonationAvailable),
			IsPerishable:  true,
			DietaryInfo:   "vegan",
		},
		{
			DonorID:            donor.ID,
			CategoryID:         categoryID("Prepared Meals"),
			Title:              "Vegetable lasagna trays",
			Quantity:           6,
			Unit:               "portions",
			ExpiryDate:         today,
			PickupAddress:      "12 Market Street, kitchen door",
			PickupCity:         "Springfield",
			PickupInstructions: "Ring the bell, ask for the chef.",
			Status:             string(domain.DonationAvailable),
			IsPerishable:       true,
			DietaryInfo:        "vegetarian",
		},
		{
			DonorID:       donor.ID,
			CategoryID:    categoryID("Dry Goods"),
			Title:         "Rice and pasta surplus",
			Quantity:      15,
			Unit:          "kg",
			ExpiryDate:    today.AddDate(0, 3, 0),
			PickupAddress: "12 Market Street, storage room",
			PickupCity:    "Springfield",
			Status:        string(domain.DonationAvailable),
			IsPerishable:  false,
		},
	}

	if err := s.db.Create(&donations).Error; err != nil {
		return err
	}

	s.log.Info("demo data seeded", zap.Int("donations", len(donations)))
	return nil
}

func (s *Seeder) ensureDemoUser(u models.User) (*models.User, error) {
	var existing models.User
	err := s.db.Where("email = ?", u.Email).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(DemoPassword)
	if err != nil {
		return nil, err
	}
	u.Password = hashed

	if err := s.db.Create(&u).Error; err != nil {
		return nil, err
	}
	s.log.Info("demo user created", zap.String("username", u.Username), zap.String("role", u.Role))
	return &u, nil
}
