package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"foodlink/internal/core/domain"
	"foodlink/internal/core/expiry"
)

// MaxExpiryDays bounds how far ahead an expiry date may be set
const MaxExpiryDays = 365

// AllowedUnits lists the accepted quantity units
var AllowedUnits = []string{"kg", "lbs", "pieces", "portions", "liters", "bottles", "packages", "boxes", "bags", "other"}

// AllowedDietaryInfo lists the accepted dietary labels; empty means none given
var AllowedDietaryInfo = []string{"", "vegetarian", "vegan", "gluten-free", "dairy-free", "nut-free", "halal", "kosher", "organic", "other"}

// DonationInput represents create/edit donation input
type DonationInput struct {
	CategoryID         uint   `json:"category_id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	Quantity           int    `json:"quantity"`
	Unit               string `json:"unit"`
	ExpiryDate         string `json:"expiry_date"` // YYYY-MM-DD
	PickupAddress      string `json:"pickup_address"`
	PickupCity         string `json:"pickup_city"`
	PickupInstructions string `json:"pickup_instructions"`
	IsPerishable       *bool  `json:"is_perishable"`
	DietaryInfo        string `json:"dietary_info"`
}

// normalize trims every text field in place
func (in *DonationInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Unit = strings.ToLower(strings.TrimSpace(in.Unit))
	in.ExpiryDate = strings.TrimSpace(in.ExpiryDate)
	in.PickupAddress = strings.TrimSpace(in.PickupAddress)
	in.PickupCity = strings.TrimSpace(in.PickupCity)
	in.PickupInstructions = strings.TrimSpace(in.PickupInstructions)
	in.DietaryInfo = strings.ToLower(strings.TrimSpace(in.DietaryInfo))
}

// perishable defaults to true when not given
func (in *DonationInput) perishable() bool {
	if in.IsPerishable == nil {
		return true
	}
	return *in.IsPerishable
}

// Validate checks the input against now and returns the parsed expiry date
func (in *DonationInput) Validate(now time.Time) (time.Time, error) {
	in.normalize()

	if err := checkLength("title", in.Title, 3, 100); err != nil {
		return time.Time{}, err
	}
	if utf8.RuneCountInString(in.Description) > 500 {
		return time.Time{}, domain.InvalidInput("description cannot exceed 500 characters")
	}
	if in.CategoryID == 0 {
		return time.Time{}, domain.InvalidInput("category is required")
	}
	if in.Quantity < 1 || in.Quantity > 10000 {
		return time.Time{}, domain.InvalidInput("quantity must be between 1 and 10000")
	}
	if !contains(AllowedUnits, in.Unit) {
		return time.Time{}, domain.InvalidInput("unit must be one of %s", strings.Join(AllowedUnits, ", "))
	}

	if in.ExpiryDate == "" {
		return time.Time{}, domain.InvalidInput("expiry date is required")
	}
	parsed, err := time.Parse("2006-01-02", in.ExpiryDate)
	if err != nil {
		return time.Time{}, domain.InvalidInput("expiry date must be formatted YYYY-MM-DD")
	}
	expiryDate := expiry.DateOf(parsed)
	if expiry.IsExpired(expiryDate, now) {
		return time.Time{}, domain.InvalidInput("expiry date cannot be in the past")
	}
	if expiry.DaysUntil(expiryDate, now) > MaxExpiryDays {
		return time.Time{}, domain.InvalidInput("expiry date cannot be more than one year in the future")
	}

	if err := checkLength("pickup address", in.PickupAddress, 10, 500); err != nil {
		return time.Time{}, err
	}
	if err := checkLength("pickup city", in.PickupCity, 2, 50); err != nil {
		return time.Time{}, err
	}
	if utf8.RuneCountInString(in.PickupInstructions) > 300 {
		return time.Time{}, domain.InvalidInput("pickup instructions cannot exceed 300 characters")
	}
	if !contains(AllowedDietaryInfo, in.DietaryInfo) {
		return time.Time{}, domain.InvalidInput("unknown dietary info %q", in.DietaryInfo)
	}

	return expiryDate, nil
}

func checkLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return domain.InvalidInput("%s must be between %d and %d characters", field, min, max)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
