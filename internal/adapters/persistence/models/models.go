package models

import (
	"time"

	"foodlink/internal/core/domain"
	"foodlink/internal/core/expiry"

	"gorm.io/gorm"
)

// ============================================================
// Users
// ============================================================

// User represents users table (donors and NGOs)
type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Username           string         `gorm:"uniqueIndex;size:80;not null" json:"username"`
	Email              string         `gorm:"uniqueIndex;size:120;not null" json:"email"`
	Password           string         `gorm:"size:255;not null" json:"-"`
	Role               string         `gorm:"size:10;not null;index" json:"role"`
	FullName           string         `gorm:"size:100;not null" json:"full_name"`
	Phone              string         `gorm:"size:20" json:"phone"`
	Address            string         `gorm:"type:text" json:"address"`
	City               string         `gorm:"size:50" json:"city"`
	OrganizationName   string         `gorm:"size:100" json:"organization_name"`
	RegistrationNumber string         `gorm:"size:50" json:"registration_number"`
	IsActive           bool           `gorm:"default:true" json:"is_active"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// IsNGO reports whether the account belongs to an NGO
func (u *User) IsNGO() bool {
	return domain.Role(u.Role) == domain.RoleNGO
}

// DisplayName is the organization name for NGOs, otherwise the full name
func (u *User) DisplayName() string {
	if u.IsNGO() && u.OrganizationName != "" {
		return u.OrganizationName
	}
	return u.FullName
}

// Actor converts the user into an engine caller identity
func (u *User) Actor() domain.Actor {
	return domain.Actor{UserID: u.ID, Role: domain.Role(u.Role)}
}

// UserResponse DTO
type UserResponse struct {
	ID                 uint      `json:"id"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	Role               string    `json:"role"`
	FullName           string    `json:"full_name"`
	DisplayName        string    `json:"display_name"`
	Phone              string    `json:"phone,omitempty"`
	City               string    `json:"city,omitempty"`
	OrganizationName   string    `json:"organization_name,omitempty"`
	RegistrationNumber string    `json:"registration_number,omitempty"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:                 u.ID,
		Username:           u.Username,
		Email:              u.Email,
		Role:               u.Role,
		FullName:           u.FullName,
		DisplayName:        u.DisplayName(),
		Phone:              u.Phone,
		City:               u.City,
		OrganizationName:   u.OrganizationName,
		RegistrationNumber: u.RegistrationNumber,
		IsActive:           u.IsActive,
		CreatedAt:          u.CreatedAt,
	}
}

// PartyResponse is the contact card of the other side of a donation
type PartyResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

func (u *User) ToParty() *PartyResponse {
	return &PartyResponse{
		ID:    u.ID,
		Name:  u.DisplayName(),
		Phone: u.Phone,
		Email: u.Email,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}

// ============================================================
// Lookup Tables
// ============================================================

// Category food category (seeded, read-only)
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

// ============================================================
// Main Tables
// ============================================================

// FoodDonation a surplus food listing owned by its donor
type FoodDonation struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	DonorID            uint           `gorm:"not null;index" json:"donor_id"`
	CategoryID         uint           `gorm:"not null;index" json:"category_id"`
	Title              string         `gorm:"size:100;not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	Quantity           int            `gorm:"not null" json:"quantity"`
	Unit               string         `gorm:"size:20;not null" json:"unit"`
	ExpiryDate         time.Time      `gorm:"type:date;not null;index" json:"expiry_date"`
	PickupAddress      string         `gorm:"type:text;not null" json:"pickup_address"`
	PickupCity         string         `gorm:"size:50;not null;index" json:"pickup_city"`
	PickupInstructions string         `gorm:"type:text" json:"pickup_instructions"`
	Status             string         `gorm:"size:20;not null;default:'available';index" json:"status"`
	IsPerishable       bool           `gorm:"not null" json:"is_perishable"`
	DietaryInfo        string         `gorm:"size:100" json:"dietary_info"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Donor    *User     `gorm:"foreignKey:DonorID" json:"donor,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (FoodDonation) TableName() string {
	return "food_donations"
}

// DonationStatus returns the typed status
func (d *FoodDonation) DonationStatus() domain.DonationStatus {
	return domain.DonationStatus(d.Status)
}

// DonationResponse DTO
type DonationResponse struct {
	ID                 uint           `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Quantity           int            `json:"quantity"`
	Unit               string         `json:"unit"`
	ExpiryDate         string         `json:"expiry_date"`
	PickupAddress      string         `json:"pickup_address"`
	PickupCity         string         `json:"pickup_city"`
	PickupInstructions string         `json:"pickup_instructions"`
	Status             string         `json:"status"`
	IsPerishable       bool           `json:"is_perishable"`
	DietaryInfo        string         `json:"dietary_info"`
	CategoryID         uint           `json:"category_id"`
	CategoryName       string         `json:"category_name,omitempty"`
	DaysUntilExpiry    int            `json:"days_until_expiry"`
	IsUrgent           bool           `json:"is_urgent"`
	Donor              *PartyResponse `json:"donor,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// ToResponse builds the DTO; now drives the derived expiry fields
func (d *FoodDonation) ToResponse(now time.Time) *DonationResponse {
	resp := &DonationResponse{
		ID:                 d.ID,
		Title:              d.Title,
		Description:        d.Description,
		Quantity:           d.Quantity,
		Unit:               d.Unit,
		ExpiryDate:         d.ExpiryDate.Format("2006-01-02"),
		PickupAddress:      d.PickupAddress,
		PickupCity:         d.PickupCity,
		PickupInstructions: d.PickupInstructions,
		Status:             d.Status,
		IsPerishable:       d.IsPerishable,
		DietaryInfo:        d.DietaryInfo,
		CategoryID:         d.CategoryID,
		DaysUntilExpiry:    expiry.DaysUntil(d.ExpiryDate, now),
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	resp.IsUrgent = d.DonationStatus() == domain.DonationAvailable && expiry.IsUrgent(d.ExpiryDate, now)

	if d.Category != nil {
		resp.CategoryName = d.Category.Name
	}
	if d.Donor != nil {
		resp.Donor = d.Donor.ToParty()
	}

	return resp
}

// Claim one NGO's custody of one donation
type Claim struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	DonationID uint `gorm:"not null;index" json:"donation_id"`
	NGOID      uint `gorm:"column:ngo_id;not null;index" json:"ngo_id"`
	// LiveDonationID mirrors DonationID until the claim is cancelled, then
	// becomes NULL. Its unique index allows one non-cancelled claim per donation.
	LiveDonationID    *uint      `gorm:"uniqueIndex:idx_claims_live_donation" json:"-"`
	Status            string     `gorm:"size:20;not null;default:'claimed';index" json:"status"`
	ClaimedAt         time.Time  `gorm:"not null" json:"claimed_at"`
	PickupScheduledAt *time.Time `json:"pickup_scheduled_at"`
	PickedUpAt        *time.Time `json:"picked_up_at"`
	CompletedAt       *time.Time `json:"completed_at"`
	CancelledAt       *time.Time `json:"cancelled_at"`
	CancelledBy       *uint      `json:"cancelled_by"`
	Notes             string     `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Donation *FoodDonation `gorm:"foreignKey:DonationID" json:"donation,omitempty"`
	NGO      *User         `gorm:"foreignKey:NGOID" json:"ngo,omitempty"`
}

func (Claim) TableName() string {
	return "claims"
}

// ClaimStatus returns the typed status
func (c *Claim) ClaimStatus() domain.ClaimStatus {
	return domain.ClaimStatus(c.Status)
}

// ClaimResponse DTO
type ClaimResponse struct {
	ID                uint              `json:"id"`
	DonationID        uint              `json:"donation_id"`
	NGOID             uint              `json:"ngo_id"`
	Status            string            `json:"status"`
	ClaimedAt         time.Time         `json:"claimed_at"`
	PickupScheduledAt *time.Time        `json:"pickup_scheduled_at"`
	PickedUpAt        *time.Time        `json:"picked_up_at"`
	CompletedAt       *time.Time        `json:"completed_at"`
	CancelledAt       *time.Time        `json:"cancelled_at"`
	Notes             string            `json:"notes"`
	Donation          *DonationResponse `json:"donation,omitempty"`
	NGO               *PartyResponse    `json:"ngo,omitempty"`
}

func (c *Claim) ToResponse(now time.Time) *ClaimResponse {
	resp := &ClaimResponse{
		ID:                c.ID,
		DonationID:        c.DonationID,
		NGOID:             c.NGOID,
		Status:            c.Status,
		ClaimedAt:         c.ClaimedAt,
		PickupScheduledAt: c.PickupScheduledAt,
		PickedUpAt:        c.PickedUpAt,
		CompletedAt:       c.CompletedAt,
		CancelledAt:       c.CancelledAt,
		Notes:             c.Notes,
	}

	if c.Donation != nil {
		resp.Donation = c.Donation.ToResponse(now)
	}
	if c.NGO != nil {
		resp.NGO = c.NGO.ToParty()
	}

	return resp
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Category{},
		&FoodDonation{},
		&Claim{},
	)
}
