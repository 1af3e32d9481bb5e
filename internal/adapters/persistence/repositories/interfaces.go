package repositories

import (
	"context"
	"time"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/core/domain"

	"gorm.io/gorm"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id uint) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountActiveByRole(ctx context.Context, role domain.Role) (int64, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint, at time.Time) error
	RevokeByTokenHash(ctx context.Context, tokenHash string, at time.Time) error
	RevokeAllByUserID(ctx context.Context, userID uint, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CategoryRepository defines category repository interface
// Read-only access to the seeded categories table
type CategoryRepository interface {
	List(ctx context.Context) ([]*models.Category, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
}

// DonationFilter narrows the public listing of available donations
type DonationFilter struct {
	City        string
	CategoryID  uint
	Search      string
	DietaryInfo string
}

// DonationRepository defines donation repository interface.
// Mutating methods that take a status are conditional updates and report
// the number of rows they touched.
type DonationRepository interface {
	WithTx(tx *gorm.DB) DonationRepository

	Create(ctx context.Context, donation *models.FoodDonation) error
	GetByID(ctx context.Context, id uint) (*models.FoodDonation, error)
	GetForUpdate(ctx context.Context, id uint) (*models.FoodDonation, error)
	TransitionStatus(ctx context.Context, id uint, from, to domain.DonationStatus) (int64, error)
	UpdateIfAvailable(ctx context.Context, id uint, fields map[string]interface{}) (int64, error)
	DeleteIfAvailable(ctx context.Context, id uint) (int64, error)

	ListAvailable(ctx context.Context, filter DonationFilter, today time.Time, offset, limit int) ([]*models.FoodDonation, int64, error)
	ListByDonor(ctx context.Context, donorID uint, status domain.DonationStatus, offset, limit int) ([]*models.FoodDonation, int64, error)
	ListUrgent(ctx context.Context, today, until time.Time, limit int) ([]*models.FoodDonation, error)
	ListExpiryCandidates(ctx context.Context, today time.Time) ([]uint, error)

	CountByStatus(ctx context.Context) (map[domain.DonationStatus]int64, error)
	CountByDonor(ctx context.Context, donorID uint) (map[domain.DonationStatus]int64, error)
	CountAvailableInCity(ctx context.Context, city string, today time.Time) (int64, error)
}

// ClaimRepository defines claim repository interface
type ClaimRepository interface {
	WithTx(tx *gorm.DB) ClaimRepository

	Create(ctx context.Context, claim *models.Claim) error
	Find(ctx context.Context, id uint) (*models.Claim, error)
	GetByID(ctx context.Context, id uint) (*models.Claim, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Claim, error)
	GetLiveByDonation(ctx context.Context, donationID uint) (*models.Claim, error)
	CountLiveByDonation(ctx context.Context, donationID uint) (int64, error)
	TransitionStatus(ctx context.Context, id uint, from domain.ClaimStatus, fields map[string]interface{}) (int64, error)

	ListByNGO(ctx context.Context, ngoID uint, status domain.ClaimStatus, offset, limit int) ([]*models.Claim, int64, error)
	ListByDonor(ctx context.Context, donorID uint, status domain.ClaimStatus, offset, limit int) ([]*models.Claim, int64, error)

	CountByStatus(ctx context.Context) (map[domain.ClaimStatus]int64, error)
	CountByNGO(ctx context.Context, ngoID uint) (map[domain.ClaimStatus]int64, error)
}
