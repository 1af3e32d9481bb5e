package repositories

import (
	"context"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// claimRepository implements ClaimRepository interface
type claimRepository struct {
	db *gorm.DB
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *gorm.DB) ClaimRepository {
	return &claimRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *claimRepository) WithTx(tx *gorm.DB) ClaimRepository {
	return &claimRepository{db: tx}
}

// Create creates a new claim
func (r *claimRepository) Create(ctx context.Context, claim *models.Claim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

// Find gets a claim by ID without relations
func (r *claimRepository) Find(ctx context.Context, id uint) (*models.Claim, error) {
	var claim models.Claim
	if err := r.db.WithContext(ctx).First(&claim, id).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

// GetByID gets a claim by ID with donation, donor and NGO
func (r *claimRepository) GetByID(ctx context.Context, id uint) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).
		Preload("Donation").
		Preload("Donation.Donor").
		Preload("Donation.Category").
		Preload("NGO").
		First(&claim, id).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// GetForUpdate reads the claim row holding a row lock
func (r *claimRepository) GetForUpdate(ctx context.Context, id uint) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&claim, id).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// GetLiveByDonation returns the non-cancelled claim on a donation
func (r *claimRepository) GetLiveByDonation(ctx context.Context, donationID uint) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).
		Where("live_donation_id = ?", donationID).
		First(&claim).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// CountLiveByDonation counts non-cancelled claims on a donation
func (r *claimRepository) CountLiveByDonation(ctx context.Context, donationID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Where("donation_id = ? AND status <> ?", donationID, string(domain.ClaimCancelled)).
		Count(&count).Error
	return count, err
}

// TransitionStatus applies fields only if the claim is still in from
func (r *claimRepository) TransitionStatus(ctx context.Context, id uint, from domain.ClaimStatus, fields map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(fields)
	return result.RowsAffected, result.Error
}

// ListByNGO lists claims made by an NGO, newest first. An empty status lists all.
func (r *claimRepository) ListByNGO(ctx context.Context, ngoID uint, status domain.ClaimStatus, offset, limit int) ([]*models.Claim, int64, error) {
	var claims []*models.Claim
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Claim{}).Where("ngo_id = ?", ngoID)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Donation").
		Preload("Donation.Donor").
		Preload("Donation.Category").
		Order("claimed_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&claims).Error

	return claims, total, err
}

// ListByDonor lists claims made on a donor's donations, newest first
func (r *claimRepository) ListByDonor(ctx context.Context, donorID uint, status domain.ClaimStatus, offset, limit int) ([]*models.Claim, int64, error) {
	var claims []*models.Claim
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Joins("JOIN food_donations ON food_donations.id = claims.donation_id").
		Where("food_donations.donor_id = ?", donorID)
	if status != "" {
		query = query.Where("claims.status = ?", string(status))
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Donation").
		Preload("Donation.Category").
		Preload("NGO").
		Order("claims.claimed_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&claims).Error

	return claims, total, err
}

// CountByStatus counts claims per status
func (r *claimRepository) CountByStatus(ctx context.Context) (map[domain.ClaimStatus]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return claimCounts(rows), nil
}

// CountByNGO counts one NGO's claims per status
func (r *claimRepository) CountByNGO(ctx context.Context, ngoID uint) (map[domain.ClaimStatus]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Select("status, COUNT(*) AS count").
		Where("ngo_id = ?", ngoID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return claimCounts(rows), nil
}

func claimCounts(rows []statusCount) map[domain.ClaimStatus]int64 {
	counts := make(map[domain.ClaimStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.ClaimStatus(row.Status)] = row.Count
	}
	return counts
}
