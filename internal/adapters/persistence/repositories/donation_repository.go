package repositories

import (
	"context"
	"strings"
	"time"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// donationRepository implements DonationRepository interface
type donationRepository struct {
	db *gorm.DB
}

// NewDonationRepository creates a new donation repository
func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *donationRepository) WithTx(tx *gorm.DB) DonationRepository {
	return &donationRepository{db: tx}
}

// Create creates a new donation
func (r *donationRepository) Create(ctx context.Context, donation *models.FoodDonation) error {
	return r.db.WithContext(ctx).Create(donation).Error
}

// GetByID gets a donation by ID with relations
func (r *donationRepository) GetByID(ctx context.Context, id uint) (*models.FoodDonation, error) {
	var donation models.FoodDonation
	err := r.db.WithContext(ctx).
		Preload("Donor").
		Preload("Category").
		First(&donation, id).Error
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

// GetForUpdate reads the donation row holding a row lock until the
// surrounding transaction ends. SQLite ignores the locking clause.
func (r *donationRepository) GetForUpdate(ctx context.Context, id uint) (*models.FoodDonation, error) {
	var donation models.FoodDonation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&donation, id).Error
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

// TransitionStatus moves the donation from -> to only if it is still in from
func (r *donationRepository) TransitionStatus(ctx context.Context, id uint, from, to domain.DonationStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.FoodDonation{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	return result.RowsAffected, result.Error
}

// UpdateIfAvailable applies fields only while the donation is still available
func (r *donationRepository) UpdateIfAvailable(ctx context.Context, id uint, fields map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.FoodDonation{}).
		Where("id = ? AND status = ?", id, string(domain.DonationAvailable)).
		Updates(fields)
	return result.RowsAffected, result.Error
}

// DeleteIfAvailable soft deletes the donation only while it is still available
func (r *donationRepository) DeleteIfAvailable(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, string(domain.DonationAvailable)).
		Delete(&models.FoodDonation{})
	return result.RowsAffected, result.Error
}

// availableScope selects donations that can still be claimed as of today
func availableScope(filter DonationFilter, today time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("status = ? AND expiry_date >= ?", string(domain.DonationAvailable), today)

		if city := strings.TrimSpace(filter.City); city != "" {
			db = db.Where("LOWER(pickup_city) LIKE ?", "%"+strings.ToLower(city)+"%")
		}
		if filter.CategoryID != 0 {
			db = db.Where("category_id = ?", filter.CategoryID)
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			db = db.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
		}
		if dietary := strings.TrimSpace(filter.DietaryInfo); dietary != "" {
			db = db.Where("LOWER(dietary_info) LIKE ?", "%"+strings.ToLower(dietary)+"%")
		}
		return db
	}
}

// ListAvailable lists claimable donations, soonest expiry first
func (r *donationRepository) ListAvailable(ctx context.Context, filter DonationFilter, today time.Time, offset, limit int) ([]*models.FoodDonation, int64, error) {
	var donations []*models.FoodDonation
	var total int64

	scope := availableScope(filter, today)

	if err := r.db.WithContext(ctx).Model(&models.FoodDonation{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Preload("Donor").
		Preload("Category").
		Scopes(scope).
		Order("expiry_date ASC").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&donations).Error

	return donations, total, err
}

// ListByDonor lists a donor's donations, newest first. An empty status lists all.
func (r *donationRepository) ListByDonor(ctx context.Context, donorID uint, status domain.DonationStatus, offset, limit int) ([]*models.FoodDonation, int64, error) {
	var donations []*models.FoodDonation
	var total int64

	query := r.db.WithContext(ctx).Model(&models.FoodDonation{}).Where("donor_id = ?", donorID)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Category").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&donations).Error

	return donations, total, err
}

// ListUrgent lists available donations expiring between today and until
func (r *donationRepository) ListUrgent(ctx context.Context, today, until time.Time, limit int) ([]*models.FoodDonation, error) {
	var donations []*models.FoodDonation
	err := r.db.WithContext(ctx).
		Preload("Donor").
		Preload("Category").
		Where("status = ? AND expiry_date >= ? AND expiry_date <= ?", string(domain.DonationAvailable), today, until).
		Order("expiry_date ASC").
		Limit(limit).
		Find(&donations).Error
	return donations, err
}

// ListExpiryCandidates returns ids of available or claimed donations dated before today
func (r *donationRepository) ListExpiryCandidates(ctx context.Context, today time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.FoodDonation{}).
		Where("status IN ? AND expiry_date < ?",
			[]string{string(domain.DonationAvailable), string(domain.DonationClaimed)}, today).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

type statusCount struct {
	Status string
	Count  int64
}

// CountByStatus counts donations per status
func (r *donationRepository) CountByStatus(ctx context.Context) (map[domain.DonationStatus]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.FoodDonation{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return donationCounts(rows), nil
}

// CountByDonor counts one donor's donations per status
func (r *donationRepository) CountByDonor(ctx context.Context, donorID uint) (map[domain.DonationStatus]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.FoodDonation{}).
		Select("status, COUNT(*) AS count").
		Where("donor_id = ?", donorID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return donationCounts(rows), nil
}

// CountAvailableInCity counts claimable donations in city
func (r *donationRepository) CountAvailableInCity(ctx context.Context, city string, today time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FoodDonation{}).
		Scopes(availableScope(DonationFilter{City: city}, today)).
		Count(&count).Error
	return count, err
}

func donationCounts(rows []statusCount) map[domain.DonationStatus]int64 {
	counts := make(map[domain.DonationStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.DonationStatus(row.Status)] = row.Count
	}
	return counts
}
