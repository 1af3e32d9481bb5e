package services

import (
	"context"
	"fmt"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/adapters/persistence/repositories"
	"foodlink/internal/core/domain"
	"foodlink/internal/core/expiry"
)

const (
	recentLimit = 5
	urgentLimit = 5
)

// DashboardService aggregates per-role summaries and site statistics
type DashboardService struct {
	userRepo     repositories.UserRepository
	donationRepo repositories.DonationRepository
	claimRepo    repositories.ClaimRepository
	clock        expiry.Clock
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	userRepo repositories.UserRepository,
	donationRepo repositories.DonationRepository,
	claimRepo repositories.ClaimRepository,
	clock expiry.Clock,
) *DashboardService {
	return &DashboardService{
		userRepo:     userRepo,
		donationRepo: donationRepo,
		claimRepo:    claimRepo,
		clock:        clock,
	}
}

// ============================================================
// Donor Dashboard
// ============================================================

// DonorDashboardData represents donor dashboard data
type DonorDashboardData struct {
	TotalDonations     int64                      `json:"total_donations"`
	AvailableDonations int64                      `json:"available_donations"`
	ClaimedDonations   int64                      `json:"claimed_donations"`
	CompletedDonations int64                      `json:"completed_donations"`
	ExpiredDonations   int64                      `json:"expired_donations"`
	RecentDonations    []*models.DonationResponse `json:"recent_donations"`
}

// GetDonorDashboard returns the calling donor's summary
func (s *DashboardService) GetDonorDashboard(ctx context.Context, actor domain.Actor) (*DonorDashboardData, error) {
	if actor.Role != domain.RoleDonor {
		return nil, fmt.Errorf("%w: donor dashboard", domain.ErrRoleForbidden)
	}

	counts, err := s.donationRepo.CountByDonor(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	data := &DonorDashboardData{
		AvailableDonations: counts[domain.DonationAvailable],
		ClaimedDonations:   counts[domain.DonationClaimed],
		CompletedDonations: counts[domain.DonationCompleted],
		ExpiredDonations:   counts[domain.DonationExpired],
	}
	for _, n := range counts {
		data.TotalDonations += n
	}

	recent, _, err := s.donationRepo.ListByDonor(ctx, actor.UserID, "", 0, recentLimit)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	data.RecentDonations = make([]*models.DonationResponse, len(recent))
	for i, d := range recent {
		data.RecentDonations[i] = d.ToResponse(now)
	}

	return data, nil
}

// ============================================================
// NGO Dashboard
// ============================================================

// NGODashboardData represents NGO dashboard data
type NGODashboardData struct {
	TotalClaims     int64                      `json:"total_claims"`
	ActiveClaims    int64                      `json:"active_claims"`
	CompletedClaims int64                      `json:"completed_claims"`
	AvailableNearby int64                      `json:"available_nearby"`
	RecentClaims    []*models.ClaimResponse    `json:"recent_claims"`
	UrgentDonations []*models.DonationResponse `json:"urgent_donations"`
}

// GetNGODashboard returns the calling NGO's summary. Nearby means available
// in the NGO's own city.
func (s *DashboardService) GetNGODashboard(ctx context.Context, actor domain.Actor) (*NGODashboardData, error) {
	if actor.Role != domain.RoleNGO {
		return nil, fmt.Errorf("%w: NGO dashboard", domain.ErrRoleForbidden)
	}

	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	counts, err := s.claimRepo.CountByNGO(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	data := &NGODashboardData{
		CompletedClaims: counts[domain.ClaimCompleted],
	}
	for status, n := range counts {
		data.TotalClaims += n
		if !status.IsTerminal() {
			data.ActiveClaims += n
		}
	}

	now := s.clock()
	today := expiry.DateOf(now)

	if user.City != "" {
		data.AvailableNearby, err = s.donationRepo.CountAvailableInCity(ctx, user.City, today)
		if err != nil {
			return nil, err
		}
	}

	recent, _, err := s.claimRepo.ListByNGO(ctx, actor.UserID, "", 0, recentLimit)
	if err != nil {
		return nil, err
	}
	data.RecentClaims = make([]*models.ClaimResponse, len(recent))
	for i, c := range recent {
		data.RecentClaims[i] = c.ToResponse(now)
	}

	urgent, err := s.donationRepo.ListUrgent(ctx, today, today.AddDate(0, 0, expiry.UrgentWithinDays), urgentLimit)
	if err != nil {
		return nil, err
	}
	data.UrgentDonations = make([]*models.DonationResponse, len(urgent))
	for i, d := range urgent {
		data.UrgentDonations[i] = d.ToResponse(now)
	}

	return data, nil
}

// ============================================================
// Site Statistics
// ============================================================

// SiteStats represents public site statistics
type SiteStats struct {
	TotalDonations     int64 `json:"total_donations"`
	AvailableDonations int64 `json:"available_donations"`
	CompletedDonations int64 `json:"completed_donations"`
	ExpiredDonations   int64 `json:"expired_donations"`
	TotalClaims        int64 `json:"total_claims"`
	CompletedClaims    int64 `json:"completed_claims"`
	ActiveDonors       int64 `json:"active_donors"`
	ActiveNGOs         int64 `json:"active_ngos"`
}

// GetSiteStats returns counts across the whole site
func (s *DashboardService) GetSiteStats(ctx context.Context) (*SiteStats, error) {
	stats := &SiteStats{}

	donations, err := s.donationRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range donations {
		stats.TotalDonations += n
	}
	stats.AvailableDonations = donations[domain.DonationAvailable]
	stats.CompletedDonations = donations[domain.DonationCompleted]
	stats.ExpiredDonations = donations[domain.DonationExpired]

	claims, err := s.claimRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range claims {
		stats.TotalClaims += n
	}
	stats.CompletedClaims = claims[domain.ClaimCompleted]

	if stats.ActiveDonors, err = s.userRepo.CountActiveByRole(ctx, domain.RoleDonor); err != nil {
		return nil, err
	}
	if stats.ActiveNGOs, err = s.userRepo.CountActiveByRole(ctx, domain.RoleNGO); err != nil {
		return nil, err
	}

	return stats, nil
}
