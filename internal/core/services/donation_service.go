package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/adapters/persistence/repositories"
	"foodlink/internal/core/domain"
	"foodlink/internal/core/expiry"
	"foodlink/internal/core/policy"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DonationService owns the donation state machine. Donors create donations
// and may edit or delete them while they are still available; the expiry
// sweep moves overdue donations to expired.
type DonationService struct {
	txm          *repositories.TransactionManager
	donationRepo repositories.DonationRepository
	claimRepo    repositories.ClaimRepository
	categoryRepo repositories.CategoryRepository
	events       EventPublisher
	clock        expiry.Clock
	log          *zap.Logger
}

// NewDonationService creates a new donation service
func NewDonationService(
	txm *repositories.TransactionManager,
	donationRepo repositories.DonationRepository,
	claimRepo repositories.ClaimRepository,
	categoryRepo repositories.CategoryRepository,
	events EventPublisher,
	clock expiry.Clock,
	log *zap.Logger,
) *DonationService {
	if events == nil {
		events = NopPublisher
	}
	return &DonationService{
		txm:          txm,
		donationRepo: donationRepo,
		claimRepo:    claimRepo,
		categoryRepo: categoryRepo,
		events:       events,
		clock:        clock,
		log:          log,
	}
}

// Now returns the current business time
func (s *DonationService) Now() time.Time {
	return s.clock()
}

// Create lists a new available donation owned by the calling donor
func (s *DonationService) Create(ctx context.Context, actor domain.Actor, input *DonationInput) (*models.FoodDonation, error) {
	if err := policy.Authorize(actor, policy.ActionCreateDonation); err != nil {
		return nil, err
	}

	now := s.clock()
	expiryDate, err := input.Validate(now)
	if err != nil {
		return nil, err
	}
	if err := checkCategory(ctx, s.categoryRepo, input.CategoryID); err != nil {
		return nil, err
	}

	donation := &models.FoodDonation{
		DonorID:            actor.UserID,
		CategoryID:         input.CategoryID,
		Title:              input.Title,
		Description:        input.Description,
		Quantity:           input.Quantity,
		Unit:               input.Unit,
		ExpiryDate:         expiryDate,
		PickupAddress:      input.PickupAddress,
		PickupCity:         input.PickupCity,
		PickupInstructions: input.PickupInstructions,
		Status:             string(domain.DonationAvailable),
		IsPerishable:       input.perishable(),
		DietaryInfo:        input.DietaryInfo,
	}
	if err := s.donationRepo.Create(ctx, donation); err != nil {
		return nil, err
	}

	s.log.Info("donation created",
		zap.Uint("donation_id", donation.ID),
		zap.Uint("donor_id", actor.UserID),
		zap.String("expiry_date", expiryDate.Format("2006-01-02")))

	event := newEvent(domain.EventDonationCreated, now)
	event.DonationID = donation.ID
	event.DonorID = donation.DonorID
	event.Title = donation.Title
	s.events.Publish(event)

	return s.donationRepo.GetByID(ctx, donation.ID)
}

// Update replaces the editable fields of an available donation
func (s *DonationService) Update(ctx context.Context, actor domain.Actor, id uint, input *DonationInput) (*models.FoodDonation, error) {
	if err := policy.Authorize(actor, policy.ActionEditDonation); err != nil {
		return nil, err
	}

	now := s.clock()
	err := s.txm.WithTransaction(ctx, func(tx *gorm.DB) error {
		donations := s.donationRepo.WithTx(tx)

		donation, err := lockOwnedDonation(ctx, donations, actor, id)
		if err != nil {
			return err
		}
		if donation.DonationStatus() != domain.DonationAvailable {
			return fmt.Errorf("%w: donation is %s", domain.ErrNotEditable, donation.Status)
		}
		if expiry.IsExpired(donation.ExpiryDate, now) {
			return fmt.Errorf("%w: donation has passed its expiry date", domain.ErrNotEditable)
		}

		expiryDate, err := input.Validate(now)
		if err != nil {
			return err
		}
		if err := checkCategory(ctx, repositories.NewCategoryRepository(tx), input.CategoryID); err != nil {
			return err
		}

		rows, err := donations.UpdateIfAvailable(ctx, id, map[string]interface{}{
			"category_id":         input.CategoryID,
			"title":               input.Title,
			"description":         input.Description,
			"quantity":            input.Quantity,
			"unit":                input.Unit,
			"expiry_date":         expiryDate,
			"pickup_address":      input.PickupAddress,
			"pickup_city":         input.PickupCity,
			"pickup_instructions": input.PickupInstructions,
			"is_perishable":       input.perishable(),
			"dietary_info":        input.DietaryInfo,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: donation is no longer available", domain.ErrNotEditable)
		}
		return nil
	})
	if err != nil {
		return nil, exhausted(err, domain.ErrConcurrentUpdate)
	}

	s.log.Info("donation updated", zap.Uint("donation_id", id), zap.Uint("donor_id", actor.UserID))
	return s.donationRepo.GetByID(ctx, id)
}

// Delete soft deletes an available donation
func (s *DonationService) Delete(ctx context.Context, actor domain.Actor, id uint) error {
	if err := policy.Authorize(actor, policy.ActionDeleteDonation); err != nil {
		return err
	}

	err := s.txm.WithTransaction(ctx, func(tx *gorm.DB) error {
		donations := s.donationRepo.WithTx(tx)

		donation, err := lockOwnedDonation(ctx, donations, actor, id)
		if err != nil {
			return err
		}
		if donation.DonationStatus() != domain.DonationAvailable {
			return fmt.Errorf("%w: donation is %s", domain.ErrNotEditable, donation.Status)
		}

		rows, err := donations.DeleteIfAvailable(ctx, id)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: donation is no longer available", domain.ErrNotEditable)
		}
		return nil
	})
	if err != nil {
		return exhausted(err, domain.ErrConcurrentUpdate)
	}

	s.log.Info("donation deleted", zap.Uint("donation_id", id), zap.Uint("donor_id", actor.UserID))
	return nil
}

// GetByID gets a donation with its donor and category
func (s *DonationService) GetByID(ctx context.Context, id uint) (*models.FoodDonation, error) {
	donation, err := s.donationRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrDonationNotFound
		}
		return nil, err
	}
	return donation, nil
}

// ListAvailable lists donations that can be claimed today
func (s *DonationService) ListAvailable(ctx context.Context, filter repositories.DonationFilter, offset, limit int) ([]*models.FoodDonation, int64, error) {
	today := expiry.DateOf(s.clock())
	return s.donationRepo.ListAvailable(ctx, filter, today, offset, limit)
}

// ListByDonor lists the calling donor's own donations
func (s *DonationService) ListByDonor(ctx context.Context, actor domain.Actor, status domain.DonationStatus, offset, limit int) ([]*models.FoodDonation, int64, error) {
	if actor.Role != domain.RoleDonor {
		return nil, 0, fmt.Errorf("%w: only donors have donations", domain.ErrRoleForbidden)
	}
	if status != "" && !status.IsValid() {
		return nil, 0, domain.InvalidInput("unknown donation status %q", status)
	}
	return s.donationRepo.ListByDonor(ctx, actor.UserID, status, offset, limit)
}

// ExpireOverdue moves every donation whose expiry date has passed to expired.
// An available donation always expires; a claimed one only when no live
// claim holds it. Each donation is handled in its own transaction.
func (s *DonationService) ExpireOverdue(ctx context.Context, actor domain.Actor) (int, error) {
	if err := policy.Authorize(actor, policy.ActionExpireDonation); err != nil {
		return 0, err
	}

	now := s.clock()
	ids, err := s.donationRepo.ListExpiryCandidates(ctx, expiry.DateOf(now))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		event, err := s.expireOne(ctx, id, now)
		if err != nil {
			s.log.Warn("expire donation failed", zap.Uint("donation_id", id), zap.Error(err))
			continue
		}
		if event != nil {
			expired++
			s.events.Publish(*event)
		}
	}

	return expired, nil
}

func (s *DonationService) expireOne(ctx context.Context, id uint, now time.Time) (*domain.Event, error) {
	var event *domain.Event

	err := s.txm.WithTransaction(ctx, func(tx *gorm.DB) error {
		event = nil
		donations := s.donationRepo.WithTx(tx)
		claims := s.claimRepo.WithTx(tx)

		donation, err := donations.GetForUpdate(ctx, id)
		if err != nil {
			if repositories.IsNotFound(err) {
				return nil
			}
			return err
		}
		if !expiry.IsExpired(donation.ExpiryDate, now) {
			return nil
		}

		switch donation.DonationStatus() {
		case domain.DonationAvailable:
		case domain.DonationClaimed:
			_, err := claims.GetLiveByDonation(ctx, id)
			if err == nil {
				// the claim's progress takes precedence
				return nil
			}
			if !repositories.IsNotFound(err) {
				return err
			}
		default:
			return nil
		}

		if err := transitionDonation(ctx, donations, donation, domain.DonationExpired); err != nil {
			return err
		}

		e := newEvent(domain.EventDonationExpired, now)
		e.DonationID = donation.ID
		e.DonorID = donation.DonorID
		e.Title = donation.Title
		event = &e
		return nil
	})
	if err != nil {
		return nil, err
	}

	if event != nil {
		s.log.Info("donation expired", zap.Uint("donation_id", id))
	}
	return event, nil
}

// ============================================================
// Shared engine helpers
// ============================================================

// lockOwnedDonation locks the donation and checks the caller owns it
func lockOwnedDonation(ctx context.Context, donations repositories.DonationRepository, actor domain.Actor, id uint) (*models.FoodDonation, error) {
	donation, err := donations.GetForUpdate(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrDonationNotFound
		}
		return nil, err
	}
	if donation.DonorID != actor.UserID {
		return nil, fmt.Errorf("%w: donation %d belongs to another donor", domain.ErrRoleForbidden, id)
	}
	return donation, nil
}

// transitionDonation checks the state machine and applies the move as a
// conditional update on the donation's current status
func transitionDonation(ctx context.Context, donations repositories.DonationRepository, donation *models.FoodDonation, to domain.DonationStatus) error {
	from := donation.DonationStatus()
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: donation cannot move from %s to %s", domain.ErrInvalidTransition, from, to)
	}

	rows, err := donations.TransitionStatus(ctx, donation.ID, from, to)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: donation %d changed underneath", domain.ErrConcurrentUpdate, donation.ID)
	}
	donation.Status = string(to)
	return nil
}

func checkCategory(ctx context.Context, categories repositories.CategoryRepository, id uint) error {
	if _, err := categories.GetByID(ctx, id); err != nil {
		if repositories.IsNotFound(err) {
			return domain.InvalidInput("category %d does not exist", id)
		}
		return err
	}
	return nil
}

// exhausted maps a transaction that ran out of retries onto the error the
// caller should see
func exhausted(err, as error) error {
	if errors.Is(err, repositories.ErrRetriesExhausted) {
		return fmt.Errorf("%w: %v", as, err)
	}
	return err
}
