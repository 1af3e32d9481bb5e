package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/adapters/persistence/repositories"
	"foodlink/internal/core/domain"
	"foodlink/internal/core/expiry"
	"foodlink/internal/core/policy"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClaimService owns the claim state machine and keeps at most one live
// claim per donation
type ClaimService struct {
	txm          *repositories.TransactionManager
	donationRepo repositories.DonationRepository
	claimRepo    repositories.ClaimRepository
	events       EventPublisher
	clock        expiry.Clock
	log          *zap.Logger
}

// NewClaimService creates a new claim service
func NewClaimService(
	txm *repositories.TransactionManager,
	donationRepo repositories.DonationRepository,
	claimRepo repositories.ClaimRepository,
	events EventPublisher,
	clock expiry.Clock,
	log *zap.Logger,
) *ClaimService {
	if events == nil {
		events = NopPublisher
	}
	return &ClaimService{
		txm:          txm,
		donationRepo: donationRepo,
		claimRepo:    claimRepo,
		events:       events,
		clock:        clock,
		log:          log,
	}
}

// Now returns the current business time
func (s *ClaimService) Now() time.Time {
	return s.clock()
}

// Create claims an available donation for the calling NGO. The donation is
// re-read under lock; if it is no longer available, already has a live claim
// or has expired, nothing is written and ErrAlreadyClaimed is returned.
func (s *ClaimService) Create(ctx context.Context, actor domain.Actor, donationID uint, notes string) (*models.Claim, error) {
	if err := policy.Authorize(actor, policy.ActionCreateClaim); err != nil {
		return nil, err
	}

	now := s.clock()
	var claim *models.Claim
	var donation *models.FoodDonation

	err := s.txm.WithTransaction(ctx, func(tx *gorm.DB) error {
		donations := s.donationRepo.WithTx(tx)
		claims := s.claimRepo.WithTx(tx)

		d, err := donations.GetForUpdate(ctx, donationID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return domain.ErrDonationNotFound
			}
			return err
		}
		if d.DonationStatus() != domain.DonationAvailable {
			return fmt.Errorf("%w: donation is %s", domain.ErrAlreadyClaimed, d.Status)
		}
		if expiry.IsExpired(d.ExpiryDate, now) {
			return domain.ErrDonationExpired
		}

		if _, err := claims.GetLiveByDonation(ctx, d.ID); err == nil {
			return domain.ErrAlreadyClaimed
		} else if !repositories.IsNotFound(err) {
			return err
		}

		if err := transitionDonation(ctx, donations, d, domain.DonationClaimed); err != nil {
			return err
		}

		live := d.ID
		c := &models.Claim{
			DonationID:     d.ID,
			NGOID:          actor.UserID,
			LiveDonationID: &live,
			Status:         string(domain.ClaimClaimed),
			ClaimedAt:      now,
			Notes:          strings.TrimSpace(notes),
		}
		if err := claims.Create(ctx, c); err != nil {
			if repositories.IsDuplicateKey(err) {
				return fmt.Errorf("%w: another claim was recorded first", domain.ErrAlreadyClaimed)
			}
			return err
		}

		claim = c
		donation = d
		return nil
	})
	if err != nil {
		return nil, claimLost(err)
	}

	s.log.Info("donation claimed",
		zap.Uint("donation_id", donation.ID),
		zap.Uint("claim_id", claim.ID),
		zap.Uint("ngo_id", actor.UserID))

	s.events.Publish(s.claimEvent(domain.EventDonationClaimed, claim, donation, now))

	return s.claimRepo.GetByID(ctx, claim.ID)
}

// claimLost reports every way of losing the race for a donation as
// AlreadyClaimed: a conditional update that matched no row because another
// claim committed first, or retries that ran out
func claimLost(err error) error {
	if errors.Is(err, domain.ErrConcurrentUpdate) && !errors.Is(err, domain.ErrAlreadyClaimed) {
		return fmt.Errorf("%w: %v", domain.ErrAlreadyClaimed, err)
	}
	return exhausted(err, domain.ErrAlreadyClaimed)
}

// Schedule sets or moves the pickup time of a claim
func (s *ClaimService) Schedule(ctx context.Context, actor domain.Actor, claimID uint, at time.Time, notes string) (*models.Claim, error) {
	if err := policy.Authorize(actor, policy.ActionScheduleClaim); err != nil {
		return nil, err
	}
	if at.IsZero() {
		return nil, domain.InvalidInput("pickup time is required")
	}

	now := s.clock()
	if at.Before(now) {
		return nil, domain.InvalidInput("pickup time cannot be in the past")
	}

	return s.advance(ctx, actor, claimID, domain.ClaimScheduled, domain.EventClaimScheduled, func(fields map[string]interface{}) {
		fields["pickup_scheduled_at"] = at.UTC()
		if n := strings.TrimSpace(notes); n != "" {
			fields["notes"] = n
		}
	})
}

// MarkPickedUp records that the NGO collected the food
func (s *ClaimService) MarkPickedUp(ctx context.Context, actor domain.Actor, claimID uint, notes string) (*models.Claim, error) {
	if err := policy.Authorize(actor, policy.ActionPickupClaim); err != nil {
		return nil, err
	}

	now := s.clock()
	return s.advance(ctx, actor, claimID, domain.ClaimPickedUp, domain.EventClaimPickedUp, func(fields map[string]interface{}) {
		fields["picked_up_at"] = now.UTC()
		if n := strings.TrimSpace(notes); n != "" {
			fields["notes"] = n
		}
	})
}

// Complete closes the claim and marks its donation completed
func (s *ClaimService) Complete(ctx context.Context, actor domain.Actor, claimID uint, notes string) (*models.Claim, error) {
	if err := policy.Authorize(actor, policy.ActionCompleteClaim); err != nil {
		return nil, err
	}

	now := s.clock()
	return s.advance(ctx, actor, claimID, domain.ClaimCompleted, domain.EventClaimCompleted, func(fields map[string]interface{}) {
		fields["completed_at"] = now.UTC()
		if n := strings.TrimSpace(notes); n != "" {
			fields["notes"] = n
		}
	})
}

// advance moves a claim forward on behalf of its NGO or the system
func (s *ClaimService) advance(
	ctx context.Context,
	actor domain.Actor,
	claimID uint,
	to domain.ClaimStatus,
	eventType domain.EventType,
	apply func(fields map[string]interface{}),
) (*models.Claim, error) {
	now := s.clock()
	var claim *models.Claim
	var donation *models.FoodDonation

	err := s.txm.WithTransaction(ctx, func(tx *gorm.DB) error {
		donations := s.donationRepo.WithTx(tx)
		claims := s.claimRepo.WithTx(tx)

		c, d, err := lockClaim(ctx, donations, claims, claimID)
		if err != nil {
			return err
		}
		if !actor.IsSystem() && c.NGOID != actor.UserID {
			return fmt.Errorf("%w: claim %d belongs to another NGO", domain.ErrRoleForbidden, claimID)
		}

		from := c.ClaimStatus()
		if !from.CanTransitionTo(to) {
			return fmt.Errorf("%w: claim cannot move from %s to %s", domain.ErrInvalidTransition, from, to)
		}

		fields := map[string]interface{}{"status": string(to)}
		apply(fields)

		rows, err := claims.TransitionStatus(ctx, c.ID, from, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: claim %d changed underneath", domain.ErrConcurrentUpdate, c.ID)
		}
		c.Status = string(to)

		if to == domain.ClaimCompleted {
			if err := transitionDonation(ctx, donations, d, domain.DonationCompleted); err != nil {
				return err
			}
		}

		claim = c
		donation = d
		return nil
	})
	if err != nil {
		return nil, exhausted(err, domain.ErrConcurrentUpdate)
	}

	s.log.Info("claim advanced",
		zap.Uint("claim_id", claimID),
		zap.String("status", string(to)),
		zap.Uint("actor_id", actor.UserID),
		zap.String("actor_role", string(actor.Role)))

	s.events.Publish(s.claimEvent(eventType, claim, donation, now))

	return s.claimRepo.GetByID(ctx, claimID)
}

// Cancel releases the claim. The donation returns to available, or becomes
// expired when its expiry date has already passed.
func (s *ClaimService) Cancel(ctx context.Context, actor domain.Actor, claimID uint, reason string) (*models.Claim, error) {
	if err := policy.Authorize(actor, policy.ActionCancelClaim); err != nil {
		return nil, err
	}

	now := s.clock()
	reason = strings.TrimSpace(reason)
	var claim *models.Claim
	var donation *models.FoodDonation

	err := s.txm.WithTransaction(ctx, func(tx *gorm.DB) error {
		donations := s.donationRepo.WithTx(tx)
		claims := s.claimRepo.WithTx(tx)

		c, d, err := lockClaim(ctx, donations, claims, claimID)
		if err != nil {
			return err
		}

		switch actor.Role {
		case domain.RoleNGO:
			if c.NGOID != actor.UserID {
				return fmt.Errorf("%w: claim %d belongs to another NGO", domain.ErrRoleForbidden, claimID)
			}
		case domain.RoleDonor:
			if d.DonorID != actor.UserID {
				return fmt.Errorf("%w: claim %d is on another donor's donation", domain.ErrRoleForbidden, claimID)
			}
		default:
			return fmt.Errorf("%w: role %q cannot cancel claims", domain.ErrRoleForbidden, actor.Role)
		}

		from := c.ClaimStatus()
		if !from.CanTransitionTo(domain.ClaimCancelled) {
			return fmt.Errorf("%w: claim cannot move from %s to %s", domain.ErrInvalidTransition, from, domain.ClaimCancelled)
		}

		fields := map[string]interface{}{
			"status":           string(domain.ClaimCancelled),
			"live_donation_id": nil,
			"cancelled_at":     now.UTC(),
			"cancelled_by":     actor.UserID,
		}
		if reason != "" {
			fields["notes"] = "Cancelled: " + reason
		}

		rows, err := claims.TransitionStatus(ctx, c.ID, from, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: claim %d changed underneath", domain.ErrConcurrentUpdate, c.ID)
		}
		c.Status = string(domain.ClaimCancelled)

		if d.DonationStatus() == domain.DonationClaimed {
			next := domain.DonationAvailable
			if expiry.IsExpired(d.ExpiryDate, now) {
				next = domain.DonationExpired
			}
			if err := transitionDonation(ctx, donations, d, next); err != nil {
				return err
			}
		}

		claim = c
		donation = d
		return nil
	})
	if err != nil {
		return nil, exhausted(err, domain.ErrConcurrentUpdate)
	}

	s.log.Info("claim cancelled",
		zap.Uint("claim_id", claimID),
		zap.Uint("donation_id", donation.ID),
		zap.String("donation_status", donation.Status),
		zap.Uint("cancelled_by", actor.UserID))

	event := s.claimEvent(domain.EventClaimCancelled, claim, donation, now)
	event.Reason = reason
	s.events.Publish(event)

	if donation.DonationStatus() == domain.DonationExpired {
		expired := s.claimEvent(domain.EventDonationExpired, claim, donation, now)
		expired.ClaimID = 0
		expired.NGOID = 0
		s.events.Publish(expired)
	}

	return s.claimRepo.GetByID(ctx, claimID)
}

// GetByID returns a claim visible to its NGO or to the donation's donor
func (s *ClaimService) GetByID(ctx context.Context, actor domain.Actor, id uint) (*models.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrClaimNotFound
		}
		return nil, err
	}

	switch {
	case actor.Role == domain.RoleNGO && claim.NGOID == actor.UserID:
	case actor.Role == domain.RoleDonor && claim.Donation != nil && claim.Donation.DonorID == actor.UserID:
	default:
		return nil, fmt.Errorf("%w: claim %d is not visible to this account", domain.ErrRoleForbidden, id)
	}
	return claim, nil
}

// ListForNGO lists the calling NGO's claims
func (s *ClaimService) ListForNGO(ctx context.Context, actor domain.Actor, status domain.ClaimStatus, offset, limit int) ([]*models.Claim, int64, error) {
	if actor.Role != domain.RoleNGO {
		return nil, 0, fmt.Errorf("%w: only NGOs have claims", domain.ErrRoleForbidden)
	}
	if status != "" && !status.IsValid() {
		return nil, 0, domain.InvalidInput("unknown claim status %q", status)
	}
	return s.claimRepo.ListByNGO(ctx, actor.UserID, status, offset, limit)
}

// ListForDonor lists claims on the calling donor's donations
func (s *ClaimService) ListForDonor(ctx context.Context, actor domain.Actor, status domain.ClaimStatus, offset, limit int) ([]*models.Claim, int64, error) {
	if actor.Role != domain.RoleDonor {
		return nil, 0, fmt.Errorf("%w: only donors receive claims", domain.ErrRoleForbidden)
	}
	if status != "" && !status.IsValid() {
		return nil, 0, domain.InvalidInput("unknown claim status %q", status)
	}
	return s.claimRepo.ListByDonor(ctx, actor.UserID, status, offset, limit)
}

func (s *ClaimService) claimEvent(eventType domain.EventType, claim *models.Claim, donation *models.FoodDonation, now time.Time) domain.Event {
	event := newEvent(eventType, now)
	event.DonationID = donation.ID
	event.ClaimID = claim.ID
	event.DonorID = donation.DonorID
	event.NGOID = claim.NGOID
	event.Title = donation.Title
	return event
}

// lockClaim locks the claim's donation and then the claim itself. Every
// claim operation takes the donation lock first.
func lockClaim(ctx context.Context, donations repositories.DonationRepository, claims repositories.ClaimRepository, claimID uint) (*models.Claim, *models.FoodDonation, error) {
	peek, err := claims.Find(ctx, claimID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil, domain.ErrClaimNotFound
		}
		return nil, nil, err
	}

	donation, err := donations.GetForUpdate(ctx, peek.DonationID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil, domain.ErrDonationNotFound
		}
		return nil, nil, err
	}

	claim, err := claims.GetForUpdate(ctx, claimID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil, domain.ErrClaimNotFound
		}
		return nil, nil, err
	}
	return claim, donation, nil
}
