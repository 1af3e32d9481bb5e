package services

import (
	"time"

	"foodlink/internal/adapters/persistence/repositories"
	"foodlink/internal/config"
	"foodlink/internal/core/expiry"
	"foodlink/internal/pkg/jwt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container wires repositories and services once per process. The HTTP
// server and the CLI commands share it.
type Container struct {
	Clock  expiry.Clock
	Tokens *jwt.Signer

	Users         repositories.UserRepository
	RefreshTokens repositories.RefreshTokenRepository
	Categories    repositories.CategoryRepository
	Donations     repositories.DonationRepository
	Claims        repositories.ClaimRepository

	Hub     *EventHub
	Webhook *WebhookNotifier

	Auth      *AuthService
	User      *UserService
	Donation  *DonationService
	Claim     *ClaimService
	Dashboard *DashboardService
	Sweep     *ExpirySweepService
}

// NewContainer builds every service on top of db
func NewContainer(db *gorm.DB, cfg *config.Config, log *zap.Logger) *Container {
	clock := expiry.NewClock(cfg.Engine.Location)
	tokens := jwt.NewSigner(cfg.JWT.Secret, cfg.JWT.RefreshSecret,
		time.Duration(cfg.JWT.AccessTokenMins)*time.Minute,
		time.Duration(cfg.JWT.RefreshTokenDays)*24*time.Hour,
		clock)

	c := &Container{
		Clock:         clock,
		Tokens:        tokens,
		Users:         repositories.NewUserRepository(db),
		RefreshTokens: repositories.NewRefreshTokenRepository(db),
		Categories:    repositories.NewCategoryRepository(db),
		Donations:     repositories.NewDonationRepository(db),
		Claims:        repositories.NewClaimRepository(db),
		Hub:           NewEventHub(log.Named("sse")),
		Webhook:       NewWebhookNotifier(cfg.Notify.WebhookURL, log.Named("webhook")),
	}

	txm := repositories.NewTransactionManager(db, cfg.Engine.TxMaxRetries, log.Named("tx"))

	publishers := MultiPublisher{c.Hub}
	if c.Webhook.IsEnabled() {
		publishers = append(publishers, c.Webhook)
	}

	c.Auth = NewAuthService(c.Users, c.RefreshTokens, c.Tokens, c.Clock, log.Named("auth"))
	c.User = NewUserService(c.Users, c.RefreshTokens, c.Clock, log.Named("user"))
	c.Donation = NewDonationService(txm, c.Donations, c.Claims, c.Categories, publishers, c.Clock, log.Named("donation"))
	c.Claim = NewClaimService(txm, c.Donations, c.Claims, publishers, c.Clock, log.Named("claim"))
	c.Dashboard = NewDashboardService(c.Users, c.Donations, c.Claims, c.Clock)

	c.Sweep = NewExpirySweepService(c.Donation, cfg.Engine.SweepSpec, cfg.Engine.Location, log.Named("sweep"))
	c.Sweep.OnSweep(c.Auth.PurgeExpiredTokens)

	return c
}
