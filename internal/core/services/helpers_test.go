package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/adapters/persistence/repositories"
	"foodlink/internal/config"
	"foodlink/internal/core/domain"
	"foodlink/internal/pkg/password"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testPassword is the password of every fixture account
const testPassword = "secret123"

func init() {
	password.Cost = bcrypt.MinCost
}

// newTestDB opens a private in-memory database with the schema and the
// category catalog in place
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openTestDB(t, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), 1)
}

// newFileTestDB opens a WAL database file behind conns connections, so
// transactions from different goroutines genuinely overlap
func newFileTestDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "foodlink.db")
	return openTestDB(t, path+"?_busy_timeout=5000&_journal_mode=WAL", conns)
}

func openTestDB(t *testing.T, dsn string, conns int) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	require.NoError(t, config.NewSeeder(db, zap.NewNop(), time.Now).Run(false))
	return db
}

// eventRecorder collects published events
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Publish(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *eventRecorder) last() domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

// testEnv is a fully wired engine over a fresh database whose clock the
// test can move
type testEnv struct {
	db     *gorm.DB
	now    time.Time
	events *eventRecorder
	txm    *repositories.TransactionManager

	users         repositories.UserRepository
	refreshTokens repositories.RefreshTokenRepository
	donationRepo  repositories.DonationRepository
	claimRepo     repositories.ClaimRepository

	donations *DonationService
	claims    *ClaimService
	dashboard *DashboardService

	donor    *models.User
	ngo      *models.User
	otherNGO *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, newTestDB(t), 3)
}

// newTestEnvOn wires the engine over db with the given retry budget
func newTestEnvOn(t *testing.T, db *gorm.DB, retries int) *testEnv {
	t.Helper()

	env := &testEnv{
		db:            db,
		now:           time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC),
		events:        &eventRecorder{},
		users:         repositories.NewUserRepository(db),
		refreshTokens: repositories.NewRefreshTokenRepository(db),
		donationRepo:  repositories.NewDonationRepository(db),
		claimRepo:     repositories.NewClaimRepository(db),
	}
	log := zap.NewNop()

	txm := repositories.NewTransactionManager(db, retries, log)
	env.txm = txm
	categories := repositories.NewCategoryRepository(db)
	env.donations = NewDonationService(txm, env.donationRepo, env.claimRepo, categories, env.events, env.clock, log)
	env.claims = NewClaimService(txm, env.donationRepo, env.claimRepo, env.events, env.clock, log)
	env.dashboard = NewDashboardService(env.users, env.donationRepo, env.claimRepo, env.clock)

	env.donor = env.createUser(t, "donor1", domain.RoleDonor, "Springfield")
	env.ngo = env.createUser(t, "ngo1", domain.RoleNGO, "Springfield")
	env.otherNGO = env.createUser(t, "ngo2", domain.RoleNGO, "Shelbyville")
	return env
}

func (e *testEnv) clock() time.Time { return e.now }

func (e *testEnv) createUser(t *testing.T, username string, role domain.Role, city string) *models.User {
	t.Helper()

	hash, err := password.Hash(testPassword)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hash,
		Role:     string(role),
		FullName: "Test " + username,
		City:     city,
		IsActive: true,
	}
	if role == domain.RoleNGO {
		user.OrganizationName = "Org " + username
		user.RegistrationNumber = "REG-" + username
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

// validInput returns a donation input expiring days after the env's today
func (e *testEnv) validInput(days int) *DonationInput {
	return &DonationInput{
		CategoryID:    1,
		Title:         "Fresh bread",
		Description:   "Twenty loaves from this morning",
		Quantity:      20,
		Unit:          "pieces",
		ExpiryDate:    e.now.AddDate(0, 0, days).Format("2006-01-02"),
		PickupAddress: "12 Baker Street, Springfield",
		PickupCity:    "Springfield",
	}
}

func (e *testEnv) createDonation(t *testing.T, days int) *models.FoodDonation {
	t.Helper()
	donation, err := e.donations.Create(context.Background(), e.donor.Actor(), e.validInput(days))
	require.NoError(t, err)
	return donation
}

func (e *testEnv) claimDonation(t *testing.T, donationID uint) *models.Claim {
	t.Helper()
	claim, err := e.claims.Create(context.Background(), e.ngo.Actor(), donationID, "")
	require.NoError(t, err)
	return claim
}

func (e *testEnv) donationStatus(t *testing.T, id uint) domain.DonationStatus {
	t.Helper()
	d, err := e.donationRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return d.DonationStatus()
}
