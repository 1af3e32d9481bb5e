package config

import (
	"context"
	"fmt"
	"testing"
	"time"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/pkg/password"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// clearEnv resets every variable FromEnv reads so host settings do not leak in
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"APP_MODE", "PORT", "DB_DRIVER", "SQLITE_PATH", "TIMEZONE", "EXPIRY_SWEEP_SPEC",
		"TX_MAX_RETRIES", "NOTIFY_WEBHOOK_URL", "SEED_DEMO_DATA", "ACCESS_TOKEN_MINUTES",
		"REFRESH_TOKEN_DAYS", "DEV_DB_HOST", "DEV_DB_PORT", "PROD_DB_HOST", "PROD_DB_PORT",
		"DEV_JWT_SECRET", "PROD_JWT_SECRET", "PROD_COOKIE_SECURE", "DEV_COOKIE_SECURE",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppMode)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "3306", cfg.Database.Port)
	assert.Equal(t, 60, cfg.JWT.AccessTokenMins)
	assert.Equal(t, 7, cfg.JWT.RefreshTokenDays)
	assert.Equal(t, time.UTC, cfg.Engine.Location)
	assert.Equal(t, "@hourly", cfg.Engine.SweepSpec)
	assert.Equal(t, 3, cfg.Engine.TxMaxRetries)
	assert.Empty(t, cfg.Notify.WebhookURL)
	assert.False(t, cfg.Seed.DemoData)
	assert.Same(t, cfg, AppConfig)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_MODE", " prod ")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("PROD_DB_HOST", "db.internal")
	t.Setenv("PROD_JWT_SECRET", "prod-secret")
	t.Setenv("PROD_COOKIE_SECURE", "true")
	t.Setenv("TIMEZONE", "Asia/Bangkok")
	t.Setenv("EXPIRY_SWEEP_SPEC", "*/15 * * * *")
	t.Setenv("TX_MAX_RETRIES", "5")
	t.Setenv("NOTIFY_WEBHOOK_URL", " https://hooks.example.com/foodlink ")
	t.Setenv("SEED_DEMO_DATA", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "prod-secret", cfg.JWT.Secret)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, "Asia/Bangkok", cfg.Engine.Location.String())
	assert.Equal(t, "*/15 * * * *", cfg.Engine.SweepSpec)
	assert.Equal(t, 5, cfg.Engine.TxMaxRetries)
	assert.Equal(t, "https://hooks.example.com/foodlink", cfg.Notify.WebhookURL)
	assert.True(t, cfg.Seed.DemoData)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"APP_MODE", "staging", "invalid APP_MODE"},
		{"DB_DRIVER", "oracle", "invalid DB_DRIVER"},
		{"TIMEZONE", "Mars/Olympus", "invalid TIMEZONE"},
		{"EXPIRY_SWEEP_SPEC", "every so often", "invalid EXPIRY_SWEEP_SPEC"},
		{"TX_MAX_RETRIES", "0", "invalid TX_MAX_RETRIES"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDialector(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: "1", User: "u", Password: "p", DBName: "n", SQLitePath: "data.db"}

	assert.Equal(t, "u:p@tcp(h:1)/n?charset=utf8mb4&parseTime=True&loc=UTC", buildMySQLDSN(d))
	assert.Equal(t, "host=h user=u password=p dbname=n port=1 sslmode=disable TimeZone=UTC", buildPostgresDSN(d))
	assert.Equal(t, "data.db?_busy_timeout=5000&_foreign_keys=on", buildSQLiteDSN(d))

	for _, driver := range []string{DriverMySQL, DriverPostgres, DriverSQLite} {
		d.Driver = driver
		dialector, err := Dialector(d)
		require.NoError(t, err)
		assert.Equal(t, driver, dialector.Name())
	}

	d.Driver = "oracle"
	_, err := Dialector(d)
	assert.Error(t, err)
}

func TestPingDatabase(t *testing.T) {
	assert.Error(t, PingDatabase(context.Background(), nil))
	assert.NoError(t, PingDatabase(context.Background(), newSeedDB(t)))
}

func newSeedDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func TestSeeder_Run(t *testing.T) {
	password.Cost = bcrypt.MinCost
	db := newSeedDB(t)
	now := func() time.Time { return time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC) }
	seeder := NewSeeder(db, zap.NewNop(), now)

	count := func(model interface{}) int64 {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return n
	}

	require.NoError(t, seeder.Run(false))
	assert.EqualValues(t, len(DefaultCategories), count(&models.Category{}))
	assert.Zero(t, count(&models.User{}))

	require.NoError(t, seeder.Run(true))
	assert.EqualValues(t, len(DefaultCategories), count(&models.Category{}))
	assert.EqualValues(t, 2, count(&models.User{}))
	donations := count(&models.FoodDonation{})
	assert.NotZero(t, donations)

	// a second run changes nothing
	require.NoError(t, seeder.Run(true))
	assert.EqualValues(t, 2, count(&models.User{}))
	assert.Equal(t, donations, count(&models.FoodDonation{}))

	var donor models.User
	require.NoError(t, db.Where("email = ?", "donor@foodlink.local").First(&donor).Error)
	assert.True(t, password.Verify(DemoPassword, donor.Password))
}
