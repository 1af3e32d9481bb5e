package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/core/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait", fmt.Errorf("update: %w", &mysql.MySQLError{Number: 1205}), true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, false},
		{"postgres serialization", &pgconn.PgError{Code: "40001"}, true},
		{"postgres deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, false},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite locked message", errors.New("database is locked"), true},
		{"not found", gorm.ErrRecordNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsDuplicateKey(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKey(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.True(t, IsDuplicateKey(errors.New("UNIQUE constraint failed: claims.live_donation_id")))
	assert.False(t, IsDuplicateKey(&mysql.MySQLError{Number: 1213}))
	assert.False(t, IsDuplicateKey(nil))
}

func TestTransactionManager_Retries(t *testing.T) {
	db := newTestDB(t)
	tm := NewTransactionManager(db, 3, zap.NewNop())
	tm.backoff = time.Millisecond

	attempts := 0
	err := tm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return &mysql.MySQLError{Number: 1213}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = tm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		attempts++
		return &pgconn.PgError{Code: "40001"}
	})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = tm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		attempts++
		return domain.ErrAlreadyClaimed
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
	assert.Equal(t, 1, attempts)
}

func TestTransactionManager_RollsBack(t *testing.T) {
	db := newTestDB(t)
	tm := NewTransactionManager(db, 0, nil)
	users := NewUserRepository(db)

	err := tm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		user := &models.User{Username: "ghost", Email: "ghost@example.com", Password: "x", Role: "donor", FullName: "Ghost", IsActive: true}
		if err := NewUserRepository(tx).Create(context.Background(), user); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	exists, err := users.ExistsByUsername(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTransactionManager_ContextCancelled(t *testing.T) {
	db := newTestDB(t)
	tm := NewTransactionManager(db, 5, zap.NewNop())
	tm.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		attempts++
		cancel()
		return &mysql.MySQLError{Number: 1205}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
