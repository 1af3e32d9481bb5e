package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrRetriesExhausted is returned when a transaction kept failing with
// transient conflicts after every allowed attempt
var ErrRetriesExhausted = errors.New("transaction retries exhausted")

const defaultRetryBackoff = 25 * time.Millisecond

// TransactionManager runs units of work inside a database transaction and
// retries them on deadlocks, lock timeouts and serialization failures
type TransactionManager struct {
	db         *gorm.DB
	maxRetries int
	backoff    time.Duration
	log        *zap.Logger
}

// NewTransactionManager creates a new transaction manager. maxRetries is the
// total number of attempts; values below one mean a single attempt.
func NewTransactionManager(db *gorm.DB, maxRetries int, log *zap.Logger) *TransactionManager {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TransactionManager{
		db:         db,
		maxRetries: maxRetries,
		backoff:    defaultRetryBackoff,
		log:        log,
	}
}

// WithTransaction executes fn within a transaction. fn must do all of its
// reads and writes through tx and must be safe to run again from scratch.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= tm.maxRetries; attempt++ {
		err = tm.db.WithContext(ctx).Transaction(fn)
		if err == nil || !IsRetryable(err) {
			return err
		}

		tm.log.Warn("transient transaction conflict",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", tm.maxRetries),
			zap.Error(err),
		)

		if attempt == tm.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * tm.backoff):
		}
	}
	return fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
}

// IsRetryable reports whether err is a transient conflict worth retrying
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// 1213 deadlock, 1205 lock wait timeout
		return myErr.Number == 1213 || myErr.Number == 1205
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// IsDuplicateKey reports whether err is a unique constraint violation
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNotFound reports whether err means no row matched
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
