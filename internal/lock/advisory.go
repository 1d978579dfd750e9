// Package lock guards a migration run with a MySQL advisory lock on the
// legacy source, so two engine processes never write the same target at once.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLockTimeout is returned when another process holds the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Timeouts for GET_LOCK, in seconds.
const (
	TimeoutImmediate = 0
	TimeoutShort     = 1
	TimeoutMedium    = 10
	// MySQL treats negative values as infinite wait.
	TimeoutInfinite = -1
)

// AdvisoryLock is a named GET_LOCK lock. MySQL ties the lock to the session
// that took it, so the lock pins one pooled connection until release.
type AdvisoryLock struct {
	db       *sql.DB
	conn     *sql.Conn
	lockName string
}

// NewAdvisoryLock creates a lock; nothing is acquired yet.
func NewAdvisoryLock(db *sql.DB, lockName string) *AdvisoryLock {
	return &AdvisoryLock{db: db, lockName: lockName}
}

// AcquireLock tries to take the lock, waiting up to timeoutSeconds.
//
// GET_LOCK returns 1 on success, 0 on timeout and NULL on error.
func (a *AdvisoryLock) AcquireLock(ctx context.Context, timeoutSeconds int) (bool, error) {
	if a.conn != nil {
		return true, nil
	}

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reserve connection for lock: %w", err)
	}

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", a.lockName, timeoutSeconds).Scan(&result); err != nil {
		conn.Close()
		return false, fmt.Errorf("failed to execute GET_LOCK: %w", err)
	}
	if !result.Valid {
		conn.Close()
		return false, fmt.Errorf("GET_LOCK returned NULL for lock %q", a.lockName)
	}

	switch result.Int64 {
	case 1:
		a.conn = conn
		return true, nil
	case 0:
		conn.Close()
		return false, nil
	default:
		conn.Close()
		return false, fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
	}
}

// ReleaseLock releases the lock and returns its connection to the pool.
func (a *AdvisoryLock) ReleaseLock(ctx context.Context) (bool, error) {
	if a.conn == nil {
		return false, nil
	}
	conn := a.conn
	a.conn = nil
	defer conn.Close()

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", a.lockName).Scan(&result); err != nil {
		return false, fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
	}
	if !result.Valid {
		return false, fmt.Errorf("RELEASE_LOCK returned NULL for lock %q (lock did not exist)", a.lockName)
	}
	return result.Int64 == 1, nil
}

// IsHeld reports whether this instance holds the lock.
func (a *AdvisoryLock) IsHeld() bool {
	return a.conn != nil
}

// LockName returns the MySQL lock name.
func (a *AdvisoryLock) LockName() string {
	return a.lockName
}

// AcquireOrFail takes the lock or returns ErrLockTimeout.
func (a *AdvisoryLock) AcquireOrFail(ctx context.Context, timeoutSeconds int) error {
	acquired, err := a.AcquireLock(ctx, timeoutSeconds)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another migration", ErrLockTimeout, a.lockName)
	}
	return nil
}

// RunLockName builds the lock name for a migration target, e.g.
// "legacymigrate:inventory_example_org". MySQL caps lock names at 64 chars.
func RunLockName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)

	lockName := "legacymigrate:" + sanitized
	if len(lockName) > 64 {
		lockName = lockName[:64]
	}
	return lockName
}

// NewRunLock creates the lock for a migration target.
func NewRunLock(db *sql.DB, name string) *AdvisoryLock {
	return NewAdvisoryLock(db, RunLockName(name))
}

// WithLock runs fn while holding the lock. The lock is released even if fn
// panics.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeoutSeconds int, fn func() error) error {
	if err := a.AcquireOrFail(ctx, timeoutSeconds); err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// the session drops the lock on close anyway
		_, _ = a.ReleaseLock(releaseCtx)
	}()
	return fn()
}
