package lock

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT GET_LOCK\(\?, \?\)`).
		WithArgs("legacymigrate:inventory", 1).
		WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
	mock.ExpectQuery(`SELECT RELEASE_LOCK\(\?\)`).
		WithArgs("legacymigrate:inventory").
		WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))

	l := NewRunLock(db, "inventory")
	ok, err := l.AcquireLock(context.Background(), TimeoutShort)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, l.IsHeld())

	// second acquire is a no-op
	ok, err = l.AcquireLock(context.Background(), TimeoutShort)
	require.NoError(t, err)
	assert.True(t, ok)

	released, err := l.ReleaseLock(context.Background())
	require.NoError(t, err)
	assert.True(t, released)
	assert.False(t, l.IsHeld())

	released, err = l.ReleaseLock(context.Background())
	require.NoError(t, err)
	assert.False(t, released)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireOrFail_HeldElsewhere(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT GET_LOCK`).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(0))

	err = NewRunLock(db, "inventory").AcquireOrFail(context.Background(), TimeoutImmediate)
	assert.True(t, errors.Is(err, ErrLockTimeout))
}

func TestAcquire_NullResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT GET_LOCK`).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(nil))

	ok, err := NewRunLock(db, "x").AcquireLock(context.Background(), 0)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT GET_LOCK`).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
	mock.ExpectQuery(`SELECT RELEASE_LOCK`).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))

	l := NewRunLock(db, "inventory")
	boom := errors.New("boom")
	err = l.WithLock(context.Background(), TimeoutShort, func() error {
		assert.True(t, l.IsHeld())
		return boom
	})
	assert.Equal(t, boom, err)
	assert.False(t, l.IsHeld())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLockName(t *testing.T) {
	assert.Equal(t, "legacymigrate:inventory_example_org_api", RunLockName("inventory.example.org/api"))

	long := RunLockName(strings.Repeat("a", 100))
	assert.Len(t, long, 64)
}
