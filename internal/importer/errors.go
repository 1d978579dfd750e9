package importer

import (
	"errors"
	"fmt"

	"github.com/dbsmedya/legacymigrate/internal/bcref"
	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/target"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

// Error taxonomy. The collaborator packages own the sentinels; they are
// re-exported here so units and callers match against one set.
var (
	// ErrParentNotFound means a referenced parent token resolves neither
	// locally nor in the target. The record is skipped.
	ErrParentNotFound = errors.New("parent not found")

	ErrTargetWriteFailed       = target.ErrWriteFailed
	ErrTargetReadFailed        = target.ErrReadFailed
	ErrTargetConnectionFailed  = target.ErrConnectionFailed
	ErrLegacySchemaUnavailable = database.ErrSchemaUnavailable
	ErrLegacyConnectionFailed  = database.ErrConnectionFailed
	ErrMalformedReference      = bcref.ErrMalformedReference
	ErrDuplicateRegistration   = tracker.ErrDuplicateRegistration
)

// IsFatal reports whether err must abort the unit instead of being recorded
// against a single record. Connection failures abort because no later record
// can succeed; malformed references and duplicate registrations abort because
// they indicate a bug in the unit.
func IsFatal(err error) bool {
	return IsConnectionFailure(err) ||
		errors.Is(err, ErrMalformedReference) ||
		errors.Is(err, ErrDuplicateRegistration)
}

// IsConnectionFailure reports whether err is a legacy or target connection failure.
func IsConnectionFailure(err error) bool {
	return errors.Is(err, ErrLegacyConnectionFailed) || errors.Is(err, ErrTargetConnectionFailed)
}

// RecordError ties a per-record failure to the logical record it came from.
type RecordError struct {
	Record string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: %v", e.Record, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func recordErr(record string, err error) error {
	return &RecordError{Record: record, Err: err}
}

func parentNotFound(kind, token string) error {
	return fmt.Errorf("%w: %s %s", ErrParentNotFound, kind, token)
}
