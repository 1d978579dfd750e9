package database

import (
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrSchemaUnavailable marks a missing schema, table or column. Optional
	// legacy tables are absent in some source environments.
	ErrSchemaUnavailable = errors.New("legacy schema unavailable")

	// ErrConnectionFailed marks a failure to reach the legacy server.
	ErrConnectionFailed = errors.New("legacy connection failed")
)

// MySQL server error numbers that indicate a missing object.
const (
	erBadDB       = 1049 // Unknown database
	erBadField    = 1054 // Unknown column
	erNoSuchTable = 1146 // Table doesn't exist
)

// classify wraps a driver error with the matching sentinel so callers can
// branch with errors.Is. Unrecognized errors are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSchemaUnavailable) || errors.Is(err, ErrConnectionFailed) {
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case erBadDB, erBadField, erNoSuchTable:
			return &classifiedError{kind: ErrSchemaUnavailable, err: err}
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return &classifiedError{kind: ErrConnectionFailed, err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &classifiedError{kind: ErrConnectionFailed, err: err}
	}

	// drivers and proxies that do not surface a MySQLError
	msg := err.Error()
	if strings.Contains(msg, "doesn't exist") || strings.Contains(msg, "Unknown column") {
		return &classifiedError{kind: ErrSchemaUnavailable, err: err}
	}
	return err
}

type classifiedError struct {
	kind error
	err  error
}

func (e *classifiedError) Error() string { return e.kind.Error() + ": " + e.err.Error() }

func (e *classifiedError) Unwrap() []error { return []error{e.kind, e.err} }
