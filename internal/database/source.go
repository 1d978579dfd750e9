package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/legacymigrate/internal/types"
)

// Row is one legacy row keyed by column name. Byte slices returned by the
// driver are converted to strings at the query boundary.
type Row map[string]any

// String returns the column as a string ("" for NULL or missing).
func (r Row) String(col string) string {
	return types.ToString(r[col])
}

// Int returns the column as an int64 (0 for NULL or non-numeric).
func (r Row) Int(col string) int64 {
	return types.ToInt64(r[col])
}

// Nullable returns nil for NULL or blank text.
func (r Row) Nullable(col string) *string {
	return types.NullableString(r[col])
}

// IsNull reports whether the column is NULL or absent.
func (r Row) IsNull(col string) bool {
	return r[col] == nil
}

// Querier is the read-only surface importer units depend on.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
}

// Source runs parameterized read-only queries against the legacy server.
type Source struct {
	db *sql.DB
}

// NewSource wraps an open pool.
func NewSource(db *sql.DB) *Source {
	return &Source{db: db}
}

// Query runs query with args and materializes every row. Missing tables or
// columns come back wrapped in ErrSchemaUnavailable, network trouble in
// ErrConnectionFailed.
func (s *Source) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	if s.db == nil {
		return nil, fmt.Errorf("%w: source not connected", ErrConnectionFailed)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, classify(err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, classify(err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}
