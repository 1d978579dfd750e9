package samples

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultQueryLimit is the page size of interactive queries.
const DefaultQueryLimit = 20

// Record is one stored sample.
type Record struct {
	ID          int64
	EntityType  string
	Category    string
	SourceDB    string
	RawData     string
	Reason      string
	Language    *string
	CollectedAt time.Time
	Hash        string
}

// Query filters samples. Empty fields match everything. A Reason without ":"
// matches the base reason and every detail under it.
type Query struct {
	EntityType string
	Reason     string
	Language   string
	SourceDB   string
	Limit      int
}

// Reader queries the sample store.
type Reader struct {
	store *Store
}

// NewReader returns a reader over store.
func NewReader(store *Store) *Reader {
	return &Reader{store: store}
}

// Query returns samples matching q, oldest first.
func (r *Reader) Query(ctx context.Context, q Query) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if q.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, q.EntityType)
	}
	if q.Reason != "" {
		if strings.Contains(q.Reason, ":") {
			where = append(where, "sample_reason = ?")
			args = append(args, q.Reason)
		} else {
			where = append(where, "(sample_reason = ? OR sample_reason LIKE ?)")
			args = append(args, q.Reason, q.Reason+":%")
		}
	}
	if q.Language != "" {
		where = append(where, "language = ?")
		args = append(args, q.Language)
	}
	if q.SourceDB != "" {
		where = append(where, "source_db = ?")
		args = append(args, q.SourceDB)
	}

	query := "SELECT id, entity_type, category, source_db, raw_data, sample_reason, language, collected_at, record_hash FROM legacy_samples"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			collected string
		)
		if err := rows.Scan(&rec.ID, &rec.EntityType, &rec.Category, &rec.SourceDB, &rec.RawData,
			&rec.Reason, &rec.Language, &collected, &rec.Hash); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, collected); err == nil {
			rec.CollectedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats summarises the store contents.
func (r *Reader) Stats(ctx context.Context) (Stats, error) {
	return statsFrom(ctx, r.store)
}

// TotalCount returns the number of stored samples.
func (r *Reader) TotalCount(ctx context.Context) (int, error) {
	var n int
	if err := r.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM legacy_samples").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count samples: %w", err)
	}
	return n, nil
}

// ParseRawData decodes the stored row.
func ParseRawData(rec Record) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(rec.RawData), &out); err != nil {
		return nil, fmt.Errorf("sample %d: invalid raw data: %w", rec.ID, err)
	}
	return out, nil
}
