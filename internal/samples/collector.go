package samples

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/dbsmedya/legacymigrate/internal/config"
	"github.com/dbsmedya/legacymigrate/internal/logger"
)

// Base sample reasons. A detail may be appended as "reason:detail".
const (
	ReasonSuccess = "success"
	ReasonWarning = "warning"
	ReasonEdge    = "edge"
)

// Sample is one candidate row offered to the collector.
type Sample struct {
	EntityType string
	Raw        any
	Reason     string
	Detail     string
	Language   string
	SourceDB   string
}

// FullReason is Reason, or Reason:Detail when a detail is present.
func (s Sample) FullReason() string {
	if s.Detail == "" {
		return s.Reason
	}
	return s.Reason + ":" + s.Detail
}

// Category is the deduplication scope: entityType:fullReason.
func (s Sample) Category() string {
	return s.EntityType + ":" + s.FullReason()
}

// Collector decides which rows become samples and writes them to the store.
// A nil *Collector accepts and drops everything.
type Collector struct {
	store       *Store
	sampleSize  int
	successRate float64
	sourceDB    string
	foundation  map[string]bool
	log         *logger.Logger

	mu     sync.Mutex
	counts map[string]int // success samples stored per category
	roll   func() float64
}

// NewCollector creates a collector over an open store.
func NewCollector(store *Store, cfg config.SamplesConfig, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.NewNop()
	}
	foundation := make(map[string]bool, len(cfg.FoundationTypes))
	for _, t := range cfg.FoundationTypes {
		foundation[t] = true
	}
	sourceDB := cfg.SourceDB
	if sourceDB == "" {
		sourceDB = "mwnf3"
	}
	return &Collector{
		store:       store,
		sampleSize:  cfg.SampleSize,
		successRate: cfg.SuccessRate,
		sourceDB:    sourceDB,
		foundation:  foundation,
		log:         log,
		counts:      make(map[string]int),
		roll:        rand.Float64,
	}
}

// SetRand replaces the random source used for success sampling.
func (c *Collector) SetRand(roll func() float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll = roll
}

// Collect offers a row. It reports whether a new sample was stored; rows
// already present in the same category are ignored.
func (c *Collector) Collect(ctx context.Context, s Sample) (bool, error) {
	if c == nil {
		return false, nil
	}
	if s.EntityType == "" || s.Reason == "" {
		return false, fmt.Errorf("sample requires entity type and reason")
	}
	if s.SourceDB == "" {
		s.SourceDB = c.sourceDB
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	category := s.Category()
	capped := s.Reason == ReasonSuccess && !c.foundation[s.EntityType]
	if capped {
		n, err := c.successCount(ctx, category)
		if err != nil {
			return false, err
		}
		if n >= c.sampleSize {
			return false, nil
		}
		if c.roll() >= c.successRate {
			return false, nil
		}
	}

	raw, err := json.Marshal(s.Raw)
	if err != nil {
		return false, fmt.Errorf("failed to encode sample row: %w", err)
	}
	sum := sha256.Sum256(raw)

	var language any
	if s.Language != "" {
		language = s.Language
	}

	res, err := c.store.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO legacy_samples
			(entity_type, category, source_db, raw_data, sample_reason, language, collected_at, record_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.EntityType, category, s.SourceDB, string(raw), s.FullReason(), language,
		time.Now().UTC().Format(time.RFC3339Nano), hex.EncodeToString(sum[:]))
	if err != nil {
		return false, fmt.Errorf("failed to store sample: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to store sample: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if capped {
		c.counts[category]++
	}
	c.log.Debugw("sample collected", "entity_type", s.EntityType, "reason", s.FullReason())
	return true, nil
}

// successCount must be called with mu held. The first lookup for a category
// reads the store so the cap holds across runs.
func (c *Collector) successCount(ctx context.Context, category string) (int, error) {
	if n, ok := c.counts[category]; ok {
		return n, nil
	}
	var n int
	err := c.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM legacy_samples WHERE category = ?", category).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count samples for %s: %w", category, err)
	}
	c.counts[category] = n
	return n, nil
}

// Stats summarises the store contents.
type Stats struct {
	Total        int
	ByEntityType map[string]int
	ByReason     map[string]int // keyed by base reason
	ByCategory   map[string]int
}

// Stats reads counts from the store.
func (c *Collector) Stats(ctx context.Context) (Stats, error) {
	return statsFrom(ctx, c.store)
}

func statsFrom(ctx context.Context, store *Store) (Stats, error) {
	st := Stats{
		ByEntityType: make(map[string]int),
		ByReason:     make(map[string]int),
		ByCategory:   make(map[string]int),
	}
	rows, err := store.db.QueryContext(ctx,
		"SELECT entity_type, category, sample_reason, COUNT(*) FROM legacy_samples GROUP BY entity_type, category, sample_reason")
	if err != nil {
		return st, fmt.Errorf("failed to read sample stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entityType, category, reason string
		var n int
		if err := rows.Scan(&entityType, &category, &reason, &n); err != nil {
			return st, fmt.Errorf("failed to read sample stats: %w", err)
		}
		base, _, _ := strings.Cut(reason, ":")
		st.Total += n
		st.ByEntityType[entityType] += n
		st.ByReason[base] += n
		st.ByCategory[category] += n
	}
	return st, rows.Err()
}

// Clear deletes every stored sample.
func (c *Collector) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.store.db.ExecContext(ctx, "DELETE FROM legacy_samples"); err != nil {
		return fmt.Errorf("failed to clear samples: %w", err)
	}
	c.counts = make(map[string]int)
	return nil
}

// Close closes the underlying store.
func (c *Collector) Close() error {
	if c == nil {
		return nil
	}
	return c.store.Close()
}
