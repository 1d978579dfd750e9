package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/logger"
	"github.com/dbsmedya/legacymigrate/internal/sqlutil"
)

// UnitEstimate is the legacy row count behind one unit.
type UnitEstimate struct {
	Unit   string
	Phase  int
	Tables map[string]int64 // schema.table -> rows, -1 when the table is missing
	Rows   int64
}

// EstimateResult holds plan estimation results.
type EstimateResult struct {
	Units     []UnitEstimate
	TotalRows int64
}

// Estimator counts the legacy rows each planned unit will read.
type Estimator struct {
	legacy database.Querier
	logger *logger.Logger
	cache  map[string]int64
}

// NewEstimator creates a new estimator.
func NewEstimator(legacy database.Querier, log *logger.Logger) *Estimator {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Estimator{legacy: legacy, logger: log, cache: make(map[string]int64)}
}

// Estimate counts rows per unit. Tables shared by several units are counted once.
func (e *Estimator) Estimate(ctx context.Context, plan *Plan) (*EstimateResult, error) {
	result := &EstimateResult{}
	for _, u := range plan.Units {
		ue := UnitEstimate{Unit: u.Key, Phase: u.Phase, Tables: make(map[string]int64)}
		for _, t := range u.Tables {
			n, err := e.count(ctx, t)
			if err != nil {
				return nil, fmt.Errorf("failed to estimate %s: %w", u.Key, err)
			}
			ue.Tables[t.Schema+"."+t.Table] = n
			if n > 0 {
				ue.Rows += n
			}
		}
		result.TotalRows += ue.Rows
		result.Units = append(result.Units, ue)
	}
	return result, nil
}

func (e *Estimator) count(ctx context.Context, t TableRef) (int64, error) {
	key := t.Schema + "." + t.Table
	if n, ok := e.cache[key]; ok {
		return n, nil
	}
	query := fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", sqlutil.MustQualifiedName(t.Schema, t.Table))
	rows, err := e.legacy.Query(ctx, query)
	switch {
	case errors.Is(err, ErrLegacySchemaUnavailable):
		e.logger.Warnw("Failed to estimate count", "table", key, "error", err)
		e.cache[key] = -1
		return -1, nil
	case err != nil:
		return 0, err
	}
	var n int64
	if len(rows) > 0 {
		n = rows[0].Int("n")
	}
	e.cache[key] = n
	return n, nil
}
