package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/dbsmedya/legacymigrate/internal/logger"
	"github.com/dbsmedya/legacymigrate/internal/rehydrate"
)

// RunResult aggregates the unit results of one orchestrated run.
type RunResult struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Results     []*Result
	Success     bool
	// Aborted names the unit that stopped the run, if any.
	Aborted string
}

// Totals sums imported, skipped, error and warning counts across units.
func (r *RunResult) Totals() (imported, skipped, errors, warnings int) {
	total := r.Total()
	return total.Imported, total.Skipped, len(total.Errors), len(total.Warnings)
}

// Total merges every unit result into one.
func (r *RunResult) Total() *Result {
	total := NewResult("total")
	for _, res := range r.Results {
		total.Merge(res)
	}
	return total.Finalize()
}

// Orchestrator runs a plan one unit at a time. Before each unit it rehydrates
// the target state the unit requires that this process has not loaded yet.
type Orchestrator struct {
	c          *Context
	rehydrator *rehydrate.Rehydrator
	log        *logger.Logger
}

// NewOrchestrator validates c. A nil rehydrator disables rehydration; units
// then only see what earlier units of the same run registered.
func NewOrchestrator(c *Context, r *rehydrate.Rehydrator) (*Orchestrator, error) {
	if c == nil {
		return nil, fmt.Errorf("importer context is nil")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{c: c, rehydrator: r, log: c.logger()}, nil
}

// Run executes the plan. Units run strictly in order; a unit that aborts
// stops the run and its error is returned alongside the partial result.
func (o *Orchestrator) Run(ctx context.Context, p *Plan) (*RunResult, error) {
	if p == nil || len(p.Units) == 0 {
		return nil, fmt.Errorf("empty plan")
	}
	rr := &RunResult{StartedAt: time.Now(), Success: true}
	defer func() {
		rr.CompletedAt = time.Now()
		rr.Duration = rr.CompletedAt.Sub(rr.StartedAt)
	}()

	o.log.Infow("Starting migration run", "mode", string(o.c.Mode), "units", p.Names())

	for _, reg := range p.Units {
		if err := ctx.Err(); err != nil {
			rr.Success = false
			rr.Aborted = reg.Key
			return rr, fmt.Errorf("run cancelled before %s: %w", reg.Key, err)
		}

		log := o.log.WithUnit(reg.Key).WithPhase(reg.Phase)
		if ext := p.External(reg.Key); len(ext) > 0 {
			log.Infow("Dependencies not in plan, relying on target state", "dependencies", ext)
		}
		if err := o.rehydrate(ctx, log, reg); err != nil {
			rr.Success = false
			rr.Aborted = reg.Key
			return rr, err
		}

		res, err := reg.New(o.c).Run(ctx)
		if res != nil {
			rr.Results = append(rr.Results, res)
			if !res.Success {
				rr.Success = false
			}
		}
		if err != nil {
			rr.Success = false
			rr.Aborted = reg.Key
			log.Errorw("Run stopped", "error", err)
			return rr, err
		}
	}

	imported, skipped, errs, warnings := rr.Totals()
	o.log.Infow("Migration run complete",
		"success", rr.Success,
		"imported", imported,
		"skipped", skipped,
		"errors", errs,
		"warnings", warnings,
		"duration", time.Since(rr.StartedAt),
	)
	return rr, nil
}

// rehydrate loads every required key not loaded earlier in this process.
func (o *Orchestrator) rehydrate(ctx context.Context, log *logger.Logger, reg Registration) error {
	if o.rehydrator == nil || len(reg.Requires) == 0 {
		return nil
	}
	var keys []rehydrate.Key
	for _, k := range reg.Requires {
		if _, ok := o.rehydrator.Loaded(k); !ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	log.Infow("Rehydrating target state", "keys", keys)
	if err := o.rehydrator.LoadAll(ctx, keys...); err != nil {
		return fmt.Errorf("%s: %w", reg.Key, err)
	}
	return nil
}
