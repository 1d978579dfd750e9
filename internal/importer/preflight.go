package importer

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/logger"
	"github.com/dbsmedya/legacymigrate/internal/sqlutil"
)

// PreflightError represents a preflight check failure.
type PreflightError struct {
	Check   string
	Message string
	Tables  []string
}

func (e *PreflightError) Error() string {
	if len(e.Tables) > 0 {
		return fmt.Sprintf("%s: %s (tables: %v)", e.Check, e.Message, e.Tables)
	}
	return fmt.Sprintf("%s: %s", e.Check, e.Message)
}

// PreflightReport lists what the checks found.
type PreflightReport struct {
	Checked         int
	Missing         []string // required tables, schema.table
	MissingOptional []string
}

// PreflightChecker verifies the legacy schema before a run.
type PreflightChecker struct {
	legacy database.Querier
	logger *logger.Logger
}

// NewPreflightChecker creates a new preflight checker.
func NewPreflightChecker(legacy database.Querier, log *logger.Logger) (*PreflightChecker, error) {
	if legacy == nil {
		return nil, fmt.Errorf("legacy source is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &PreflightChecker{legacy: legacy, logger: log}, nil
}

// RunAllChecks checks every table the planned units read. Missing optional
// tables are only reported; a missing required table fails the check.
func (p *PreflightChecker) RunAllChecks(ctx context.Context, plan *Plan) (*PreflightReport, error) {
	p.logger.Info("Running preflight checks...")

	refs := plannedTables(plan)
	bySchema := make(map[string][]string)
	for _, ref := range refs {
		bySchema[ref.Schema] = append(bySchema[ref.Schema], ref.Table)
	}

	schemas := make([]string, 0, len(bySchema))
	for schema := range bySchema {
		schemas = append(schemas, schema)
	}
	slices.Sort(schemas)

	found := make(map[string]bool)
	for _, schema := range schemas {
		existing, err := p.existingTables(ctx, schema, bySchema[schema])
		if err != nil {
			return nil, err
		}
		for _, t := range existing {
			found[schema+"."+t] = true
		}
	}

	report := &PreflightReport{Checked: len(refs)}
	for _, ref := range refs {
		name := ref.Schema + "." + ref.Table
		if found[name] {
			continue
		}
		if ref.Optional {
			p.logger.Warnw("Optional legacy table missing, its unit will skip it", "table", name)
			report.MissingOptional = append(report.MissingOptional, name)
		} else {
			report.Missing = append(report.Missing, name)
		}
	}

	if len(report.Missing) > 0 {
		return report, &PreflightError{
			Check:   "table_existence",
			Message: "required legacy tables do not exist",
			Tables:  report.Missing,
		}
	}
	p.logger.Info("All preflight checks PASSED")
	return report, nil
}

func (p *PreflightChecker) existingTables(ctx context.Context, schema string, tables []string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
		AND TABLE_NAME IN (%s)`, sqlutil.Placeholders(len(tables)))

	args := make([]any, 0, len(tables)+1)
	args = append(args, schema)
	for _, t := range tables {
		args = append(args, t)
	}

	rows, err := p.legacy.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to check tables in %s: %w", schema, err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.String("TABLE_NAME"))
	}
	return out, nil
}

// plannedTables returns the distinct tables of the plan's units. A table
// required by any unit is required.
func plannedTables(plan *Plan) []TableRef {
	idx := make(map[string]int)
	var refs []TableRef
	for _, u := range plan.Units {
		for _, t := range u.Tables {
			key := t.Schema + "." + t.Table
			if i, ok := idx[key]; ok {
				refs[i].Optional = refs[i].Optional && t.Optional
				continue
			}
			idx[key] = len(refs)
			refs = append(refs, t)
		}
	}
	slices.SortFunc(refs, func(a, b TableRef) int {
		return strings.Compare(a.Schema+"."+a.Table, b.Schema+"."+b.Table)
	})
	return refs
}
