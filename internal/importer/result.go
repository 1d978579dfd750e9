package importer

import (
	"fmt"
	"time"
)

// Result contains statistics and status of one unit run.
type Result struct {
	Unit        string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Imported    int
	Skipped     int
	Errors      []string
	Warnings    []string
	Success     bool
}

// NewResult starts a result for unit.
func NewResult(unit string) *Result {
	return &Result{
		Unit:      unit,
		StartedAt: time.Now(),
		Errors:    make([]string, 0),
		Warnings:  make([]string, 0),
	}
}

// AddError records a per-record failure.
func (r *Result) AddError(err error) {
	r.Errors = append(r.Errors, err.Error())
}

// AddWarning records a non-failing condition.
func (r *Result) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Finalize stamps completion and derives Success from Errors.
func (r *Result) Finalize() *Result {
	r.CompletedAt = time.Now()
	r.Duration = r.CompletedAt.Sub(r.StartedAt)
	r.Success = len(r.Errors) == 0
	return r
}

// Merge adds the counts and messages of other into r.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Imported += other.Imported
	r.Skipped += other.Skipped
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// FirstErrors returns at most n error strings.
func (r *Result) FirstErrors(n int) []string {
	if n <= 0 || len(r.Errors) <= n {
		return r.Errors
	}
	return r.Errors[:n]
}

// Summary is the one-line outcome printed at the end of a unit.
func (r *Result) Summary() string {
	status := "OK"
	if !r.Success {
		status = "FAILED"
	}
	return fmt.Sprintf("%s %s: imported=%d skipped=%d errors=%d warnings=%d (%s)",
		r.Unit, status, r.Imported, r.Skipped, len(r.Errors), len(r.Warnings),
		r.Duration.Round(time.Millisecond))
}
