// Package importer holds the importer units that move legacy record families
// into the target, and the orchestration that runs them in phase order.
package importer

import (
	"fmt"

	"github.com/dbsmedya/legacymigrate/internal/config"
	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/logger"
	"github.com/dbsmedya/legacymigrate/internal/samples"
	"github.com/dbsmedya/legacymigrate/internal/target"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

// Mode selects whether units write to the target.
type Mode string

const (
	ModeNormal     Mode = config.ModeNormal
	ModeDryRun     Mode = config.ModeDryRun
	ModeSampleOnly Mode = config.ModeSampleOnly
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNormal, ModeDryRun, ModeSampleOnly:
		return Mode(s), nil
	case "":
		return ModeNormal, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Writes reports whether target writes happen in this mode.
func (m Mode) Writes() bool {
	return m == ModeNormal
}

// Context is handed to every unit constructor. Units share the tracker and
// the sample collector; nothing else is process-global.
type Context struct {
	Legacy  database.Querier
	Target  target.Writer // may be nil outside ModeNormal
	Tracker *tracker.Tracker
	Samples *samples.Collector // nil disables sampling
	Mode    Mode
	Log     *logger.Logger

	// ErrorDisplayLimit caps the errors echoed after a unit's summary line.
	ErrorDisplayLimit int
}

// Validate checks that the collaborators required by Mode are present.
func (c *Context) Validate() error {
	if c == nil {
		return fmt.Errorf("import context is nil")
	}
	if c.Legacy == nil {
		return fmt.Errorf("legacy source is nil")
	}
	if c.Tracker == nil {
		return fmt.Errorf("tracker is nil")
	}
	mode, err := ParseMode(string(c.Mode))
	if err != nil {
		return err
	}
	c.Mode = mode
	if c.Mode.Writes() && c.Target == nil {
		return fmt.Errorf("target is required in %s mode", ModeNormal)
	}
	return nil
}

func (c *Context) logger() *logger.Logger {
	if c.Log == nil {
		return logger.NewNop()
	}
	return c.Log
}
