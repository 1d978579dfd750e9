package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbsmedya/legacymigrate/internal/bcref"
	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/logger"
	"github.com/dbsmedya/legacymigrate/internal/samples"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

// Unit imports one legacy record family. Run returns an error only when the
// unit had to abort; per-record failures are reported in the Result.
type Unit interface {
	Name() string
	Run(ctx context.Context) (*Result, error)
}

// base carries the plumbing every unit shares: result bookkeeping, the
// exists/resolve/create sequence and sample collection.
type base struct {
	c      *Context
	name   string
	log    *logger.Logger
	result *Result
}

func newBase(c *Context, name string) base {
	return base{c: c, name: name, log: c.logger().WithUnit(name)}
}

func (b *base) Name() string { return b.name }

func (b *base) begin() *Result {
	b.result = NewResult(b.name)
	b.log.Infow("Starting unit", "mode", string(b.c.Mode))
	return b.result
}

// finish finalizes the result and logs the summary line plus the first
// errors. Every error is also logged at debug level for the persistent log.
func (b *base) finish() *Result {
	r := b.result.Finalize()
	fields := []interface{}{
		"imported", r.Imported,
		"skipped", r.Skipped,
		"errors", len(r.Errors),
		"warnings", len(r.Warnings),
		"duration", r.Duration,
	}
	if r.Success {
		b.log.Infow(r.Summary(), fields...)
	} else {
		b.log.Warnw(r.Summary(), fields...)
	}
	for _, msg := range r.FirstErrors(b.c.ErrorDisplayLimit) {
		b.log.Warnw("Unit error", "error", msg)
	}
	for _, msg := range r.Errors {
		b.log.Debugw("Unit error detail", "error", msg)
	}
	return r
}

// abort records a fatal error and ends the unit.
func (b *base) abort(err error) (*Result, error) {
	b.result.AddError(err)
	r := b.finish()
	b.log.Errorw("Unit aborted", "error", err)
	return r, fmt.Errorf("%s: %w", b.name, err)
}

// done ends the unit normally, or aborts when err is non-nil.
func (b *base) done(err error) (*Result, error) {
	if err != nil {
		return b.abort(err)
	}
	return b.finish(), nil
}

// query runs a legacy query. A missing table or column becomes a warning and
// ok=false; fatal errors are returned; anything else is recorded as a unit
// error with ok=false.
func (b *base) query(ctx context.Context, label, q string, args ...any) ([]database.Row, bool, error) {
	rows, err := b.c.Legacy.Query(ctx, q, args...)
	switch {
	case err == nil:
		b.log.Debugw("Legacy rows fetched", "source", label, "rows", len(rows))
		return rows, true, nil
	case errors.Is(err, ErrLegacySchemaUnavailable):
		b.log.Warnw("Legacy table not available, skipping", "source", label, "error", err)
		b.result.AddWarning("legacy %s not available: %v", label, err)
		return nil, false, nil
	case IsFatal(err):
		return nil, false, fmt.Errorf("query %s: %w", label, err)
	default:
		b.result.AddError(fmt.Errorf("failed to query %s: %w", label, err))
		return nil, false, nil
	}
}

// loadWithTexts reads schema.table and, when texts is set, joins its
// per-language rows onto it by keyCols. A missing texts table leaves the base
// rows as they are.
func (b *base) loadWithTexts(ctx context.Context, schema, table, texts, orderBy, textsOrderBy string, keyCols []string) ([]database.Row, bool, error) {
	rows, ok, err := b.query(ctx, schema+"."+table,
		fmt.Sprintf("SELECT * FROM %s.%s ORDER BY %s", schema, table, orderBy))
	if err != nil || !ok || texts == "" {
		return rows, ok, err
	}
	textRows, ok, err := b.query(ctx, schema+"."+texts,
		fmt.Sprintf("SELECT * FROM %s.%s ORDER BY %s", schema, texts, textsOrderBy))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return rows, true, nil
	}
	return joinTexts(rows, textRows, keyCols...), true, nil
}

// fail routes a per-record error. Fatal errors are returned to the caller;
// the rest are appended to the result and the unit moves on.
func (b *base) fail(record string, err error) error {
	if IsFatal(err) {
		return err
	}
	b.log.WithRecord(record).Errorw("Record failed", "error", err)
	b.result.AddError(recordErr(record, err))
	return nil
}

// warn records a per-record warning unless err is fatal.
func (b *base) warn(record, what string, err error) error {
	if IsFatal(err) {
		return err
	}
	b.log.WithRecord(record).Warnw(what, "error", err)
	b.result.AddWarning("%s: %s: %v", record, what, err)
	return nil
}

// exists is the cache-only check used to decide new vs. already imported.
func (b *base) exists(token string) bool {
	return b.c.Tracker.Exists(token)
}

// resolve finds a parent, falling back to the target when the token is not
// known locally.
func (b *base) resolve(ctx context.Context, kind, token string, category tracker.Category) (string, error) {
	id, found, err := b.c.Tracker.Resolve(ctx, token, category)
	if err != nil {
		return "", err
	}
	if !found {
		return "", parentNotFound(kind, token)
	}
	return id, nil
}

func (b *base) defaultContext(ctx context.Context) (string, error) {
	return b.resolve(ctx, "default context", bcref.DefaultContextToken, tracker.CategoryContext)
}

// create performs the write for a new entity and registers its token. Outside
// ModeNormal no write happens and a placeholder id is registered instead, so
// later records in the same run still resolve it.
func (b *base) create(ctx context.Context, token string, category tracker.Category, write func(context.Context) (string, error)) (string, error) {
	var id string
	if b.c.Mode.Writes() {
		var err error
		if id, err = write(ctx); err != nil {
			return "", err
		}
	} else {
		id = placeholderID()
	}
	if err := b.c.Tracker.Register(tracker.Entity{Token: token, TargetID: id, Category: category}); err != nil {
		return "", err
	}
	return id, nil
}

// ensure returns the id registered for token, creating the entity when the
// token is unknown. Multi-entity records use it so a rerun after a partial
// failure picks up where the previous attempt stopped.
func (b *base) ensure(ctx context.Context, token string, category tracker.Category, write func(context.Context) (string, error)) (string, error) {
	if id, ok := b.c.Tracker.GetID(token); ok {
		return id, nil
	}
	return b.create(ctx, token, category, write)
}

// translationToken identifies one language variant of the record owner.
func translationToken(owner, lang string) string {
	return owner + bcref.Separator + lang
}

// translate writes one item translation under its own token. A translation
// whose token is already known is left alone, so a rerun only writes the
// languages an earlier attempt did not land. Failures are record warnings.
func (b *base) translate(ctx context.Context, owner, lang string, write func(context.Context) (string, error)) error {
	if _, err := b.ensure(ctx, translationToken(owner, lang), tracker.CategoryTranslation, write); err != nil {
		return b.warn(owner, "translation failed", err)
	}
	return nil
}

// write performs a write that owns no token of its own (attachments,
// collection translations). It is a no-op outside ModeNormal.
func (b *base) write(ctx context.Context, fn func(context.Context) error) error {
	if !b.c.Mode.Writes() {
		return nil
	}
	return fn(ctx)
}

// sample offers a raw row to the collector. Collection problems never fail a record.
func (b *base) sample(ctx context.Context, entityType string, raw any, reason, detail, language string) {
	_, err := b.c.Samples.Collect(ctx, samples.Sample{
		EntityType: entityType,
		Raw:        raw,
		Reason:     reason,
		Detail:     detail,
		Language:   language,
	})
	if err != nil {
		b.log.Warnw("Failed to collect sample", "entity_type", entityType, "error", err)
	}
}
