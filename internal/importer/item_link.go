package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbsmedya/legacymigrate/internal/bcref"
	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/samples"
	"github.com/dbsmedya/legacymigrate/internal/target"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

// itemEnd is one side of a legacy link row: a column prefix and the item
// token it builds.
type itemEnd struct {
	prefix string
	cols   []string // suffixes after the prefix
	token  func(project, country, partner, number string) string
}

var (
	objectEnd   = itemEnd{cols: []string{"project_id", "country_id", "museum_id", "number"}, token: objectToken}
	monumentEnd = itemEnd{cols: []string{"project_id", "country_id", "institution_id", "number"}, token: monumentToken}
)

func (e itemEnd) with(prefix string) itemEnd {
	e.prefix = prefix
	return e
}

func (e itemEnd) values(r database.Row) []string {
	vals := make([]string, len(e.cols))
	for i, c := range e.cols {
		vals[i] = strings.TrimSpace(r.String(e.prefix + c))
	}
	return vals
}

func (e itemEnd) itemToken(r database.Row) string {
	v := e.values(r)
	return e.token(v[0], v[1], v[2], v[3])
}

func (e itemEnd) columns() []string {
	cols := make([]string, len(e.cols))
	for i, c := range e.cols {
		cols[i] = e.prefix + c
	}
	return cols
}

// linkTable is one legacy table of item to item links.
type linkTable struct {
	table  string
	kind   string
	source itemEnd
	target itemEnd
}

var linkTables = []linkTable{
	{"objects_objects", "object_object", objectEnd.with("o1_"), objectEnd.with("o2_")},
	{"objects_monuments", "object_monument", objectEnd.with("o1_"), monumentEnd.with("m1_")},
	{"monuments_monuments", "monument_monument", monumentEnd.with("m1_"), monumentEnd.with("m2_")},
}

func (t linkTable) token(r database.Row) string {
	pk := []any{t.kind}
	for _, v := range append(t.source.values(r), t.target.values(r)...) {
		pk = append(pk, v)
	}
	return bcref.New(schemaMWNF3, "link", pk...).String()
}

// ItemLinkUnit relates mwnf3 objects and monuments to each other.
type ItemLinkUnit struct {
	base
}

// NewItemLinkUnit imports the mwnf3 object and monument link tables.
func NewItemLinkUnit(c *Context) Unit {
	return &ItemLinkUnit{base: newBase(c, UnitItemLink)}
}

// Run imports every link table; a missing table is only a warning.
func (u *ItemLinkUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	for _, t := range linkTables {
		if err := u.importTable(ctx, t); err != nil {
			return u.abort(err)
		}
	}
	return u.finish(), nil
}

func (u *ItemLinkUnit) importTable(ctx context.Context, t linkTable) error {
	cols := append(t.source.columns(), t.target.columns()...)
	list := strings.Join(cols, ", ")
	rows, ok, err := u.query(ctx, schemaMWNF3+"."+t.table,
		fmt.Sprintf("SELECT %s FROM %s.%s ORDER BY %s", list, schemaMWNF3, t.table, list))
	if err != nil || !ok {
		return err
	}
	u.log.Infow("Importing item links", "table", t.table, "links", len(rows))

	var contextID string
	for _, r := range rows {
		token := t.token(r)
		if u.exists(token) {
			u.result.Skipped++
			continue
		}
		if contextID == "" {
			if contextID, err = u.defaultContext(ctx); err != nil {
				return err
			}
		}
		if err := u.importLink(ctx, t, token, contextID, r); err != nil {
			return err
		}
	}
	return nil
}

func (u *ItemLinkUnit) importLink(ctx context.Context, t linkTable, token, contextID string, r database.Row) error {
	sourceID, err := u.resolve(ctx, "source item", t.source.itemToken(r), tracker.CategoryItem)
	if err != nil {
		u.sample(ctx, "item_link", r, samples.ReasonWarning, "missing_source", "")
		return u.fail(token, err)
	}
	targetID, err := u.resolve(ctx, "target item", t.target.itemToken(r), tracker.CategoryItem)
	if err != nil {
		u.sample(ctx, "item_link", r, samples.ReasonWarning, "missing_target", "")
		return u.fail(token, err)
	}

	_, err = u.create(ctx, token, tracker.CategoryLink, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteItemItemLink(ctx, target.ItemItemLinkInput{
			SourceID:              sourceID,
			TargetID:              targetID,
			ContextID:             contextID,
			BackwardCompatibility: token,
		})
	})
	if err != nil {
		return u.fail(token, err)
	}
	u.result.Imported++
	u.sample(ctx, "item_link", r, samples.ReasonSuccess, "", "")
	return nil
}
