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

// partnerFamily describes one legacy partner table and its names table.
type partnerFamily struct {
	kind       string // museum or institution, or the sample entity type
	schema     string
	table      string
	namesTable string
	idCol      string
	// countryKey marks tables keyed by (id, country) rather than id alone.
	countryKey bool
	logos      int // logo columns the table carries, see logoSlots
}

var (
	museums = partnerFamily{kind: "museum", schema: schemaMWNF3, table: "museums",
		namesTable: "museumnames", idCol: "museum_id", countryKey: true, logos: 4}
	institutions = partnerFamily{kind: "institution", schema: schemaMWNF3, table: "institutions",
		namesTable: "institutionnames", idCol: "institution_id", countryKey: true, logos: 3}
	shPartners = partnerFamily{kind: "sh_partner", schema: schemaSharingHistory, table: "sh_partners",
		namesTable: "sh_partner_names", idCol: "partners_id", logos: 4}
)

func (f partnerFamily) key(id, country string) []any {
	if f.countryKey {
		return []any{id, country}
	}
	return []any{id}
}

func (f partnerFamily) keyCols() []string {
	if f.countryKey {
		return []string{f.idCol, "country"}
	}
	return []string{f.idCol}
}

func (f partnerFamily) token(id, country string) string {
	return bcref.New(f.schema, f.table, f.key(id, country)...).String()
}

func museumToken(id, country string) string      { return museums.token(id, country) }
func institutionToken(id, country string) string { return institutions.token(id, country) }
func shPartnerToken(id string) string            { return shPartners.token(id, "") }

// PartnerUnit imports museums and institutions with their translations.
type PartnerUnit struct {
	base
}

// NewPartnerUnit imports mwnf3 museums and institutions.
func NewPartnerUnit(c *Context) Unit {
	return &PartnerUnit{base: newBase(c, UnitPartner)}
}

// Run imports both partner tables.
func (u *PartnerUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	for _, f := range []partnerFamily{museums, institutions} {
		if err := u.importFamily(ctx, f); err != nil {
			return u.abort(err)
		}
	}
	return u.finish(), nil
}

func (u *PartnerUnit) importFamily(ctx context.Context, f partnerFamily) error {
	partners, ok, err := u.query(ctx, "mwnf3."+f.table,
		fmt.Sprintf("SELECT * FROM mwnf3.%s ORDER BY %s, country", f.table, f.idCol))
	if err != nil || !ok {
		return err
	}
	names, ok, err := u.query(ctx, "mwnf3."+f.namesTable,
		fmt.Sprintf("SELECT * FROM mwnf3.%s ORDER BY %s, country, lang", f.namesTable, f.idCol))
	if err != nil {
		return err
	}
	var translations *groupedRows
	if ok {
		translations = newGroupedRows(names, f.idCol, "country")
	}

	groups := groupRows(partners, f.idCol, "country")
	u.log.Infow("Importing partners", "kind", f.kind, "partners", groups.Len())
	for el := groups.Front(); el != nil; el = el.Next() {
		row := el.Value[0]
		if err := u.importPartner(ctx, f, row, translations.get(el.Key)); err != nil {
			return err
		}
	}
	return nil
}

func (u *PartnerUnit) importPartner(ctx context.Context, f partnerFamily, row database.Row, names []database.Row) error {
	id := strings.TrimSpace(row.String(f.idCol))
	country := strings.TrimSpace(row.String("country"))
	token := f.token(id, country)
	if u.exists(token) {
		u.result.Skipped++
		return nil
	}

	countryID, err := CountryID(country)
	if err != nil {
		u.sample(ctx, f.kind, row, samples.ReasonWarning, "unknown_country", "")
		return u.fail(token, err)
	}
	internalName := strings.TrimSpace(row.String("name"))
	if internalName == "" {
		internalName = id
	}
	var projectID *string
	if p := row.String("project_id"); p != "" {
		if pid, ok := u.c.Tracker.GetID(projectToken(p)); ok {
			projectID = &pid
		}
	}

	partnerID, err := u.create(ctx, token, tracker.CategoryPartner, func(ctx context.Context) (string, error) {
		return u.c.Target.WritePartner(ctx, target.PartnerInput{
			InternalName:          internalName,
			BackwardCompatibility: token,
			Type:                  f.kind,
			CountryID:             &countryID,
			ProjectID:             projectID,
			Visible:               true,
		})
	})
	if err != nil {
		return u.fail(token, err)
	}

	if len(names) > 0 {
		contextID, err := u.defaultContext(ctx)
		if err != nil {
			if err := u.warn(token, "translations skipped", err); err != nil {
				return err
			}
			names = nil
		}
		for _, n := range names {
			if err := u.writePartnerTranslation(ctx, token, partnerID, contextID, row, n, n.Nullable("description")); err != nil {
				return err
			}
		}
	}

	u.result.Imported++
	u.sample(ctx, f.kind, row, samples.ReasonSuccess, "", "")
	return nil
}

// writePartnerTranslation writes one names row. Name and city fall back to
// the partner row.
func (b *base) writePartnerTranslation(ctx context.Context, token, partnerID, contextID string, partner, n database.Row, description *string) error {
	lang, err := LanguageID(n.String("lang"))
	if err != nil {
		return b.warn(token, "translation skipped", err)
	}
	name := strings.TrimSpace(n.String("name"))
	if name == "" {
		name = strings.TrimSpace(partner.String("name"))
	}
	city := n.Nullable("city")
	if city == nil {
		city = partner.Nullable("city")
	}
	err = b.write(ctx, func(ctx context.Context) error {
		_, err := b.c.Target.WritePartnerTranslation(ctx, target.PartnerTranslationInput{
			PartnerID:             partnerID,
			LanguageID:            lang,
			ContextID:             contextID,
			BackwardCompatibility: token + bcref.Separator + lang,
			Name:                  name,
			Description:           description,
			CityDisplay:           city,
			ContactWebsite:        partner.Nullable("url"),
			ContactPhone:          partner.Nullable("phone"),
			ContactEmailGeneral:   partner.Nullable("email"),
		})
		return err
	})
	if err != nil {
		return b.warn(token, "translation failed", err)
	}
	return nil
}

// groupedRows indexes rows by the same key groupRows uses. A nil value
// answers every lookup with nothing.
type groupedRows struct {
	groups map[string][]database.Row
}

func newGroupedRows(rows []database.Row, cols ...string) *groupedRows {
	g := &groupedRows{groups: make(map[string][]database.Row)}
	for el := groupRows(rows, cols...).Front(); el != nil; el = el.Next() {
		g.groups[el.Key] = el.Value
	}
	return g
}

func (g *groupedRows) get(key string) []database.Row {
	if g == nil {
		return nil
	}
	return g.groups[key]
}
