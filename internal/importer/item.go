package importer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dbsmedya/legacymigrate/internal/bcref"
	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/samples"
	"github.com/dbsmedya/legacymigrate/internal/target"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

const maxAlternateName = 255

// itemFamily describes a legacy item table. Its rows are either one per
// (record, language), or one per record with a separate per-language texts
// table; both collapse to one item plus one translation per language.
type itemFamily struct {
	entityType string // sample entity type
	itemType   string // target item type
	schema     string
	table      string
	texts      string // per-language table joined on pkCols, "" when table rows carry the language
	langCol    string
	pkCols     []string // token columns in order, without the language column
	countryCol string
	projects   projectTokens

	// partner returns the token of the owning partner, "" for none.
	partner func(r database.Row) string
	// sharedPartner marks sharing history partners: optional, and possibly
	// merged into an mwnf3 partner.
	sharedPartner bool
	// parent returns the token of the parent item, or "" for top-level items.
	parent func(r database.Row) string

	descriptionCols []string // joined by blank lines
	alternateCols   []string // joined by "; "
	extraCols       []string
	// fallbackName names a record none of whose rows has a name. Without it
	// such records fail.
	fallbackName func(r database.Row) string
}

// token collapses every language variant of a row to the same identity.
func (f itemFamily) token(r database.Row) string {
	cols := bcref.Columns()
	for _, c := range f.pkCols {
		cols.Set(c, r.String(c))
	}
	cols.Set(f.langCol, r.String(f.langCol))
	return bcref.FormatDenormalized(f.schema, f.table, cols, f.langCol)
}

var mwnf3ItemExtra = []string{"typeof", "dynasty", "materials", "artist", "provenance", "keywords"}

var objectFamily = itemFamily{
	entityType:      "object",
	itemType:        "object",
	schema:          schemaMWNF3,
	table:           "objects",
	langCol:         "lang",
	pkCols:          []string{"project_id", "country", "museum_id", "number"},
	countryCol:      "country",
	projects:        mwnf3Projects,
	partner:         func(r database.Row) string { return museumToken(r.String("museum_id"), r.String("country")) },
	descriptionCols: []string{"description"},
	alternateCols:   []string{"name2"},
	extraCols:       mwnf3ItemExtra,
}

var monumentFamily = itemFamily{
	entityType:      "monument",
	itemType:        "monument",
	schema:          schemaMWNF3,
	table:           "monuments",
	langCol:         "lang",
	pkCols:          []string{"project_id", "country", "institution_id", "number"},
	countryCol:      "country",
	projects:        mwnf3Projects,
	partner:         func(r database.Row) string { return institutionToken(r.String("institution_id"), r.String("country")) },
	descriptionCols: []string{"description"},
	alternateCols:   []string{"name2"},
	extraCols:       mwnf3ItemExtra,
}

var monumentDetailFamily = itemFamily{
	entityType: "monument_detail",
	itemType:   "detail",
	schema:     schemaMWNF3,
	table:      "monument_details",
	langCol:    "lang_id",
	pkCols:     []string{"project_id", "country_id", "institution_id", "monument_id", "detail_id"},
	countryCol: "country_id",
	projects:   mwnf3Projects,
	partner:    func(r database.Row) string { return institutionToken(r.String("institution_id"), r.String("country_id")) },
	parent: func(r database.Row) string {
		return monumentToken(r.String("project_id"), r.String("country_id"), r.String("institution_id"), r.String("monument_id"))
	},
	descriptionCols: []string{"description"},
	alternateCols:   []string{"name2"},
	extraCols:       mwnf3ItemExtra,
}

// Sharing history items are keyed without their partner, which is a plain
// column instead.
var shAlternateNames = []string{"name2", "second_name", "third_name"}

var shObjectFamily = itemFamily{
	entityType:      "sh_object",
	itemType:        "object",
	schema:          schemaSharingHistory,
	table:           "sh_objects",
	texts:           "sh_objects_texts",
	langCol:         "lang",
	pkCols:          []string{"project_id", "country", "number"},
	countryCol:      "country",
	projects:        shProjects,
	partner:         shPartnerOf,
	sharedPartner:   true,
	descriptionCols: []string{"description", "description2"},
	alternateCols:   shAlternateNames,
	extraCols: []string{"typeof", "dynasty", "materials", "artist", "provenance", "archival",
		"production_place", "workshop", "notice", "copyright"},
	fallbackName: func(r database.Row) string {
		return fmt.Sprintf("SH Object %s:%s:%s", r.String("project_id"), r.String("country"), r.String("number"))
	},
}

var shMonumentFamily = itemFamily{
	entityType:      "sh_monument",
	itemType:        "monument",
	schema:          schemaSharingHistory,
	table:           "sh_monuments",
	texts:           "sh_monument_texts",
	langCol:         "lang",
	pkCols:          []string{"project_id", "country", "number"},
	countryCol:      "country",
	projects:        shProjects,
	partner:         shPartnerOf,
	sharedPartner:   true,
	descriptionCols: []string{"description", "description2", "history"},
	alternateCols:   shAlternateNames,
	extraCols:       []string{"typeof", "dynasty", "patrons", "architects", "notice", "copyright"},
	fallbackName: func(r database.Row) string {
		return fmt.Sprintf("SH Monument %s:%s:%s", r.String("project_id"), r.String("country"), r.String("number"))
	},
}

var shMonumentDetailFamily = itemFamily{
	entityType: "sh_monument_detail",
	itemType:   "detail",
	schema:     schemaSharingHistory,
	table:      "sh_monument_details",
	texts:      "sh_monument_detail_texts",
	langCol:    "lang",
	pkCols:     []string{"project_id", "country", "number", "detail_id"},
	countryCol: "country",
	projects:   shProjects,
	parent: func(r database.Row) string {
		return shMonumentToken(r.String("project_id"), r.String("country"), r.String("number"))
	},
	descriptionCols: []string{"description"},
	alternateCols:   shAlternateNames,
	extraCols:       []string{"typeof", "notice", "copyright"},
	fallbackName: func(r database.Row) string {
		return fmt.Sprintf("SH Monument Detail %s:%s:%s:%s", r.String("project_id"), r.String("country"),
			r.String("number"), r.String("detail_id"))
	},
}

func objectToken(project, country, museum, number string) string {
	return bcref.New(schemaMWNF3, "objects", project, country, museum, number).String()
}

func monumentToken(project, country, institution, number string) string {
	return bcref.New(schemaMWNF3, "monuments", project, country, institution, number).String()
}

func monumentDetailToken(project, country, institution, monument, detail string) string {
	return bcref.New(schemaMWNF3, "monument_details", project, country, institution, monument, detail).String()
}

func shMonumentToken(project, country, number string) string {
	return bcref.New(schemaSharingHistory, "sh_monuments", project, country, number).String()
}

func shMonumentDetailToken(project, country, number, detail string) string {
	return bcref.New(schemaSharingHistory, "sh_monument_details", project, country, number, detail).String()
}

// ItemUnit imports one item family.
type ItemUnit struct {
	base
	family  itemFamily
	aliases partnerAliases
}

// NewObjectUnit imports mwnf3.objects.
func NewObjectUnit(c *Context) Unit {
	return &ItemUnit{base: newBase(c, UnitObject), family: objectFamily}
}

// NewMonumentUnit imports mwnf3.monuments.
func NewMonumentUnit(c *Context) Unit {
	return &ItemUnit{base: newBase(c, UnitMonument), family: monumentFamily}
}

// NewMonumentDetailUnit imports mwnf3.monument_details as children of their monument.
func NewMonumentDetailUnit(c *Context) Unit {
	return &ItemUnit{base: newBase(c, UnitMonumentDetail), family: monumentDetailFamily}
}

// NewSHObjectUnit imports the sharing history objects.
func NewSHObjectUnit(c *Context) Unit {
	return &ItemUnit{base: newBase(c, UnitSHObject), family: shObjectFamily}
}

// NewSHMonumentUnit imports the sharing history monuments.
func NewSHMonumentUnit(c *Context) Unit {
	return &ItemUnit{base: newBase(c, UnitSHMonument), family: shMonumentFamily}
}

// NewSHMonumentDetailUnit imports the sharing history monument details.
func NewSHMonumentDetailUnit(c *Context) Unit {
	return &ItemUnit{base: newBase(c, UnitSHMonumentDetail), family: shMonumentDetailFamily}
}

// Run imports every record of the family with its translations.
func (u *ItemUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	f := u.family

	order := strings.Join(f.pkCols, ", ")
	withLang := order + ", " + f.langCol
	if f.texts == "" {
		order = withLang
	}
	rows, ok, err := u.loadWithTexts(ctx, f.schema, f.table, f.texts, order, withLang, f.pkCols)
	if err != nil || !ok {
		return u.done(err)
	}
	if f.sharedPartner {
		if u.aliases, err = u.loadPartnerAliases(ctx); err != nil {
			return u.abort(err)
		}
	}
	groups := groupRows(rows, f.pkCols...)
	u.log.Infow("Importing items", "table", f.table, "type", f.itemType, "rows", len(rows), "records", groups.Len())

	for el := groups.Front(); el != nil; el = el.Next() {
		if err := u.importItem(ctx, el.Value); err != nil {
			return u.abort(err)
		}
	}
	return u.finish(), nil
}

// itemParents are the resolved target ids an item hangs off.
type itemParents struct {
	context    string
	collection string
	project    string
	partner    *string
	parent     *string
}

func (u *ItemUnit) resolveParents(ctx context.Context, token string, first database.Row) (itemParents, error) {
	var p itemParents
	var err error
	f := u.family
	projectID := first.String("project_id")
	if p.context, err = u.resolve(ctx, "project context", f.projects.context(projectID), tracker.CategoryContext); err != nil {
		return p, err
	}
	if p.collection, err = u.resolve(ctx, "project collection", f.projects.collection(projectID), tracker.CategoryCollection); err != nil {
		return p, err
	}
	if p.project, err = u.resolve(ctx, "project", f.projects.project(projectID), tracker.CategoryProject); err != nil {
		return p, err
	}
	if p.partner, err = u.resolvePartner(ctx, token, first); err != nil {
		return p, err
	}
	if f.parent != nil {
		id, err := u.resolve(ctx, "parent item", f.parent(first), tracker.CategoryItem)
		if err != nil {
			return p, err
		}
		p.parent = &id
	}
	return p, nil
}

// resolvePartner returns nil when the family has no partner for the row. A
// missing sharing history partner is only a warning.
func (u *ItemUnit) resolvePartner(ctx context.Context, token string, first database.Row) (*string, error) {
	f := u.family
	if f.partner == nil {
		return nil, nil
	}
	partnerToken := f.partner(first)
	if partnerToken == "" {
		return nil, nil
	}
	if !f.sharedPartner {
		id, err := u.resolve(ctx, "partner", partnerToken, tracker.CategoryPartner)
		if err != nil {
			return nil, err
		}
		return &id, nil
	}
	id, found, err := u.resolveSHPartner(ctx, u.aliases, partnerToken)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, u.warn(token, "imported without partner", parentNotFound("partner", partnerToken))
	}
	return &id, nil
}

func (u *ItemUnit) importItem(ctx context.Context, group []database.Row) error {
	f := u.family
	first := group[0]
	token := f.token(first)
	if u.exists(token) && u.translationsLanded(token, group) {
		u.result.Skipped++
		return nil
	}

	// internal name comes from the default-language row, else the first row
	selected := first
	found := false
	for _, r := range group {
		if lang, err := LanguageID(r.String(f.langCol)); err == nil && lang == DefaultLanguage {
			selected, found = r, true
			break
		}
	}
	if !found {
		u.result.AddWarning("%s: no %s translation, internal name taken from %q", token, DefaultLanguage, first.String(f.langCol))
		u.sample(ctx, f.entityType, first, samples.ReasonWarning, "missing_default_language", first.String(f.langCol))
	}
	internalName := stripHTML(selected.String("name"))
	if internalName == "" && f.fallbackName != nil {
		internalName = f.fallbackName(first)
	}
	if internalName == "" {
		u.sample(ctx, f.entityType, selected, samples.ReasonWarning, "missing_name", selected.String(f.langCol))
		return u.fail(token, fmt.Errorf("missing required name"))
	}

	countryID, err := CountryID(first.String(f.countryCol))
	if err != nil {
		u.sample(ctx, f.entityType, first, samples.ReasonWarning, "unknown_country", "")
		return u.fail(token, err)
	}

	parents, err := u.resolveParents(ctx, token, first)
	if err != nil {
		u.sample(ctx, f.entityType, first, samples.ReasonWarning, "missing_parent", "")
		return u.fail(token, err)
	}

	in := target.ItemInput{
		InternalName:          internalName,
		BackwardCompatibility: token,
		Type:                  f.itemType,
		ParentID:              parents.parent,
		PartnerID:             parents.partner,
		CollectionID:          &parents.collection,
		ProjectID:             &parents.project,
		CountryID:             &countryID,
		OwnerReference:        first.Nullable("inventory_id"),
		MWNFReference:         first.Nullable("working_number"),
	}
	itemID, err := u.ensure(ctx, token, tracker.CategoryItem, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteItem(ctx, in)
	})
	if err != nil {
		return u.fail(token, err)
	}

	for _, r := range group {
		if err := u.writeTranslation(ctx, token, itemID, parents.context, internalName, r); err != nil {
			return err
		}
	}

	u.result.Imported++
	u.sample(ctx, f.entityType, first, samples.ReasonSuccess, "", first.String(f.langCol))
	return nil
}

func (u *ItemUnit) writeTranslation(ctx context.Context, token, itemID, contextID, internalName string, r database.Row) error {
	f := u.family
	legacyLang := r.String(f.langCol)
	if legacyLang == "" && f.texts != "" {
		// record without any text row
		return nil
	}
	lang, err := LanguageID(legacyLang)
	if err != nil {
		u.sample(ctx, f.entityType, r, samples.ReasonWarning, "unknown_language", legacyLang)
		return u.warn(token, "translation skipped", err)
	}
	description := joinCols(r, "\n\n", f.descriptionCols...)
	if description == nil {
		u.sample(ctx, f.entityType, r, samples.ReasonEdge, "missing_description", lang)
		return nil
	}
	name := stripHTML(r.String("name"))
	if name == "" {
		name = internalName
	}
	alt, cut := truncPtr(joinCols(r, "; ", f.alternateCols...), maxAlternateName)
	if cut {
		u.sample(ctx, f.entityType, r, samples.ReasonEdge, "long_alternate_name", lang)
	}

	return u.translate(ctx, token, lang, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteItemTranslation(ctx, target.ItemTranslationInput{
			ItemID:                itemID,
			LanguageID:            lang,
			ContextID:             contextID,
			BackwardCompatibility: translationToken(token, lang),
			Name:                  name,
			AlternateName:         alt,
			Description:           *description,
			Dates:                 r.Nullable("date_description"),
			Location:              joinCols(r, ", ", "location", "province"),
			Dimensions:            r.Nullable("dimensions"),
			Bibliography:          r.Nullable("bibliography"),
			Extra:                 extraFields(r, f.extraCols...),
		})
	})
}

// translationsLanded reports whether every translatable row of the record
// already has its translation registered.
func (u *ItemUnit) translationsLanded(token string, group []database.Row) bool {
	f := u.family
	for _, r := range group {
		lang, err := LanguageID(r.String(f.langCol))
		if err != nil || joinCols(r, "", f.descriptionCols...) == nil {
			continue
		}
		if !u.exists(translationToken(token, lang)) {
			return false
		}
	}
	return true
}

// extraFields keeps the non-empty legacy columns that have no target field.
func extraFields(r database.Row, cols ...string) map[string]any {
	var extra map[string]any
	for _, c := range cols {
		if v := r.Nullable(c); v != nil {
			if extra == nil {
				extra = make(map[string]any)
			}
			extra[c] = *v
		}
	}
	return extra
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	return strings.TrimSpace(htmlTag.ReplaceAllString(s, ""))
}
