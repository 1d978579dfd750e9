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

// Thematic gallery tokens.
var (
	galleriesRootToken   = schemaThematic + bcref.Separator + "galleries_root"
	exhibitionsRootToken = schemaThematic + bcref.Separator + "exhibitions_root"
)

func galleryToken(galleryID string) string {
	return bcref.New(schemaThematic, "thg_gallery", galleryID).String()
}

func themeToken(galleryID, themeID string) string {
	return bcref.New(schemaThematic, "theme", galleryID, themeID).String()
}

// exhibitionProjects are the legacy project ids whose galleries are exhibitions.
var exhibitionProjects = map[string]bool{"EXH": true}

type rootCollection struct {
	internalName string
	token        string
	title        string
	description  string
}

var thgRootCollections = []rootCollection{
	{
		internalName: "thg_galleries_root",
		token:        galleriesRootToken,
		title:        "Galleries",
		description:  "Thematic galleries showcasing curated collections from the Museum With No Frontiers.",
	},
	{
		internalName: "thg_exhibitions_root",
		token:        exhibitionsRootToken,
		title:        "Exhibitions",
		description:  "Virtual exhibitions presenting themed selections from the Museum With No Frontiers collections.",
	},
}

// THGRootCollectionsUnit creates the Galleries and Exhibitions roots.
type THGRootCollectionsUnit struct {
	base
}

// NewTHGRootCollectionsUnit creates the gallery and exhibition root collections.
func NewTHGRootCollectionsUnit(c *Context) Unit {
	return &THGRootCollectionsUnit{base: newBase(c, UnitTHGRootCollections)}
}

// Run creates both root collections.
func (u *THGRootCollectionsUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	for _, rc := range thgRootCollections {
		if err := u.importRoot(ctx, rc); err != nil {
			return u.abort(err)
		}
	}
	return u.finish(), nil
}

func (u *THGRootCollectionsUnit) importRoot(ctx context.Context, rc rootCollection) error {
	if u.exists(rc.token) {
		u.result.Skipped++
		return nil
	}
	contextID, err := u.defaultContext(ctx)
	if err != nil {
		return u.fail(rc.token, err)
	}
	id, err := u.create(ctx, rc.token, tracker.CategoryCollection, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteCollection(ctx, target.CollectionInput{
			InternalName:          rc.internalName,
			BackwardCompatibility: rc.token,
			ContextID:             contextID,
			LanguageID:            DefaultLanguage,
			Type:                  "collection",
		})
	})
	if err != nil {
		return u.fail(rc.token, err)
	}
	err = u.write(ctx, func(ctx context.Context) error {
		_, err := u.c.Target.WriteCollectionTranslation(ctx, target.CollectionTranslationInput{
			CollectionID:          id,
			LanguageID:            DefaultLanguage,
			ContextID:             contextID,
			BackwardCompatibility: rc.token + bcref.Separator + DefaultLanguage,
			Title:                 rc.title,
			Description:           strPtr(rc.description),
		})
		return err
	})
	if err != nil {
		if err := u.warn(rc.token, "translation failed", err); err != nil {
			return err
		}
	}
	u.result.Imported++
	u.sample(ctx, "thg_root_collection",
		map[string]any{"internal_name": rc.internalName, "backward_compatibility": rc.token},
		samples.ReasonSuccess, "", DefaultLanguage)
	return nil
}

// THGGalleryUnit imports thg_gallery rows as gallery or exhibition collections.
type THGGalleryUnit struct {
	base
}

// NewTHGGalleryUnit imports thematic galleries as collections.
func NewTHGGalleryUnit(c *Context) Unit {
	return &THGGalleryUnit{base: newBase(c, UnitTHGGallery)}
}

// Run imports every gallery under its root collection.
func (u *THGGalleryUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	rows, ok, err := u.query(ctx, schemaThematic+".thg_gallery",
		"SELECT gallery_id, project_id, name, link, sort_order, status FROM mwnf3_thematic_gallery.thg_gallery ORDER BY sort_order, gallery_id")
	if err != nil || !ok {
		return u.done(err)
	}

	roots := make(map[string]*string)
	for _, t := range []string{galleriesRootToken, exhibitionsRootToken} {
		id, err := u.resolve(ctx, "root collection", t, tracker.CategoryCollection)
		if err != nil {
			if err := u.warn(t, "galleries imported without parent", err); err != nil {
				return u.abort(err)
			}
			continue
		}
		roots[t] = &id
	}

	u.log.Infow("Importing galleries", "galleries", len(rows))
	for _, r := range rows {
		if err := u.importGallery(ctx, r, roots); err != nil {
			return u.abort(err)
		}
	}
	return u.finish(), nil
}

func (u *THGGalleryUnit) importGallery(ctx context.Context, r database.Row, roots map[string]*string) error {
	token := galleryToken(r.String("gallery_id"))
	if u.exists(token) {
		u.result.Skipped++
		return nil
	}
	contextID, err := u.defaultContext(ctx)
	if err != nil {
		return u.fail(token, err)
	}

	typ, root := "gallery", galleriesRootToken
	if exhibitionProjects[strings.TrimSpace(r.String("project_id"))] {
		typ, root = "exhibition", exhibitionsRootToken
	}
	label := r.String("link")
	if strings.TrimSpace(label) == "" {
		label = r.String("name")
	}
	internalName := typ + "_" + slugify(label)

	_, err = u.create(ctx, token, tracker.CategoryCollection, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteCollection(ctx, target.CollectionInput{
			InternalName:          internalName,
			BackwardCompatibility: token,
			ContextID:             contextID,
			LanguageID:            DefaultLanguage,
			ParentID:              roots[root],
			Type:                  typ,
			DisplayOrder:          intPtr(int(r.Int("sort_order"))),
		})
	})
	if err != nil {
		return u.fail(token, err)
	}
	u.result.Imported++
	u.sample(ctx, "thg_gallery_collection", r, samples.ReasonSuccess, "", "")
	return nil
}

// THGThemeUnit imports the theme hierarchy under each gallery, parents first,
// with the theme_i18n translations.
type THGThemeUnit struct {
	base
}

// NewTHGThemeUnit imports gallery themes as nested collections.
func NewTHGThemeUnit(c *Context) Unit {
	return &THGThemeUnit{base: newBase(c, UnitTHGTheme)}
}

// Run imports every theme after its parent theme.
func (u *THGThemeUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	rows, ok, err := u.query(ctx, schemaThematic+".theme",
		"SELECT * FROM mwnf3_thematic_gallery.theme ORDER BY gallery_id, display_order, theme_id")
	if err != nil || !ok {
		return u.done(err)
	}
	i18n, ok, err := u.query(ctx, schemaThematic+".theme_i18n",
		"SELECT gallery_id, theme_id, language_id, title, quote, presentation FROM mwnf3_thematic_gallery.theme_i18n ORDER BY gallery_id, theme_id, language_id")
	if err != nil {
		return u.done(err)
	}
	var translations *groupedRows
	if ok {
		translations = newGroupedRows(i18n, "gallery_id", "theme_id")
	}

	u.log.Infow("Importing themes", "themes", len(rows), "translations", len(i18n))
	for _, r := range orderThemes(rows) {
		key := r.String("gallery_id") + "\x1f" + r.String("theme_id")
		if err := u.importTheme(ctx, r, translations.get(key)); err != nil {
			return u.abort(err)
		}
	}
	return u.finish(), nil
}

// parentTheme returns the parent theme id, or "" for a top-level theme.
func parentTheme(r database.Row) string {
	p := strings.TrimSpace(r.String("parent_theme_id"))
	if p == "0" {
		return ""
	}
	return p
}

// orderThemes reorders rows so every theme follows its parent. Themes whose
// parent is not among the rows keep their position; the import reports them.
func orderThemes(rows []database.Row) []database.Row {
	present := make(map[string]bool, len(rows))
	for _, r := range rows {
		present[r.String("gallery_id")+"\x1f"+r.String("theme_id")] = true
	}
	placed := make(map[string]bool, len(rows))
	out := make([]database.Row, 0, len(rows))
	pending := rows
	for len(pending) > 0 {
		var next []database.Row
		for _, r := range pending {
			g := r.String("gallery_id")
			p := parentTheme(r)
			if p == "" || placed[g+"\x1f"+p] || !present[g+"\x1f"+p] {
				out = append(out, r)
				placed[g+"\x1f"+r.String("theme_id")] = true
			} else {
				next = append(next, r)
			}
		}
		if len(next) == len(pending) {
			// cycle in legacy data
			out = append(out, next...)
			break
		}
		pending = next
	}
	return out
}

func (u *THGThemeUnit) importTheme(ctx context.Context, r database.Row, names []database.Row) error {
	galleryID := r.String("gallery_id")
	themeID := r.String("theme_id")
	token := themeToken(galleryID, themeID)
	if u.exists(token) {
		u.result.Skipped++
		return nil
	}
	contextID, err := u.defaultContext(ctx)
	if err != nil {
		return u.fail(token, err)
	}

	var parentID string
	if p := parentTheme(r); p != "" {
		parentID, err = u.resolve(ctx, "parent theme", themeToken(galleryID, p), tracker.CategoryCollection)
	} else {
		parentID, err = u.resolve(ctx, "gallery", galleryToken(galleryID), tracker.CategoryCollection)
	}
	if err != nil {
		u.sample(ctx, "thg_theme", r, samples.ReasonWarning, "missing_parent", "")
		return u.fail(token, err)
	}

	name := strings.TrimSpace(r.String("name"))
	if name == "" {
		name = fmt.Sprintf("theme_%s_%s", galleryID, themeID)
	}
	id, err := u.create(ctx, token, tracker.CategoryCollection, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteCollection(ctx, target.CollectionInput{
			InternalName:          name,
			BackwardCompatibility: token,
			ContextID:             contextID,
			LanguageID:            DefaultLanguage,
			ParentID:              &parentID,
			Type:                  "theme",
			DisplayOrder:          intPtr(int(r.Int("display_order"))),
		})
	})
	if err != nil {
		return u.fail(token, err)
	}

	for _, n := range names {
		if err := u.writeTranslation(ctx, token, id, contextID, themeID, n); err != nil {
			return err
		}
	}
	u.result.Imported++
	u.sample(ctx, "thg_theme", r, samples.ReasonSuccess, "", "")
	return nil
}

func (u *THGThemeUnit) writeTranslation(ctx context.Context, token, collectionID, contextID, themeID string, n database.Row) error {
	lang, err := LanguageID(n.String("language_id"))
	if err != nil {
		return u.warn(token, "translation skipped", err)
	}
	title := strings.TrimSpace(n.String("title"))
	if title == "" {
		title = "Theme " + themeID
	}
	err = u.write(ctx, func(ctx context.Context) error {
		_, err := u.c.Target.WriteCollectionTranslation(ctx, target.CollectionTranslationInput{
			CollectionID:          collectionID,
			LanguageID:            lang,
			ContextID:             contextID,
			BackwardCompatibility: token + bcref.Separator + lang,
			Title:                 title,
			Description:           n.Nullable("presentation"),
			Quote:                 n.Nullable("quote"),
		})
		return err
	})
	if err != nil {
		return u.warn(token, "translation failed", err)
	}
	u.sample(ctx, "thg_theme_translation", n, samples.ReasonSuccess, "", lang)
	return nil
}
