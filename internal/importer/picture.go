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
	"github.com/dbsmedya/legacymigrate/internal/types"
)

const maxAltText = 500

// Suffixes of the two image tokens a picture can own besides its child item.
const (
	childImageSuffix  = "item_image"
	parentImageSuffix = "parent_image"
)

// pictureFamily describes a legacy picture table whose rows fan out into a
// child picture item per picture, each carrying its image, with the first
// picture of a parent also mirrored onto the parent item.
type pictureFamily struct {
	entityType string
	schema     string
	table      string
	texts      string // per-language captions joined on groupCols, "" when table rows carry them
	langCol    string
	groupCols  []string // one logical picture, language excluded
	orderBy    string

	parentToken func(r database.Row) string
	// tokenPK and index build the picture token via bcref.FormatImage.
	tokenPK func(r database.Row) []any
	index   func(r database.Row) int
	// mirror decides whether the picture is copied onto the parent.
	// firstForParent is true for the first picture of a parent in legacy order.
	mirror func(r database.Row, firstForParent bool) bool
	label  func(r database.Row) string
}

var objectPictureFamily = pictureFamily{
	entityType: "object_picture",
	schema:     schemaMWNF3,
	table:      "objects_pictures",
	langCol:    "lang",
	groupCols:  []string{"project_id", "country", "museum_id", "number", "type", "image_number"},
	orderBy:    "project_id, country, museum_id, number, CASE WHEN type = '' THEN 0 ELSE 1 END, type, image_number, lang",
	parentToken: func(r database.Row) string {
		return objectToken(r.String("project_id"), r.String("country"), r.String("museum_id"), r.String("number"))
	},
	tokenPK: func(r database.Row) []any {
		pk := []any{r.String("project_id"), r.String("country"), r.String("museum_id"), r.String("number")}
		// typed pictures share image numbers with the main series
		if t := strings.TrimSpace(r.String("type")); t != "" {
			pk = append(pk, t)
		}
		return pk
	},
	index: func(r database.Row) int { return int(r.Int("image_number")) },
	mirror: func(r database.Row, _ bool) bool {
		return strings.TrimSpace(r.String("type")) == "" && r.Int("image_number") == 1
	},
	label: func(r database.Row) string {
		return r.String("project_id") + ":" + r.String("museum_id") + ":" + r.String("number")
	},
}

var monumentDetailPictureFamily = pictureFamily{
	entityType: "monument_detail_picture",
	schema:     schemaMWNF3,
	table:      "monument_detail_pictures",
	langCol:    "lang_id",
	groupCols:  []string{"project_id", "country_id", "institution_id", "monument_id", "detail_id", "picture_id"},
	orderBy:    "project_id, country_id, institution_id, monument_id, detail_id, picture_id, lang_id",
	parentToken: func(r database.Row) string {
		return monumentDetailToken(r.String("project_id"), r.String("country_id"), r.String("institution_id"),
			r.String("monument_id"), r.String("detail_id"))
	},
	tokenPK: func(r database.Row) []any {
		return []any{r.String("project_id"), r.String("country_id"), r.String("institution_id"),
			r.String("monument_id"), r.String("detail_id")}
	},
	index:  func(r database.Row) int { return int(r.Int("picture_id")) },
	mirror: func(_ database.Row, firstForParent bool) bool { return firstForParent },
	label: func(r database.Row) string {
		return r.String("project_id") + ":" + r.String("monument_id") + ":" + r.String("detail_id")
	},
}

var shMonumentPictureFamily = pictureFamily{
	entityType: "sh_monument_picture",
	schema:     schemaSharingHistory,
	table:      "sh_monument_images",
	texts:      "sh_monument_image_texts",
	langCol:    "lang",
	groupCols:  []string{"project_id", "country", "number", "type", "image_number"},
	orderBy:    "project_id, country, number, CASE WHEN type = '' THEN 0 ELSE 1 END, type, image_number",
	parentToken: func(r database.Row) string {
		return shMonumentToken(r.String("project_id"), r.String("country"), r.String("number"))
	},
	tokenPK: func(r database.Row) []any {
		pk := []any{r.String("project_id"), r.String("country"), r.String("number")}
		if t := strings.TrimSpace(r.String("type")); t != "" {
			pk = append(pk, t)
		}
		return pk
	},
	index: func(r database.Row) int { return int(r.Int("image_number")) },
	mirror: func(r database.Row, _ bool) bool {
		return strings.TrimSpace(r.String("type")) == "" && r.Int("image_number") == 1
	},
	label: func(r database.Row) string {
		return r.String("project_id") + ":" + r.String("country") + ":" + r.String("number")
	},
}

var shMonumentDetailPictureFamily = pictureFamily{
	entityType: "sh_monument_detail_picture",
	schema:     schemaSharingHistory,
	table:      "sh_monument_detail_pictures",
	texts:      "sh_monument_detail_picture_texts",
	langCol:    "lang",
	groupCols:  []string{"project_id", "country", "number", "detail_id", "picture_id"},
	orderBy:    "project_id, country, number, detail_id, picture_id",
	parentToken: func(r database.Row) string {
		return shMonumentDetailToken(r.String("project_id"), r.String("country"), r.String("number"), r.String("detail_id"))
	},
	tokenPK: func(r database.Row) []any {
		return []any{r.String("project_id"), r.String("country"), r.String("number"), r.String("detail_id")}
	},
	index:  func(r database.Row) int { return int(r.Int("picture_id")) },
	mirror: func(r database.Row, _ bool) bool { return r.Int("picture_id") == 1 },
	label: func(r database.Row) string {
		return r.String("project_id") + ":" + r.String("number") + ":" + r.String("detail_id")
	},
}

// PictureUnit imports one picture family.
type PictureUnit struct {
	base
	family pictureFamily
	seen   map[string]bool // parents that already had their first picture
}

// NewObjectPictureUnit imports mwnf3.objects_pictures.
func NewObjectPictureUnit(c *Context) Unit {
	return &PictureUnit{base: newBase(c, UnitObjectPicture), family: objectPictureFamily}
}

// NewMonumentDetailPictureUnit imports mwnf3.monument_detail_pictures.
func NewMonumentDetailPictureUnit(c *Context) Unit {
	return &PictureUnit{base: newBase(c, UnitMonumentDetailPicture), family: monumentDetailPictureFamily}
}

// NewSHMonumentPictureUnit imports the sharing history monument images.
func NewSHMonumentPictureUnit(c *Context) Unit {
	return &PictureUnit{base: newBase(c, UnitSHMonumentPicture), family: shMonumentPictureFamily}
}

// NewSHMonumentDetailPictureUnit imports the sharing history monument detail pictures.
func NewSHMonumentDetailPictureUnit(c *Context) Unit {
	return &PictureUnit{base: newBase(c, UnitSHMonumentDetailPicture), family: shMonumentDetailPictureFamily}
}

// Run imports every picture of the family in legacy order.
func (u *PictureUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	u.seen = make(map[string]bool)
	f := u.family

	rows, ok, err := u.loadWithTexts(ctx, f.schema, f.table, f.texts, f.orderBy,
		strings.Join(f.groupCols, ", ")+", "+f.langCol, f.groupCols)
	if err != nil || !ok {
		return u.done(err)
	}
	groups := groupRows(rows, f.groupCols...)
	u.log.Infow("Importing pictures", "table", f.table, "rows", len(rows), "pictures", groups.Len())

	for el := groups.Front(); el != nil; el = el.Next() {
		if err := u.importPicture(ctx, el.Value); err != nil {
			return u.abort(err)
		}
	}
	return u.finish(), nil
}

func (u *PictureUnit) importPicture(ctx context.Context, group []database.Row) error {
	f := u.family
	first := group[0]
	token := bcref.FormatImage(f.schema, f.table, f.tokenPK(first), f.index(first))
	childImageToken := token + bcref.Separator + childImageSuffix
	parentImageToken := token + bcref.Separator + parentImageSuffix

	parentToken := f.parentToken(first)
	firstForParent := !u.seen[parentToken]
	u.seen[parentToken] = true
	mirror := f.mirror(first, firstForParent)

	if u.exists(token) && u.exists(childImageToken) && (!mirror || u.exists(parentImageToken)) &&
		u.translationsLanded(token, group) {
		// keep the parent's counter aligned with pictures imported earlier
		if parentID, ok := u.c.Tracker.GetID(parentToken); ok {
			u.c.Tracker.NextSequence(parentID)
		}
		u.result.Skipped++
		return nil
	}

	path := strings.TrimSpace(first.String("path"))
	if path == "" {
		u.sample(ctx, f.entityType, first, samples.ReasonWarning, "missing_path", "")
		return u.fail(token, fmt.Errorf("picture has no path"))
	}

	parentID, err := u.resolve(ctx, "parent item", parentToken, tracker.CategoryItem)
	if err != nil {
		u.sample(ctx, f.entityType, first, samples.ReasonWarning, "missing_parent", "")
		return u.fail(token, err)
	}

	seq := u.c.Tracker.NextSequence(parentID)
	caption := u.caption(group)
	alt, cut := truncPtr(caption, maxAltText)
	if cut {
		u.sample(ctx, f.entityType, first, samples.ReasonEdge, "long_caption", "")
	}
	image := target.ItemImageInput{
		Path:         path,
		OriginalName: originalName(path),
		MimeType:     mimeType(path),
		AltText:      alt,
	}

	internalName := fmt.Sprintf("Picture %d for %s", f.index(first), f.label(first))
	childID, err := u.ensure(ctx, token, tracker.CategoryItem, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteItem(ctx, target.ItemInput{
			InternalName:          internalName,
			BackwardCompatibility: token,
			Type:                  "picture",
			ParentID:              &parentID,
			DisplayOrder:          intPtr(seq),
		})
	})
	if err != nil {
		return u.fail(token, err)
	}

	childImage := image
	childImage.ItemID = childID
	childImage.DisplayOrder = 1
	childImage.BackwardCompatibility = childImageToken
	if _, err := u.ensure(ctx, childImageToken, tracker.CategoryImage, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteItemImage(ctx, childImage)
	}); err != nil {
		return u.fail(childImageToken, err)
	}

	if mirror {
		parentImage := image
		parentImage.ItemID = parentID
		parentImage.DisplayOrder = seq
		parentImage.BackwardCompatibility = parentImageToken
		if _, err := u.ensure(ctx, parentImageToken, tracker.CategoryImage, func(ctx context.Context) (string, error) {
			return u.c.Target.WriteItemImage(ctx, parentImage)
		}); err != nil {
			return u.fail(parentImageToken, err)
		}
	}

	for _, r := range group {
		if err := u.writeTranslation(ctx, token, childID, internalName, r); err != nil {
			return err
		}
	}

	u.result.Imported++
	u.sample(ctx, f.entityType, first, samples.ReasonSuccess, "", "")
	return nil
}

// caption prefers the default-language row.
func (u *PictureUnit) caption(group []database.Row) *string {
	var fallback *string
	for _, r := range group {
		c := r.Nullable("caption")
		if c == nil {
			continue
		}
		if lang, err := LanguageID(r.String(u.family.langCol)); err == nil && lang == DefaultLanguage {
			return c
		}
		if fallback == nil {
			fallback = c
		}
	}
	return fallback
}

func (u *PictureUnit) writeTranslation(ctx context.Context, token, itemID, internalName string, r database.Row) error {
	caption := r.Nullable("caption")
	if caption == nil {
		return nil
	}
	lang, err := LanguageID(r.String(u.family.langCol))
	if err != nil {
		return u.warn(token, "translation skipped", err)
	}
	contextID, err := u.defaultContext(ctx)
	if err != nil {
		return u.warn(token, "translation skipped", err)
	}
	extra := extraFields(r, "copyright", "photographer")
	if t := r.Nullable("type"); t != nil {
		if extra == nil {
			extra = make(map[string]any)
		}
		extra["legacy_type"] = *t
	}
	return u.translate(ctx, token, lang, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteItemTranslation(ctx, target.ItemTranslationInput{
			ItemID:                itemID,
			LanguageID:            lang,
			ContextID:             contextID,
			BackwardCompatibility: translationToken(token, lang),
			Name:                  internalName,
			Description:           types.ToString(*caption),
			Extra:                 extra,
		})
	})
}

// translationsLanded reports whether every captioned row of the picture
// already has its translation registered.
func (u *PictureUnit) translationsLanded(token string, group []database.Row) bool {
	for _, r := range group {
		if r.Nullable("caption") == nil {
			continue
		}
		lang, err := LanguageID(r.String(u.family.langCol))
		if err != nil {
			continue
		}
		if !u.exists(translationToken(token, lang)) {
			return false
		}
	}
	return true
}
