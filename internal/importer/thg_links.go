package importer

import (
	"context"
	"fmt"
	"slices"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/legacymigrate/internal/bcref"
	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/samples"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

// attachments batches item ids per collection, deduplicated, in first-seen order.
type attachments struct {
	m *orderedmap.OrderedMap[string, []string]
}

func newAttachments() *attachments {
	return &attachments{m: orderedmap.NewOrderedMap[string, []string]()}
}

func (a *attachments) add(collectionID, itemID string) {
	ids, _ := a.m.Get(collectionID)
	if slices.Contains(ids, itemID) {
		return
	}
	a.m.Set(collectionID, append(ids, itemID))
}

// linkBase is shared by the association units. Links carry no token of their
// own; a rerun attaches again and the target keeps one pivot row per pair.
type linkBase struct {
	base
	batch *attachments
}

// link resolves both ends of an association and queues it. A missing end is
// a warning.
func (u *linkBase) link(ctx context.Context, entityType, label, itemToken, collectionToken string, raw map[string]any) error {
	itemID, err := u.resolve(ctx, "item", itemToken, tracker.CategoryItem)
	if err != nil {
		u.result.Skipped++
		return u.warn(label, "item not found", err)
	}
	collectionID, err := u.resolve(ctx, "collection", collectionToken, tracker.CategoryCollection)
	if err != nil {
		u.result.Skipped++
		return u.warn(label, "collection not found", err)
	}
	u.batch.add(collectionID, itemID)
	u.result.Imported++
	raw["resolved_item_backward_compat"] = itemToken
	raw["resolved_collection_backward_compat"] = collectionToken
	u.sample(ctx, entityType, raw, samples.ReasonSuccess, "", "")
	return nil
}

// flush attaches every queued batch. Outside ModeNormal nothing is sent.
func (u *linkBase) flush(ctx context.Context) error {
	u.log.Infow("Attaching items", "collections", u.batch.m.Len())
	for el := u.batch.m.Front(); el != nil; el = el.Next() {
		collectionID, itemIDs := el.Key, el.Value
		err := u.write(ctx, func(ctx context.Context) error {
			return u.c.Target.AttachItemsToCollection(ctx, collectionID, itemIDs)
		})
		if err != nil {
			if err := u.fail("collection "+collectionID, fmt.Errorf("attach %d items: %w", len(itemIDs), err)); err != nil {
				return err
			}
		}
	}
	return nil
}

// THGGalleryObjectUnit attaches mwnf3 objects to gallery collections.
type THGGalleryObjectUnit struct {
	linkBase
}

// NewTHGGalleryObjectUnit attaches the objects listed in thg_gallery_mwnf3_objects.
func NewTHGGalleryObjectUnit(c *Context) Unit {
	return &THGGalleryObjectUnit{linkBase{base: newBase(c, UnitTHGGalleryObject)}}
}

// Run resolves every gallery object and attaches them per gallery.
func (u *THGGalleryObjectUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	u.batch = newAttachments()
	rows, ok, err := u.query(ctx, schemaThematic+".thg_gallery_mwnf3_objects",
		`SELECT gallery_id, objects_project_id, objects_country, objects_museum_id, objects_number
		FROM mwnf3_thematic_gallery.thg_gallery_mwnf3_objects
		ORDER BY gallery_id, objects_project_id, objects_country, objects_museum_id, objects_number`)
	if err != nil || !ok {
		return u.done(err)
	}
	u.log.Infow("Linking gallery objects", "links", len(rows))
	for _, r := range rows {
		itemToken := objectToken(r.String("objects_project_id"), r.String("objects_country"),
			r.String("objects_museum_id"), r.String("objects_number"))
		label := "gallery " + r.String("gallery_id")
		if err := u.link(ctx, "thg_gallery_mwnf3_object", label, itemToken, galleryToken(r.String("gallery_id")), r); err != nil {
			return u.abort(err)
		}
	}
	return u.done(u.flush(ctx))
}

// THGThemeItemUnit attaches items to theme collections.
type THGThemeItemUnit struct {
	linkBase
}

// NewTHGThemeItemUnit attaches the mwnf3 and sharing history items of theme_item.
func NewTHGThemeItemUnit(c *Context) Unit {
	return &THGThemeItemUnit{linkBase{base: newBase(c, UnitTHGThemeItem)}}
}

// Run resolves every theme item reference and attaches them per theme.
func (u *THGThemeItemUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	u.batch = newAttachments()
	rows, ok, err := u.query(ctx, schemaThematic+".theme_item",
		"SELECT * FROM mwnf3_thematic_gallery.theme_item ORDER BY gallery_id, theme_id, item_id")
	if err != nil || !ok {
		return u.done(err)
	}
	u.log.Infow("Linking theme items", "links", len(rows))
	unresolvable := 0
	for _, r := range rows {
		itemToken := themeItemReference(r)
		if itemToken == "" {
			// thg, explore and travel items are linked elsewhere
			unresolvable++
			u.result.Skipped++
			continue
		}
		label := fmt.Sprintf("theme item %s.%s.%s", r.String("gallery_id"), r.String("theme_id"), r.String("item_id"))
		collection := themeToken(r.String("gallery_id"), r.String("theme_id"))
		if err := u.link(ctx, "thg_theme_item", label, itemToken, collection, r); err != nil {
			return u.abort(err)
		}
	}
	if unresolvable > 0 {
		u.log.Infow("Skipped theme items without an mwnf3 or sharing history reference", "count", unresolvable)
	}
	return u.done(u.flush(ctx))
}

// itemReference is one of the column shapes a theme_item row can point with.
type itemReference struct {
	schema string
	table  string
	cols   []string
}

var themeItemReferences = []itemReference{
	{schemaMWNF3, "objects", []string{"mwnf3_object_project_id", "mwnf3_object_country_id", "mwnf3_object_partner_id", "mwnf3_object_item_id"}},
	{schemaMWNF3, "monuments", []string{"mwnf3_monument_project_id", "mwnf3_monument_country_id", "mwnf3_monument_partner_id", "mwnf3_monument_item_id"}},
	{schemaMWNF3, "monument_details", []string{"mwnf3_monument_detail_project_id", "mwnf3_monument_detail_country_id",
		"mwnf3_monument_detail_partner_id", "mwnf3_monument_detail_item_id", "mwnf3_monument_detail_detail_id"}},
	{schemaSharingHistory, "sh_objects", []string{"sh_object_project_id", "sh_object_country_id", "sh_object_item_id"}},
	{schemaSharingHistory, "sh_monuments", []string{"sh_monument_project_id", "sh_monument_country_id", "sh_monument_item_id"}},
	{schemaSharingHistory, "sh_monument_details", []string{"sh_monument_detail_project_id", "sh_monument_detail_country_id",
		"sh_monument_detail_item_id", "sh_monument_detail_detail_id"}},
}

// themeItemReference returns the token of the first fully populated
// reference shape, or "".
func themeItemReference(r database.Row) string {
	for _, ref := range themeItemReferences {
		vals := make([]any, 0, len(ref.cols))
		for _, c := range ref.cols {
			if r.IsNull(c) || r.String(c) == "" {
				break
			}
			vals = append(vals, r.String(c))
		}
		if len(vals) == len(ref.cols) {
			return bcref.New(ref.schema, ref.table, vals...).String()
		}
	}
	return ""
}
