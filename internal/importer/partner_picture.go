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

// PartnerPictureUnit imports museums_pictures and institutions_pictures as
// partner images.
type PartnerPictureUnit struct {
	base
}

// NewPartnerPictureUnit imports museum and institution pictures.
func NewPartnerPictureUnit(c *Context) Unit {
	return &PartnerPictureUnit{base: newBase(c, UnitPartnerPicture)}
}

// Run imports the pictures of every partner table present.
func (u *PartnerPictureUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	for _, f := range []partnerFamily{museums, institutions} {
		if err := u.importFamily(ctx, f); err != nil {
			return u.abort(err)
		}
	}
	return u.finish(), nil
}

func (u *PartnerPictureUnit) importFamily(ctx context.Context, f partnerFamily) error {
	table := f.table + "_pictures"
	rows, ok, err := u.query(ctx, schemaMWNF3+"."+table,
		fmt.Sprintf("SELECT * FROM %s.%s ORDER BY %s, country, image_number", schemaMWNF3, table, f.idCol))
	if err != nil || !ok {
		return err
	}
	u.log.Infow("Importing partner pictures", "kind", f.kind, "pictures", len(rows))
	for _, r := range rows {
		if err := u.importPicture(ctx, f, table, r); err != nil {
			return err
		}
	}
	return nil
}

func (u *PartnerPictureUnit) importPicture(ctx context.Context, f partnerFamily, table string, r database.Row) error {
	id := strings.TrimSpace(r.String(f.idCol))
	country := strings.TrimSpace(r.String("country"))
	number := int(r.Int("image_number"))
	token := bcref.New(schemaMWNF3, table, id, country, number).String()
	if u.exists(token) {
		u.result.Skipped++
		return nil
	}

	path := strings.TrimSpace(r.String("path"))
	if path == "" {
		u.sample(ctx, f.kind+"_picture", r, samples.ReasonWarning, "missing_path", "")
		return u.fail(token, fmt.Errorf("picture has no path"))
	}
	partnerID, err := u.resolve(ctx, f.kind, f.token(id, country), tracker.CategoryPartner)
	if err != nil {
		u.sample(ctx, f.kind+"_picture", r, samples.ReasonWarning, "missing_parent", "")
		return u.fail(token, err)
	}

	alt := r.Nullable("caption")
	if alt == nil {
		alt = &path
	}
	alt, cut := truncPtr(alt, maxAltText)
	if cut {
		u.sample(ctx, f.kind+"_picture", r, samples.ReasonEdge, "long_caption", "")
	}

	_, err = u.create(ctx, token, tracker.CategoryImage, func(ctx context.Context) (string, error) {
		return u.c.Target.WritePartnerImage(ctx, target.PartnerImageInput{
			PartnerID:             partnerID,
			Path:                  path,
			OriginalName:          originalName(path),
			MimeType:              mimeType(path),
			AltText:               alt,
			DisplayOrder:          number,
			BackwardCompatibility: token,
		})
	})
	if err != nil {
		return u.fail(token, err)
	}
	u.result.Imported++
	u.sample(ctx, f.kind+"_picture", r, samples.ReasonSuccess, "", "")
	return nil
}
