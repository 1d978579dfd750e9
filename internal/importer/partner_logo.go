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

// logoSlot maps a legacy logo column to the target logo type.
type logoSlot struct {
	column   string
	logoType string
}

var logoSlots = []logoSlot{
	{"logo", "primary"},
	{"logo1", "secondary"},
	{"logo2", "tertiary"},
	{"logo3", "quaternary"},
}

// PartnerLogoUnit turns the logo columns of partner tables into partner
// logos.
type PartnerLogoUnit struct {
	base
	families []partnerFamily
}

// NewPartnerLogoUnit imports the logos of mwnf3 museums and institutions.
func NewPartnerLogoUnit(c *Context) Unit {
	return &PartnerLogoUnit{base: newBase(c, UnitPartnerLogo), families: []partnerFamily{museums, institutions}}
}

// NewSHPartnerLogoUnit imports the logos of sharing history partners.
func NewSHPartnerLogoUnit(c *Context) Unit {
	return &PartnerLogoUnit{base: newBase(c, UnitSHPartnerLogo), families: []partnerFamily{shPartners}}
}

// Run imports the logos of every family.
func (u *PartnerLogoUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	for _, f := range u.families {
		if err := u.importFamily(ctx, f); err != nil {
			return u.abort(err)
		}
	}
	return u.finish(), nil
}

func (u *PartnerLogoUnit) importFamily(ctx context.Context, f partnerFamily) error {
	slots := logoSlots[:f.logos]
	cols := make([]string, len(slots))
	where := make([]string, len(slots))
	for i, s := range slots {
		cols[i] = s.column
		where[i] = s.column + " IS NOT NULL"
	}
	q := fmt.Sprintf("SELECT %s, country, name, %s FROM %s.%s WHERE %s ORDER BY %s",
		f.idCol, strings.Join(cols, ", "), f.schema, f.table, strings.Join(where, " OR "),
		strings.Join(f.keyCols(), ", "))
	rows, ok, err := u.query(ctx, f.schema+"."+f.table, q)
	if err != nil || !ok {
		return err
	}
	u.log.Infow("Importing partner logos", "kind", f.kind, "partners", len(rows))
	for _, r := range rows {
		if err := u.importPartnerLogos(ctx, f, slots, r); err != nil {
			return err
		}
	}
	return nil
}

func (u *PartnerLogoUnit) importPartnerLogos(ctx context.Context, f partnerFamily, slots []logoSlot, r database.Row) error {
	id := strings.TrimSpace(r.String(f.idCol))
	country := strings.TrimSpace(r.String("country"))
	partnerToken := f.token(id, country)

	var partnerID string
	for i, s := range slots {
		path := strings.TrimSpace(r.String(s.column))
		if path == "" {
			continue
		}
		token := bcref.New(f.schema, f.table+"_logos", append(f.key(id, country), s.logoType)...).String()
		if u.exists(token) {
			u.result.Skipped++
			continue
		}
		if partnerID == "" {
			pid, err := u.resolve(ctx, f.kind, partnerToken, tracker.CategoryPartner)
			if err != nil {
				if IsFatal(err) {
					return err
				}
				u.sample(ctx, f.kind+"_logo", r, samples.ReasonWarning, "missing_parent", "")
				return u.warn(partnerToken, "logos skipped", err)
			}
			partnerID = pid
		}

		_, err := u.create(ctx, token, tracker.CategoryImage, func(ctx context.Context) (string, error) {
			return u.c.Target.WritePartnerLogo(ctx, target.PartnerLogoInput{
				PartnerID:             partnerID,
				Path:                  path,
				OriginalName:          originalName(path),
				MimeType:              mimeType(path),
				LogoType:              s.logoType,
				DisplayOrder:          i + 1,
				BackwardCompatibility: token,
			})
		})
		if err != nil {
			if err := u.fail(token, err); err != nil {
				return err
			}
			continue
		}
		u.result.Imported++
		u.sample(ctx, f.kind+"_logo", r, samples.ReasonSuccess, "", "")
	}
	return nil
}
