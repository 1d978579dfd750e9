package importer

import (
	"context"
	"strings"

	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/samples"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

var monumentRefCols = []string{"mon_project_id", "mon_country_id", "mon_institution_id", "mon_monument_id", "mon_lang_id"}

// PartnerMonumentUnit points museums at the monument item that houses them,
// from the mon_* columns of mwnf3.museums. It runs after every monument
// family so the monuments resolve.
type PartnerMonumentUnit struct {
	base
}

// NewPartnerMonumentUnit links mwnf3 museums to their monuments.
func NewPartnerMonumentUnit(c *Context) Unit {
	return &PartnerMonumentUnit{base: newBase(c, UnitPartnerMonument)}
}

// Run sets the monument of every museum that references one. Museums whose
// partner or monument was not imported are skipped with a warning.
func (u *PartnerMonumentUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	rows, ok, err := u.query(ctx, schemaMWNF3+".museums",
		"SELECT museum_id, country, name, "+strings.Join(monumentRefCols, ", ")+
			" FROM mwnf3.museums WHERE "+strings.Join(monumentRefCols, " IS NOT NULL AND ")+" IS NOT NULL"+
			" ORDER BY museum_id, country")
	if err != nil || !ok {
		return u.done(err)
	}

	referencing := 0
	for _, r := range rows {
		if !hasMonumentRef(r) {
			continue
		}
		if err := u.link(ctx, r); err != nil {
			return u.abort(err)
		}
		referencing++
	}
	u.log.Infow("Linked partners to monuments", "museums", referencing, "imported", u.result.Imported)
	return u.finish(), nil
}

func hasMonumentRef(r database.Row) bool {
	for _, c := range monumentRefCols {
		if r.Nullable(c) == nil {
			return false
		}
	}
	return true
}

func (u *PartnerMonumentUnit) link(ctx context.Context, r database.Row) error {
	partnerToken := museumToken(strings.TrimSpace(r.String("museum_id")), strings.TrimSpace(r.String("country")))
	// monument items are keyed without their language
	monToken := monumentToken(r.String("mon_project_id"), r.String("mon_country_id"),
		r.String("mon_institution_id"), r.String("mon_monument_id"))

	partnerID, found, err := u.c.Tracker.Resolve(ctx, partnerToken, tracker.CategoryPartner)
	if err != nil {
		return u.fail(partnerToken, err)
	}
	if !found {
		u.result.Skipped++
		return u.warn(partnerToken, "monument link skipped", parentNotFound("partner", partnerToken))
	}
	monumentID, found, err := u.c.Tracker.Resolve(ctx, monToken, tracker.CategoryItem)
	if err != nil {
		return u.fail(partnerToken, err)
	}
	if !found {
		u.result.Skipped++
		u.sample(ctx, "partner_monument", r, samples.ReasonWarning, "missing_monument", "")
		return u.warn(partnerToken, "monument link skipped", parentNotFound("monument", monToken))
	}

	err = u.write(ctx, func(ctx context.Context) error {
		return u.c.Target.SetPartnerMonument(ctx, partnerID, monumentID)
	})
	if err != nil {
		return u.fail(partnerToken, err)
	}
	u.result.Imported++
	u.sample(ctx, "partner_monument", r, samples.ReasonSuccess, "", "")
	return nil
}
