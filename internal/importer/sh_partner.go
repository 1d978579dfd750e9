package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/samples"
	"github.com/dbsmedya/legacymigrate/internal/target"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

// partnerAliases maps a sharing history partner token to the all_partners_id
// values of the mwnf3 partners it duplicates.
type partnerAliases map[string][]string

// loadPartnerAliases reads mwnf3.partner_sh_partners. A missing table means
// no aliases.
func (b *base) loadPartnerAliases(ctx context.Context) (partnerAliases, error) {
	rows, ok, err := b.query(ctx, schemaMWNF3+".partner_sh_partners",
		"SELECT all_partners_id, partners_id FROM mwnf3.partner_sh_partners ORDER BY partners_id")
	if err != nil || !ok {
		return nil, err
	}
	aliases := make(partnerAliases)
	for _, r := range rows {
		sh := strings.TrimSpace(r.String("partners_id"))
		all := strings.TrimSpace(r.String("all_partners_id"))
		if sh == "" || all == "" {
			continue
		}
		token := shPartnerToken(sh)
		aliases[token] = append(aliases[token], all)
	}
	return aliases, nil
}

// mwnf3Partner returns the imported mwnf3 museum or institution a sharing
// history partner duplicates. all_partners_id starts with the country code.
func (b *base) mwnf3Partner(ctx context.Context, aliases partnerAliases, token string) (string, bool, error) {
	for _, all := range aliases[token] {
		if len(all) < 2 {
			continue
		}
		country := strings.ToLower(all[:2])
		for _, candidate := range []string{museumToken(all, country), institutionToken(all, country)} {
			id, found, err := b.c.Tracker.Resolve(ctx, candidate, tracker.CategoryPartner)
			if err != nil || found {
				return id, found, err
			}
		}
	}
	return "", false, nil
}

// resolveSHPartner finds the target partner of a sharing history partner,
// by its own token first and then through its mwnf3 alias.
func (b *base) resolveSHPartner(ctx context.Context, aliases partnerAliases, token string) (string, bool, error) {
	id, found, err := b.c.Tracker.Resolve(ctx, token, tracker.CategoryPartner)
	if err != nil || found {
		return id, found, err
	}
	return b.mwnf3Partner(ctx, aliases, token)
}

// shPartnerOf is the partner token of a sharing history item row, "" when
// the row names none.
func shPartnerOf(r database.Row) string {
	id := strings.TrimSpace(r.String("partners_id"))
	if id == "" {
		return ""
	}
	return shPartnerToken(id)
}

// SHPartnerUnit imports the sharing history partners. A partner listed in
// mwnf3.partner_sh_partners whose mwnf3 counterpart is already imported is
// not written again: its token is registered against the existing partner.
type SHPartnerUnit struct {
	base
	aliases partnerAliases
}

// NewSHPartnerUnit imports mwnf3_sharing_history.sh_partners.
func NewSHPartnerUnit(c *Context) Unit {
	return &SHPartnerUnit{base: newBase(c, UnitSHPartner)}
}

// Run imports or merges every sharing history partner.
func (u *SHPartnerUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	f := shPartners

	var err error
	if u.aliases, err = u.loadPartnerAliases(ctx); err != nil {
		return u.abort(err)
	}
	partners, ok, err := u.query(ctx, f.schema+"."+f.table,
		fmt.Sprintf("SELECT * FROM %s.%s ORDER BY %s", f.schema, f.table, f.idCol))
	if err != nil || !ok {
		return u.done(err)
	}
	names, ok, err := u.query(ctx, f.schema+"."+f.namesTable,
		fmt.Sprintf("SELECT * FROM %s.%s ORDER BY %s, lang", f.schema, f.namesTable, f.idCol))
	if err != nil {
		return u.done(err)
	}
	var translations *groupedRows
	if ok {
		translations = newGroupedRows(names, f.idCol)
	}

	groups := groupRows(partners, f.idCol)
	u.log.Infow("Importing partners", "kind", f.kind, "partners", groups.Len(), "aliases", len(u.aliases))
	for el := groups.Front(); el != nil; el = el.Next() {
		if err := u.importPartner(ctx, el.Value[0], translations.get(el.Key)); err != nil {
			return u.abort(err)
		}
	}
	return u.finish(), nil
}

func (u *SHPartnerUnit) importPartner(ctx context.Context, row database.Row, names []database.Row) error {
	f := shPartners
	id := strings.TrimSpace(row.String(f.idCol))
	token := f.token(id, "")
	if u.exists(token) {
		u.result.Skipped++
		return nil
	}

	existing, merged, err := u.mwnf3Partner(ctx, u.aliases, token)
	if err != nil {
		return u.fail(token, err)
	}
	if merged {
		if err := u.c.Tracker.Register(tracker.Entity{Token: token, TargetID: existing, Category: tracker.CategoryPartner}); err != nil {
			return u.fail(token, err)
		}
		u.log.WithRecord(token).Debugw("Merged into mwnf3 partner", "partner_id", existing)
		u.result.Skipped++
		u.sample(ctx, f.kind, row, samples.ReasonEdge, "merged_partner", "")
		return nil
	}

	var countryID *string
	if c := strings.TrimSpace(row.String("country")); c != "" {
		cid, err := CountryID(c)
		if err != nil {
			u.sample(ctx, f.kind, row, samples.ReasonWarning, "unknown_country", "")
			return u.fail(token, err)
		}
		countryID = &cid
	}
	internalName := stripHTML(row.String("name"))
	if internalName == "" {
		internalName = id
	}
	kind := institutions.kind
	if strings.Contains(strings.ToLower(row.String("partner_category")), "museum") {
		kind = museums.kind
	}

	partnerID, err := u.create(ctx, token, tracker.CategoryPartner, func(ctx context.Context) (string, error) {
		return u.c.Target.WritePartner(ctx, target.PartnerInput{
			InternalName:          internalName,
			BackwardCompatibility: token,
			Type:                  kind,
			CountryID:             countryID,
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
			if err := u.writePartnerTranslation(ctx, token, partnerID, contextID, row, n, shPartnerDescription(n)); err != nil {
				return err
			}
		}
	}

	u.result.Imported++
	u.sample(ctx, f.kind, row, samples.ReasonSuccess, "", "")
	return nil
}

var shPartnerSections = []struct{ col, label string }{
	{"department", "Department"},
	{"how_to_reach", "How to reach"},
	{"opening_hours", "Opening hours"},
}

// shPartnerDescription folds the practical sections into the description.
func shPartnerDescription(n database.Row) *string {
	var parts []string
	if d := n.Nullable("description"); d != nil {
		parts = append(parts, *d)
	}
	for _, s := range shPartnerSections {
		if v := n.Nullable(s.col); v != nil {
			parts = append(parts, s.label+": "+*v)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	d := strings.Join(parts, "\n\n")
	return &d
}
