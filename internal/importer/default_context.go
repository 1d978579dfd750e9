package importer

import (
	"context"

	"github.com/dbsmedya/legacymigrate/internal/bcref"
	"github.com/dbsmedya/legacymigrate/internal/samples"
	"github.com/dbsmedya/legacymigrate/internal/target"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

// DefaultContextUnit creates the target's default context, which partner
// translations and the gallery hierarchy hang off.
type DefaultContextUnit struct {
	base
}

// NewDefaultContextUnit ensures the default context exists.
func NewDefaultContextUnit(c *Context) Unit {
	return &DefaultContextUnit{base: newBase(c, UnitDefaultContext)}
}

// Run creates the default context unless the target already has one.
func (u *DefaultContextUnit) Run(ctx context.Context) (*Result, error) {
	res := u.begin()

	if u.exists(bcref.DefaultContextToken) {
		res.Skipped++
		return u.finish(), nil
	}

	_, err := u.create(ctx, bcref.DefaultContextToken, tracker.CategoryContext, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteContext(ctx, target.ContextInput{
			InternalName:          "default",
			BackwardCompatibility: bcref.DefaultContextToken,
			IsDefault:             true,
		})
	})
	if err != nil {
		return u.done(u.fail(bcref.DefaultContextToken, err))
	}
	res.Imported++
	u.sample(ctx, "context", map[string]any{"internal_name": "default", "is_default": true}, samples.ReasonSuccess, "", "")
	return u.finish(), nil
}
