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

// projectTokens builds the tokens of one legacy project table. A legacy
// project becomes a context, a root collection and a project that share the
// project id.
type projectTokens struct {
	schema string
	table  string
}

func (p projectTokens) context(id string) string {
	return bcref.New(p.schema, p.table, id).String()
}

func (p projectTokens) collection(id string) string {
	return p.context(id) + bcref.Separator + "collection"
}

func (p projectTokens) project(id string) string {
	return p.context(id) + bcref.Separator + "project"
}

var (
	mwnf3Projects = projectTokens{schema: schemaMWNF3, table: "projects"}
	shProjects    = projectTokens{schema: schemaSharingHistory, table: "sh_projects"}
)

func projectToken(projectID string) string { return mwnf3Projects.project(projectID) }

// projectFamily describes a legacy project table and its per-language names.
type projectFamily struct {
	tokens     projectTokens
	entityType string
	namesTable string
	titleCol   string

	// internalName returns "" when the project has nothing to be named by.
	internalName func(row database.Row, names []database.Row) string
	launch       func(row database.Row) (date *string, launched, enabled bool)
	description  func(name database.Row) *string
}

var mwnf3ProjectFamily = projectFamily{
	tokens:       mwnf3Projects,
	entityType:   "project",
	namesTable:   "projectnames",
	titleCol:     "name",
	internalName: func(row database.Row, _ []database.Row) string { return strings.TrimSpace(row.String("project_id")) },
	launch: func(row database.Row) (*string, bool, bool) {
		date := row.Nullable("launchdate")
		return date, date != nil, row.Int("active") != 0
	},
	description: func(n database.Row) *string { return n.Nullable("description") },
}

var shProjectFamily = projectFamily{
	tokens:     shProjects,
	entityType: "sh_project",
	namesTable: "sh_project_names",
	titleCol:   "title",
	internalName: func(row database.Row, names []database.Row) string {
		for _, n := range names {
			if lang, err := LanguageID(n.String("lang")); err == nil && lang == DefaultLanguage {
				if title := stripHTML(n.String("title")); title != "" {
					return title
				}
			}
		}
		return stripHTML(row.String("name"))
	},
	launch: func(row database.Row) (*string, bool, bool) {
		shown := strings.EqualFold(row.String("show"), "Y")
		return row.Nullable("addeddate"), shown, shown
	},
	description: func(n database.Row) *string { return joinCols(n, "\n\n", "short_introduction", "introduction") },
}

// ProjectUnit imports one legacy project table with its per-language names.
type ProjectUnit struct {
	base
	family projectFamily
}

// NewProjectUnit imports mwnf3.projects.
func NewProjectUnit(c *Context) Unit {
	return &ProjectUnit{base: newBase(c, UnitProject), family: mwnf3ProjectFamily}
}

// NewSHProjectUnit imports the sharing history projects.
func NewSHProjectUnit(c *Context) Unit {
	return &ProjectUnit{base: newBase(c, UnitSHProject), family: shProjectFamily}
}

// Run creates the context, collection and project of every legacy project.
func (u *ProjectUnit) Run(ctx context.Context) (*Result, error) {
	u.begin()
	f := u.family
	schema := f.tokens.schema

	projects, ok, err := u.query(ctx, schema+"."+f.tokens.table,
		fmt.Sprintf("SELECT * FROM %s.%s ORDER BY project_id", schema, f.tokens.table))
	if err != nil || !ok {
		return u.done(err)
	}
	names, ok, err := u.query(ctx, schema+"."+f.namesTable,
		fmt.Sprintf("SELECT * FROM %s.%s ORDER BY project_id, lang", schema, f.namesTable))
	if err != nil {
		return u.done(err)
	}
	var translations map[string][]database.Row
	if ok {
		translations = make(map[string][]database.Row)
		for _, n := range names {
			id := n.String("project_id")
			translations[id] = append(translations[id], n)
		}
	}

	u.log.Infow("Importing projects", "table", f.tokens.table, "projects", len(projects), "translations", len(names))
	for _, row := range projects {
		if err := u.importProject(ctx, row, translations[row.String("project_id")]); err != nil {
			return u.abort(err)
		}
	}
	return u.finish(), nil
}

func (u *ProjectUnit) importProject(ctx context.Context, row database.Row, names []database.Row) error {
	f := u.family
	projectID := strings.TrimSpace(row.String("project_id"))
	projToken := f.tokens.project(projectID)
	if u.exists(projToken) {
		u.result.Skipped++
		return nil
	}

	internalName := f.internalName(row, names)
	if internalName == "" {
		u.sample(ctx, f.entityType, row, samples.ReasonWarning, "missing_name", "")
		return u.fail(projToken, fmt.Errorf("missing required name"))
	}

	ctxToken := f.tokens.context(projectID)
	contextID, err := u.ensure(ctx, ctxToken, tracker.CategoryContext, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteContext(ctx, target.ContextInput{
			InternalName:          internalName,
			BackwardCompatibility: ctxToken,
		})
	})
	if err != nil {
		return u.fail(ctxToken, err)
	}

	collToken := f.tokens.collection(projectID)
	collectionID, err := u.ensure(ctx, collToken, tracker.CategoryCollection, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteCollection(ctx, target.CollectionInput{
			InternalName:          internalName,
			BackwardCompatibility: collToken,
			ContextID:             contextID,
			LanguageID:            DefaultLanguage,
			Type:                  "collection",
		})
	})
	if err != nil {
		return u.fail(collToken, err)
	}

	launch, launched, enabled := f.launch(row)
	_, err = u.create(ctx, projToken, tracker.CategoryProject, func(ctx context.Context) (string, error) {
		return u.c.Target.WriteProject(ctx, target.ProjectInput{
			InternalName:          internalName,
			BackwardCompatibility: projToken,
			ContextID:             contextID,
			LanguageID:            DefaultLanguage,
			LaunchDate:            launch,
			IsLaunched:            launched,
			IsEnabled:             enabled,
		})
	})
	if err != nil {
		return u.fail(projToken, err)
	}

	for _, n := range names {
		lang, err := LanguageID(n.String("lang"))
		if err != nil {
			if err := u.warn(projToken, "translation skipped", err); err != nil {
				return err
			}
			u.sample(ctx, f.entityType+"_translation", n, samples.ReasonWarning, "unknown_language", n.String("lang"))
			continue
		}
		title := stripHTML(n.String(f.titleCol))
		if title == "" {
			title = internalName
		}
		err = u.write(ctx, func(ctx context.Context) error {
			_, err := u.c.Target.WriteCollectionTranslation(ctx, target.CollectionTranslationInput{
				CollectionID:          collectionID,
				LanguageID:            lang,
				ContextID:             contextID,
				BackwardCompatibility: collToken + bcref.Separator + lang,
				Title:                 title,
				Description:           f.description(n),
			})
			return err
		})
		if err != nil {
			if err := u.warn(projToken, "translation failed", err); err != nil {
				return err
			}
		}
	}

	u.result.Imported++
	u.sample(ctx, f.entityType, row, samples.ReasonSuccess, "", "")
	return nil
}
