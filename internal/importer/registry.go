package importer

import (
	"github.com/dbsmedya/legacymigrate/internal/rehydrate"
)

// Unit names, as accepted by --only, --start-at and --stop-at.
const (
	UnitDefaultContext          = "default_context"
	UnitProject                 = "project"
	UnitPartner                 = "partner"
	UnitObject                  = "object"
	UnitMonument                = "monument"
	UnitMonumentDetail          = "monument_detail"
	UnitItemLink                = "item_link"
	UnitObjectPicture           = "object_picture"
	UnitMonumentDetailPicture   = "monument_detail_picture"
	UnitPartnerPicture          = "partner_picture"
	UnitPartnerLogo             = "partner_logo"
	UnitSHProject               = "sh_project"
	UnitSHPartner               = "sh_partner"
	UnitSHObject                = "sh_object"
	UnitSHMonument              = "sh_monument"
	UnitSHMonumentDetail        = "sh_monument_detail"
	UnitSHMonumentPicture       = "sh_monument_picture"
	UnitSHMonumentDetailPicture = "sh_monument_detail_picture"
	UnitSHPartnerLogo           = "sh_partner_logo"
	UnitTHGRootCollections      = "thg_root_collections"
	UnitTHGGallery              = "thg_gallery"
	UnitTHGTheme                = "thg_theme"
	UnitTHGGalleryObject        = "thg_gallery_object"
	UnitTHGThemeItem            = "thg_theme_item"
	UnitPartnerMonument         = "partner_monument"
)

// Registration declares one unit to the planner.
type Registration struct {
	Key       string
	Phase     int
	DependsOn []string
	// Requires lists the target state the unit reads. The orchestrator
	// rehydrates any of it not produced earlier in the same process.
	Requires []rehydrate.Key
	// Tables are the legacy tables the unit reads; optional ones only warn
	// when missing.
	Tables []TableRef
	New    func(c *Context) Unit
}

// TableRef names a legacy table read by a unit.
type TableRef struct {
	Schema   string
	Table    string
	Optional bool
}

func tbl(schema, table string) TableRef { return TableRef{Schema: schema, Table: table} }

func optional(schema, table string) TableRef {
	return TableRef{Schema: schema, Table: table, Optional: true}
}

// Registrations returns every unit the engine knows, in declaration order.
func Registrations() []Registration {
	return []Registration{
		{
			Key:      UnitDefaultContext,
			Phase:    0,
			Requires: []rehydrate.Key{rehydrate.KeyDefaultContext},
			New:      NewDefaultContextUnit,
		},
		{
			Key:       UnitProject,
			Phase:     1,
			DependsOn: []string{UnitDefaultContext},
			Requires:  []rehydrate.Key{rehydrate.KeyProject},
			Tables:    []TableRef{tbl(schemaMWNF3, "projects"), optional(schemaMWNF3, "projectnames")},
			New:       NewProjectUnit,
		},
		{
			Key:       UnitPartner,
			Phase:     1,
			DependsOn: []string{UnitDefaultContext},
			Requires:  []rehydrate.Key{rehydrate.KeyDefaultContext, rehydrate.KeyPartner},
			Tables: []TableRef{
				tbl(schemaMWNF3, "museums"), optional(schemaMWNF3, "museumnames"),
				tbl(schemaMWNF3, "institutions"), optional(schemaMWNF3, "institutionnames"),
			},
			New: NewPartnerUnit,
		},
		{
			Key:       UnitObject,
			Phase:     1,
			DependsOn: []string{UnitProject, UnitPartner},
			Requires: []rehydrate.Key{
				rehydrate.KeyProject, rehydrate.KeyPartner, rehydrate.KeyObject, rehydrate.KeyItemTranslation,
			},
			Tables: []TableRef{tbl(schemaMWNF3, "objects")},
			New:    NewObjectUnit,
		},
		{
			Key:       UnitMonument,
			Phase:     1,
			DependsOn: []string{UnitProject, UnitPartner},
			Requires: []rehydrate.Key{
				rehydrate.KeyProject, rehydrate.KeyPartner, rehydrate.KeyMonument, rehydrate.KeyItemTranslation,
			},
			Tables: []TableRef{tbl(schemaMWNF3, "monuments")},
			New:    NewMonumentUnit,
		},
		{
			Key:       UnitMonumentDetail,
			Phase:     1,
			DependsOn: []string{UnitMonument},
			Requires: []rehydrate.Key{
				rehydrate.KeyProject, rehydrate.KeyPartner, rehydrate.KeyMonument, rehydrate.KeyMonumentDetail,
				rehydrate.KeyItemTranslation,
			},
			Tables: []TableRef{tbl(schemaMWNF3, "monument_details")},
			New:    NewMonumentDetailUnit,
		},
		{
			Key:       UnitItemLink,
			Phase:     1,
			DependsOn: []string{UnitObject, UnitMonument},
			Requires: []rehydrate.Key{
				rehydrate.KeyDefaultContext, rehydrate.KeyObject, rehydrate.KeyMonument, rehydrate.KeyItemLink,
			},
			Tables: []TableRef{
				optional(schemaMWNF3, "objects_objects"), optional(schemaMWNF3, "objects_monuments"),
				optional(schemaMWNF3, "monuments_monuments"),
			},
			New: NewItemLinkUnit,
		},
		{
			Key:       UnitObjectPicture,
			Phase:     2,
			DependsOn: []string{UnitObject},
			Requires:  []rehydrate.Key{rehydrate.KeyObject, rehydrate.KeyPicture, rehydrate.KeyItemTranslation},
			Tables:    []TableRef{tbl(schemaMWNF3, "objects_pictures")},
			New:       NewObjectPictureUnit,
		},
		{
			Key:       UnitMonumentDetailPicture,
			Phase:     2,
			DependsOn: []string{UnitMonumentDetail},
			Requires:  []rehydrate.Key{rehydrate.KeyMonumentDetail, rehydrate.KeyPicture, rehydrate.KeyItemTranslation},
			Tables:    []TableRef{tbl(schemaMWNF3, "monument_detail_pictures")},
			New:       NewMonumentDetailPictureUnit,
		},
		{
			Key:       UnitPartnerPicture,
			Phase:     2,
			DependsOn: []string{UnitPartner},
			Requires:  []rehydrate.Key{rehydrate.KeyPartner, rehydrate.KeyPicture},
			Tables: []TableRef{
				optional(schemaMWNF3, "museums_pictures"), optional(schemaMWNF3, "institutions_pictures"),
			},
			New: NewPartnerPictureUnit,
		},
		{
			Key:       UnitPartnerLogo,
			Phase:     2,
			DependsOn: []string{UnitPartner},
			Requires:  []rehydrate.Key{rehydrate.KeyPartner, rehydrate.KeyPicture},
			Tables:    []TableRef{tbl(schemaMWNF3, "museums"), tbl(schemaMWNF3, "institutions")},
			New:       NewPartnerLogoUnit,
		},
		{
			Key:       UnitSHProject,
			Phase:     3,
			DependsOn: []string{UnitDefaultContext},
			Requires:  []rehydrate.Key{rehydrate.KeyProject},
			Tables: []TableRef{
				tbl(schemaSharingHistory, "sh_projects"), optional(schemaSharingHistory, "sh_project_names"),
			},
			New: NewSHProjectUnit,
		},
		{
			Key:       UnitSHPartner,
			Phase:     3,
			DependsOn: []string{UnitDefaultContext, UnitPartner},
			Requires:  []rehydrate.Key{rehydrate.KeyDefaultContext, rehydrate.KeyPartner},
			Tables: []TableRef{
				tbl(schemaSharingHistory, "sh_partners"), optional(schemaSharingHistory, "sh_partner_names"),
				optional(schemaMWNF3, "partner_sh_partners"),
			},
			New: NewSHPartnerUnit,
		},
		{
			Key:       UnitSHObject,
			Phase:     3,
			DependsOn: []string{UnitSHProject, UnitSHPartner},
			Requires: []rehydrate.Key{
				rehydrate.KeyProject, rehydrate.KeyPartner, rehydrate.KeyObject, rehydrate.KeyItemTranslation,
			},
			Tables: []TableRef{
				tbl(schemaSharingHistory, "sh_objects"), optional(schemaSharingHistory, "sh_objects_texts"),
				optional(schemaMWNF3, "partner_sh_partners"),
			},
			New: NewSHObjectUnit,
		},
		{
			Key:       UnitSHMonument,
			Phase:     3,
			DependsOn: []string{UnitSHProject, UnitSHPartner},
			Requires: []rehydrate.Key{
				rehydrate.KeyProject, rehydrate.KeyPartner, rehydrate.KeyMonument, rehydrate.KeyItemTranslation,
			},
			Tables: []TableRef{
				tbl(schemaSharingHistory, "sh_monuments"), optional(schemaSharingHistory, "sh_monument_texts"),
				optional(schemaMWNF3, "partner_sh_partners"),
			},
			New: NewSHMonumentUnit,
		},
		{
			Key:       UnitSHMonumentDetail,
			Phase:     3,
			DependsOn: []string{UnitSHMonument},
			Requires: []rehydrate.Key{
				rehydrate.KeyProject, rehydrate.KeyMonument, rehydrate.KeyMonumentDetail, rehydrate.KeyItemTranslation,
			},
			Tables: []TableRef{
				tbl(schemaSharingHistory, "sh_monument_details"), optional(schemaSharingHistory, "sh_monument_detail_texts"),
			},
			New: NewSHMonumentDetailUnit,
		},
		{
			Key:       UnitSHMonumentPicture,
			Phase:     3,
			DependsOn: []string{UnitSHMonument},
			Requires: []rehydrate.Key{
				rehydrate.KeyDefaultContext, rehydrate.KeyMonument, rehydrate.KeyPicture, rehydrate.KeyItemTranslation,
			},
			Tables: []TableRef{
				tbl(schemaSharingHistory, "sh_monument_images"), optional(schemaSharingHistory, "sh_monument_image_texts"),
			},
			New: NewSHMonumentPictureUnit,
		},
		{
			Key:       UnitSHMonumentDetailPicture,
			Phase:     3,
			DependsOn: []string{UnitSHMonumentDetail},
			Requires: []rehydrate.Key{
				rehydrate.KeyDefaultContext, rehydrate.KeyMonumentDetail, rehydrate.KeyPicture, rehydrate.KeyItemTranslation,
			},
			Tables: []TableRef{
				tbl(schemaSharingHistory, "sh_monument_detail_pictures"),
				optional(schemaSharingHistory, "sh_monument_detail_picture_texts"),
			},
			New: NewSHMonumentDetailPictureUnit,
		},
		{
			Key:       UnitSHPartnerLogo,
			Phase:     3,
			DependsOn: []string{UnitSHPartner},
			Requires:  []rehydrate.Key{rehydrate.KeyPartner, rehydrate.KeyPicture},
			Tables:    []TableRef{tbl(schemaSharingHistory, "sh_partners")},
			New:       NewSHPartnerLogoUnit,
		},
		{
			Key:       UnitTHGRootCollections,
			Phase:     10,
			DependsOn: []string{UnitDefaultContext},
			Requires:  []rehydrate.Key{rehydrate.KeyDefaultContext, rehydrate.KeyTHG},
			New:       NewTHGRootCollectionsUnit,
		},
		{
			Key:       UnitTHGGallery,
			Phase:     10,
			DependsOn: []string{UnitTHGRootCollections},
			Requires:  []rehydrate.Key{rehydrate.KeyDefaultContext, rehydrate.KeyTHG},
			Tables:    []TableRef{tbl(schemaThematic, "thg_gallery")},
			New:       NewTHGGalleryUnit,
		},
		{
			Key:       UnitTHGTheme,
			Phase:     10,
			DependsOn: []string{UnitTHGGallery},
			Requires:  []rehydrate.Key{rehydrate.KeyDefaultContext, rehydrate.KeyTHG},
			Tables:    []TableRef{tbl(schemaThematic, "theme"), optional(schemaThematic, "theme_i18n")},
			New:       NewTHGThemeUnit,
		},
		{
			Key:       UnitTHGGalleryObject,
			Phase:     10,
			DependsOn: []string{UnitTHGGallery, UnitObject},
			Requires:  []rehydrate.Key{rehydrate.KeyTHG, rehydrate.KeyObject},
			Tables:    []TableRef{optional(schemaThematic, "thg_gallery_mwnf3_objects")},
			New:       NewTHGGalleryObjectUnit,
		},
		{
			Key:       UnitTHGThemeItem,
			Phase:     10,
			DependsOn: []string{
				UnitTHGTheme, UnitObject, UnitMonument, UnitMonumentDetail,
				UnitSHObject, UnitSHMonument, UnitSHMonumentDetail,
			},
			Requires: []rehydrate.Key{
				rehydrate.KeyTHG, rehydrate.KeyObject, rehydrate.KeyMonument, rehydrate.KeyMonumentDetail,
			},
			Tables: []TableRef{optional(schemaThematic, "theme_item")},
			New:    NewTHGThemeItemUnit,
		},
		{
			Key:       UnitPartnerMonument,
			Phase:     11,
			DependsOn: []string{UnitPartner, UnitMonument},
			Requires:  []rehydrate.Key{rehydrate.KeyPartner, rehydrate.KeyMonument},
			Tables:    []TableRef{tbl(schemaMWNF3, "museums")},
			New:       NewPartnerMonumentUnit,
		},
	}
}
