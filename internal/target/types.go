// Package target is the client for the inventory write API the migration
// engine populates. Every write carries the backward_compatibility token of
// the legacy record it came from.
package target

import (
	"context"

	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

// Resource is an API collection path segment.
type Resource string

const (
	ResourceLanguage     Resource = "language"
	ResourceCountry      Resource = "country"
	ResourceContext      Resource = "context"
	ResourceCollection   Resource = "collection"
	ResourceProject      Resource = "project"
	ResourcePartner      Resource = "partner"
	ResourceItem         Resource = "item"
	ResourceItemImage    Resource = "item-image"
	ResourcePartnerImage Resource = "partner-image"
	ResourcePartnerLogo  Resource = "partner-logo"

	ResourceItemTranslation Resource = "item-translation"
	ResourceItemItemLink    Resource = "item-item-link"
)

// ResourceFor maps a tracker category to the resource that persists it.
func ResourceFor(c tracker.Category) Resource {
	switch c {
	case tracker.CategoryImage:
		return ResourceItemImage
	case tracker.CategoryTranslation:
		return ResourceItemTranslation
	case tracker.CategoryLink:
		return ResourceItemItemLink
	default:
		return Resource(c)
	}
}

// Record is the subset of any persisted entity the engine reads back.
type Record struct {
	ID                    string `json:"id"`
	BackwardCompatibility string `json:"backward_compatibility"`
	InternalName          string `json:"internal_name,omitempty"`
	Type                  string `json:"type,omitempty"`
	IsDefault             bool   `json:"is_default,omitempty"`
}

// ListOptions narrows an index request.
type ListOptions struct {
	Page    int
	PerPage int
	Type    string // item/collection type filter, served by /{resource}/type/{type}
}

type ContextInput struct {
	InternalName          string `json:"internal_name"`
	BackwardCompatibility string `json:"backward_compatibility"`
	IsDefault             bool   `json:"is_default"`
}

type CollectionInput struct {
	InternalName          string  `json:"internal_name"`
	BackwardCompatibility string  `json:"backward_compatibility"`
	ContextID             string  `json:"context_id"`
	LanguageID            string  `json:"language_id"`
	ParentID              *string `json:"parent_id"`
	Type                  string  `json:"type,omitempty"`
	CountryID             *string `json:"country_id,omitempty"`
	DisplayOrder          *int    `json:"display_order,omitempty"`
}

type CollectionTranslationInput struct {
	CollectionID          string  `json:"collection_id"`
	LanguageID            string  `json:"language_id"`
	ContextID             string  `json:"context_id"`
	BackwardCompatibility string  `json:"backward_compatibility"`
	Title                 string  `json:"title"`
	Description           *string `json:"description"`
	Quote                 *string `json:"quote"`
}

type ProjectInput struct {
	InternalName          string  `json:"internal_name"`
	BackwardCompatibility string  `json:"backward_compatibility"`
	ContextID             string  `json:"context_id"`
	LanguageID            string  `json:"language_id"`
	LaunchDate            *string `json:"launch_date"`
	IsLaunched            bool    `json:"is_launched"`
	IsEnabled             bool    `json:"is_enabled"`
}

type PartnerInput struct {
	InternalName          string  `json:"internal_name"`
	BackwardCompatibility string  `json:"backward_compatibility"`
	Type                  string  `json:"type"` // museum or institution
	CountryID             *string `json:"country_id"`
	ProjectID             *string `json:"project_id"`
	Visible               bool    `json:"visible"`
}

type PartnerTranslationInput struct {
	PartnerID             string  `json:"partner_id"`
	LanguageID            string  `json:"language_id"`
	ContextID             string  `json:"context_id"`
	BackwardCompatibility string  `json:"backward_compatibility"`
	Name                  string  `json:"name"`
	Description           *string `json:"description"`
	CityDisplay           *string `json:"city_display"`
	ContactWebsite        *string `json:"contact_website"`
	ContactPhone          *string `json:"contact_phone"`
	ContactEmailGeneral   *string `json:"contact_email_general"`
}

type ItemInput struct {
	InternalName          string  `json:"internal_name"`
	BackwardCompatibility string  `json:"backward_compatibility"`
	Type                  string  `json:"type"` // object, monument, detail, picture
	ParentID              *string `json:"parent_id"`
	PartnerID             *string `json:"partner_id"`
	CollectionID          *string `json:"collection_id"`
	ProjectID             *string `json:"project_id"`
	CountryID             *string `json:"country_id"`
	OwnerReference        *string `json:"owner_reference"`
	MWNFReference         *string `json:"mwnf_reference"`
	DisplayOrder          *int    `json:"display_order,omitempty"`
}

type ItemTranslationInput struct {
	ItemID                string         `json:"item_id"`
	LanguageID            string         `json:"language_id"`
	ContextID             string         `json:"context_id"`
	BackwardCompatibility string         `json:"backward_compatibility"`
	Name                  string         `json:"name"`
	AlternateName         *string        `json:"alternate_name"`
	Description           string         `json:"description"`
	Dates                 *string        `json:"dates,omitempty"`
	Location              *string        `json:"location,omitempty"`
	Dimensions            *string        `json:"dimensions,omitempty"`
	Bibliography          *string        `json:"bibliography,omitempty"`
	Extra                 map[string]any `json:"extra,omitempty"`
}

type ItemImageInput struct {
	ItemID                string  `json:"-"`
	Path                  string  `json:"path"`
	OriginalName          string  `json:"original_name"`
	MimeType              string  `json:"mime_type"`
	AltText               *string `json:"alt_text"`
	DisplayOrder          int     `json:"display_order"`
	BackwardCompatibility string  `json:"backward_compatibility"`
}

type PartnerImageInput struct {
	PartnerID             string  `json:"partner_id"`
	Path                  string  `json:"path"`
	OriginalName          string  `json:"original_name"`
	MimeType              string  `json:"mime_type"`
	AltText               *string `json:"alt_text"`
	DisplayOrder          int     `json:"display_order"`
	BackwardCompatibility string  `json:"backward_compatibility"`
}

type PartnerLogoInput struct {
	PartnerID             string `json:"partner_id"`
	Path                  string `json:"path"`
	OriginalName          string `json:"original_name"`
	MimeType              string `json:"mime_type"`
	LogoType              string `json:"logo_type"` // primary, secondary, tertiary, ...
	DisplayOrder          int    `json:"display_order"`
	BackwardCompatibility string `json:"backward_compatibility"`
}

// ItemItemLinkInput relates two items within a context.
type ItemItemLinkInput struct {
	SourceID              string `json:"source_id"`
	TargetID              string `json:"target_id"`
	ContextID             string `json:"context_id"`
	BackwardCompatibility string `json:"backward_compatibility"`
}

// Writer is the write surface importer units call. Every method returns the
// id of the created entity, except AttachItemsToCollection and
// SetPartnerMonument, which update existing ones.
type Writer interface {
	WriteContext(ctx context.Context, in ContextInput) (string, error)
	WriteCollection(ctx context.Context, in CollectionInput) (string, error)
	WriteCollectionTranslation(ctx context.Context, in CollectionTranslationInput) (string, error)
	WriteProject(ctx context.Context, in ProjectInput) (string, error)
	WritePartner(ctx context.Context, in PartnerInput) (string, error)
	WritePartnerTranslation(ctx context.Context, in PartnerTranslationInput) (string, error)
	WriteItem(ctx context.Context, in ItemInput) (string, error)
	WriteItemTranslation(ctx context.Context, in ItemTranslationInput) (string, error)
	WriteItemImage(ctx context.Context, in ItemImageInput) (string, error)
	WritePartnerImage(ctx context.Context, in PartnerImageInput) (string, error)
	WritePartnerLogo(ctx context.Context, in PartnerLogoInput) (string, error)
	WriteItemItemLink(ctx context.Context, in ItemItemLinkInput) (string, error)
	AttachItemsToCollection(ctx context.Context, collectionID string, itemIDs []string) error
	SetPartnerMonument(ctx context.Context, partnerID, monumentItemID string) error
}

// Reader is the read surface used by rehydration and the tracker fallback.
type Reader interface {
	List(ctx context.Context, resource Resource, opts ListOptions) ([]Record, error)
	FindByBackwardCompatibility(ctx context.Context, category tracker.Category, token string) (string, bool, error)
	DefaultContext(ctx context.Context) (Record, bool, error)
}

// API is the full target surface.
type API interface {
	Writer
	Reader
}
