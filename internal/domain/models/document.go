package models

import (
	"slices"
	"time"
)

// DocumentKind distinguishes the two versioned document families
type DocumentKind string

const (
	DocumentKindProfile DocumentKind = "profile"
	DocumentKindVision  DocumentKind = "vision"
)

// Valid reports whether k is a known kind
func (k DocumentKind) Valid() bool {
	return k == DocumentKindProfile || k == DocumentKindVision
}

// Document is one version of a profile or life vision. Versions sharing a
// LineageID form a lineage; ParentID points at the version this one was
// derived from.
type Document struct {
	ID                string       `json:"id"`
	Kind              DocumentKind `json:"kind"`
	OwnerID           string       `json:"owner_id"`
	HouseholdID       *string      `json:"household_id"`
	ParentID          *string      `json:"parent_id"`
	LineageID         string       `json:"lineage_id"`
	VersionNumber     int          `json:"version_number"` // Computed from ancestry, not stored
	IsDraft           bool         `json:"is_draft"`
	IsActive          bool         `json:"is_active"`
	Title             string       `json:"title,omitempty"`
	VersionNotes      string       `json:"version_notes,omitempty"`
	Fields            Fields       `json:"fields"`
	RefinedCategories []FieldKey   `json:"refined_categories"`
	Recordings        []Recording  `json:"recordings"`
	SourceVisions     []string     `json:"source_visions,omitempty"`
	Revision          int          `json:"revision"`
	CompletionPercent int          `json:"completion_percent"` // Computed by the scorer, not stored
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// IsHistorical reports whether the document is a committed, inactive version
func (d *Document) IsHistorical() bool {
	return !d.IsDraft && !d.IsActive
}

// IsRefined reports whether key has been refined on this draft
func (d *Document) IsRefined(key FieldKey) bool {
	return slices.Contains(d.RefinedCategories, key)
}

// MarkRefined adds keys to RefinedCategories, skipping duplicates
func (d *Document) MarkRefined(keys ...FieldKey) {
	for _, k := range keys {
		if !d.IsRefined(k) {
			d.RefinedCategories = append(d.RefinedCategories, k)
		}
	}
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	cp := *d
	cp.Fields = d.Fields.Clone()
	cp.RefinedCategories = slices.Clone(d.RefinedCategories)
	cp.Recordings = slices.Clone(d.Recordings)
	cp.SourceVisions = slices.Clone(d.SourceVisions)
	if d.HouseholdID != nil {
		h := *d.HouseholdID
		cp.HouseholdID = &h
	}
	if d.ParentID != nil {
		p := *d.ParentID
		cp.ParentID = &p
	}
	return &cp
}

// LineageLink is the minimal projection used to compute version numbers
type LineageLink struct {
	ID        string
	LineageID string
	CreatedAt time.Time
}

// DocumentFilter narrows ListByOwner
type DocumentFilter struct {
	OwnerID      string
	HouseholdIDs []string
	Kind         DocumentKind
	// IncludeVersions returns historical versions too. Otherwise only active
	// documents and drafts are returned.
	IncludeVersions bool
}

// ChangeSummary groups the keys that differ between a draft and its parent
type ChangeSummary struct {
	DocumentID    string                `json:"document_id"`
	ParentID      *string               `json:"parent_id"`
	ChangedFields []FieldKey            `json:"changed_fields"`
	Sections      map[string][]FieldKey `json:"sections"`
}
