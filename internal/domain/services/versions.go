package services

import (
	"context"
	"time"

	"lifeplan/internal/domain/models"
)

// VersionStore handles create/read/update/delete of versioned documents.
// Every call names the acting user explicitly.
type VersionStore interface {
	// Create stores a new document or a new version of an existing lineage
	Create(ctx context.Context, actorID string, req *CreateDocumentRequest) (*models.Document, error)

	// Get retrieves a document the actor can read
	Get(ctx context.Context, actorID, id string) (*models.Document, error)

	// GetActive retrieves the actor's active personal document of a kind
	GetActive(ctx context.Context, actorID string, kind models.DocumentKind) (*models.Document, error)

	// Update merges a partial field patch into a document
	Update(ctx context.Context, actorID, id string, req *UpdateDocumentRequest) (*models.Document, error)

	// Delete removes a single version. Children are left in place.
	Delete(ctx context.Context, actorID, id string, req *DeleteDocumentRequest) error

	// ListByOwner lists the actor's and their households' documents, newest first
	ListByOwner(ctx context.Context, actorID string, req *ListDocumentsRequest) ([]models.Document, error)

	// Changes diffs a draft against its parent, grouped by section
	Changes(ctx context.Context, actorID, id string) (*models.ChangeSummary, error)
}

// DraftLifecycle moves documents between draft, active and historical
type DraftLifecycle interface {
	// CreateDraft copies a committed version into a new draft of the same lineage
	CreateDraft(ctx context.Context, actorID, sourceID string, req *CreateDraftRequest) (*models.Document, error)

	// RefineCategory sets one field of a draft and marks it refined.
	// A nil value clears the field. Non-drafts are returned unchanged.
	RefineCategory(ctx context.Context, actorID, draftID string, key models.FieldKey, value *models.FieldValue) (*models.Document, error)

	// SyncRefined recomputes a draft's refined categories as the fields that
	// differ from the lineage's active version
	SyncRefined(ctx context.Context, actorID, draftID string) (*models.Document, error)

	// Commit promotes a refined draft to the lineage's active version
	Commit(ctx context.Context, actorID, draftID string) (*models.Document, error)

	// DiscardDraft deletes a draft
	DiscardDraft(ctx context.Context, actorID, draftID string) error

	// SetActive restores a historical version as active
	SetActive(ctx context.Context, actorID, versionID string) (*models.Document, error)
}

// MergeEngine combines personal visions into household drafts
type MergeEngine interface {
	// Merge combines two personal visions into a new household draft
	Merge(ctx context.Context, actorID string, req *MergeRequest) (*models.Document, error)

	// ConvertToHousehold copies one personal version into a household draft
	ConvertToHousehold(ctx context.Context, actorID string, req *ConvertToHouseholdRequest) (*models.Document, error)
}

// RecordingLedger maintains the recordings embedded in a document
type RecordingLedger interface {
	// AppendRecording adds a recording, applying the purpose's blob policy
	AppendRecording(ctx context.Context, actorID, docID string, req *AppendRecordingRequest) (*models.Document, error)

	// RemoveRecording deletes the recording's blob, then the ledger entry
	RemoveRecording(ctx context.Context, actorID, docID string, req *RemoveRecordingRequest) (*models.Document, error)
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	Kind         models.DocumentKind `json:"kind"`
	Fields       models.Fields       `json:"fields"`
	IsDraft      bool                `json:"is_draft"`
	ParentID     *string             `json:"parent_id,omitempty"`
	HouseholdID  *string             `json:"household_id,omitempty"`
	Title        string              `json:"title,omitempty"`
	VersionNotes string              `json:"version_notes,omitempty"`
}

// UpdateDocumentRequest represents a partial update. A null field value clears it.
type UpdateDocumentRequest struct {
	Fields           models.FieldPatch `json:"fields"`
	ExpectedRevision *int              `json:"expected_revision,omitempty"`
	Title            *string           `json:"title,omitempty"`
	VersionNotes     *string           `json:"version_notes,omitempty"`
}

// DeleteDocumentRequest carries delete options
type DeleteDocumentRequest struct {
	// ConfirmActive must be set to delete the active version
	ConfirmActive bool `json:"confirm_active"`
}

// ListDocumentsRequest narrows a listing
type ListDocumentsRequest struct {
	Kind            models.DocumentKind `json:"kind"`
	IncludeVersions bool                `json:"include_versions"`
}

// CreateDraftRequest represents a draft creation request
type CreateDraftRequest struct {
	// Replace deletes the owner's existing draft in the lineage instead of failing
	Replace      bool   `json:"replace"`
	VersionNotes string `json:"version_notes,omitempty"`
}

// MergeRequest names two personal visions and the target household
type MergeRequest struct {
	VersionA    string `json:"version_a"`
	VersionB    string `json:"version_b"`
	HouseholdID string `json:"household_id"`
	Title       string `json:"title,omitempty"`
}

// ConvertToHouseholdRequest names a personal version and the target household
type ConvertToHouseholdRequest struct {
	SourceID    string `json:"source_id"`
	HouseholdID string `json:"household_id"`
}

// AppendRecordingRequest represents a new ledger entry
type AppendRecordingRequest struct {
	Recording models.Recording        `json:"recording"`
	Purpose   models.RecordingPurpose `json:"purpose"`
	// TargetField, when set, is overwritten with TargetValue
	TargetField models.FieldKey `json:"target_field,omitempty"`
	TargetValue string          `json:"target_value,omitempty"`
}

// RemoveRecordingRequest identifies a ledger entry either by its position
// within a category or by its (url, created_at) identity.
type RemoveRecordingRequest struct {
	Category  string    `json:"category,omitempty"`
	Index     *int      `json:"index,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
