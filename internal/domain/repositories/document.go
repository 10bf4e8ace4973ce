package repositories

import (
	"context"

	"lifeplan/internal/domain/models"
)

// DocumentRepository defines data access for versioned documents.
// Implementations participate in a transaction when one is present in ctx.
type DocumentRepository interface {
	// Create inserts the document. ID, LineageID and timestamps are assigned
	// when empty. Unique index violations surface as ConflictError.
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document by ID (ErrNotFound if absent)
	GetByID(ctx context.Context, id string) (*models.Document, error)

	// Update persists mutable columns and bumps Revision. When expectedRevision
	// is non-nil and stale, ErrConflict is returned and nothing is written.
	Update(ctx context.Context, doc *models.Document, expectedRevision *int) error

	// Delete removes a single row. Children keep their parent_id.
	Delete(ctx context.Context, id string) error

	// ListByOwner returns documents ordered by created_at DESC
	ListByOwner(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)

	// GetActiveByLineage returns the active version of a lineage, or nil
	GetActiveByLineage(ctx context.Context, lineageID string) (*models.Document, error)

	// GetDraft returns the owner's draft in a lineage, or nil
	GetDraft(ctx context.Context, ownerID, lineageID string) (*models.Document, error)

	// GetActiveByOwner returns the owner's newest active personal document of a kind (ErrNotFound if none)
	GetActiveByOwner(ctx context.Context, ownerID string, kind models.DocumentKind) (*models.Document, error)

	// DemoteActive clears is_active on every version of the lineage
	DemoteActive(ctx context.Context, lineageID string) error

	// ListLineageLinks returns id and creation time for every version in the given lineages
	ListLineageLinks(ctx context.Context, lineageIDs []string) ([]models.LineageLink, error)
}
