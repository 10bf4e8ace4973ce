package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/repositories"
)

const documentColumns = `id, kind, owner_id, household_id, parent_id, lineage_id, is_draft, is_active,
	title, version_notes, fields, refined_categories, recordings, source_visions,
	revision, created_at, updated_at`

// PostgresDocumentRepository implements repositories.DocumentRepository
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// jsonColumns holds the JSONB-encoded columns of a document
type jsonColumns struct {
	fields, refined, recordings, sources string
}

func encodeJSONColumns(doc *models.Document) (jsonColumns, error) {
	var cols jsonColumns

	fields := doc.Fields
	if fields == nil {
		fields = models.Fields{}
	}
	refined := doc.RefinedCategories
	if refined == nil {
		refined = []models.FieldKey{}
	}
	recordings := doc.Recordings
	if recordings == nil {
		recordings = []models.Recording{}
	}
	sources := doc.SourceVisions
	if sources == nil {
		sources = []string{}
	}

	for _, c := range []struct {
		dst *string
		v   any
	}{
		{&cols.fields, fields},
		{&cols.refined, refined},
		{&cols.recordings, recordings},
		{&cols.sources, sources},
	} {
		data, err := json.Marshal(c.v)
		if err != nil {
			return cols, fmt.Errorf("encode document columns: %w", err)
		}
		*c.dst = string(data)
	}
	return cols, nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var (
		doc                                  models.Document
		fields, refined, recordings, sources []byte
	)
	err := row.Scan(
		&doc.ID,
		&doc.Kind,
		&doc.OwnerID,
		&doc.HouseholdID,
		&doc.ParentID,
		&doc.LineageID,
		&doc.IsDraft,
		&doc.IsActive,
		&doc.Title,
		&doc.VersionNotes,
		&fields,
		&refined,
		&recordings,
		&sources,
		&doc.Revision,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(fields, &doc.Fields); err != nil {
		return nil, fmt.Errorf("decode fields of %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(refined, &doc.RefinedCategories); err != nil {
		return nil, fmt.Errorf("decode refined categories of %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(recordings, &doc.Recordings); err != nil {
		return nil, fmt.Errorf("decode recordings of %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(sources, &doc.SourceVisions); err != nil {
		return nil, fmt.Errorf("decode source visions of %s: %w", doc.ID, err)
	}
	return &doc, nil
}

func collectDocuments(rows pgx.Rows) ([]models.Document, error) {
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Create inserts a document, assigning ID, lineage and timestamps when unset
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.LineageID == "" {
		doc.LineageID = doc.ID
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if doc.Revision == 0 {
		doc.Revision = 1
	}

	cols, err := encodeJSONColumns(doc)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, r.tables.Documents, documentColumns)

	executor := GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		doc.ID,
		doc.Kind,
		doc.OwnerID,
		doc.HouseholdID,
		doc.ParentID,
		doc.LineageID,
		doc.IsDraft,
		doc.IsActive,
		doc.Title,
		doc.VersionNotes,
		cols.fields,
		cols.refined,
		cols.recordings,
		cols.sources,
		doc.Revision,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return r.conflictFor(ctx, doc, err)
		}
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("household %v: %w", deref(doc.HouseholdID), domain.ErrNotFound)
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// conflictFor translates a unique index violation into a ConflictError that
// names the document already holding the slot.
func (r *PostgresDocumentRepository) conflictFor(ctx context.Context, doc *models.Document, cause error) error {
	constraint := pgConstraint(cause)

	switch {
	case strings.HasSuffix(constraint, "documents_one_draft"):
		existing, err := r.GetDraft(ctx, doc.OwnerID, doc.LineageID)
		if err != nil || existing == nil {
			return fmt.Errorf("draft already exists for lineage %s: %w", doc.LineageID, domain.ErrConflict)
		}
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a draft already exists for this lineage (%s)", existing.ID),
			ResourceType: "draft",
			ResourceID:   existing.ID,
		}
	case strings.HasSuffix(constraint, "documents_one_active"):
		existing, err := r.GetActiveByLineage(ctx, doc.LineageID)
		if err != nil || existing == nil {
			return fmt.Errorf("lineage %s already has an active version: %w", doc.LineageID, domain.ErrConflict)
		}
		return &domain.ConflictError{
			Message:      fmt.Sprintf("lineage already has an active version (%s)", existing.ID),
			ResourceType: "document",
			ResourceID:   existing.ID,
		}
	default:
		return &domain.ConflictError{
			Message:      fmt.Sprintf("document %s already exists", doc.ID),
			ResourceType: "document",
			ResourceID:   doc.ID,
		}
	}
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, documentColumns, r.tables.Documents)

	doc, err := scanDocument(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Update writes mutable columns and bumps the revision
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document, expectedRevision *int) error {
	cols, err := encodeJSONColumns(doc)
	if err != nil {
		return err
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET household_id = $1, is_draft = $2, is_active = $3, title = $4, version_notes = $5,
			fields = $6, refined_categories = $7, recordings = $8, source_visions = $9,
			revision = revision + 1, updated_at = $10
		WHERE id = $11 AND ($12::int IS NULL OR revision = $12::int)
		RETURNING revision
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		doc.HouseholdID,
		doc.IsDraft,
		doc.IsActive,
		doc.Title,
		doc.VersionNotes,
		cols.fields,
		cols.refined,
		cols.recordings,
		cols.sources,
		doc.UpdatedAt,
		doc.ID,
		expectedRevision,
	).Scan(&doc.Revision)

	if err != nil {
		if IsPgNoRowsError(err) {
			return r.missingOrStale(ctx, doc.ID, expectedRevision)
		}
		if IsPgDuplicateError(err) {
			return r.conflictFor(ctx, doc, err)
		}
		return fmt.Errorf("update document: %w", err)
	}

	return nil
}

func (r *PostgresDocumentRepository) missingOrStale(ctx context.Context, id string, expectedRevision *int) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return &domain.ConflictError{
		Message:      fmt.Sprintf("document %s was modified (revision %d, expected %d)", id, current.Revision, deref(expectedRevision)),
		ResourceType: "document",
		ResourceID:   id,
	}
}

// Delete removes a single document
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Documents)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByOwner returns the owner's documents plus those of their households
func (r *PostgresDocumentRepository) ListByOwner(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	householdIDs := filter.HouseholdIDs
	if householdIDs == nil {
		householdIDs = []string{}
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE (owner_id = $1 OR household_id::text = ANY($2::text[]))
			AND ($3::text = '' OR kind = $3::text)
			AND ($4::boolean OR is_active OR is_draft)
		ORDER BY created_at DESC, id
	`, documentColumns, r.tables.Documents)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query,
		filter.OwnerID,
		householdIDs,
		string(filter.Kind),
		filter.IncludeVersions,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return collectDocuments(rows)
}

// GetActiveByLineage returns the active version of a lineage, or nil
func (r *PostgresDocumentRepository) GetActiveByLineage(ctx context.Context, lineageID string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE lineage_id = $1 AND is_active`, documentColumns, r.tables.Documents)
	return r.optionalRow(ctx, "get active version", query, lineageID)
}

// GetDraft returns the owner's draft in a lineage, or nil
func (r *PostgresDocumentRepository) GetDraft(ctx context.Context, ownerID, lineageID string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1 AND lineage_id = $2 AND is_draft`, documentColumns, r.tables.Documents)
	return r.optionalRow(ctx, "get draft", query, ownerID, lineageID)
}

// GetActiveByOwner returns the owner's newest active personal document of a kind
func (r *PostgresDocumentRepository) GetActiveByOwner(ctx context.Context, ownerID string, kind models.DocumentKind) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_id = $1 AND kind = $2 AND is_active AND household_id IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, documentColumns, r.tables.Documents)

	doc, err := r.optionalRow(ctx, "get active document", query, ownerID, string(kind))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("active %s for %s: %w", kind, ownerID, domain.ErrNotFound)
	}
	return doc, nil
}

func (r *PostgresDocumentRepository) optionalRow(ctx context.Context, op, query string, args ...any) (*models.Document, error) {
	doc, err := scanDocument(GetExecutor(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc, nil
}

// DemoteActive clears is_active across the lineage
func (r *PostgresDocumentRepository) DemoteActive(ctx context.Context, lineageID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_active = FALSE, revision = revision + 1, updated_at = NOW()
		WHERE lineage_id = $1 AND is_active
	`, r.tables.Documents)

	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, lineageID); err != nil {
		return fmt.Errorf("demote active versions: %w", err)
	}
	return nil
}

// ListLineageLinks returns the id and creation time of every version in the given lineages
func (r *PostgresDocumentRepository) ListLineageLinks(ctx context.Context, lineageIDs []string) ([]models.LineageLink, error) {
	if len(lineageIDs) == 0 {
		return []models.LineageLink{}, nil
	}

	query := fmt.Sprintf(`SELECT id, lineage_id::text, created_at FROM %s WHERE lineage_id::text = ANY($1::text[])`, r.tables.Documents)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, lineageIDs)
	if err != nil {
		return nil, fmt.Errorf("list lineage links: %w", err)
	}
	defer rows.Close()

	links := []models.LineageLink{}
	for rows.Next() {
		var link models.LineageLink
		if err := rows.Scan(&link.ID, &link.LineageID, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lineage link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lineage links: %w", err)
	}
	return links, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
