package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/repositories"
)

const documentColumns = "id, kind, owner_id, household_id, parent_id, lineage_id, is_draft, is_active, " +
	"title, version_notes, fields, refined_categories, recordings, source_visions, " +
	"revision, created_at, updated_at"

// DocumentRepository implements repositories.DocumentRepository with SQLite.
type DocumentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDocumentRepository creates a new SQLite document repository.
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &DocumentRepository{db: config.DB, logger: config.Logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc                                  models.Document
		householdID, parentID                sql.NullString
		fields, refined, recordings, sources string
	)
	err := row.Scan(
		&doc.ID, &doc.Kind, &doc.OwnerID, &householdID, &parentID, &doc.LineageID,
		&doc.IsDraft, &doc.IsActive, &doc.Title, &doc.VersionNotes,
		&fields, &refined, &recordings, &sources,
		&doc.Revision, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.HouseholdID = stringPtr(householdID)
	doc.ParentID = stringPtr(parentID)

	if err := json.Unmarshal([]byte(fields), &doc.Fields); err != nil {
		return nil, fmt.Errorf("decode fields of %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal([]byte(refined), &doc.RefinedCategories); err != nil {
		return nil, fmt.Errorf("decode refined categories of %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal([]byte(recordings), &doc.Recordings); err != nil {
		return nil, fmt.Errorf("decode recordings of %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal([]byte(sources), &doc.SourceVisions); err != nil {
		return nil, fmt.Errorf("decode source visions of %s: %w", doc.ID, err)
	}
	return &doc, nil
}

func encodeJSON(values ...any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode document columns: %w", err)
		}
		out[i] = string(data)
	}
	return out, nil
}

func documentJSON(doc *models.Document) ([]string, error) {
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
	return encodeJSON(fields, refined, recordings, sources)
}

// Create persists a new document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
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

	cols, err := documentJSON(doc)
	if err != nil {
		return err
	}

	_, err = getExecutor(ctx, r.db).ExecContext(ctx,
		"INSERT INTO documents ("+documentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		doc.ID, string(doc.Kind), doc.OwnerID, nullString(doc.HouseholdID), nullString(doc.ParentID), doc.LineageID,
		doc.IsDraft, doc.IsActive, doc.Title, doc.VersionNotes,
		cols[0], cols[1], cols[2], cols[3],
		doc.Revision, doc.CreatedAt.UTC(), doc.UpdatedAt.UTC(),
	)
	if err != nil {
		if columns, ok := isUniqueViolation(err); ok {
			return r.conflictFor(ctx, doc, columns)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("household of document %s: %w", doc.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) conflictFor(ctx context.Context, doc *models.Document, columns string) error {
	switch columns {
	case "documents.owner_id, documents.lineage_id":
		if existing, err := r.GetDraft(ctx, doc.OwnerID, doc.LineageID); err == nil && existing != nil {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a draft already exists for this lineage (%s)", existing.ID),
				ResourceType: "draft",
				ResourceID:   existing.ID,
			}
		}
		return fmt.Errorf("draft already exists for lineage %s: %w", doc.LineageID, domain.ErrConflict)
	case "documents.lineage_id":
		if existing, err := r.GetActiveByLineage(ctx, doc.LineageID); err == nil && existing != nil {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("lineage already has an active version (%s)", existing.ID),
				ResourceType: "document",
				ResourceID:   existing.ID,
			}
		}
		return fmt.Errorf("lineage %s already has an active version: %w", doc.LineageID, domain.ErrConflict)
	default:
		return &domain.ConflictError{
			Message:      fmt.Sprintf("document %s already exists", doc.ID),
			ResourceType: "document",
			ResourceID:   doc.ID,
		}
	}
}

// GetByID retrieves a document by its ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	row := getExecutor(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// Update persists mutable columns and bumps the revision.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document, expectedRevision *int) error {
	cols, err := documentJSON(doc)
	if err != nil {
		return err
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}

	var expected sql.NullInt64
	if expectedRevision != nil {
		expected = sql.NullInt64{Int64: int64(*expectedRevision), Valid: true}
	}

	err = getExecutor(ctx, r.db).QueryRowContext(ctx, `
		UPDATE documents
		SET household_id = ?, is_draft = ?, is_active = ?, title = ?, version_notes = ?,
			fields = ?, refined_categories = ?, recordings = ?, source_visions = ?,
			revision = revision + 1, updated_at = ?
		WHERE id = ? AND (? IS NULL OR revision = ?)
		RETURNING revision`,
		nullString(doc.HouseholdID), doc.IsDraft, doc.IsActive, doc.Title, doc.VersionNotes,
		cols[0], cols[1], cols[2], cols[3],
		doc.UpdatedAt.UTC(),
		doc.ID, expected, expected,
	).Scan(&doc.Revision)

	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := r.GetByID(ctx, doc.ID)
		if getErr != nil {
			return getErr
		}
		return &domain.ConflictError{
			Message:      fmt.Sprintf("document %s was modified (revision %d, expected %d)", doc.ID, current.Revision, expected.Int64),
			ResourceType: "document",
			ResourceID:   doc.ID,
		}
	}
	if err != nil {
		if columns, ok := isUniqueViolation(err); ok {
			return r.conflictFor(ctx, doc, columns)
		}
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

// Delete removes a single document.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByOwner returns the owner's documents plus those of their households.
func (r *DocumentRepository) ListByOwner(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents WHERE (owner_id = ?"
	args := []any{filter.OwnerID}

	if len(filter.HouseholdIDs) > 0 {
		query += " OR household_id IN (?" + strings.Repeat(", ?", len(filter.HouseholdIDs)-1) + ")"
		for _, id := range filter.HouseholdIDs {
			args = append(args, id)
		}
	}
	query += ")"

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	if !filter.IncludeVersions {
		query += " AND (is_active = 1 OR is_draft = 1)"
	}
	query += " ORDER BY created_at DESC, id"

	return r.query(ctx, query, args...)
}

func (r *DocumentRepository) query(ctx context.Context, query string, args ...any) ([]models.Document, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) optional(ctx context.Context, query string, args ...any) (*models.Document, error) {
	docs, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

// GetActiveByLineage returns the active version of a lineage, or nil.
func (r *DocumentRepository) GetActiveByLineage(ctx context.Context, lineageID string) (*models.Document, error) {
	return r.optional(ctx, "SELECT "+documentColumns+" FROM documents WHERE lineage_id = ? AND is_active = 1", lineageID)
}

// GetDraft returns the owner's draft in a lineage, or nil.
func (r *DocumentRepository) GetDraft(ctx context.Context, ownerID, lineageID string) (*models.Document, error) {
	return r.optional(ctx, "SELECT "+documentColumns+" FROM documents WHERE owner_id = ? AND lineage_id = ? AND is_draft = 1", ownerID, lineageID)
}

// GetActiveByOwner returns the owner's newest active personal document of a kind.
func (r *DocumentRepository) GetActiveByOwner(ctx context.Context, ownerID string, kind models.DocumentKind) (*models.Document, error) {
	doc, err := r.optional(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE owner_id = ? AND kind = ? AND is_active = 1 AND household_id IS NULL ORDER BY created_at DESC LIMIT 1",
		ownerID, string(kind))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("active %s for %s: %w", kind, ownerID, domain.ErrNotFound)
	}
	return doc, nil
}

// DemoteActive clears is_active across the lineage.
func (r *DocumentRepository) DemoteActive(ctx context.Context, lineageID string) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx,
		"UPDATE documents SET is_active = 0, revision = revision + 1, updated_at = ? WHERE lineage_id = ? AND is_active = 1",
		time.Now().UTC(), lineageID)
	if err != nil {
		return fmt.Errorf("failed to demote active versions: %w", err)
	}
	return nil
}

// ListLineageLinks returns the id and creation time of every version in the
// given lineages.
func (r *DocumentRepository) ListLineageLinks(ctx context.Context, lineageIDs []string) ([]models.LineageLink, error) {
	if len(lineageIDs) == 0 {
		return []models.LineageLink{}, nil
	}

	args := make([]any, len(lineageIDs))
	for i, id := range lineageIDs {
		args[i] = id
	}

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx,
		"SELECT id, lineage_id, created_at FROM documents WHERE lineage_id IN (?"+strings.Repeat(", ?", len(lineageIDs)-1)+")",
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lineage links: %w", err)
	}
	defer rows.Close()

	links := []models.LineageLink{}
	for rows.Next() {
		var link models.LineageLink
		if err := rows.Scan(&link.ID, &link.LineageID, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lineage link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}
