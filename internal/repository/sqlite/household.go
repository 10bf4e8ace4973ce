package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/repositories"
)

// HouseholdRepository implements repositories.HouseholdRepository with SQLite.
type HouseholdRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewHouseholdRepository creates a new SQLite household repository.
func NewHouseholdRepository(config *RepositoryConfig) repositories.HouseholdRepository {
	return &HouseholdRepository{db: config.DB, logger: config.Logger}
}

// Create persists a new household.
func (r *HouseholdRepository) Create(ctx context.Context, household *models.Household) error {
	if household.ID == "" {
		household.ID = uuid.NewString()
	}
	if household.CreatedAt.IsZero() {
		household.CreatedAt = time.Now().UTC()
	}

	_, err := getExecutor(ctx, r.db).ExecContext(ctx,
		"INSERT INTO households (id, name, admin_user_id, created_at) VALUES (?, ?, ?, ?)",
		household.ID, household.Name, household.AdminUserID, household.CreatedAt.UTC(),
	)
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("household %s already exists", household.ID),
				ResourceType: "household",
				ResourceID:   household.ID,
			}
		}
		return fmt.Errorf("failed to create household: %w", err)
	}
	return nil
}

// GetByID retrieves a household by its ID.
func (r *HouseholdRepository) GetByID(ctx context.Context, id string) (*models.Household, error) {
	var h models.Household
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		"SELECT id, name, admin_user_id, created_at FROM households WHERE id = ?", id,
	).Scan(&h.ID, &h.Name, &h.AdminUserID, &h.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("household %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get household: %w", err)
	}
	return &h, nil
}

// AddMember inserts a membership or updates an existing one.
func (r *HouseholdRepository) AddMember(ctx context.Context, member *models.HouseholdMember) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO household_members (household_id, user_id, display_name, role, status, joined_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (household_id, user_id) DO UPDATE
		SET display_name = excluded.display_name, role = excluded.role, status = excluded.status`,
		member.HouseholdID, member.UserID, member.DisplayName, string(member.Role), string(member.Status), member.JoinedAt.UTC(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("household %s: %w", member.HouseholdID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to add household member: %w", err)
	}
	return nil
}

const memberColumns = "household_id, user_id, display_name, role, status, joined_at"

// GetMember retrieves a single membership.
func (r *HouseholdRepository) GetMember(ctx context.Context, householdID, userID string) (*models.HouseholdMember, error) {
	var m models.HouseholdMember
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM household_members WHERE household_id = ? AND user_id = ?",
		householdID, userID,
	).Scan(&m.HouseholdID, &m.UserID, &m.DisplayName, &m.Role, &m.Status, &m.JoinedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s of %s: %w", userID, householdID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get household member: %w", err)
	}
	return &m, nil
}

// ListMembers returns every membership of a household.
func (r *HouseholdRepository) ListMembers(ctx context.Context, householdID string) ([]models.HouseholdMember, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx,
		"SELECT "+memberColumns+" FROM household_members WHERE household_id = ? ORDER BY joined_at, user_id",
		householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list household members: %w", err)
	}
	defer rows.Close()

	members := []models.HouseholdMember{}
	for rows.Next() {
		var m models.HouseholdMember
		if err := rows.Scan(&m.HouseholdID, &m.UserID, &m.DisplayName, &m.Role, &m.Status, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan household member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListHouseholdIDsForUser returns the households where userID is active.
func (r *HouseholdRepository) ListHouseholdIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx,
		"SELECT household_id FROM household_members WHERE user_id = ? AND status = 'active' ORDER BY household_id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list households for user: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan household id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
