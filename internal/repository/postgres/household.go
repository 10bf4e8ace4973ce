package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/repositories"
)

// PostgresHouseholdRepository implements repositories.HouseholdRepository
type PostgresHouseholdRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewHouseholdRepository creates a new household repository
func NewHouseholdRepository(config *RepositoryConfig) repositories.HouseholdRepository {
	return &PostgresHouseholdRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a household
func (r *PostgresHouseholdRepository) Create(ctx context.Context, household *models.Household) error {
	if household.ID == "" {
		household.ID = uuid.NewString()
	}
	if household.CreatedAt.IsZero() {
		household.CreatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, admin_user_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, r.tables.Households)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		household.ID,
		household.Name,
		household.AdminUserID,
		household.CreatedAt,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("household %s already exists", household.ID),
				ResourceType: "household",
				ResourceID:   household.ID,
			}
		}
		return fmt.Errorf("create household: %w", err)
	}
	return nil
}

// GetByID retrieves a household by ID
func (r *PostgresHouseholdRepository) GetByID(ctx context.Context, id string) (*models.Household, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("household %s: %w", id, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`SELECT id, name, admin_user_id, created_at FROM %s WHERE id = $1`, r.tables.Households)

	var h models.Household
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(&h.ID, &h.Name, &h.AdminUserID, &h.CreatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("household %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get household: %w", err)
	}
	return &h, nil
}

// AddMember inserts a membership or updates role, status and display name
func (r *PostgresHouseholdRepository) AddMember(ctx context.Context, member *models.HouseholdMember) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (household_id, user_id, display_name, role, status, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (household_id, user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name, role = EXCLUDED.role, status = EXCLUDED.status
	`, r.tables.HouseholdMembers)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		member.HouseholdID,
		member.UserID,
		member.DisplayName,
		member.Role,
		member.Status,
		member.JoinedAt,
	)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("household %s: %w", member.HouseholdID, domain.ErrNotFound)
		}
		return fmt.Errorf("add household member: %w", err)
	}
	return nil
}

// GetMember retrieves a single membership
func (r *PostgresHouseholdRepository) GetMember(ctx context.Context, householdID, userID string) (*models.HouseholdMember, error) {
	if _, err := uuid.Parse(householdID); err != nil {
		return nil, fmt.Errorf("member %s of %s: %w", userID, householdID, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		SELECT household_id, user_id, display_name, role, status, joined_at
		FROM %s WHERE household_id = $1 AND user_id = $2
	`, r.tables.HouseholdMembers)

	var m models.HouseholdMember
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, householdID, userID).Scan(
		&m.HouseholdID, &m.UserID, &m.DisplayName, &m.Role, &m.Status, &m.JoinedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("member %s of %s: %w", userID, householdID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get household member: %w", err)
	}
	return &m, nil
}

// ListMembers returns every membership of a household ordered by join time
func (r *PostgresHouseholdRepository) ListMembers(ctx context.Context, householdID string) ([]models.HouseholdMember, error) {
	query := fmt.Sprintf(`
		SELECT household_id, user_id, display_name, role, status, joined_at
		FROM %s WHERE household_id = $1
		ORDER BY joined_at, user_id
	`, r.tables.HouseholdMembers)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("list household members: %w", err)
	}
	defer rows.Close()

	members := []models.HouseholdMember{}
	for rows.Next() {
		var m models.HouseholdMember
		if err := rows.Scan(&m.HouseholdID, &m.UserID, &m.DisplayName, &m.Role, &m.Status, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan household member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate household members: %w", err)
	}
	return members, nil
}

// ListHouseholdIDsForUser returns the households where userID is active
func (r *PostgresHouseholdRepository) ListHouseholdIDsForUser(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT household_id FROM %s WHERE user_id = $1 AND status = 'active'
		ORDER BY household_id
	`, r.tables.HouseholdMembers)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list households for user: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan household id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate household ids: %w", err)
	}
	return ids, nil
}
