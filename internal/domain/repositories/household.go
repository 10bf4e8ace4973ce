package repositories

import (
	"context"

	"lifeplan/internal/domain/models"
)

// HouseholdRepository defines data access for households and memberships
type HouseholdRepository interface {
	// Create inserts the household and returns it with generated ID
	Create(ctx context.Context, household *models.Household) error

	// GetByID retrieves a household (ErrNotFound if absent)
	GetByID(ctx context.Context, id string) (*models.Household, error)

	// AddMember inserts or updates a membership
	AddMember(ctx context.Context, member *models.HouseholdMember) error

	// GetMember returns a membership (ErrNotFound if absent)
	GetMember(ctx context.Context, householdID, userID string) (*models.HouseholdMember, error)

	// ListMembers returns every membership of a household
	ListMembers(ctx context.Context, householdID string) ([]models.HouseholdMember, error)

	// ListHouseholdIDsForUser returns households where the user is an active member
	ListHouseholdIDsForUser(ctx context.Context, userID string) ([]string, error)
}
