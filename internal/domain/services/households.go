package services

import (
	"context"

	"lifeplan/internal/domain/models"
)

// HouseholdService manages households and their memberships
type HouseholdService interface {
	// Create creates a household with the actor as its active admin
	Create(ctx context.Context, actorID string, req *CreateHouseholdRequest) (*models.Household, error)

	// AddMember adds or updates a membership. Only the admin may call it.
	AddMember(ctx context.Context, actorID, householdID string, req *AddMemberRequest) (*models.HouseholdMember, error)

	// ListMembers lists memberships visible to an active member
	ListMembers(ctx context.Context, actorID, householdID string) ([]models.HouseholdMember, error)
}

// CreateHouseholdRequest represents a household creation request
type CreateHouseholdRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// AddMemberRequest represents a membership change
type AddMemberRequest struct {
	UserID      string              `json:"user_id"`
	DisplayName string              `json:"display_name"`
	Role        models.MemberRole   `json:"role"`
	Status      models.MemberStatus `json:"status"`
}
