package auth

import (
	"context"
	"errors"
	"fmt"

	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/repositories"
)

// MembershipAuthorizer implements DocumentAuthorizer using ownership and
// household membership. A user can access a document if they own it, or if
// it belongs to a household where they are an active member.
type MembershipAuthorizer struct {
	householdRepo repositories.HouseholdRepository
}

// NewMembershipAuthorizer creates a new membership-based authorizer
func NewMembershipAuthorizer(householdRepo repositories.HouseholdRepository) *MembershipAuthorizer {
	return &MembershipAuthorizer{householdRepo: householdRepo}
}

// CanRead checks if user owns the document or shares its household
func (a *MembershipAuthorizer) CanRead(ctx context.Context, userID string, doc *models.Document) error {
	if doc.OwnerID == userID {
		return nil
	}
	if doc.HouseholdID == nil {
		return fmt.Errorf("access denied to document %s: %w", doc.ID, domain.ErrForbidden)
	}
	if _, err := a.CanUseHousehold(ctx, userID, *doc.HouseholdID); err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return fmt.Errorf("access denied to document %s: %w", doc.ID, domain.ErrForbidden)
		}
		return err
	}
	return nil
}

// CanWrite applies the same rule as CanRead. Household documents are
// editable by every active member.
func (a *MembershipAuthorizer) CanWrite(ctx context.Context, userID string, doc *models.Document) error {
	return a.CanRead(ctx, userID, doc)
}

// CanUseHousehold returns the user's active membership
func (a *MembershipAuthorizer) CanUseHousehold(ctx context.Context, userID, householdID string) (*models.HouseholdMember, error) {
	member, err := a.householdRepo.GetMember(ctx, householdID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("access denied to household %s: %w", householdID, domain.ErrForbidden)
		}
		return nil, fmt.Errorf("check household access: %w", err)
	}
	if !member.IsActive() {
		return nil, fmt.Errorf("membership in household %s is %s: %w", householdID, member.Status, domain.ErrForbidden)
	}
	return member, nil
}
