package services

import (
	"context"

	"lifeplan/internal/domain/models"
)

// DocumentAuthorizer decides who may touch a document.
// Owners always may; household documents are open to active members.
//
// Services call the authorizer after loading a document and before acting on it.
type DocumentAuthorizer interface {
	// CanRead returns ErrForbidden unless userID may read doc
	CanRead(ctx context.Context, userID string, doc *models.Document) error

	// CanWrite returns ErrForbidden unless userID may modify doc
	CanWrite(ctx context.Context, userID string, doc *models.Document) error

	// CanUseHousehold returns the active membership of userID, or ErrForbidden
	CanUseHousehold(ctx context.Context, userID, householdID string) (*models.HouseholdMember, error)
}
