package sqlite_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/repository/sqlite"
)

func TestHouseholdRepository_Members(t *testing.T) {
	cfg := setupTestDB(t)
	repo := sqlite.NewHouseholdRepository(cfg)
	ctx := context.Background()

	householdID := seedHousehold(t, cfg, "ana", "ben")

	// Upsert: ben leaves
	err := repo.AddMember(ctx, &models.HouseholdMember{
		HouseholdID: householdID, UserID: "ben", DisplayName: "Ben", Role: models.MemberRoleMember, Status: models.MemberStatusRemoved,
	})
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	member, err := repo.GetMember(ctx, householdID, "ben")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if member.IsActive() || member.DisplayName != "Ben" {
		t.Errorf("expected removed member named Ben, got %+v", member)
	}

	members, err := repo.ListMembers(ctx, householdID)
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("expected 2 memberships, got %d", len(members))
	}

	ids, err := repo.ListHouseholdIDsForUser(ctx, "ana")
	if err != nil {
		t.Fatalf("ListHouseholdIDsForUser failed: %v", err)
	}
	if !slices.Equal(ids, []string{householdID}) {
		t.Errorf("expected [%s], got %v", householdID, ids)
	}
	if ids, _ := repo.ListHouseholdIDsForUser(ctx, "ben"); len(ids) != 0 {
		t.Errorf("removed member should have no households, got %v", ids)
	}
}

func TestHouseholdRepository_NotFound(t *testing.T) {
	cfg := setupTestDB(t)
	repo := sqlite.NewHouseholdRepository(cfg)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByID: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetMember(ctx, "nope", "ana"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetMember: expected ErrNotFound, got %v", err)
	}

	err := repo.AddMember(ctx, &models.HouseholdMember{
		HouseholdID: "nope", UserID: "ana", Role: models.MemberRoleMember, Status: models.MemberStatusActive,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AddMember: expected ErrNotFound for unknown household, got %v", err)
	}
}
