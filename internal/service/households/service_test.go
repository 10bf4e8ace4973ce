package households_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/services"
	"lifeplan/internal/repository/sqlite"
	"lifeplan/internal/service/auth"
	"lifeplan/internal/service/households"
)

func setup(t *testing.T) services.HouseholdService {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &sqlite.RepositoryConfig{DB: db, Logger: logger}
	repo := sqlite.NewHouseholdRepository(cfg)
	return households.NewService(repo, sqlite.NewTransactionManager(cfg), auth.NewMembershipAuthorizer(repo), logger)
}

func TestService_CreateMakesActorAdmin(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	h, err := svc.Create(ctx, "alice", &services.CreateHouseholdRequest{Name: "Home", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if h.ID == "" || h.AdminUserID != "alice" {
		t.Fatalf("unexpected household: %+v", h)
	}

	members, err := svc.ListMembers(ctx, "alice", h.ID)
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 1 || members[0].Role != models.MemberRoleAdmin || !members[0].IsActive() {
		t.Errorf("expected active admin membership, got %+v", members)
	}

	if _, err := svc.Create(ctx, "alice", &services.CreateHouseholdRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for missing name, got %v", err)
	}
}

func TestService_AddMember(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	h, err := svc.Create(ctx, "alice", &services.CreateHouseholdRequest{Name: "Home"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	member, err := svc.AddMember(ctx, "alice", h.ID, &services.AddMemberRequest{UserID: "bob", DisplayName: "Bob"})
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if member.Role != models.MemberRoleMember || member.Status != models.MemberStatusActive {
		t.Errorf("expected defaults member/active, got %s/%s", member.Role, member.Status)
	}
	if _, err := svc.ListMembers(ctx, "bob", h.ID); err != nil {
		t.Errorf("active member should list members, got %v", err)
	}

	tests := []struct {
		name    string
		actor   string
		req     services.AddMemberRequest
		wantErr error
	}{
		{"non-admin", "bob", services.AddMemberRequest{UserID: "carol"}, domain.ErrForbidden},
		{"missing user", "alice", services.AddMemberRequest{}, domain.ErrValidation},
		{"bad role", "alice", services.AddMemberRequest{UserID: "carol", Role: "owner"}, domain.ErrValidation},
		{"admin removal", "alice", services.AddMemberRequest{UserID: "alice", Status: models.MemberStatusRemoved}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddMember(ctx, tt.actor, h.ID, &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := svc.AddMember(ctx, "alice", "missing", &services.AddMemberRequest{UserID: "carol"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for unknown household, got %v", err)
	}

	// Removed members lose access
	if _, err := svc.AddMember(ctx, "alice", h.ID, &services.AddMemberRequest{UserID: "bob", Status: models.MemberStatusRemoved}); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if _, err := svc.ListMembers(ctx, "bob", h.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden after removal, got %v", err)
	}
}
