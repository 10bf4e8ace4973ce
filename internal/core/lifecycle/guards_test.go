package lifecycle

import (
	"errors"
	"testing"

	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
)

func TestStateOf(t *testing.T) {
	tests := []struct {
		name string
		doc  *models.Document
		want State
	}{
		{"no document", nil, StateNoDraft},
		{"draft", &models.Document{IsDraft: true}, StateDraftInProgress},
		{"active", &models.Document{IsActive: true}, StateCommitted},
		{"historical", &models.Document{}, StateCommitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateOf(tt.doc); got != tt.want {
				t.Errorf("StateOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCanCreateDraft(t *testing.T) {
	tests := []struct {
		name        string
		ctx         CreateDraftContext
		wantAllowed bool
		wantCode    string
	}{
		{
			name:        "can create from active source with no draft",
			ctx:         CreateDraftContext{SourceID: "v1"},
			wantAllowed: true,
		},
		{
			name:        "cannot create from a draft",
			ctx:         CreateDraftContext{SourceID: "d1", SourceIsDraft: true},
			wantAllowed: false,
			wantCode:    CodeSourceIsDraft,
		},
		{
			name:        "cannot create when draft exists",
			ctx:         CreateDraftContext{SourceID: "v1", ExistingDraftID: "d1"},
			wantAllowed: false,
			wantCode:    CodeDraftExists,
		},
		{
			name:        "can replace existing draft",
			ctx:         CreateDraftContext{SourceID: "v1", ExistingDraftID: "d1", Replace: true},
			wantAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanCreateDraft(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if result.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", result.Code, tt.wantCode)
			}
		})
	}
}

func TestCanCreateDraft_ConflictCarriesExistingID(t *testing.T) {
	err := CanCreateDraft(CreateDraftContext{SourceID: "v1", ExistingDraftID: "d1"}).Err()

	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.ResourceID != "d1" {
		t.Errorf("ResourceID = %q, want d1", conflict.ResourceID)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Error("expected errors.Is(err, ErrConflict)")
	}
}

func TestCanCommit(t *testing.T) {
	tests := []struct {
		name        string
		ctx         DraftContext
		wantAllowed bool
		wantCode    string
	}{
		{"refined draft", DraftContext{DocumentID: "d1", IsDraft: true, Refined: 2}, true, ""},
		{"nothing refined", DraftContext{DocumentID: "d1", IsDraft: true}, false, CodeNothingToCommit},
		{"not a draft", DraftContext{DocumentID: "v1", Refined: 1}, false, CodeNotDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanCommit(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if result.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", result.Code, tt.wantCode)
			}
			if !tt.wantAllowed && !errors.Is(result.Err(), domain.ErrInvalidState) {
				t.Errorf("Err() = %v, want ErrInvalidState", result.Err())
			}
		})
	}
}

func TestCanRefineAndDiscard(t *testing.T) {
	if !CanRefine(DraftContext{IsDraft: true}).Allowed {
		t.Error("refine should be allowed on drafts")
	}
	if CanRefine(DraftContext{DocumentID: "v1"}).Allowed {
		t.Error("refine should be denied on non-drafts")
	}
	if !CanDiscard(DraftContext{IsDraft: true}).Allowed {
		t.Error("discard should be allowed on drafts")
	}
	if got := CanDiscard(DraftContext{DocumentID: "v1"}); got.Allowed || got.Code != CodeNotDraft {
		t.Errorf("discard on non-draft = %+v", got)
	}
}

func TestCanSetActive(t *testing.T) {
	tests := []struct {
		name        string
		ctx         VersionContext
		wantAllowed bool
		wantCode    string
	}{
		{"historical version", VersionContext{DocumentID: "v1"}, true, ""},
		{"draft", VersionContext{DocumentID: "d1", IsDraft: true}, false, CodeIsDraft},
		{"already active", VersionContext{DocumentID: "v2", IsActive: true}, false, CodeAlreadyActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanSetActive(tt.ctx)
			if result.Allowed != tt.wantAllowed || result.Code != tt.wantCode {
				t.Errorf("got %+v, want allowed=%v code=%q", result, tt.wantAllowed, tt.wantCode)
			}
		})
	}
}

func TestCanDelete(t *testing.T) {
	tests := []struct {
		name        string
		ctx         VersionContext
		wantAllowed bool
	}{
		{"historical", VersionContext{DocumentID: "v1"}, true},
		{"draft", VersionContext{DocumentID: "d1", IsDraft: true}, true},
		{"active unconfirmed", VersionContext{DocumentID: "v2", IsActive: true}, false},
		{"active confirmed", VersionContext{DocumentID: "v2", IsActive: true, Confirmed: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanDelete(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed && result.Code != CodeConfirmRequired {
				t.Errorf("Code = %q, want %q", result.Code, CodeConfirmRequired)
			}
		})
	}
}
