// Package lifecycle contains the pure rules of the draft lifecycle.
// Guards evaluate preconditions without side effects; services load the
// context, run the guard and only then mutate.
package lifecycle

import (
	"fmt"

	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
)

// State of a document within its lineage's draft lifecycle
type State string

const (
	StateNoDraft         State = "no_draft"
	StateDraftInProgress State = "draft_in_progress"
	StateCommitting      State = "committing"
	StateCommitted       State = "committed"
)

// Guard failure codes, surfaced as InvalidStateError.Code
const (
	CodeNotDraft        = "not_draft"
	CodeSourceIsDraft   = "source_is_draft"
	CodeIsDraft         = "is_draft"
	CodeNothingToCommit = "nothing_to_commit"
	CodeAlreadyActive   = "already_active"
	CodeConfirmRequired = "confirm_required"
	CodeDraftExists     = "draft_exists"
)

// StateOf derives the lifecycle state from a document's flags. A nil document
// means the lineage has no draft. Committing is never derived; it only exists
// while a commit holds the lineage lock.
func StateOf(doc *models.Document) State {
	switch {
	case doc == nil:
		return StateNoDraft
	case doc.IsDraft:
		return StateDraftInProgress
	default:
		return StateCommitted
	}
}

// GuardResult represents the outcome of a guard evaluation
type GuardResult struct {
	Allowed bool
	Code    string
	Reason  string
	// ExistingID is set when the guard failed because of another document
	ExistingID string
}

// Err converts a denied result to a typed domain error, nil when allowed
func (r GuardResult) Err() error {
	if r.Allowed {
		return nil
	}
	if r.Code == CodeDraftExists {
		return &domain.ConflictError{
			Message:      r.Reason,
			ResourceType: "draft",
			ResourceID:   r.ExistingID,
		}
	}
	return domain.NewInvalidState(r.Code, r.Reason)
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(code, format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// CreateDraftContext provides context for draft creation
type CreateDraftContext struct {
	SourceID      string
	SourceIsDraft bool
	// ExistingDraftID is the owner's current draft in the lineage, if any
	ExistingDraftID string
	Replace         bool
}

// CanCreateDraft evaluates whether a draft can be derived from the source.
// Rules:
// - Source must not itself be a draft
// - Only one draft per owner and lineage, unless Replace is requested
func CanCreateDraft(ctx CreateDraftContext) GuardResult {
	if ctx.SourceIsDraft {
		return deny(CodeSourceIsDraft, "version %s is a draft; drafts cannot be copied into a new draft", ctx.SourceID)
	}
	if ctx.ExistingDraftID != "" && !ctx.Replace {
		r := deny(CodeDraftExists, "a draft already exists for this lineage (%s)", ctx.ExistingDraftID)
		r.ExistingID = ctx.ExistingDraftID
		return r
	}
	return allow()
}

// DraftContext describes a draft-scoped operation target
type DraftContext struct {
	DocumentID string
	IsDraft    bool
	Refined    int
}

// CanRefine evaluates whether a category can be refined.
// A non-draft target is not an error; callers treat it as a no-op.
func CanRefine(ctx DraftContext) GuardResult {
	if !ctx.IsDraft {
		return deny(CodeNotDraft, "document %s is not a draft", ctx.DocumentID)
	}
	return allow()
}

// CanCommit evaluates whether a draft can be committed.
// Rules:
// - Target must be a draft
// - At least one category must have been refined
func CanCommit(ctx DraftContext) GuardResult {
	if !ctx.IsDraft {
		return deny(CodeNotDraft, "document %s is not a draft", ctx.DocumentID)
	}
	if ctx.Refined == 0 {
		return deny(CodeNothingToCommit, "draft %s has no refined categories to commit", ctx.DocumentID)
	}
	return allow()
}

// CanDiscard evaluates whether a document can be discarded as a draft
func CanDiscard(ctx DraftContext) GuardResult {
	if !ctx.IsDraft {
		return deny(CodeNotDraft, "document %s is not a draft", ctx.DocumentID)
	}
	return allow()
}

// VersionContext describes a committed-version operation target
type VersionContext struct {
	DocumentID string
	IsDraft    bool
	IsActive   bool
	Confirmed  bool
}

// CanSetActive evaluates whether a version can be restored as active.
// Drafts must go through commit instead.
func CanSetActive(ctx VersionContext) GuardResult {
	if ctx.IsDraft {
		return deny(CodeIsDraft, "version %s is a draft; commit it instead", ctx.DocumentID)
	}
	if ctx.IsActive {
		return deny(CodeAlreadyActive, "version %s is already active", ctx.DocumentID)
	}
	return allow()
}

// CanDelete evaluates whether a version can be deleted.
// Deleting the active version needs explicit confirmation.
func CanDelete(ctx VersionContext) GuardResult {
	if ctx.IsActive && !ctx.Confirmed {
		return deny(CodeConfirmRequired, "version %s is active; deleting it requires confirmation", ctx.DocumentID)
	}
	return allow()
}
