package versions

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"lifeplan/internal/core/lifecycle"
	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/services"
)

// CreateDraft copies a committed version into a new draft of the same lineage
func (s *Service) CreateDraft(ctx context.Context, actorID, sourceID string, req *services.CreateDraftRequest) (*models.Document, error) {
	if req == nil {
		req = &services.CreateDraftRequest{}
	}

	source, err := s.load(ctx, actorID, sourceID, false)
	if err != nil {
		return nil, err
	}

	var draft *models.Document
	err = s.inLineage(ctx, source.LineageID, func(ctx context.Context) error {
		existing, err := s.docRepo.GetDraft(ctx, actorID, source.LineageID)
		if err != nil {
			return err
		}

		guardCtx := lifecycle.CreateDraftContext{
			SourceID:      source.ID,
			SourceIsDraft: source.IsDraft,
			Replace:       req.Replace,
		}
		if existing != nil {
			guardCtx.ExistingDraftID = existing.ID
		}
		if err := lifecycle.CanCreateDraft(guardCtx).Err(); err != nil {
			return err
		}

		if existing != nil {
			if err := s.docRepo.Delete(ctx, existing.ID); err != nil {
				return fmt.Errorf("replace draft %s: %w", existing.ID, err)
			}
			s.logger.Info("draft replaced", "old_draft_id", existing.ID, "lineage_id", source.LineageID, "actor_id", actorID)
		}

		now := s.timestamp()
		draft = &models.Document{
			Kind:              source.Kind,
			OwnerID:           actorID,
			HouseholdID:       source.HouseholdID,
			ParentID:          &source.ID,
			LineageID:         source.LineageID,
			IsDraft:           true,
			Title:             source.Title,
			VersionNotes:      req.VersionNotes,
			Fields:            source.Fields.Clone(),
			RefinedCategories: []models.FieldKey{},
			Recordings:        slices.Clone(source.Recordings),
			SourceVisions:     slices.Clone(source.SourceVisions),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if draft.Fields == nil {
			draft.Fields = models.Fields{}
		}
		return s.docRepo.Create(ctx, draft)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("draft created",
		"id", draft.ID,
		"source_id", source.ID,
		"lineage_id", draft.LineageID,
		"actor_id", actorID,
	)

	return s.decorate(ctx, draft)
}

// RefineCategory sets one field on a draft and marks it refined. Refining a
// non-draft is ignored and the document is returned unchanged.
func (s *Service) RefineCategory(ctx context.Context, actorID, draftID string, key models.FieldKey, value *models.FieldValue) (*models.Document, error) {
	doc, err := s.load(ctx, actorID, draftID, true)
	if err != nil {
		return nil, err
	}

	guard := lifecycle.CanRefine(lifecycle.DraftContext{DocumentID: doc.ID, IsDraft: doc.IsDraft})
	if !guard.Allowed {
		s.logger.Warn("refine ignored", "id", doc.ID, "field", key, "reason", guard.Reason)
		return s.decorate(ctx, doc)
	}

	patch := models.FieldPatch{key: value}
	if err := patch.ValidateFor(doc.Kind); err != nil {
		return nil, invalid(err)
	}
	if value != nil {
		if err := validateTextLength(key, *value); err != nil {
			return nil, invalid(err)
		}
	}

	if doc.Fields == nil {
		doc.Fields = models.Fields{}
	}
	patch.ApplyTo(doc.Fields)
	doc.MarkRefined(key)
	doc.UpdatedAt = s.timestamp()

	if err := s.docRepo.Update(ctx, doc, nil); err != nil {
		return nil, err
	}

	s.logger.Info("category refined", "id", doc.ID, "field", key, "actor_id", actorID)
	return s.decorate(ctx, doc)
}

// SyncRefined recomputes a draft's refined categories as the fields that
// differ from the lineage's active version, or from the draft's parent when
// the lineage has none. Bookend keys outside every section keep their mark
// while they still differ.
func (s *Service) SyncRefined(ctx context.Context, actorID, draftID string) (*models.Document, error) {
	doc, err := s.load(ctx, actorID, draftID, true)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanRefine(lifecycle.DraftContext{DocumentID: doc.ID, IsDraft: doc.IsDraft}).Err(); err != nil {
		return nil, err
	}

	baseline, err := s.docRepo.GetActiveByLineage(ctx, doc.LineageID)
	if err != nil {
		return nil, err
	}
	if baseline == nil && doc.ParentID != nil {
		baseline, err = s.docRepo.GetByID(ctx, *doc.ParentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	var before models.Fields
	if baseline != nil {
		before = baseline.Fields
	}

	refined := changedFields(before, doc.Fields)
	for _, k := range doc.RefinedCategories {
		if spec, ok := models.LookupField(k); !ok || spec.Section != "" || slices.Contains(refined, k) {
			continue
		}
		if !before[k].Equal(doc.Fields[k]) {
			refined = append(refined, k)
		}
	}

	expected := doc.Revision
	doc.RefinedCategories = refined
	doc.UpdatedAt = s.timestamp()
	if err := s.docRepo.Update(ctx, doc, &expected); err != nil {
		return nil, err
	}

	s.logger.Info("refined categories synced", "id", doc.ID, "refined", refined, "actor_id", actorID)
	return s.decorate(ctx, doc)
}

// Commit promotes a refined draft to the active version of its lineage.
// Every other active version in the lineage is demoted in the same transaction.
func (s *Service) Commit(ctx context.Context, actorID, draftID string) (*models.Document, error) {
	doc, err := s.load(ctx, actorID, draftID, true)
	if err != nil {
		return nil, err
	}

	guard := lifecycle.CanCommit(lifecycle.DraftContext{
		DocumentID: doc.ID,
		IsDraft:    doc.IsDraft,
		Refined:    len(doc.RefinedCategories),
	})
	if err := guard.Err(); err != nil {
		return nil, err
	}

	var committed *models.Document
	err = s.inLineage(ctx, doc.LineageID, func(ctx context.Context) error {
		// Re-read under the lock; another request may have committed or discarded it
		current, err := s.docRepo.GetByID(ctx, doc.ID)
		if err != nil {
			return err
		}
		guard := lifecycle.CanCommit(lifecycle.DraftContext{
			DocumentID: current.ID,
			IsDraft:    current.IsDraft,
			Refined:    len(current.RefinedCategories),
		})
		if err := guard.Err(); err != nil {
			return err
		}

		if err := s.docRepo.DemoteActive(ctx, current.LineageID); err != nil {
			return err
		}

		current.IsDraft = false
		current.IsActive = true
		current.RefinedCategories = []models.FieldKey{}
		current.UpdatedAt = s.timestamp()
		if err := s.docRepo.Update(ctx, current, nil); err != nil {
			return err
		}
		committed = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("draft committed",
		"id", committed.ID,
		"lineage_id", committed.LineageID,
		"refined", doc.RefinedCategories,
		"actor_id", actorID,
	)

	return s.decorate(ctx, committed)
}

// DiscardDraft deletes a draft
func (s *Service) DiscardDraft(ctx context.Context, actorID, draftID string) error {
	doc, err := s.load(ctx, actorID, draftID, true)
	if err != nil {
		return err
	}

	err = s.inLineage(ctx, doc.LineageID, func(ctx context.Context) error {
		current, err := s.docRepo.GetByID(ctx, doc.ID)
		if err != nil {
			return err
		}
		if err := lifecycle.CanDiscard(lifecycle.DraftContext{DocumentID: current.ID, IsDraft: current.IsDraft}).Err(); err != nil {
			return err
		}
		return s.docRepo.Delete(ctx, current.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("draft discarded", "id", doc.ID, "lineage_id", doc.LineageID, "actor_id", actorID)
	return nil
}

// SetActive restores a historical version as the lineage's active version.
// Activating the version that is already active is a no-op.
func (s *Service) SetActive(ctx context.Context, actorID, versionID string) (*models.Document, error) {
	doc, err := s.load(ctx, actorID, versionID, true)
	if err != nil {
		return nil, err
	}

	var activated *models.Document
	err = s.inLineage(ctx, doc.LineageID, func(ctx context.Context) error {
		current, err := s.docRepo.GetByID(ctx, doc.ID)
		if err != nil {
			return err
		}

		guard := lifecycle.CanSetActive(lifecycle.VersionContext{
			DocumentID: current.ID,
			IsDraft:    current.IsDraft,
			IsActive:   current.IsActive,
		})
		if guard.Code == lifecycle.CodeAlreadyActive {
			activated = current
			return nil
		}
		if err := guard.Err(); err != nil {
			return err
		}

		if err := s.docRepo.DemoteActive(ctx, current.LineageID); err != nil {
			return err
		}
		current.IsActive = true
		current.UpdatedAt = s.timestamp()
		if err := s.docRepo.Update(ctx, current, nil); err != nil {
			return err
		}
		activated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("version activated", "id", activated.ID, "lineage_id", activated.LineageID, "actor_id", actorID)
	return s.decorate(ctx, activated)
}
