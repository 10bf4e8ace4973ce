package versions

import (
	"context"
	"fmt"

	"lifeplan/internal/core/lifecycle"
	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/services"
)

// Create stores a new document. With a parent it joins the parent's lineage;
// it becomes active only when the lineage has no active version yet.
func (s *Service) Create(ctx context.Context, actorID string, req *services.CreateDocumentRequest) (*models.Document, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, invalid(err)
	}

	now := s.timestamp()
	doc := &models.Document{
		Kind:              req.Kind,
		OwnerID:           actorID,
		HouseholdID:       req.HouseholdID,
		IsDraft:           req.IsDraft,
		Title:             req.Title,
		VersionNotes:      req.VersionNotes,
		Fields:            req.Fields.Clone(),
		RefinedCategories: []models.FieldKey{},
		Recordings:        []models.Recording{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if doc.Fields == nil {
		doc.Fields = models.Fields{}
	}

	if req.ParentID != nil {
		parent, err := s.load(ctx, actorID, *req.ParentID, false)
		if err != nil {
			return nil, err
		}
		if parent.Kind != req.Kind {
			return nil, fmt.Errorf("%w: parent %s is a %s, not a %s", domain.ErrValidation, parent.ID, parent.Kind, req.Kind)
		}
		if req.HouseholdID != nil && !sameHousehold(req.HouseholdID, parent.HouseholdID) {
			return nil, fmt.Errorf("%w: household_id must match the parent's household", domain.ErrValidation)
		}
		doc.ParentID = &parent.ID
		doc.LineageID = parent.LineageID
		doc.HouseholdID = parent.HouseholdID
	}

	if doc.HouseholdID != nil {
		if _, err := s.authorizer.CanUseHousehold(ctx, actorID, *doc.HouseholdID); err != nil {
			return nil, err
		}
	}

	if doc.ParentID == nil {
		// New lineage root: nothing to coordinate with
		doc.IsActive = !doc.IsDraft
		if err := s.docRepo.Create(ctx, doc); err != nil {
			return nil, err
		}
	} else {
		err := s.inLineage(ctx, doc.LineageID, func(ctx context.Context) error {
			if doc.IsDraft {
				existing, err := s.docRepo.GetDraft(ctx, actorID, doc.LineageID)
				if err != nil {
					return err
				}
				if existing != nil {
					return lifecycle.CanCreateDraft(lifecycle.CreateDraftContext{
						SourceID:        *doc.ParentID,
						ExistingDraftID: existing.ID,
					}).Err()
				}
			} else {
				active, err := s.docRepo.GetActiveByLineage(ctx, doc.LineageID)
				if err != nil {
					return err
				}
				doc.IsActive = active == nil
			}
			return s.docRepo.Create(ctx, doc)
		})
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"kind", doc.Kind,
		"owner_id", actorID,
		"lineage_id", doc.LineageID,
		"is_draft", doc.IsDraft,
		"is_active", doc.IsActive,
	)

	return s.decorate(ctx, doc)
}

func sameHousehold(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Get retrieves a document the actor can read
func (s *Service) Get(ctx context.Context, actorID, id string) (*models.Document, error) {
	doc, err := s.load(ctx, actorID, id, false)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, doc)
}

// GetActive retrieves the actor's active personal document of a kind
func (s *Service) GetActive(ctx context.Context, actorID string, kind models.DocumentKind) (*models.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown document kind %q", domain.ErrValidation, kind)
	}
	doc, err := s.docRepo.GetActiveByOwner(ctx, actorID, kind)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, doc)
}

// Update merges a partial field patch into a document. On drafts every key
// whose value changes is marked refined.
func (s *Service) Update(ctx context.Context, actorID, id string, req *services.UpdateDocumentRequest) (*models.Document, error) {
	doc, err := s.load(ctx, actorID, id, true)
	if err != nil {
		return nil, err
	}
	if err := validateUpdateRequest(doc.Kind, req); err != nil {
		return nil, invalid(err)
	}

	if doc.Fields == nil {
		doc.Fields = models.Fields{}
	}
	changed := req.Fields.ApplyTo(doc.Fields)
	if doc.IsDraft {
		doc.MarkRefined(changed...)
	}
	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.VersionNotes != nil {
		doc.VersionNotes = *req.VersionNotes
	}
	doc.UpdatedAt = s.timestamp()

	if err := s.docRepo.Update(ctx, doc, req.ExpectedRevision); err != nil {
		return nil, err
	}

	s.logger.Info("document updated",
		"id", doc.ID,
		"actor_id", actorID,
		"changed_fields", changed,
		"revision", doc.Revision,
	)

	return s.decorate(ctx, doc)
}

// Delete removes a single version. The active version needs confirmation.
func (s *Service) Delete(ctx context.Context, actorID, id string, req *services.DeleteDocumentRequest) error {
	doc, err := s.load(ctx, actorID, id, true)
	if err != nil {
		return err
	}

	guard := lifecycle.CanDelete(lifecycle.VersionContext{
		DocumentID: doc.ID,
		IsDraft:    doc.IsDraft,
		IsActive:   doc.IsActive,
		Confirmed:  req != nil && req.ConfirmActive,
	})
	if err := guard.Err(); err != nil {
		return err
	}

	if err := s.docRepo.Delete(ctx, doc.ID); err != nil {
		return err
	}

	s.logger.Info("document deleted",
		"id", doc.ID,
		"actor_id", actorID,
		"was_active", doc.IsActive,
		"was_draft", doc.IsDraft,
	)
	return nil
}

// ListByOwner lists the actor's documents and those of their households
func (s *Service) ListByOwner(ctx context.Context, actorID string, req *services.ListDocumentsRequest) ([]models.Document, error) {
	if req == nil {
		req = &services.ListDocumentsRequest{}
	}
	if req.Kind != "" && !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown document kind %q", domain.ErrValidation, req.Kind)
	}

	householdIDs, err := s.householdRepo.ListHouseholdIDsForUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	docs, err := s.docRepo.ListByOwner(ctx, models.DocumentFilter{
		OwnerID:         actorID,
		HouseholdIDs:    householdIDs,
		Kind:            req.Kind,
		IncludeVersions: req.IncludeVersions,
	})
	if err != nil {
		return nil, err
	}

	if err := s.decorateAll(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}
