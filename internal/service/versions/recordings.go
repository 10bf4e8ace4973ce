package versions

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"lifeplan/internal/blobstore"
	"lifeplan/internal/config"
	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/services"
)

// AppendRecording adds a recording to the document's ledger.
//
// Purpose policy:
//   - quick: the blob is not kept; a supplied url is deleted and cleared
//   - audioOnly: the blob is kept and the transcript dropped
//   - transcriptOnly, withFile: kept as given
//
// A supplied url must be one of the actor's own uploads. The write is
// checked against the revision that was read, so concurrent ledger edits
// fail with a conflict instead of losing entries.
func (s *Service) AppendRecording(ctx context.Context, actorID, docID string, req *services.AppendRecordingRequest) (*models.Document, error) {
	doc, err := s.load(ctx, actorID, docID, true)
	if err != nil {
		return nil, err
	}
	if err := validateAppendRequest(doc.Kind, req); err != nil {
		return nil, invalid(err)
	}
	if len(doc.Recordings) >= config.MaxRecordingsPerDocument {
		return nil, fmt.Errorf("%w: document already has %d recordings", domain.ErrValidation, len(doc.Recordings))
	}

	rec := req.Recording
	if rec.URL != "" {
		if err := s.checkUploadOwner(rec.URL, actorID); err != nil {
			return nil, err
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.timestamp()
	}

	switch req.Purpose {
	case models.PurposeQuick:
		if rec.URL != "" {
			if err := s.blobs.Delete(ctx, rec.URL); err != nil {
				// The transcript is what the user asked to keep
				s.logger.Warn("quick recording blob not deleted", "url", rec.URL, "error", err)
			}
			rec.URL = ""
		}
	case models.PurposeAudioOnly:
		rec.Transcript = ""
	}

	expected := doc.Revision
	doc.Recordings = append(doc.Recordings, rec)
	if req.TargetField != "" {
		if doc.Fields == nil {
			doc.Fields = models.Fields{}
		}
		doc.Fields[req.TargetField] = models.TextValue(req.TargetValue)
		if doc.IsDraft {
			doc.MarkRefined(req.TargetField)
		}
	}
	doc.UpdatedAt = s.timestamp()

	if err := s.docRepo.Update(ctx, doc, &expected); err != nil {
		return nil, err
	}

	s.logger.Info("recording appended",
		"id", doc.ID,
		"category", rec.Category,
		"purpose", req.Purpose,
		"has_blob", rec.URL != "",
		"actor_id", actorID,
	)

	return s.decorate(ctx, doc)
}

// RemoveRecording deletes a recording's blob and then its ledger entry. If
// the blob cannot be deleted the ledger is left unchanged. A blob still
// listed by another version of the lineage is kept.
func (s *Service) RemoveRecording(ctx context.Context, actorID, docID string, req *services.RemoveRecordingRequest) (*models.Document, error) {
	doc, err := s.load(ctx, actorID, docID, true)
	if err != nil {
		return nil, err
	}

	selector, err := resolveRecording(doc.Recordings, req)
	if err != nil {
		return nil, err
	}
	pos := slices.IndexFunc(doc.Recordings, selector.SameAs)
	if pos < 0 {
		return nil, fmt.Errorf("recording in document %s: %w", doc.ID, domain.ErrNotFound)
	}
	target := doc.Recordings[pos]

	if target.URL != "" {
		shared, err := s.blobShared(ctx, doc, target.URL)
		if err != nil {
			return nil, err
		}
		if shared {
			s.logger.Debug("recording blob kept, still referenced", "id", doc.ID, "url", target.URL)
		} else if err := s.blobs.Delete(ctx, target.URL); err != nil {
			return nil, fmt.Errorf("delete recording blob: %w", err)
		}
	}

	expected := doc.Revision
	doc.Recordings = slices.Delete(doc.Recordings, pos, pos+1)
	doc.UpdatedAt = s.timestamp()

	if err := s.docRepo.Update(ctx, doc, &expected); err != nil {
		return nil, err
	}

	s.logger.Info("recording removed",
		"id", doc.ID,
		"category", target.Category,
		"url", target.URL,
		"actor_id", actorID,
	)

	return s.decorate(ctx, doc)
}

// checkUploadOwner rejects a url unless it names one of ownerID's uploads
func (s *Service) checkUploadOwner(publicURL, ownerID string) error {
	key, err := s.blobs.KeyFromURL(publicURL)
	if err != nil {
		return err
	}
	if owner, ok := blobstore.OwnerOf(key); !ok || owner != ownerID {
		return fmt.Errorf("%w: recording url is not an upload of user %s", domain.ErrForbidden, ownerID)
	}
	return nil
}

// blobShared reports whether another version in doc's lineage lists url.
// Drafts copy their source's ledger, so versions share blobs.
func (s *Service) blobShared(ctx context.Context, doc *models.Document, url string) (bool, error) {
	links, err := s.docRepo.ListLineageLinks(ctx, []string{doc.LineageID})
	if err != nil {
		return false, fmt.Errorf("load lineage: %w", err)
	}
	for _, l := range links {
		if l.ID == doc.ID {
			continue
		}
		other, err := s.docRepo.GetByID(ctx, l.ID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if slices.ContainsFunc(other.Recordings, func(r models.Recording) bool { return r.URL == url }) {
			return true, nil
		}
	}
	return false, nil
}

// resolveRecording turns a category-scoped index or an explicit identity
// into the (url, created_at) identity of a ledger entry
func resolveRecording(recordings []models.Recording, req *services.RemoveRecordingRequest) (models.Recording, error) {
	if req == nil {
		return models.Recording{}, fmt.Errorf("%w: recording selector is required", domain.ErrValidation)
	}

	if req.Index != nil {
		var scoped []models.Recording
		for _, r := range recordings {
			if r.Category == req.Category {
				scoped = append(scoped, r)
			}
		}
		i := *req.Index
		if i < 0 || i >= len(scoped) {
			return models.Recording{}, fmt.Errorf("recording %d in category %q: %w", i, req.Category, domain.ErrNotFound)
		}
		return scoped[i], nil
	}

	if req.URL == "" && req.CreatedAt.IsZero() {
		return models.Recording{}, fmt.Errorf("%w: either index or url and created_at is required", domain.ErrValidation)
	}
	return models.Recording{URL: req.URL, CreatedAt: req.CreatedAt}, nil
}
