package versions

import (
	"context"
	"errors"
	"slices"

	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
)

// Changes diffs a document against its parent. Keys are grouped by life
// category; personal info and account-sourced fields are not tracked.
// A document whose parent is gone is compared against an empty document.
func (s *Service) Changes(ctx context.Context, actorID, id string) (*models.ChangeSummary, error) {
	doc, err := s.load(ctx, actorID, id, false)
	if err != nil {
		return nil, err
	}

	var before models.Fields
	if doc.ParentID != nil {
		parent, err := s.docRepo.GetByID(ctx, *doc.ParentID)
		switch {
		case err == nil:
			before = parent.Fields
		case errors.Is(err, domain.ErrNotFound):
			s.logger.Debug("parent missing, diffing against empty", "id", doc.ID, "parent_id", *doc.ParentID)
		default:
			return nil, err
		}
	}

	changed := changedFields(before, doc.Fields)
	return &models.ChangeSummary{
		DocumentID:    doc.ID,
		ParentID:      doc.ParentID,
		ChangedFields: changed,
		Sections:      groupBySection(changed),
	}, nil
}

// changedFields returns tracked keys whose presence or value differs.
// Blank values count as absent.
func changedFields(before, after models.Fields) []models.FieldKey {
	keys := make(map[models.FieldKey]bool)
	for k := range before {
		keys[k] = true
	}
	for k := range after {
		keys[k] = true
	}

	changed := []models.FieldKey{}
	for k := range keys {
		spec, ok := models.LookupField(k)
		if !ok || spec.Section == "" || spec.AccountSourced {
			continue
		}

		a, aok := before[k]
		b, bok := after[k]
		aPresent := aok && a.IsPresent(spec.RequiredAttr)
		bPresent := bok && b.IsPresent(spec.RequiredAttr)

		if aPresent != bPresent || (aPresent && !a.Equal(b)) {
			changed = append(changed, k)
		}
	}
	slices.Sort(changed)
	return changed
}

func groupBySection(keys []models.FieldKey) map[string][]models.FieldKey {
	sections := make(map[string][]models.FieldKey)
	for _, k := range keys {
		spec, _ := models.LookupField(k)
		sections[spec.Section] = append(sections[spec.Section], k)
	}
	return sections
}
