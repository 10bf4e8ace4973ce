package versions

import (
	"context"
	"fmt"

	"lifeplan/internal/core/merge"
	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/services"
)

// Merge combines two personal visions into a new household draft owned by
// the actor. The draft starts a new lineage and has every merged key marked
// refined so it can be committed directly.
func (s *Service) Merge(ctx context.Context, actorID string, req *services.MergeRequest) (*models.Document, error) {
	if err := validateMergeRequest(req); err != nil {
		return nil, invalid(err)
	}

	if _, err := s.authorizer.CanUseHousehold(ctx, actorID, req.HouseholdID); err != nil {
		return nil, err
	}

	a, err := s.docRepo.GetByID(ctx, req.VersionA)
	if err != nil {
		return nil, err
	}
	b, err := s.docRepo.GetByID(ctx, req.VersionB)
	if err != nil {
		return nil, err
	}

	if err := merge.CanMerge(a, b).Err(); err != nil {
		return nil, err
	}

	for _, src := range []*models.Document{a, b} {
		if _, err := s.authorizer.CanUseHousehold(ctx, src.OwnerID, req.HouseholdID); err != nil {
			return nil, fmt.Errorf("owner of version %s is not an active member: %w", src.ID, domain.ErrForbidden)
		}
	}

	names, err := s.memberNames(ctx, req.HouseholdID)
	if err != nil {
		return nil, err
	}

	fields, keys := merge.Combine(
		merge.Source{OwnerName: displayName(names, a.OwnerID), Fields: a.Fields},
		merge.Source{OwnerName: displayName(names, b.OwnerID), Fields: b.Fields},
	)

	title := req.Title
	if title == "" {
		title = a.Title
	}

	now := s.timestamp()
	householdID := req.HouseholdID
	doc := &models.Document{
		Kind:              a.Kind,
		OwnerID:           actorID,
		HouseholdID:       &householdID,
		IsDraft:           true,
		Title:             title,
		Fields:            fields,
		RefinedCategories: keys,
		Recordings:        []models.Recording{},
		SourceVisions:     []string{a.ID, b.ID},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("visions merged",
		"id", doc.ID,
		"household_id", householdID,
		"version_a", a.ID,
		"version_b", b.ID,
		"merged_fields", len(keys),
		"actor_id", actorID,
	)

	return s.decorate(ctx, doc)
}

// ConvertToHousehold copies one personal version into a new household draft.
// The source is left untouched.
func (s *Service) ConvertToHousehold(ctx context.Context, actorID string, req *services.ConvertToHouseholdRequest) (*models.Document, error) {
	if err := validateConvertRequest(req); err != nil {
		return nil, invalid(err)
	}

	source, err := s.load(ctx, actorID, req.SourceID, false)
	if err != nil {
		return nil, err
	}
	if err := merge.CanConvert(source).Err(); err != nil {
		return nil, err
	}
	if _, err := s.authorizer.CanUseHousehold(ctx, actorID, req.HouseholdID); err != nil {
		return nil, err
	}

	fields := source.Fields.Clone()
	if fields == nil {
		fields = models.Fields{}
	}
	var refined []models.FieldKey
	for _, k := range fields.Keys() {
		spec, _ := models.LookupField(k)
		if fields[k].IsPresent(spec.RequiredAttr) {
			refined = append(refined, k)
		}
	}
	if refined == nil {
		refined = []models.FieldKey{}
	}

	now := s.timestamp()
	householdID := req.HouseholdID
	doc := &models.Document{
		Kind:              source.Kind,
		OwnerID:           actorID,
		HouseholdID:       &householdID,
		IsDraft:           true,
		Title:             source.Title,
		Fields:            fields,
		RefinedCategories: refined,
		Recordings:        []models.Recording{},
		SourceVisions:     []string{source.ID},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("version converted to household",
		"id", doc.ID,
		"source_id", source.ID,
		"household_id", householdID,
		"actor_id", actorID,
	)

	return s.decorate(ctx, doc)
}

func (s *Service) memberNames(ctx context.Context, householdID string) (map[string]string, error) {
	members, err := s.householdRepo.ListMembers(ctx, householdID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.UserID] = m.DisplayName
	}
	return names, nil
}

// displayName falls back to the user id when the member has no display name
func displayName(names map[string]string, userID string) string {
	if name := names[userID]; name != "" {
		return name
	}
	return userID
}
