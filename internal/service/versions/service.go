// Package versions implements the version store, draft lifecycle, household
// merge and recording ledger on top of the document repository.
package versions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lifeplan/internal/blobstore"
	"lifeplan/internal/core/lineage"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/repositories"
	"lifeplan/internal/domain/services"
	"lifeplan/internal/lock"
	"lifeplan/internal/scoring"
)

// Service implements VersionStore, DraftLifecycle, MergeEngine and RecordingLedger
type Service struct {
	docRepo       repositories.DocumentRepository
	householdRepo repositories.HouseholdRepository
	txManager     repositories.TransactionManager
	locker        lock.Locker
	authorizer    services.DocumentAuthorizer
	scores        *scoring.Registry
	blobs         blobstore.Store
	logger        *slog.Logger
	now           func() time.Time
}

// Dependencies groups what the service needs
type Dependencies struct {
	DocumentRepo  repositories.DocumentRepository
	HouseholdRepo repositories.HouseholdRepository
	TxManager     repositories.TransactionManager
	Locker        lock.Locker
	Authorizer    services.DocumentAuthorizer
	Scores        *scoring.Registry
	Blobs         blobstore.Store
	Logger        *slog.Logger
}

// NewService creates a new versions service
func NewService(deps Dependencies) *Service {
	return &Service{
		docRepo:       deps.DocumentRepo,
		householdRepo: deps.HouseholdRepo,
		txManager:     deps.TxManager,
		locker:        deps.Locker,
		authorizer:    deps.Authorizer,
		scores:        deps.Scores,
		blobs:         deps.Blobs,
		logger:        deps.Logger,
		now:           time.Now,
	}
}

var (
	_ services.VersionStore    = (*Service)(nil)
	_ services.DraftLifecycle  = (*Service)(nil)
	_ services.MergeEngine     = (*Service)(nil)
	_ services.RecordingLedger = (*Service)(nil)
)

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// load fetches a document and checks read or write access
func (s *Service) load(ctx context.Context, actorID, id string, write bool) (*models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	check := s.authorizer.CanRead
	if write {
		check = s.authorizer.CanWrite
	}
	if err := check(ctx, actorID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// inLineage runs fn under the lineage lock and inside one transaction
func (s *Service) inLineage(ctx context.Context, lineageID string, fn repositories.TxFn) error {
	release, err := s.locker.Acquire(ctx, lock.LineageKey(lineageID))
	if err != nil {
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("lineage lock release failed", "lineage_id", lineageID, "error", err)
		}
	}()

	return s.txManager.ExecTx(ctx, fn)
}

// lineageIndex loads parent links for the given lineages
func (s *Service) lineageIndex(ctx context.Context, lineageIDs []string) (lineage.Index, error) {
	links, err := s.docRepo.ListLineageLinks(ctx, lineageIDs)
	if err != nil {
		return nil, fmt.Errorf("load lineage: %w", err)
	}
	return lineage.NewIndex(links), nil
}

// decorate fills computed fields: version number and completion percent
func (s *Service) decorate(ctx context.Context, doc *models.Document) (*models.Document, error) {
	idx, err := s.lineageIndex(ctx, []string{doc.LineageID})
	if err != nil {
		return nil, err
	}
	doc.VersionNumber = lineage.VersionNumber(doc.ID, idx)
	doc.CompletionPercent = s.scores.Score(doc.Kind, doc.Fields)
	return doc, nil
}

func (s *Service) decorateAll(ctx context.Context, docs []models.Document) error {
	seen := make(map[string]bool)
	var lineageIDs []string
	for _, d := range docs {
		if !seen[d.LineageID] {
			seen[d.LineageID] = true
			lineageIDs = append(lineageIDs, d.LineageID)
		}
	}

	idx, err := s.lineageIndex(ctx, lineageIDs)
	if err != nil {
		return err
	}
	lineage.Apply(docs, idx)
	for i := range docs {
		docs[i].CompletionPercent = s.scores.Score(docs[i].Kind, docs[i].Fields)
	}
	return nil
}
