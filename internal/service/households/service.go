// Package households implements household creation and membership management.
package households

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"lifeplan/internal/config"
	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/repositories"
	"lifeplan/internal/domain/services"
)

// Service implements services.HouseholdService
type Service struct {
	repo       repositories.HouseholdRepository
	txManager  repositories.TransactionManager
	authorizer services.DocumentAuthorizer
	logger     *slog.Logger
}

// NewService creates a new household service
func NewService(
	repo repositories.HouseholdRepository,
	txManager repositories.TransactionManager,
	authorizer services.DocumentAuthorizer,
	logger *slog.Logger,
) services.HouseholdService {
	return &Service{
		repo:       repo,
		txManager:  txManager,
		authorizer: authorizer,
		logger:     logger,
	}
}

// Create creates a household and makes the actor its active admin
func (s *Service) Create(ctx context.Context, actorID string, req *services.CreateHouseholdRequest) (*models.Household, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxTitleLength)),
		validation.Field(&req.DisplayName, validation.Length(0, config.MaxTitleLength)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	household, err := repositories.InTx(ctx, s.txManager, func(ctx context.Context) (*models.Household, error) {
		h := &models.Household{
			Name:        req.Name,
			AdminUserID: actorID,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.repo.Create(ctx, h); err != nil {
			return nil, err
		}
		err := s.repo.AddMember(ctx, &models.HouseholdMember{
			HouseholdID: h.ID,
			UserID:      actorID,
			DisplayName: req.DisplayName,
			Role:        models.MemberRoleAdmin,
			Status:      models.MemberStatusActive,
			JoinedAt:    h.CreatedAt,
		})
		return h, err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("household created", "id", household.ID, "admin_user_id", actorID)
	return household, nil
}

// AddMember adds a member or updates an existing membership. Role defaults
// to member and status to active.
func (s *Service) AddMember(ctx context.Context, actorID, householdID string, req *services.AddMemberRequest) (*models.HouseholdMember, error) {
	if req.Role == "" {
		req.Role = models.MemberRoleMember
	}
	if req.Status == "" {
		req.Status = models.MemberStatusActive
	}
	err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.DisplayName, validation.Length(0, config.MaxTitleLength)),
		validation.Field(&req.Role, validation.In(models.MemberRoleAdmin, models.MemberRoleMember)),
		validation.Field(&req.Status, validation.In(models.MemberStatusPending, models.MemberStatusActive, models.MemberStatusRemoved)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	household, err := s.repo.GetByID(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if household.AdminUserID != actorID {
		return nil, fmt.Errorf("only the household admin can manage members: %w", domain.ErrForbidden)
	}
	if req.UserID == household.AdminUserID && req.Status != models.MemberStatusActive {
		return nil, fmt.Errorf("%w: the admin cannot leave the household", domain.ErrValidation)
	}

	member := &models.HouseholdMember{
		HouseholdID: householdID,
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Status:      req.Status,
		JoinedAt:    time.Now().UTC(),
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, err
	}

	s.logger.Info("household member saved",
		"household_id", householdID,
		"user_id", member.UserID,
		"role", member.Role,
		"status", member.Status,
		"actor_id", actorID,
	)
	return member, nil
}

// ListMembers lists the household's memberships for an active member
func (s *Service) ListMembers(ctx context.Context, actorID, householdID string) ([]models.HouseholdMember, error) {
	if _, err := s.authorizer.CanUseHousehold(ctx, actorID, householdID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, householdID)
}
