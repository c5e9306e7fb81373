package business

import (
	"context"
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/billing"
	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	mainBranchCode = "MAIN"
	mainBranchName = "Main Branch"
)

// RoleSeeder creates the built-in roles of a new business
type RoleSeeder interface {
	SeedSystemRoles(ctx context.Context, tenantID uuid.UUID) (map[string]*identity.Role, error)
}

// RegistrationConfig holds the trial terms for new businesses
type RegistrationConfig struct {
	TrialDays   int
	DefaultPlan string
}

// RegistrationService signs up new businesses
type RegistrationService struct {
	tx            shared.TxManager
	businesses    business.Repository
	users         identity.UserRepository
	branches      branch.Repository
	subscriptions billing.SubscriptionRepository
	roles         RoleSeeder
	plans         *billing.PlanCatalog
	cfg           RegistrationConfig
	publisher     shared.EventPublisher
	logger        *zap.Logger
	now           func() time.Time
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	tx shared.TxManager,
	businesses business.Repository,
	users identity.UserRepository,
	branches branch.Repository,
	subscriptions billing.SubscriptionRepository,
	roles RoleSeeder,
	plans *billing.PlanCatalog,
	cfg RegistrationConfig,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		tx:            tx,
		businesses:    businesses,
		users:         users,
		branches:      branches,
		subscriptions: subscriptions,
		roles:         roles,
		plans:         plans,
		cfg:           cfg,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

// Register creates the business settings row, the system roles, the owner
// account, a main branch and a trial subscription in one transaction.
func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	planCode := strings.TrimSpace(req.PlanCode)
	if planCode == "" {
		planCode = s.cfg.DefaultPlan
	}
	if _, err := s.plans.Get(planCode); err != nil {
		return nil, err
	}

	tenantID := uuid.New()
	meta, err := business.NewMeta(tenantID, req.BusinessName, planCode)
	if err != nil {
		return nil, err
	}
	if req.Phone != "" || req.Email != "" {
		if err := meta.UpdateProfile(business.Profile{
			BusinessName: req.BusinessName,
			Phone:        req.Phone,
			Email:        req.Email,
		}); err != nil {
			return nil, err
		}
	}

	owner, err := identity.NewUser(tenantID, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	if err := owner.SetProfile(req.OwnerName, req.Email, req.Phone); err != nil {
		return nil, err
	}

	branchName := strings.TrimSpace(req.BranchName)
	if branchName == "" {
		branchName = mainBranchName
	}
	main, err := branch.NewBranch(tenantID, mainBranchCode, branchName)
	if err != nil {
		return nil, err
	}

	sub := billing.NewTrialSubscription(tenantID, planCode, s.cfg.TrialDays, s.now())

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.businesses.Save(ctx, meta); err != nil {
			return err
		}
		roles, err := s.roles.SeedSystemRoles(ctx, tenantID)
		if err != nil {
			return err
		}
		if err := owner.AssignRoles([]uuid.UUID{roles[identity.RoleOwner].ID}); err != nil {
			return err
		}
		if err := s.users.Save(ctx, owner); err != nil {
			return err
		}
		if err := s.branches.Save(ctx, main); err != nil {
			return err
		}
		return s.subscriptions.Save(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	meta.AddDomainEvent(business.NewRegisteredEvent(meta, req.Email))
	if err := shared.PublishAndClear(ctx, s.publisher, meta); err != nil {
		s.logger.Warn("Failed to publish registration event", zap.Error(err))
	}
	s.logger.Info("Business registered",
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan", planCode))

	return &RegisterResult{
		TenantID:    tenantID,
		OwnerID:     owner.ID,
		BranchID:    main.ID,
		PlanCode:    planCode,
		TrialEndsAt: sub.CurrentPeriodEnd,
	}, nil
}
