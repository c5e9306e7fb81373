package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cloudpos/backend/internal/domain/billing"
	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Limited resources
const (
	ResourceBranches = "branches"
	ResourceUsers    = "users"
)

// LimitExceededError is returned when adding a resource would pass the plan limit
type LimitExceededError struct {
	Resource string
	Current  int64
	Limit    int64
	PlanCode string
}

// Error implements the error interface
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("Plan %s allows %d %s (currently %d)", e.PlanCode, e.Limit, e.Resource, e.Current)
}

// Unwrap lets errors.Is match shared.ErrPlanLimitReached
func (e *LimitExceededError) Unwrap() error {
	return shared.ErrPlanLimitReached
}

// HTTPStatusCode returns 402 Payment Required: the fix is an upgrade
func (e *LimitExceededError) HTTPStatusCode() int {
	return http.StatusPaymentRequired
}

// QuotaService enforces plan limits: branches, users and the SMS allowance
type QuotaService struct {
	subscriptions billing.SubscriptionRepository
	plans         *billing.PlanCatalog
	branches      branch.Repository
	users         identity.UserRepository
	logger        *zap.Logger
}

// NewQuotaService creates a new QuotaService
func NewQuotaService(
	subscriptions billing.SubscriptionRepository,
	plans *billing.PlanCatalog,
	branches branch.Repository,
	users identity.UserRepository,
	logger *zap.Logger,
) *QuotaService {
	return &QuotaService{
		subscriptions: subscriptions,
		plans:         plans,
		branches:      branches,
		users:         users,
		logger:        logger,
	}
}

func (s *QuotaService) planOf(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, billing.Plan, error) {
	sub, err := s.subscriptions.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, billing.Plan{}, err
	}
	plan, err := s.plans.Get(sub.PlanCode)
	if err != nil {
		return nil, billing.Plan{}, err
	}
	return sub, plan, nil
}

// EnsureCanAddBranch fails when the tenant is at its branch allowance,
// including purchased extra branches
func (s *QuotaService) EnsureCanAddBranch(ctx context.Context, tenantID uuid.UUID) error {
	sub, plan, err := s.planOf(ctx, tenantID)
	if err != nil {
		return err
	}
	limit := sub.BranchLimit(plan)
	if limit == 0 {
		return nil
	}
	count, err := s.branches.Count(ctx, tenantID)
	if err != nil {
		return err
	}
	return s.check(tenantID, ResourceBranches, plan.Code, count, int64(limit))
}

// EnsureCanAddUser fails when the tenant is at its user allowance
func (s *QuotaService) EnsureCanAddUser(ctx context.Context, tenantID uuid.UUID) error {
	_, plan, err := s.planOf(ctx, tenantID)
	if err != nil {
		return err
	}
	if plan.MaxUsers == 0 {
		return nil
	}
	count, err := s.users.Count(ctx, tenantID)
	if err != nil {
		return err
	}
	return s.check(tenantID, ResourceUsers, plan.Code, count, int64(plan.MaxUsers))
}

func (s *QuotaService) check(tenantID uuid.UUID, resource, planCode string, current, limit int64) error {
	if current < limit {
		return nil
	}
	s.logger.Info("Plan limit reached",
		zap.String("tenant_id", tenantID.String()),
		zap.String("resource", resource),
		zap.Int64("current", current),
		zap.Int64("limit", limit))
	return &LimitExceededError{Resource: resource, Current: current, Limit: limit, PlanCode: planCode}
}

// SMSQuota returns the monthly SMS allowance of the tenant's plan
func (s *QuotaService) SMSQuota(ctx context.Context, tenantID uuid.UUID) (int, error) {
	_, plan, err := s.planOf(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return plan.SMSQuota, nil
}

// AllowsWrites reports whether the subscription keeps write endpoints open.
// Tenants without a subscription row are treated as lapsed.
func (s *QuotaService) AllowsWrites(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	sub, err := s.subscriptions.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return sub.AllowsWrites(), nil
}
