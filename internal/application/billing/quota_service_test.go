package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudpos/backend/internal/domain/billing"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newQuotaFixture(planCode string, branches, users int64) (*QuotaService, *MockSubscriptionRepository, *billing.Subscription) {
	tenantID := uuid.New()
	sub := billing.NewTrialSubscription(tenantID, planCode, 14, time.Now())
	subs := new(MockSubscriptionRepository)
	subs.On("FindByTenant", context.Background(), tenantID).Return(sub, nil)
	svc := NewQuotaService(subs, billing.NewPlanCatalog(nil),
		&branchCounter{count: branches}, &userCounter{count: users}, zap.NewNop())
	return svc, subs, sub
}

func TestQuotaService_EnsureCanAddBranch(t *testing.T) {
	ctx := context.Background()

	t.Run("starter allows one branch", func(t *testing.T) {
		svc, _, sub := newQuotaFixture(billing.PlanStarter, 1, 1)

		err := svc.EnsureCanAddBranch(ctx, sub.TenantID)

		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrPlanLimitReached))
		var limitErr *LimitExceededError
		require.True(t, errors.As(err, &limitErr))
		assert.Equal(t, ResourceBranches, limitErr.Resource)
		assert.Equal(t, int64(1), limitErr.Limit)
		assert.Equal(t, 402, limitErr.HTTPStatusCode())
	})

	t.Run("extra branches raise the limit", func(t *testing.T) {
		svc, _, sub := newQuotaFixture(billing.PlanStarter, 1, 1)
		sub.ExtraBranches = 2

		assert.NoError(t, svc.EnsureCanAddBranch(ctx, sub.TenantID))
	})
}

func TestQuotaService_EnsureCanAddUser(t *testing.T) {
	ctx := context.Background()

	svc, _, sub := newQuotaFixture(billing.PlanStarter, 1, 3)
	assert.ErrorIs(t, svc.EnsureCanAddUser(ctx, sub.TenantID), shared.ErrPlanLimitReached)

	svc, _, sub = newQuotaFixture(billing.PlanGrowth, 1, 3)
	assert.NoError(t, svc.EnsureCanAddUser(ctx, sub.TenantID))

	// enterprise has no user cap
	svc, _, sub = newQuotaFixture(billing.PlanEnterprise, 1, 500)
	assert.NoError(t, svc.EnsureCanAddUser(ctx, sub.TenantID))
}

func TestQuotaService_SMSQuotaAndWrites(t *testing.T) {
	ctx := context.Background()
	svc, subs, sub := newQuotaFixture(billing.PlanGrowth, 1, 1)

	quota, err := svc.SMSQuota(ctx, sub.TenantID)
	require.NoError(t, err)
	assert.Equal(t, 1000, quota)

	ok, err := svc.AllowsWrites(ctx, sub.TenantID)
	require.NoError(t, err)
	assert.True(t, ok)

	sub.Status = billing.StatusExpired
	ok, err = svc.AllowsWrites(ctx, sub.TenantID)
	require.NoError(t, err)
	assert.False(t, ok)

	unknown := uuid.New()
	subs.On("FindByTenant", ctx, unknown).Return(nil, shared.ErrNotFound)
	ok, err = svc.AllowsWrites(ctx, unknown)
	require.NoError(t, err)
	assert.False(t, ok)
}
