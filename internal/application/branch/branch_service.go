package branch

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	PermViewBranch   = "view:branch"
	PermManageBranch = "manage:branch"
)

// BranchLimiter enforces the subscription branch allowance
type BranchLimiter interface {
	EnsureCanAddBranch(ctx context.Context, tenantID uuid.UUID) error
}

// PendingOrderCounter counts orders still waiting for a gateway payment
type PendingOrderCounter interface {
	CountPending(ctx context.Context, tenantID, branchID uuid.UUID) (int64, error)
}

// BranchService manages shop locations
type BranchService struct {
	repo      branch.Repository
	orders    PendingOrderCounter
	limiter   BranchLimiter
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewBranchService creates a new BranchService
func NewBranchService(
	repo branch.Repository,
	orders PendingOrderCounter,
	limiter BranchLimiter,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *BranchService {
	return &BranchService{
		repo:      repo,
		orders:    orders,
		limiter:   limiter,
		publisher: publisher,
		logger:    logger,
	}
}

// Create opens a branch within the plan's branch limit
func (s *BranchService) Create(ctx context.Context, p *identity.Principal, req CreateBranchRequest) (*BranchResponse, error) {
	if err := p.Require(PermManageBranch, nil); err != nil {
		return nil, err
	}
	if err := s.limiter.EnsureCanAddBranch(ctx, p.TenantID); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCode(ctx, p.TenantID, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("BRANCH_CODE_EXISTS", "Branch with this code already exists")
	}

	b, err := branch.NewBranch(p.TenantID, req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	if req.Address != "" || req.Phone != "" {
		if err := b.Update(req.Name, req.Address, req.Phone); err != nil {
			return nil, err
		}
	}
	b.SetCreatedBy(p.UserID)

	if err := s.repo.Save(ctx, b); err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, b); err != nil {
		s.logger.Warn("Failed to publish branch events", zap.Error(err))
	}
	s.logger.Info("Branch created", zap.String("branch_id", b.ID.String()), zap.String("code", b.Code))

	resp := ToBranchResponse(b)
	return &resp, nil
}

// Get returns one branch. Staff bound to a branch may read their own.
func (s *BranchService) Get(ctx context.Context, p *identity.Principal, id uuid.UUID) (*BranchResponse, error) {
	if !p.Can(PermViewBranch, &id) && !isHomeBranch(p, id) {
		return nil, shared.ErrForbidden
	}
	b, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToBranchResponse(b)
	return &resp, nil
}

// List returns the branches visible to the principal
func (s *BranchService) List(ctx context.Context, p *identity.Principal, filter shared.Filter) (shared.Paginated[BranchResponse], error) {
	filter.Normalize()
	if !p.Can(PermViewBranch, nil) {
		if p.BranchID == nil {
			return shared.Paginated[BranchResponse]{}, shared.ErrForbidden
		}
		b, err := s.repo.FindByID(ctx, p.TenantID, *p.BranchID)
		if err != nil {
			return shared.Paginated[BranchResponse]{}, err
		}
		return shared.NewPaginated([]BranchResponse{ToBranchResponse(b)}, 1, 1, filter.PageSize), nil
	}

	branches, total, err := s.repo.FindAll(ctx, p.TenantID, filter)
	if err != nil {
		return shared.Paginated[BranchResponse]{}, err
	}
	items := make([]BranchResponse, len(branches))
	for i, b := range branches {
		items[i] = ToBranchResponse(b)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update edits name and contact details
func (s *BranchService) Update(ctx context.Context, p *identity.Principal, id uuid.UUID, req UpdateBranchRequest) (*BranchResponse, error) {
	return s.mutate(ctx, p, id, func(b *branch.Branch) error {
		return b.Update(req.Name, req.Address, req.Phone)
	})
}

// Activate re-opens a branch, subject to the branch limit
func (s *BranchService) Activate(ctx context.Context, p *identity.Principal, id uuid.UUID) (*BranchResponse, error) {
	if err := p.Require(PermManageBranch, nil); err != nil {
		return nil, err
	}
	if err := s.limiter.EnsureCanAddBranch(ctx, p.TenantID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, p, id, (*branch.Branch).Activate)
}

// Deactivate closes a branch. Orders awaiting a gateway payment block it.
func (s *BranchService) Deactivate(ctx context.Context, p *identity.Principal, id uuid.UUID) (*BranchResponse, error) {
	return s.mutate(ctx, p, id, func(b *branch.Branch) error {
		pending, err := s.orders.CountPending(ctx, p.TenantID, b.ID)
		if err != nil {
			return err
		}
		return b.Deactivate(pending)
	})
}

func (s *BranchService) mutate(ctx context.Context, p *identity.Principal, id uuid.UUID, fn func(*branch.Branch) error) (*BranchResponse, error) {
	if err := p.Require(PermManageBranch, nil); err != nil {
		return nil, err
	}
	b, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, b); err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, b); err != nil {
		s.logger.Warn("Failed to publish branch events", zap.Error(err))
	}
	resp := ToBranchResponse(b)
	return &resp, nil
}

func isHomeBranch(p *identity.Principal, id uuid.UUID) bool {
	return p.BranchID != nil && *p.BranchID == id
}
