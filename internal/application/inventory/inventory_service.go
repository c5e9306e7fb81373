package inventory

import (
	"bytes"
	"context"
	"errors"
	"sort"

	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/inventory"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	PermViewStock     = "view:stock"
	PermEditStock     = "edit:stock"
	PermTransferStock = "transfer:stock"
)

var (
	ErrBranchInactive  = shared.NewDomainError("BRANCH_INACTIVE", "Branch is not active")
	ErrSameBranch      = shared.NewDomainError("SAME_BRANCH", "Source and destination branch must differ")
	ErrInvalidQuantity = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
)

// Options holds stock rules from configuration
type Options struct {
	AllowNegativeStock bool
}

// InventoryService handles stock levels and the movement ledger
type InventoryService struct {
	repo      inventory.Repository
	branches  branch.Repository
	products  catalog.ProductRepository
	tx        shared.TxManager
	publisher shared.EventPublisher
	opts      Options
	logger    *zap.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	repo inventory.Repository,
	branches branch.Repository,
	products catalog.ProductRepository,
	tx shared.TxManager,
	publisher shared.EventPublisher,
	opts Options,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		repo:      repo,
		branches:  branches,
		products:  products,
		tx:        tx,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// GetStock returns the stock row of a variant in a branch. A variant that has
// never been stocked reads as zero.
func (s *InventoryService) GetStock(ctx context.Context, p *identity.Principal, branchID, variantID uuid.UUID) (*StockItemResponse, error) {
	if err := p.Require(PermViewStock, &branchID); err != nil {
		return nil, err
	}
	view, err := s.variant(ctx, p.TenantID, variantID)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.Get(ctx, p.TenantID, branchID, variantID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if item, err = inventory.NewStockItem(p.TenantID, branchID, variantID); err != nil {
			return nil, err
		}
	}
	resp := ToStockItemResponse(item, view)
	return &resp, nil
}

// ListStock lists stock rows the principal can see
func (s *InventoryService) ListStock(ctx context.Context, p *identity.Principal, f StockListFilter) (shared.Paginated[StockItemResponse], error) {
	scope, err := branchScope(p, PermViewStock, f.BranchID)
	if err != nil {
		return shared.Paginated[StockItemResponse]{}, err
	}
	filter := inventory.StockFilter{
		Filter: shared.Filter{
			Page:      f.Page,
			PageSize:  f.PageSize,
			OrderBy:   f.OrderBy,
			OrderDir:  f.OrderDir,
			Search:    f.Search,
			BranchIDs: scope,
		},
		LowOnly: f.LowOnly,
	}
	filter.Normalize()

	items, total, err := s.repo.List(ctx, p.TenantID, filter)
	if err != nil {
		return shared.Paginated[StockItemResponse]{}, err
	}
	out, err := s.enrich(ctx, p.TenantID, items)
	if err != nil {
		return shared.Paginated[StockItemResponse]{}, err
	}
	return shared.NewPaginated(out, total, filter.Page, filter.PageSize), nil
}

// LowStock lists the items at or below their reorder level
func (s *InventoryService) LowStock(ctx context.Context, p *identity.Principal, branchID *uuid.UUID) ([]StockItemResponse, error) {
	page, err := s.ListStock(ctx, p, StockListFilter{BranchID: branchID, LowOnly: true, PageSize: 100, OrderBy: "quantity", OrderDir: "asc"})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Movements pages through the stock ledger
func (s *InventoryService) Movements(ctx context.Context, p *identity.Principal, f MovementListFilter) (shared.Paginated[MovementResponse], error) {
	scope, err := branchScope(p, PermViewStock, f.BranchID)
	if err != nil {
		return shared.Paginated[MovementResponse]{}, err
	}
	filter := inventory.MovementFilter{
		Filter: shared.Filter{
			Page:      f.Page,
			PageSize:  f.PageSize,
			Search:    f.Reference,
			BranchIDs: scope,
			From:      f.From,
			To:        f.To,
		},
		VariantID: f.VariantID,
		Type:      inventory.MovementType(f.Type),
	}
	filter.Normalize()

	rows, total, err := s.repo.ListMovements(ctx, p.TenantID, filter)
	if err != nil {
		return shared.Paginated[MovementResponse]{}, err
	}
	out := make([]MovementResponse, len(rows))
	for i, m := range rows {
		out[i] = ToMovementResponse(m)
	}
	return shared.NewPaginated(out, total, filter.Page, filter.PageSize), nil
}

// Adjust applies a manual correction. The result may not go negative.
func (s *InventoryService) Adjust(ctx context.Context, p *identity.Principal, req AdjustStockRequest) (*StockItemResponse, error) {
	if err := p.Require(PermEditStock, &req.BranchID); err != nil {
		return nil, err
	}
	view, err := s.variant(ctx, p.TenantID, req.VariantID)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeBranch(ctx, p.TenantID, req.BranchID); err != nil {
		return nil, err
	}

	var item *inventory.StockItem
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.repo.GetForUpdate(ctx, p.TenantID, req.BranchID, req.VariantID)
		if err != nil {
			return err
		}
		m, err := item.Adjust(req.Delta, req.Reason, &p.UserID)
		if err != nil {
			return err
		}
		return s.persist(ctx, item, m)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, item)

	s.logger.Info("Stock adjusted",
		zap.String("branch_id", req.BranchID.String()),
		zap.String("variant_id", req.VariantID.String()),
		zap.String("delta", req.Delta.String()),
		zap.String("balance", item.Quantity.String()))
	resp := ToStockItemResponse(item, view)
	return &resp, nil
}

// Transfer moves quantity from one active branch to another in one
// transaction
func (s *InventoryService) Transfer(ctx context.Context, p *identity.Principal, req TransferStockRequest) (*TransferResponse, error) {
	if err := p.Require(PermTransferStock, &req.FromBranchID); err != nil {
		return nil, err
	}
	if req.FromBranchID == req.ToBranchID {
		return nil, ErrSameBranch
	}
	if !req.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	view, err := s.variant(ctx, p.TenantID, req.VariantID)
	if err != nil {
		return nil, err
	}
	for _, id := range []uuid.UUID{req.FromBranchID, req.ToBranchID} {
		if _, err := s.activeBranch(ctx, p.TenantID, id); err != nil {
			return nil, err
		}
	}

	transferID := uuid.New()
	ref := "TRF-" + transferID.String()
	var from, to *inventory.StockItem
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// lock in a stable order so opposite transfers cannot deadlock
		first, second := req.FromBranchID, req.ToBranchID
		if bytes.Compare(first[:], second[:]) > 0 {
			first, second = second, first
		}
		locked := make(map[uuid.UUID]*inventory.StockItem, 2)
		for _, b := range []uuid.UUID{first, second} {
			item, err := s.repo.GetForUpdate(ctx, p.TenantID, b, req.VariantID)
			if err != nil {
				return err
			}
			locked[b] = item
		}
		from, to = locked[req.FromBranchID], locked[req.ToBranchID]

		out, err := from.Change(req.Quantity.Neg(), inventory.MovementTransferOut, ref, req.Note, &p.UserID, false)
		if err != nil {
			return err
		}
		in, err := to.Change(req.Quantity, inventory.MovementTransferIn, ref, req.Note, &p.UserID, false)
		if err != nil {
			return err
		}
		if err := s.persist(ctx, from, out); err != nil {
			return err
		}
		return s.persist(ctx, to, in)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, from, to)

	s.logger.Info("Stock transferred",
		zap.String("transfer_id", transferID.String()),
		zap.String("from", req.FromBranchID.String()),
		zap.String("to", req.ToBranchID.String()),
		zap.String("quantity", req.Quantity.String()))
	return &TransferResponse{
		TransferID: transferID,
		From:       ToStockItemResponse(from, view),
		To:         ToStockItemResponse(to, view),
	}, nil
}

// SetReorderLevel sets the low-stock threshold
func (s *InventoryService) SetReorderLevel(ctx context.Context, p *identity.Principal, req SetReorderLevelRequest) (*StockItemResponse, error) {
	if err := p.Require(PermEditStock, &req.BranchID); err != nil {
		return nil, err
	}
	view, err := s.variant(ctx, p.TenantID, req.VariantID)
	if err != nil {
		return nil, err
	}

	var item *inventory.StockItem
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.repo.GetForUpdate(ctx, p.TenantID, req.BranchID, req.VariantID)
		if err != nil {
			return err
		}
		if err := item.SetReorderLevel(req.ReorderLevel); err != nil {
			return err
		}
		return s.repo.Save(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	resp := ToStockItemResponse(item, view)
	return &resp, nil
}

// Deduct takes sold quantities out of a branch. It must run inside the
// caller's transaction; the returned events are published by the caller after
// commit.
func (s *InventoryService) Deduct(ctx context.Context, tenantID, branchID uuid.UUID, lines []inventory.Line, ref string, actor *uuid.UUID) ([]shared.DomainEvent, error) {
	return s.apply(ctx, tenantID, branchID, lines, func(item *inventory.StockItem, qty decimal.Decimal) (*inventory.StockMovement, error) {
		return item.Change(qty.Neg(), inventory.MovementSale, ref, "", actor, s.opts.AllowNegativeStock)
	})
}

// Restore puts quantities back after a void or an expired payment
func (s *InventoryService) Restore(ctx context.Context, tenantID, branchID uuid.UUID, lines []inventory.Line, ref, reason string, actor *uuid.UUID) ([]shared.DomainEvent, error) {
	return s.apply(ctx, tenantID, branchID, lines, func(item *inventory.StockItem, qty decimal.Decimal) (*inventory.StockMovement, error) {
		return item.Change(qty, inventory.MovementVoidRestore, ref, reason, actor, true)
	})
}

func (s *InventoryService) apply(
	ctx context.Context,
	tenantID, branchID uuid.UUID,
	lines []inventory.Line,
	change func(*inventory.StockItem, decimal.Decimal) (*inventory.StockMovement, error),
) ([]shared.DomainEvent, error) {
	merged := inventory.MergeLines(lines)
	sort.Slice(merged, func(i, j int) bool {
		return bytes.Compare(merged[i].VariantID[:], merged[j].VariantID[:]) < 0
	})

	var events []shared.DomainEvent
	for _, line := range merged {
		if !line.Quantity.IsPositive() {
			continue
		}
		item, err := s.repo.GetForUpdate(ctx, tenantID, branchID, line.VariantID)
		if err != nil {
			return nil, err
		}
		m, err := change(item, line.Quantity)
		if err != nil {
			if errors.Is(err, shared.ErrInsufficientStock) {
				return nil, shared.NewDomainError(shared.ErrInsufficientStock.Code,
					"Insufficient stock for variant "+line.VariantID.String())
			}
			return nil, err
		}
		if err := s.persist(ctx, item, m); err != nil {
			return nil, err
		}
		events = append(events, item.GetDomainEvents()...)
		item.ClearDomainEvents()
	}
	return events, nil
}

func (s *InventoryService) persist(ctx context.Context, item *inventory.StockItem, m *inventory.StockMovement) error {
	if err := s.repo.Save(ctx, item); err != nil {
		return err
	}
	m.StockItemID = item.ID
	return s.repo.SaveMovement(ctx, m)
}

func (s *InventoryService) publish(ctx context.Context, items ...*inventory.StockItem) {
	for _, item := range items {
		if err := shared.PublishAndClear(ctx, s.publisher, item); err != nil {
			s.logger.Warn("Failed to publish stock events", zap.Error(err))
		}
	}
}

func (s *InventoryService) variant(ctx context.Context, tenantID, variantID uuid.UUID) (*catalog.VariantView, error) {
	views, err := s.products.FindVariantsByIDs(ctx, tenantID, []uuid.UUID{variantID})
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, catalog.ErrVariantNotFound
	}
	return &views[0], nil
}

func (s *InventoryService) activeBranch(ctx context.Context, tenantID, branchID uuid.UUID) (*branch.Branch, error) {
	b, err := s.branches.FindByID(ctx, tenantID, branchID)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, ErrBranchInactive
	}
	return b, nil
}

func (s *InventoryService) enrich(ctx context.Context, tenantID uuid.UUID, items []*inventory.StockItem) ([]StockItemResponse, error) {
	out := make([]StockItemResponse, len(items))
	if len(items) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.VariantID
	}
	views, err := s.products.FindVariantsByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.VariantView, len(views))
	for i := range views {
		byID[views[i].ID] = &views[i]
	}
	for i, item := range items {
		out[i] = ToStockItemResponse(item, byID[item.VariantID])
	}
	return out, nil
}

// branchScope resolves the branch restriction for a list query. An explicit
// branch must be permitted; otherwise branch-bound principals are narrowed to
// their home branch.
func branchScope(p *identity.Principal, perm string, branchID *uuid.UUID) ([]uuid.UUID, error) {
	if branchID != nil {
		if err := p.Require(perm, branchID); err != nil {
			return nil, err
		}
		return []uuid.UUID{*branchID}, nil
	}
	all, branches := p.AllowedBranches(perm)
	if all {
		return nil, nil
	}
	if len(branches) == 0 {
		return nil, shared.ErrForbidden
	}
	return branches, nil
}
