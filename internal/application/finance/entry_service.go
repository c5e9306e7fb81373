package finance

import (
	"context"
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/report"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PermViewReport guards the profit summary
const PermViewReport = "view:report"

// EntryService records expenses and non-sales income per branch and builds
// the profit summary
type EntryService struct {
	entries  finance.EntryRepository
	branches branch.Repository
	sales    report.Repository
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewEntryService creates a new EntryService. loc sets business-day boundaries.
func NewEntryService(entries finance.EntryRepository, branches branch.Repository, sales report.Repository, loc *time.Location, logger *zap.Logger) *EntryService {
	if loc == nil {
		loc = time.UTC
	}
	return &EntryService{
		entries:  entries,
		branches: branches,
		sales:    sales,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

func permission(action string, kind finance.EntryKind) string {
	return action + ":" + strings.ToLower(string(kind))
}

// Create records an expense or income for a branch
func (s *EntryService) Create(ctx context.Context, p *identity.Principal, kind finance.EntryKind, req EntryRequest) (*EntryResponse, error) {
	if err := p.Require(permission("create", kind), &req.BranchID); err != nil {
		return nil, err
	}
	if _, err := s.branches.FindByID(ctx, p.TenantID, req.BranchID); err != nil {
		return nil, err
	}
	e, err := finance.NewEntry(p.TenantID, req.BranchID, kind, entryInput(req), p.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("Finance entry recorded",
		zap.String("entry_id", e.ID.String()),
		zap.String("kind", string(kind)),
		zap.String("category", e.Category),
		zap.String("amount", e.Amount.StringFixed(2)))
	resp := ToEntryResponse(e)
	return &resp, nil
}

// Get returns one entry of the given kind
func (s *EntryService) Get(ctx context.Context, p *identity.Principal, kind finance.EntryKind, id uuid.UUID) (*EntryResponse, error) {
	e, err := s.load(ctx, p, kind, id, "view")
	if err != nil {
		return nil, err
	}
	resp := ToEntryResponse(e)
	return &resp, nil
}

// Update edits a recorded entry; it cannot move to another branch
func (s *EntryService) Update(ctx context.Context, p *identity.Principal, kind finance.EntryKind, id uuid.UUID, req EntryRequest) (*EntryResponse, error) {
	e, err := s.load(ctx, p, kind, id, "edit")
	if err != nil {
		return nil, err
	}
	if req.BranchID != e.BranchID {
		return nil, shared.ErrBranchMismatch
	}
	if err := e.Update(entryInput(req)); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, e); err != nil {
		return nil, err
	}
	resp := ToEntryResponse(e)
	return &resp, nil
}

// Cancel voids an entry; it stays listed but leaves the summary
func (s *EntryService) Cancel(ctx context.Context, p *identity.Principal, kind finance.EntryKind, id uuid.UUID, req CancelEntryRequest) (*EntryResponse, error) {
	e, err := s.load(ctx, p, kind, id, "edit")
	if err != nil {
		return nil, err
	}
	if err := e.Cancel(req.Reason); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info("Finance entry cancelled",
		zap.String("entry_id", e.ID.String()),
		zap.String("by", p.UserID.String()))
	resp := ToEntryResponse(e)
	return &resp, nil
}

// List pages through entries of one kind in the branches the principal can see
func (s *EntryService) List(ctx context.Context, p *identity.Principal, kind finance.EntryKind, f EntryListFilter) (shared.Paginated[EntryResponse], error) {
	scope, err := branchScope(p, permission("view", kind), f.BranchID)
	if err != nil {
		return shared.Paginated[EntryResponse]{}, err
	}
	filter := finance.EntryFilter{
		Filter: shared.Filter{
			Page:      f.Page,
			PageSize:  f.PageSize,
			OrderBy:   f.OrderBy,
			OrderDir:  f.OrderDir,
			Search:    strings.TrimSpace(f.Search),
			BranchIDs: scope,
			From:      f.From,
			To:        s.endOfDay(f.To),
		},
		Kind:     kind,
		Category: strings.TrimSpace(f.Category),
		Status:   finance.EntryStatus(f.Status),
	}
	filter.Normalize()

	entries, total, err := s.entries.FindAll(ctx, p.TenantID, filter)
	if err != nil {
		return shared.Paginated[EntryResponse]{}, err
	}
	items := make([]EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = ToEntryResponse(e)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Summary returns sales, other income, expenses and net for a period. With
// no dates it covers the current month to date.
func (s *EntryService) Summary(ctx context.Context, p *identity.Principal, f SummaryFilter) (*finance.Summary, error) {
	scope, err := branchScope(p, PermViewReport, f.BranchID)
	if err != nil {
		return nil, err
	}

	today := s.day(s.now())
	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.location)
	if f.From != nil {
		from = s.day(*f.From)
	}
	to := today.AddDate(0, 0, 1)
	if f.To != nil {
		to = s.day(*f.To).AddDate(0, 0, 1)
	}
	if !to.After(from) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "The end date must not be before the start date")
	}

	sales, err := s.sales.DailySales(ctx, report.Scope{TenantID: p.TenantID, BranchIDs: scope}, from, to)
	if err != nil {
		return nil, err
	}
	rows, err := s.entries.SumByCategory(ctx, p.TenantID, scope, from, to)
	if err != nil {
		return nil, err
	}
	summary := finance.NewSummary(from, to.AddDate(0, 0, -1), f.BranchID, sales.Net, rows)
	return &summary, nil
}

func (s *EntryService) load(ctx context.Context, p *identity.Principal, kind finance.EntryKind, id uuid.UUID, action string) (*finance.Entry, error) {
	e, err := s.entries.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	if e.Kind != kind {
		return nil, shared.ErrNotFound
	}
	if err := p.Require(permission(action, kind), &e.BranchID); err != nil {
		return nil, err
	}
	return e, nil
}

// day truncates t to midnight of its calendar date in the business timezone
func (s *EntryService) day(t time.Time) time.Time {
	y, m, d := t.In(s.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.location)
}

func (s *EntryService) endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	next := s.day(*t).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return &next
}

func entryInput(req EntryRequest) finance.EntryInput {
	return finance.EntryInput{
		Category:      req.Category,
		Amount:        req.Amount,
		Date:          req.Date,
		PaymentMethod: req.PaymentMethod,
		Reference:     req.Reference,
		Note:          req.Note,
	}
}

// branchScope narrows a listing to the branches perm covers. A nil result
// means every branch.
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
