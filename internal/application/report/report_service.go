// Package report serves the dashboard read models.
package report

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/report"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PermViewReport grants the dashboard
	PermViewReport = "view:report"

	defaultTopLimit = 10
	maxTopLimit     = 100
	// default ranking window, in days including today
	defaultTopDays = 30
)

// ErrInvalidPeriod is returned when From is after To
var ErrInvalidPeriod = shared.NewDomainError("INVALID_PERIOD", "From must not be after To")

// ReportService answers dashboard queries with branch scoping
type ReportService struct {
	repo     report.Repository
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService creates a new ReportService. loc sets business-day boundaries.
func NewReportService(repo report.Repository, loc *time.Location, logger *zap.Logger) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		repo:     repo,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// DailySales summarises one business day
func (s *ReportService) DailySales(ctx context.Context, p *identity.Principal, filter DailySalesFilter) (*report.DailySales, error) {
	scope, err := s.scope(p, filter.BranchID)
	if err != nil {
		return nil, err
	}
	day := s.startOfDay(s.now())
	if filter.Day != nil {
		day = s.calendarDay(*filter.Day)
	}

	out, err := s.repo.DailySales(ctx, scope, day, day.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Error("Daily sales query failed",
			zap.String("tenant_id", p.TenantID.String()),
			zap.Error(err))
		return nil, err
	}
	out.Day = day.Format("2006-01-02")
	if out.ByMethod == nil {
		out.ByMethod = []report.PaymentBreakdown{}
	}
	return out, nil
}

// TopProducts ranks variants by quantity sold over [From, To]
func (s *ReportService) TopProducts(ctx context.Context, p *identity.Principal, filter TopProductsFilter) ([]report.TopProduct, error) {
	scope, err := s.scope(p, filter.BranchID)
	if err != nil {
		return nil, err
	}

	to := s.startOfDay(s.now())
	if filter.To != nil {
		to = s.calendarDay(*filter.To)
	}
	from := to.AddDate(0, 0, 1-defaultTopDays)
	if filter.From != nil {
		from = s.calendarDay(*filter.From)
	}
	if from.After(to) {
		return nil, ErrInvalidPeriod
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}

	rows, err := s.repo.TopProducts(ctx, scope, from, to.AddDate(0, 0, 1), limit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []report.TopProduct{}
	}
	return rows, nil
}

// StockValue values stock on hand at cost
func (s *ReportService) StockValue(ctx context.Context, p *identity.Principal, filter StockValueFilter) (*report.StockValue, error) {
	scope, err := s.scope(p, filter.BranchID)
	if err != nil {
		return nil, err
	}
	return s.repo.StockValue(ctx, scope)
}

// scope resolves the branches a principal may report on. view:report covers
// the tenant; view:report:branch-only only the home branch.
func (s *ReportService) scope(p *identity.Principal, branchID *uuid.UUID) (report.Scope, error) {
	scope := report.Scope{TenantID: p.TenantID}
	if branchID != nil {
		if err := p.Require(PermViewReport, branchID); err != nil {
			return scope, err
		}
		scope.BranchIDs = []uuid.UUID{*branchID}
		return scope, nil
	}
	all, branches := p.AllowedBranches(PermViewReport)
	if all {
		return scope, nil
	}
	if len(branches) == 0 {
		return scope, shared.ErrForbidden
	}
	scope.BranchIDs = branches
	return scope, nil
}

func (s *ReportService) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(s.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.location)
}

// calendarDay keeps the date as written; query dates arrive as UTC midnight
func (s *ReportService) calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.location)
}
