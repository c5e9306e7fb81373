package billing

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus is the state of a tenant subscription
type SubscriptionStatus string

const (
	StatusTrial     SubscriptionStatus = "TRIAL"
	StatusActive    SubscriptionStatus = "ACTIVE"
	StatusPastDue   SubscriptionStatus = "PAST_DUE"
	StatusCancelled SubscriptionStatus = "CANCELLED"
	StatusExpired   SubscriptionStatus = "EXPIRED"
)

// Subscription is the single plan subscription of a tenant
type Subscription struct {
	shared.TenantAggregateRoot
	PlanCode           string
	Cycle              Cycle
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	TrialEndsAt        *time.Time
	ExtraBranches      int
	CancelAtPeriodEnd  bool
	LastPaidAmount     decimal.Decimal
}

// NewTrialSubscription starts a trial on planCode
func NewTrialSubscription(tenantID uuid.UUID, planCode string, trialDays int, now time.Time) *Subscription {
	end := now.AddDate(0, 0, trialDays)
	s := &Subscription{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PlanCode:            planCode,
		Cycle:               CycleMonthly,
		Status:              StatusTrial,
		CurrentPeriodStart:  now,
		CurrentPeriodEnd:    end,
		TrialEndsAt:         &end,
		LastPaidAmount:      decimal.Zero,
	}
	return s
}

// AllowsWrites reports whether write endpoints stay open. CANCELLED is only
// reached once no paid period is left (Cancel on ACTIVE waits for the period
// end), so it locks writes the same way EXPIRED does.
func (s *Subscription) AllowsWrites() bool {
	return s.Status != StatusExpired && s.Status != StatusCancelled
}

// BranchLimit returns the branch allowance including purchased extras; 0 is unlimited
func (s *Subscription) BranchLimit(p Plan) int {
	if p.MaxBranches == 0 {
		return 0
	}
	return p.MaxBranches + s.ExtraBranches
}

// ProrationCredit values the unused part of the current paid period
func (s *Subscription) ProrationCredit(now time.Time) decimal.Decimal {
	if s.Status != StatusActive || !s.LastPaidAmount.IsPositive() {
		return decimal.Zero
	}
	total := daysBetween(s.CurrentPeriodStart, s.CurrentPeriodEnd)
	remaining := daysBetween(now, s.CurrentPeriodEnd)
	return valueobject.LKRAmount(s.LastPaidAmount).Prorate(remaining, total).Amount()
}

func daysBetween(a, b time.Time) int {
	if !b.After(a) {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

// ApplyPaidInvoice activates or extends the subscription from a paid invoice.
// Renewals extend from the current period end; everything else starts now.
func (s *Subscription) ApplyPaidInvoice(inv *Invoice, now time.Time) {
	start := now
	if inv.Kind == InvoiceKindRenewal && s.Status == StatusActive && s.CurrentPeriodEnd.After(now) {
		start = s.CurrentPeriodEnd
	}
	s.PlanCode = inv.PlanCode
	s.Cycle = inv.Cycle
	s.ExtraBranches = inv.ExtraBranches
	s.Status = StatusActive
	s.CancelAtPeriodEnd = false
	s.TrialEndsAt = nil
	s.CurrentPeriodStart = start
	s.CurrentPeriodEnd = start.AddDate(0, inv.Cycle.Months(), 0)
	s.LastPaidAmount = inv.Total
	s.Touch()
	s.IncrementVersion()
	s.AddDomainEvent(NewSubscriptionChangedEvent(s))
}

// Cancel stops renewal. Paid-up subscriptions run to period end; others end now.
func (s *Subscription) Cancel(now time.Time) error {
	switch s.Status {
	case StatusCancelled:
		return shared.NewDomainError("ALREADY_CANCELLED", "Subscription is already cancelled")
	case StatusActive:
		s.CancelAtPeriodEnd = true
	default:
		s.Status = StatusCancelled
		s.CurrentPeriodEnd = now
	}
	s.Touch()
	s.IncrementVersion()
	s.AddDomainEvent(NewSubscriptionChangedEvent(s))
	return nil
}

// Advance moves the state machine forward at now. Returns true when the status changed.
//
//	TRIAL    -> EXPIRED   trial ended unpaid
//	ACTIVE   -> CANCELLED period ended with CancelAtPeriodEnd
//	ACTIVE   -> PAST_DUE  period ended unpaid
//	PAST_DUE -> EXPIRED   grace elapsed
func (s *Subscription) Advance(now time.Time, graceDays int) bool {
	prev := s.Status
	switch s.Status {
	case StatusTrial:
		if s.TrialEndsAt != nil && !now.Before(*s.TrialEndsAt) {
			s.Status = StatusExpired
		}
	case StatusActive:
		if !now.Before(s.CurrentPeriodEnd) {
			if s.CancelAtPeriodEnd {
				s.Status = StatusCancelled
			} else {
				s.Status = StatusPastDue
			}
		}
	case StatusPastDue:
		if !now.Before(s.CurrentPeriodEnd.AddDate(0, 0, graceDays)) {
			s.Status = StatusExpired
		}
	}
	if s.Status == prev {
		return false
	}
	s.Touch()
	s.IncrementVersion()
	s.AddDomainEvent(NewSubscriptionChangedEvent(s))
	return true
}

// DueForRenewal reports whether a renewal invoice should be issued now
func (s *Subscription) DueForRenewal(now time.Time, lead time.Duration) bool {
	if s.CancelAtPeriodEnd {
		return false
	}
	switch s.Status {
	case StatusActive:
		return !now.Before(s.CurrentPeriodEnd.Add(-lead))
	case StatusPastDue:
		return true
	}
	return false
}
