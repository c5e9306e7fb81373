package billing

import (
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Cycle is the billing interval
type Cycle string

const (
	CycleMonthly Cycle = "MONTHLY"
	CycleAnnual  Cycle = "ANNUAL"
)

// IsValid checks the cycle value
func (c Cycle) IsValid() bool {
	return c == CycleMonthly || c == CycleAnnual
}

// Months returns the cycle length in months
func (c Cycle) Months() int {
	if c == CycleAnnual {
		return 12
	}
	return 1
}

// Plan codes seeded by default
const (
	PlanStarter    = "starter"
	PlanGrowth     = "growth"
	PlanEnterprise = "enterprise"
)

var ErrPlanNotFound = shared.NewDomainError("PLAN_NOT_FOUND", "Subscription plan not found")

// Plan is a subscription tier. Zero limits mean unlimited.
type Plan struct {
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	MonthlyPrice     decimal.Decimal `json:"monthly_price"`
	AnnualPrice      decimal.Decimal `json:"annual_price"`
	MaxBranches      int             `json:"max_branches"`
	MaxUsers         int             `json:"max_users"`
	SMSQuota         int             `json:"sms_quota"`
	ExtraBranchPrice decimal.Decimal `json:"extra_branch_price"`
}

// Quote is the price breakdown for a plan, cycle and extra branch count
type Quote struct {
	PlanCode      string          `json:"plan_code"`
	Cycle         Cycle           `json:"cycle"`
	ExtraBranches int             `json:"extra_branches"`
	Base          decimal.Decimal `json:"base"`
	Extras        decimal.Decimal `json:"extras"`
	Total         decimal.Decimal `json:"total"`
	Credit        decimal.Decimal `json:"credit"`
	Due           decimal.Decimal `json:"due"`
	Currency      string          `json:"currency"`
}

// NewQuote prices a plan:
// base = annual ? AnnualPrice : MonthlyPrice;
// extras = ExtraBranchPrice * extraBranches * months.
func NewQuote(p Plan, cycle Cycle, extraBranches int) (Quote, error) {
	if !cycle.IsValid() {
		return Quote{}, shared.NewDomainError("INVALID_CYCLE", "Billing cycle must be MONTHLY or ANNUAL")
	}
	if extraBranches < 0 {
		return Quote{}, shared.NewDomainError("INVALID_EXTRA_BRANCHES", "Extra branches cannot be negative")
	}
	base := p.MonthlyPrice
	if cycle == CycleAnnual {
		base = p.AnnualPrice
	}
	extras := p.ExtraBranchPrice.
		Mul(decimal.NewFromInt(int64(extraBranches))).
		Mul(decimal.NewFromInt(int64(cycle.Months())))
	total := base.Add(extras).Round(2)
	return Quote{
		PlanCode:      p.Code,
		Cycle:         cycle,
		ExtraBranches: extraBranches,
		Base:          base.Round(2),
		Extras:        extras.Round(2),
		Total:         total,
		Credit:        decimal.Zero,
		Due:           total,
		Currency:      string(valueobject.LKR),
	}, nil
}

// WithCredit applies a proration credit: due = max(0, total - credit)
func (q Quote) WithCredit(credit decimal.Decimal) Quote {
	q.Credit = credit.Round(2)
	q.Due = q.Total.Sub(q.Credit)
	if q.Due.IsNegative() {
		q.Due = decimal.Zero
	}
	return q
}

// DefaultPlans is the catalog used when config provides none
func DefaultPlans() []Plan {
	return []Plan{
		{
			Code: PlanStarter, Name: "Starter",
			MonthlyPrice: decimal.NewFromInt(2500), AnnualPrice: decimal.NewFromInt(25000),
			MaxBranches: 1, MaxUsers: 3, SMSQuota: 200,
			ExtraBranchPrice: decimal.NewFromInt(1500),
		},
		{
			Code: PlanGrowth, Name: "Growth",
			MonthlyPrice: decimal.NewFromInt(6500), AnnualPrice: decimal.NewFromInt(65000),
			MaxBranches: 3, MaxUsers: 15, SMSQuota: 1000,
			ExtraBranchPrice: decimal.NewFromInt(1200),
		},
		{
			Code: PlanEnterprise, Name: "Enterprise",
			MonthlyPrice: decimal.NewFromInt(15000), AnnualPrice: decimal.NewFromInt(150000),
			MaxBranches: 10, MaxUsers: 0, SMSQuota: 5000,
			ExtraBranchPrice: decimal.NewFromInt(1000),
		},
	}
}

// PlanCatalog looks plans up by code
type PlanCatalog struct {
	plans []Plan
	index map[string]int
}

// NewPlanCatalog builds a catalog; an empty list yields DefaultPlans
func NewPlanCatalog(plans []Plan) *PlanCatalog {
	if len(plans) == 0 {
		plans = DefaultPlans()
	}
	c := &PlanCatalog{plans: plans, index: make(map[string]int, len(plans))}
	for i, p := range plans {
		c.index[p.Code] = i
	}
	return c
}

// Get returns a plan by code
func (c *PlanCatalog) Get(code string) (Plan, error) {
	i, ok := c.index[code]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return c.plans[i], nil
}

// List returns every plan in configured order
func (c *PlanCatalog) List() []Plan {
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}
