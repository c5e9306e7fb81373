package finance

import (
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind separates expenses from non-sales income
type EntryKind string

const (
	EntryKindExpense EntryKind = "EXPENSE"
	EntryKindIncome  EntryKind = "INCOME"
)

// EntryStatus is the lifecycle state of an expense or income record
type EntryStatus string

const (
	EntryStatusRecorded  EntryStatus = "RECORDED"
	EntryStatusCancelled EntryStatus = "CANCELLED"
)

// Entry is a manually recorded expense or income line for a branch
type Entry struct {
	shared.BranchAggregateRoot
	Kind          EntryKind
	Category      string
	Amount        decimal.Decimal
	Date          time.Time
	PaymentMethod string
	Reference     string
	Note          string
	Status        EntryStatus
	CancelReason  string
}

// EntryInput carries the editable fields
type EntryInput struct {
	Category      string
	Amount        decimal.Decimal
	Date          time.Time
	PaymentMethod string
	Reference     string
	Note          string
}

// NewEntry records an expense or income
func NewEntry(tenantID, branchID uuid.UUID, kind EntryKind, in EntryInput, createdBy uuid.UUID) (*Entry, error) {
	if kind != EntryKindExpense && kind != EntryKindIncome {
		return nil, shared.NewDomainError("INVALID_ENTRY_KIND", "Entry must be an expense or income")
	}
	if branchID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BRANCH", "Branch is required")
	}
	e := &Entry{
		BranchAggregateRoot: shared.NewBranchAggregateRoot(tenantID, branchID),
		Kind:                kind,
		Status:              EntryStatusRecorded,
	}
	if err := e.apply(in); err != nil {
		return nil, err
	}
	e.SetCreatedBy(createdBy)
	return e, nil
}

func (e *Entry) apply(in EntryInput) error {
	category := strings.TrimSpace(in.Category)
	if category == "" || len(category) > 100 {
		return shared.NewDomainError("INVALID_CATEGORY", "Category must be 1-100 characters")
	}
	if !in.Amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	method := strings.ToUpper(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		method = "CASH"
	}
	e.Category = category
	e.Amount = in.Amount.Round(2)
	e.Date = date
	e.PaymentMethod = method
	e.Reference = strings.TrimSpace(in.Reference)
	e.Note = in.Note
	return nil
}

// Update edits a recorded entry
func (e *Entry) Update(in EntryInput) error {
	if e.Status != EntryStatusRecorded {
		return shared.NewDomainError("INVALID_STATE", "Cancelled entries cannot be edited")
	}
	if err := e.apply(in); err != nil {
		return err
	}
	e.Touch()
	e.IncrementVersion()
	return nil
}

// Cancel marks the entry void; it stays in the ledger
func (e *Entry) Cancel(reason string) error {
	if e.Status == EntryStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Entry is already cancelled")
	}
	e.Status = EntryStatusCancelled
	e.CancelReason = strings.TrimSpace(reason)
	e.Touch()
	e.IncrementVersion()
	return nil
}

// CategoryAmount is one row of a per-category breakdown
type CategoryAmount struct {
	Kind     EntryKind       `json:"kind"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Summary is the profit view over a date range
type Summary struct {
	From        time.Time        `json:"from"`
	To          time.Time        `json:"to"`
	BranchID    *uuid.UUID       `json:"branch_id,omitempty"`
	SalesTotal  decimal.Decimal  `json:"sales_total"`
	OtherIncome decimal.Decimal  `json:"other_income"`
	Expenses    decimal.Decimal  `json:"expenses"`
	Net         decimal.Decimal  `json:"net"`
	ByCategory  []CategoryAmount `json:"by_category"`
}

// NewSummary computes totals and net from the raw figures
func NewSummary(from, to time.Time, branchID *uuid.UUID, sales decimal.Decimal, rows []CategoryAmount) Summary {
	s := Summary{From: from, To: to, BranchID: branchID, SalesTotal: sales, ByCategory: rows}
	for _, r := range rows {
		switch r.Kind {
		case EntryKindIncome:
			s.OtherIncome = s.OtherIncome.Add(r.Amount)
		case EntryKindExpense:
			s.Expenses = s.Expenses.Add(r.Amount)
		}
	}
	s.Net = s.SalesTotal.Add(s.OtherIncome).Sub(s.Expenses)
	if s.ByCategory == nil {
		s.ByCategory = []CategoryAmount{}
	}
	return s
}
