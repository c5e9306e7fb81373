package report

import (
	"time"

	"github.com/google/uuid"
)

// DailySalesFilter selects one business day. A missing day means today.
type DailySalesFilter struct {
	BranchID *uuid.UUID `form:"branch_id"`
	Day      *time.Time `form:"day" time_format:"2006-01-02"`
}

// TopProductsFilter selects the ranking window. Dates are inclusive business days.
type TopProductsFilter struct {
	BranchID *uuid.UUID `form:"branch_id"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Limit    int        `form:"limit" binding:"min=0,max=100"`
}

// StockValueFilter narrows the valuation to one branch
type StockValueFilter struct {
	BranchID *uuid.UUID `form:"branch_id"`
}
