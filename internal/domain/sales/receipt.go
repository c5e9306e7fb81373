package sales

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/shared/valueobject"
)

// Receipt is the printable view of an order: the order plus the business,
// branch and customer details printed on the bill
type Receipt struct {
	Order         *Order
	BusinessName  string
	BusinessPhone string
	BusinessEmail string
	BranchName    string
	BranchAddress string
	BranchPhone   string
	CashierName   string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Currency      valueobject.Currency
	Footer        string
	Location      *time.Location
}

// IssuedAt is the completion time in the business timezone
func (r *Receipt) IssuedAt() time.Time {
	t := r.Order.CreatedAt
	if r.Order.CompletedAt != nil {
		t = *r.Order.CompletedAt
	}
	if r.Location != nil {
		t = t.In(r.Location)
	}
	return t
}

// DisplayName is the line label printed on receipts, e.g. "Ceylon Tea - 400g".
func DisplayName(productName, variationName string) string {
	return catalog.DisplayName(productName, variationName)
}
