package sales

import (
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusVoided         OrderStatus = "VOIDED"
)

// PaymentMethod is how an order was (or will be) paid
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "CASH"
	PaymentCard    PaymentMethod = "CARD"
	PaymentPayHere PaymentMethod = "PAYHERE"
	PaymentOnePay  PaymentMethod = "ONEPAY"
	PaymentCredit  PaymentMethod = "CREDIT"
)

// IsValid checks the method value
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentPayHere, PaymentOnePay, PaymentCredit:
		return true
	}
	return false
}

// IsGateway reports whether the payment completes asynchronously through a gateway
func (m PaymentMethod) IsGateway() bool {
	return m == PaymentPayHere || m == PaymentOnePay
}

var (
	ErrEmptyOrder          = shared.NewDomainError("EMPTY_ORDER", "Order must have at least one line")
	ErrNegativeLineTotal   = shared.NewDomainError("NEGATIVE_LINE_TOTAL", "Line discount exceeds line amount")
	ErrNegativeTaxable     = shared.NewDomainError("NEGATIVE_TAXABLE", "Order discount exceeds subtotal")
	ErrUnderpaid           = shared.NewDomainError("UNDERPAID", "Payments do not cover the grand total")
	ErrNonCashOverpaid     = shared.NewDomainError("NON_CASH_OVERPAID", "Non-cash payments exceed the grand total")
	ErrVoidWindowClosed    = shared.NewDomainError("VOID_WINDOW_CLOSED", "Orders can only be voided on the business day they were made")
	ErrMultipleGateways    = shared.NewDomainError("MULTIPLE_GATEWAYS", "Only one gateway payment per order")
	ErrInvalidPaymentValue = shared.NewDomainError("INVALID_PAYMENT", "Payment amount must be positive")
)

// OrderLine is a sold variant
type OrderLine struct {
	ID            uuid.UUID
	VariantID     uuid.UUID
	ProductName   string
	VariationName string
	SKU           string
	Quantity      decimal.Decimal
	PriceTier     string
	UnitPrice     decimal.Decimal
	CostPrice     decimal.Decimal
	LineDiscount  decimal.Decimal
	LineTotal     decimal.Decimal
}

// OrderPayment is a tender applied to the order
type OrderPayment struct {
	ID        uuid.UUID
	Method    PaymentMethod
	Amount    decimal.Decimal
	Reference string
}

// Order is a POS sale
type Order struct {
	shared.BranchAggregateRoot
	InvoiceNumber    string
	CustomerID       *uuid.UUID
	CashierID        uuid.UUID
	ClientRef        string
	Lines            []OrderLine
	Subtotal         decimal.Decimal
	DiscountTotal    decimal.Decimal
	OrderDiscount    decimal.Decimal
	TaxRate          decimal.Decimal
	TaxAmount        decimal.Decimal
	GrandTotal       decimal.Decimal
	Payments         []OrderPayment
	PaidTotal        decimal.Decimal
	ChangeDue        decimal.Decimal
	Status           OrderStatus
	VoidReason       string
	VoidedAt         *time.Time
	CompletedAt      *time.Time
	OfflineCreatedAt *time.Time
	Note             string
}

// LineInput is a priced line ready to be added
type LineInput struct {
	VariantID     uuid.UUID
	ProductName   string
	VariationName string
	SKU           string
	Quantity      decimal.Decimal
	PriceTier     string
	UnitPrice     decimal.Decimal
	CostPrice     decimal.Decimal
	LineDiscount  decimal.Decimal
}

// OrderInput carries everything Checkout needs after pricing
type OrderInput struct {
	TenantID         uuid.UUID
	BranchID         uuid.UUID
	CashierID        uuid.UUID
	CustomerID       *uuid.UUID
	ClientRef        string
	Lines            []LineInput
	OrderDiscount    decimal.Decimal
	TaxRate          decimal.Decimal
	Payments         []OrderPayment
	OfflineCreatedAt *time.Time
	Note             string
}

func round2(v decimal.Decimal) decimal.Decimal { return v.Round(2) }

// NewOrder computes totals, checks tender and sets the initial status.
// The invoice number is assigned later by AssignInvoiceNumber.
func NewOrder(in OrderInput) (*Order, error) {
	if len(in.Lines) == 0 {
		return nil, ErrEmptyOrder
	}
	if in.BranchID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BRANCH", "Branch is required")
	}
	clientRef := strings.TrimSpace(in.ClientRef)
	if len(clientRef) > 64 {
		return nil, shared.NewDomainError("INVALID_CLIENT_REF", "Client reference cannot exceed 64 characters")
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate must be between 0 and 1")
	}
	if in.OrderDiscount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}

	o := &Order{
		BranchAggregateRoot: shared.NewBranchAggregateRoot(in.TenantID, in.BranchID),
		CashierID:           in.CashierID,
		CustomerID:          in.CustomerID,
		ClientRef:           clientRef,
		OrderDiscount:       round2(in.OrderDiscount),
		TaxRate:             in.TaxRate,
		OfflineCreatedAt:    in.OfflineCreatedAt,
		Note:                in.Note,
	}
	if clientRef == "" {
		o.ClientRef = o.ID.String()
	}
	o.SetCreatedBy(in.CashierID)

	for _, li := range in.Lines {
		line, err := newLine(li)
		if err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, line)
	}
	if err := o.computeTotals(); err != nil {
		return nil, err
	}
	if err := o.applyPayments(in.Payments); err != nil {
		return nil, err
	}
	return o, nil
}

func newLine(li LineInput) (OrderLine, error) {
	if li.VariantID == uuid.Nil {
		return OrderLine{}, shared.NewDomainError("INVALID_VARIANT", "Variant is required")
	}
	if !li.Quantity.IsPositive() {
		return OrderLine{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if li.UnitPrice.IsNegative() || li.LineDiscount.IsNegative() {
		return OrderLine{}, shared.NewDomainError("INVALID_PRICE", "Price and discount cannot be negative")
	}
	qty := li.Quantity.Round(3)
	discount := round2(li.LineDiscount)
	total := round2(qty.Mul(li.UnitPrice)).Sub(discount)
	if total.IsNegative() {
		return OrderLine{}, ErrNegativeLineTotal
	}
	return OrderLine{
		ID:            uuid.New(),
		VariantID:     li.VariantID,
		ProductName:   li.ProductName,
		VariationName: li.VariationName,
		SKU:           li.SKU,
		Quantity:      qty,
		PriceTier:     li.PriceTier,
		UnitPrice:     round2(li.UnitPrice),
		CostPrice:     round2(li.CostPrice),
		LineDiscount:  discount,
		LineTotal:     total,
	}, nil
}

func (o *Order) computeTotals() error {
	subtotal := decimal.Zero
	lineDiscounts := decimal.Zero
	for _, l := range o.Lines {
		subtotal = subtotal.Add(l.LineTotal)
		lineDiscounts = lineDiscounts.Add(l.LineDiscount)
	}
	taxable := subtotal.Sub(o.OrderDiscount)
	if taxable.IsNegative() {
		return ErrNegativeTaxable
	}
	o.Subtotal = subtotal
	o.DiscountTotal = lineDiscounts.Add(o.OrderDiscount)
	o.TaxAmount = round2(taxable.Mul(o.TaxRate))
	o.GrandTotal = taxable.Add(o.TaxAmount)
	return nil
}

// applyPayments validates tender. Payments must cover GrandTotal; with a
// gateway payment the order then waits in PENDING_PAYMENT for the callback.
func (o *Order) applyPayments(payments []OrderPayment) error {
	cash := decimal.Zero
	nonCash := decimal.Zero
	gateways := 0
	o.Payments = make([]OrderPayment, 0, len(payments))
	for _, p := range payments {
		if !p.Method.IsValid() {
			return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method: "+string(p.Method))
		}
		if !p.Amount.IsPositive() {
			return ErrInvalidPaymentValue
		}
		p.Amount = round2(p.Amount)
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.Method == PaymentCash {
			cash = cash.Add(p.Amount)
		} else {
			nonCash = nonCash.Add(p.Amount)
		}
		if p.Method.IsGateway() {
			gateways++
		}
		o.Payments = append(o.Payments, p)
	}
	if gateways > 1 {
		return ErrMultipleGateways
	}
	if nonCash.GreaterThan(o.GrandTotal) {
		return ErrNonCashOverpaid
	}

	o.PaidTotal = cash.Add(nonCash)
	change := cash.Sub(o.GrandTotal.Sub(nonCash))
	if change.IsNegative() {
		change = decimal.Zero
	}
	o.ChangeDue = change

	// a gateway tender is only confirmed by its callback, so the tender as
	// submitted must already cover the bill
	if o.PaidTotal.LessThan(o.GrandTotal) {
		return ErrUnderpaid
	}
	if gateways == 1 {
		o.Status = OrderStatusPendingPayment
		return nil
	}
	o.Status = OrderStatusCompleted
	now := time.Now()
	o.CompletedAt = &now
	return nil
}

// GatewayPayment returns the pending gateway tender, if any
func (o *Order) GatewayPayment() *OrderPayment {
	for i := range o.Payments {
		if o.Payments[i].Method.IsGateway() {
			return &o.Payments[i]
		}
	}
	return nil
}

// CreditAmount sums CREDIT tenders
func (o *Order) CreditAmount() decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Payments {
		if p.Method == PaymentCredit {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// AssignInvoiceNumber sets the number allocated from the branch sequence and
// records the lifecycle event for the initial status.
func (o *Order) AssignInvoiceNumber(number string) {
	o.InvoiceNumber = number
	if o.Status == OrderStatusCompleted {
		o.AddDomainEvent(NewOrderCompletedEvent(o))
	} else {
		o.AddDomainEvent(NewOrderPlacedEvent(o))
	}
}

// MarkPaid completes a pending gateway order
func (o *Order) MarkPaid(gatewayRef string) error {
	if o.Status == OrderStatusCompleted {
		return nil
	}
	if o.Status != OrderStatusPendingPayment {
		return shared.NewDomainError("INVALID_STATE", "Only pending orders can be marked paid")
	}
	if p := o.GatewayPayment(); p != nil {
		p.Reference = gatewayRef
	}
	now := time.Now()
	o.Status = OrderStatusCompleted
	o.CompletedAt = &now
	o.Touch()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderCompletedEvent(o))
	return nil
}

// Void cancels a completed order. sameDayOnly enforces the business-day window
// relative to now in loc.
func (o *Order) Void(reason string, now time.Time, loc *time.Location, sameDayOnly bool) error {
	if o.Status != OrderStatusCompleted {
		return shared.NewDomainError("INVALID_STATE", "Only completed orders can be voided")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("REASON_REQUIRED", "Void reason is required")
	}
	if sameDayOnly && !SameBusinessDay(o.CreatedAt, now, loc) {
		return ErrVoidWindowClosed
	}
	o.Status = OrderStatusVoided
	o.VoidReason = reason
	o.VoidedAt = &now
	o.Touch()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderVoidedEvent(o))
	return nil
}

// CancelPending expires an unpaid gateway order
func (o *Order) CancelPending(reason string) error {
	if o.Status != OrderStatusPendingPayment {
		return shared.NewDomainError("INVALID_STATE", "Only pending orders can be cancelled")
	}
	now := time.Now()
	o.Status = OrderStatusVoided
	o.VoidReason = reason
	o.VoidedAt = &now
	o.Touch()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderVoidedEvent(o))
	return nil
}

// SameBusinessDay compares calendar dates in loc
func SameBusinessDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
