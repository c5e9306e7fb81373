package finance

import (
	"context"
	"strings"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CallbackPath is where gateways post payment notifications, relative to the
// public base URL. The gateway name is appended in lower case.
const CallbackPath = "/api/v1/payment/callback/"

// PaymentURLs are the public URLs handed to gateways
type PaymentURLs struct {
	// BaseURL is the public API origin used to build notify URLs
	BaseURL   string
	ReturnURL string
	CancelURL string
}

// PaymentService opens gateway checkouts and records each attempt as a
// PaymentTransaction
type PaymentService struct {
	registry     finance.PaymentGatewayRegistry
	transactions finance.PaymentTransactionRepository
	urls         PaymentURLs
	logger       *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(registry finance.PaymentGatewayRegistry, transactions finance.PaymentTransactionRepository, urls PaymentURLs, logger *zap.Logger) *PaymentService {
	urls.BaseURL = strings.TrimRight(urls.BaseURL, "/")
	if urls.ReturnURL == "" {
		urls.ReturnURL = urls.BaseURL
	}
	if urls.CancelURL == "" {
		urls.CancelURL = urls.ReturnURL
	}
	return &PaymentService{registry: registry, transactions: transactions, urls: urls, logger: logger}
}

// NotifyURL returns the callback URL for a gateway
func (s *PaymentService) NotifyURL(gateway finance.PaymentGatewayType) string {
	return s.urls.BaseURL + CallbackPath + strings.ToLower(string(gateway))
}

// StartPayment records a pending transaction and asks the gateway for a
// checkout. A transaction whose checkout failed stays pending and is never
// matched by a callback.
func (s *PaymentService) StartPayment(ctx context.Context, intent finance.PaymentIntent) (*finance.PaymentTransaction, *finance.CreatePaymentResponse, error) {
	if !s.registry.IsEnabled(intent.Gateway) {
		return nil, nil, finance.ErrGatewayNotEnabled
	}
	gateway, err := s.registry.GetGateway(intent.Gateway)
	if err != nil {
		return nil, nil, err
	}

	txn, err := finance.NewPaymentTransaction(intent.TenantID, intent.Purpose, intent.ReferenceID,
		intent.Reference, intent.Gateway, intent.Amount, intent.Currency)
	if err != nil {
		return nil, nil, err
	}
	if err := s.transactions.Save(ctx, txn); err != nil {
		return nil, nil, err
	}

	checkout, err := gateway.CreatePayment(ctx, &finance.CreatePaymentRequest{
		TenantID:    intent.TenantID,
		ReferenceID: intent.ReferenceID,
		OrderNumber: txn.OrderNumber,
		Amount:      txn.Amount,
		Currency:    txn.Currency,
		Items:       intent.Items,
		Customer:    intent.Customer,
		NotifyURL:   s.NotifyURL(intent.Gateway),
		ReturnURL:   s.urls.ReturnURL,
		CancelURL:   s.urls.CancelURL,
	})
	if err != nil {
		s.logger.Warn("Gateway checkout failed",
			zap.String("gateway", string(intent.Gateway)),
			zap.String("order_number", txn.OrderNumber),
			zap.Error(err))
		return nil, nil, err
	}

	s.logger.Info("Gateway checkout started",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("purpose", string(intent.Purpose)),
		zap.String("gateway", string(intent.Gateway)),
		zap.String("order_number", txn.OrderNumber),
		zap.String("amount", txn.Amount.StringFixed(2)))
	return txn, checkout, nil
}

// Transactions lists the gateway attempts made for an order or invoice
func (s *PaymentService) Transactions(ctx context.Context, p *identity.Principal, purpose finance.PaymentPurpose, referenceID uuid.UUID) ([]PaymentTransactionResponse, error) {
	if !p.CanInSomeBranch(PermViewReport) && !p.CanInSomeBranch("view:order") {
		return nil, shared.ErrForbidden
	}
	txns, err := s.transactions.FindByReference(ctx, p.TenantID, purpose, referenceID)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentTransactionResponse, len(txns))
	for i, t := range txns {
		out[i] = ToPaymentTransactionResponse(t)
	}
	return out, nil
}

// EnabledGateways lists the gateways the checkout screen may offer
func (s *PaymentService) EnabledGateways() []string {
	gateways := s.registry.ListGateways()
	out := make([]string, 0, len(gateways))
	for _, g := range gateways {
		if s.registry.IsEnabled(g.GatewayType()) {
			out = append(out, string(g.GatewayType()))
		}
	}
	return out
}
