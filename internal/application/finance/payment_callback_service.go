package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

var (
	// ErrCallbackGatewayNotRegistered is returned when no gateway is registered for the gateway type
	ErrCallbackGatewayNotRegistered = errors.New("payment callback: gateway not registered")
	// ErrCallbackInvalidPayload is returned when the callback payload is invalid
	ErrCallbackInvalidPayload = errors.New("payment callback: invalid payload")
	// ErrCallbackVerificationFailed is returned when callback verification fails
	ErrCallbackVerificationFailed = errors.New("payment callback: signature verification failed")
	// ErrCallbackOrderNotFound is returned when no transaction carries the callback's order number
	ErrCallbackOrderNotFound = errors.New("payment callback: order not found")
)

// Settler applies a confirmed payment to whatever it paid for
type Settler interface {
	Settle(ctx context.Context, txn *finance.PaymentTransaction) error
}

// SettlerFunc adapts a function to Settler
type SettlerFunc func(ctx context.Context, txn *finance.PaymentTransaction) error

// Settle calls f
func (f SettlerFunc) Settle(ctx context.Context, txn *finance.PaymentTransaction) error {
	return f(ctx, txn)
}

// PaymentCallbackService verifies gateway notifications and settles the
// orders and subscription invoices they pay for
type PaymentCallbackService struct {
	registry     finance.PaymentGatewayRegistry
	transactions finance.PaymentTransactionRepository
	settlers     map[finance.PaymentPurpose]Settler
	idempotency  shared.IdempotencyStore
	ttl          time.Duration
	tx           shared.TxManager
	metrics      CallbackRecorder
	logger       *zap.Logger
}

// CallbackRecorder counts gateway notifications by outcome
type CallbackRecorder interface {
	RecordPaymentCallback(ctx context.Context, gateway, outcome string)
}

// PaymentCallbackServiceConfig holds configuration for the callback service
type PaymentCallbackServiceConfig struct {
	Registry     finance.PaymentGatewayRegistry
	Transactions finance.PaymentTransactionRepository
	// Idempotency short-circuits repeated deliveries; optional
	Idempotency    shared.IdempotencyStore
	IdempotencyTTL time.Duration
	Tx             shared.TxManager
	Metrics        CallbackRecorder
	Logger         *zap.Logger
}

// NewPaymentCallbackService creates a new PaymentCallbackService
func NewPaymentCallbackService(config PaymentCallbackServiceConfig) *PaymentCallbackService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := config.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PaymentCallbackService{
		registry:     config.Registry,
		transactions: config.Transactions,
		settlers:     make(map[finance.PaymentPurpose]Settler),
		idempotency:  config.Idempotency,
		ttl:          ttl,
		tx:           config.Tx,
		metrics:      config.Metrics,
		logger:       logger,
	}
}

// RegisterSettler routes paid transactions of purpose to s
func (s *PaymentCallbackService) RegisterSettler(purpose finance.PaymentPurpose, settler Settler) {
	s.settlers[purpose] = settler
}

// ProcessPaymentCallback verifies and handles a raw gateway notification
func (s *PaymentCallbackService) ProcessPaymentCallback(
	ctx context.Context,
	gatewayType finance.PaymentGatewayType,
	payload []byte,
	signature string,
) (*PaymentCallbackResult, error) {
	gateway, err := s.registry.GetGateway(gatewayType)
	if err != nil {
		s.logger.Error("Gateway not registered",
			zap.String("gateway_type", string(gatewayType)),
			zap.Error(err))
		return nil, ErrCallbackGatewayNotRegistered
	}

	callback, err := gateway.VerifyCallback(ctx, payload, signature)
	if err != nil {
		s.logger.Warn("Callback verification failed",
			zap.String("gateway_type", string(gatewayType)),
			zap.Error(err))
		s.record(ctx, gatewayType, "rejected")
		return nil, fmt.Errorf("%w: %v", ErrCallbackVerificationFailed, err)
	}
	if callback == nil {
		return nil, ErrCallbackInvalidPayload
	}

	s.logger.Info("Payment callback received",
		zap.String("gateway_type", string(gatewayType)),
		zap.String("order_number", callback.OrderNumber),
		zap.String("gateway_transaction_id", callback.GatewayTransactionID),
		zap.String("status", string(callback.Status)),
		zap.String("amount", callback.Amount.String()))

	key := "payment-callback:" + callback.IdempotencyKey()
	if s.idempotency != nil {
		reserved, err := s.idempotency.MarkProcessed(ctx, key, s.ttl)
		if err != nil {
			// fall through; the transaction state still guards against double settlement
			s.logger.Warn("Idempotency store unavailable", zap.Error(err))
		} else if !reserved {
			s.logger.Info("Callback already processed", zap.String("idempotency_key", key))
			s.record(ctx, gatewayType, "duplicate")
			return &PaymentCallbackResult{
				Success:          true,
				AlreadyProcessed: true,
				Callback:         callback,
				GatewayResponse:  gateway.GenerateCallbackResponse(true, ""),
			}, nil
		}
	}

	if err := s.HandlePaymentCallback(ctx, callback); err != nil {
		if s.idempotency != nil {
			if rerr := s.idempotency.Release(ctx, key); rerr != nil {
				s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(rerr))
			}
		}
		s.logger.Error("Failed to handle payment callback",
			zap.String("order_number", callback.OrderNumber),
			zap.Error(err))
		s.record(ctx, gatewayType, "failed")
		return &PaymentCallbackResult{
			Success:         false,
			Error:           err,
			Callback:        callback,
			GatewayResponse: gateway.GenerateCallbackResponse(false, err.Error()),
		}, err
	}

	s.record(ctx, gatewayType, strings.ToLower(string(callback.Status)))
	return &PaymentCallbackResult{
		Success:         true,
		Callback:        callback,
		GatewayResponse: gateway.GenerateCallbackResponse(true, ""),
	}, nil
}

func (s *PaymentCallbackService) record(ctx context.Context, gateway finance.PaymentGatewayType, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordPaymentCallback(ctx, string(gateway), outcome)
	}
}

// HandlePaymentCallback applies a verified callback to its transaction and,
// on the first successful notification, settles the order or invoice. The
// transaction update and the settlement commit together.
func (s *PaymentCallbackService) HandlePaymentCallback(ctx context.Context, callback *finance.PaymentCallback) error {
	txn, err := s.transactions.FindByOrderNumber(ctx, callback.GatewayType, callback.OrderNumber)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("No transaction for callback",
				zap.String("gateway_type", string(callback.GatewayType)),
				zap.String("order_number", callback.OrderNumber))
			return ErrCallbackOrderNotFound
		}
		return err
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		changed, err := txn.Apply(callback)
		if err != nil {
			if errors.Is(err, finance.ErrPaymentAmountMismatch) {
				s.logger.Error("Callback amount does not match transaction",
					zap.String("transaction_id", txn.ID.String()),
					zap.String("expected", txn.Amount.StringFixed(2)+" "+txn.Currency),
					zap.String("received", callback.Amount.StringFixed(2)+" "+callback.Currency))
			}
			return err
		}
		if !changed {
			s.logger.Debug("Callback left transaction unchanged",
				zap.String("transaction_id", txn.ID.String()),
				zap.String("status", string(txn.Status)))
			return s.transactions.Save(ctx, txn)
		}

		if txn.Status.IsSuccess() {
			if err := s.settle(ctx, txn); err != nil {
				return err
			}
		} else {
			s.logger.Info("Gateway payment not completed",
				zap.String("transaction_id", txn.ID.String()),
				zap.String("status", string(txn.Status)))
		}
		return s.transactions.Save(ctx, txn)
	})
}

func (s *PaymentCallbackService) settle(ctx context.Context, txn *finance.PaymentTransaction) error {
	settler, ok := s.settlers[txn.Purpose]
	if !ok {
		s.logger.Error("No settler for payment purpose",
			zap.String("purpose", string(txn.Purpose)),
			zap.String("transaction_id", txn.ID.String()))
		return nil
	}
	err := settler.Settle(ctx, txn)
	if errors.Is(err, finance.ErrNothingToSettle) {
		s.logger.Error("Payment received for a closed reference, refund manually",
			zap.String("transaction_id", txn.ID.String()),
			zap.String("purpose", string(txn.Purpose)),
			zap.String("reference_id", txn.ReferenceID.String()),
			zap.String("amount", txn.Amount.StringFixed(2)))
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("Gateway payment settled",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("purpose", string(txn.Purpose)),
		zap.String("reference_id", txn.ReferenceID.String()))
	return nil
}

// PaymentCallbackResult represents the result of processing a payment callback
type PaymentCallbackResult struct {
	Success          bool                     `json:"success"`
	AlreadyProcessed bool                     `json:"already_processed,omitempty"`
	Callback         *finance.PaymentCallback `json:"callback,omitempty"`
	Error            error                    `json:"-"`
	GatewayResponse  []byte                   `json:"-"`
}

var _ finance.PaymentCallbackHandler = (*PaymentCallbackService)(nil)
