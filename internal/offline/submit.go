package offline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	salesapp "github.com/cloudpos/backend/internal/application/sales"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmitResult tells the till what happened to an order
type SubmitResult struct {
	// Queued orders are stored locally and replayed later
	Queued      bool
	OperationID uuid.UUID
	ClientRef   string
	StatusCode  int
	// Checkout is the server's response when the order went through directly
	Checkout *salesapp.CheckoutResponse
}

// SubmitOrder posts order straight to the server and falls back to the queue
// when the server cannot be reached. The ClientRef is fixed before the first
// attempt, so a direct post whose response was lost and the later replay
// create one order between them.
func (q *Queue) SubmitOrder(ctx context.Context, order salesapp.CheckoutRequest) (*SubmitResult, error) {
	order.ClientRef = strings.TrimSpace(order.ClientRef)
	if order.ClientRef == "" {
		order.ClientRef = uuid.NewString()
	}
	res := &SubmitResult{ClientRef: order.ClientRef}

	if !q.backingOff() {
		body, err := json.Marshal(order)
		if err != nil {
			return nil, err
		}
		resp, err := q.sender.Do(ctx, http.MethodPost, kindPaths[KindCreateOrder], body, order.ClientRef)
		switch classify(resp, err) {
		case outcomeDone:
			res.StatusCode = resp.StatusCode
			// a 409 here is ALREADY_EXISTS and carries no order
			if resp.StatusCode != http.StatusConflict {
				var out salesapp.CheckoutResponse
				if err := decode(resp, &out); err != nil {
					return nil, err
				}
				res.Checkout = &out
			}
			return res, nil
		case outcomeDead:
			return nil, apiError(resp)
		case outcomeStop:
			if resp.StatusCode == http.StatusUnauthorized {
				return nil, errors.Join(ErrUnauthorized, apiError(resp))
			}
			return nil, apiError(resp)
		}
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		q.logger.Info("Order kept offline", zap.String("client_ref", order.ClientRef), zap.Error(err))
	}

	if order.OfflineCreatedAt == nil {
		now := q.now().UTC()
		order.OfflineCreatedAt = &now
	}
	op, err := NewOperation(KindCreateOrder, order, order.ClientRef)
	if err != nil {
		return nil, err
	}
	if err := q.Enqueue(context.WithoutCancel(ctx), op); err != nil {
		return nil, err
	}
	res.Queued = true
	res.OperationID = op.ID
	return res, nil
}

func (q *Queue) backingOff() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.now().Before(q.retryAt)
}
