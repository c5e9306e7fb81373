// Package offline keeps a till working when the API is unreachable: writes
// are queued in a local sqlite database and replayed in order once the
// server answers again, and the sellable catalog is cached for lookups.
package offline

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a queued operation creates
type Kind string

const (
	KindCreateOrder    Kind = "CREATE_ORDER"
	KindCreateCustomer Kind = "CREATE_CUSTOMER"
	KindCreateExpense  Kind = "CREATE_EXPENSE"
)

// Status is the lifecycle of a queued operation
type Status string

const (
	StatusPending Status = "PENDING"
	StatusDone    Status = "DONE"
	// StatusDead ops were rejected by the server and wait for a human
	StatusDead Status = "DEAD"
)

var (
	ErrOperationNotFound = errors.New("offline: operation not found")
	ErrNotDead           = errors.New("offline: only dead operations can be retried")
	ErrInvalidOperation  = errors.New("offline: invalid operation")
)

var kindPaths = map[Kind]string{
	KindCreateOrder:    "/api/v1/sales/orders",
	KindCreateCustomer: "/api/v1/customers",
	KindCreateExpense:  "/api/v1/finance/expenses",
}

// Operation is one write waiting to reach the server
type Operation struct {
	ID             uuid.UUID       `yaml:"id"`
	Kind           Kind            `yaml:"kind"`
	Method         string          `yaml:"method"`
	Path           string          `yaml:"path"`
	Body           json.RawMessage `yaml:"-"`
	IdempotencyKey string          `yaml:"idempotency_key"`
	CreatedAt      time.Time       `yaml:"created_at"`
	Attempts       int             `yaml:"attempts"`
	LastError      string          `yaml:"last_error,omitempty"`
	Status         Status          `yaml:"status"`
}

// NewOperation builds a PENDING POST for kind. The idempotency key defaults
// to the operation ID; orders pass their ClientRef so the server can dedupe.
func NewOperation(kind Kind, body any, idempotencyKey string) (*Operation, error) {
	path, ok := kindPaths[kind]
	if !ok {
		return nil, ErrInvalidOperation
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	if idempotencyKey == "" {
		idempotencyKey = id.String()
	}
	return &Operation{
		ID:             id,
		Kind:           kind,
		Method:         http.MethodPost,
		Path:           path,
		Body:           raw,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now().UTC(),
		Status:         StatusPending,
	}, nil
}

func (op *Operation) validate() error {
	if op.ID == uuid.Nil || op.Method == "" || op.Path == "" || op.IdempotencyKey == "" {
		return ErrInvalidOperation
	}
	if len(op.Body) > 0 && !json.Valid(op.Body) {
		return ErrInvalidOperation
	}
	return nil
}

// Stats summarizes the queue
type Stats struct {
	Pending       int64      `json:"pending" yaml:"pending"`
	Dead          int64      `json:"dead" yaml:"dead"`
	OldestPending *time.Time `json:"oldest_pending,omitempty" yaml:"oldest_pending,omitempty"`
	LastFlush     *time.Time `json:"last_flush,omitempty" yaml:"last_flush,omitempty"`
	LastError     string     `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	RetryAt       *time.Time `json:"retry_at,omitempty" yaml:"retry_at,omitempty"`
}
