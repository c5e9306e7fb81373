package offline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sender delivers one request to the server
type Sender interface {
	Do(ctx context.Context, method, path string, body []byte, idempotencyKey string) (*Response, error)
}

// QueueConfig tunes replay
type QueueConfig struct {
	// BatchSize is how many pending operations are loaded per round trip to sqlite
	BatchSize   int           `mapstructure:"batch_size"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

// DefaultQueueConfig returns the defaults used by posagent
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		BatchSize:   50,
		BaseBackoff: 2 * time.Second,
		MaxBackoff:  5 * time.Minute,
	}
}

// FlushResult reports one flush pass
type FlushResult struct {
	Sent      int
	Dead      int
	Remaining int64
	// Skipped is set when another flush was already running
	Skipped bool
	// Deferred is set when the queue is still backing off
	Deferred bool
}

// Queue is the durable FIFO of writes made while offline
type Queue struct {
	store  *Store
	sender Sender
	cfg    QueueConfig
	logger *zap.Logger

	flushing sync.Mutex
	kick     chan struct{}

	mu        sync.Mutex
	failures  int
	retryAt   time.Time
	lastFlush time.Time
	lastError string

	now func() time.Time
}

// NewQueue creates a queue over store that replays through sender
func NewQueue(store *Store, sender Sender, cfg QueueConfig, logger *zap.Logger) *Queue {
	def := DefaultQueueConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		store:  store,
		sender: sender,
		cfg:    cfg,
		logger: logger,
		kick:   make(chan struct{}, 1),
		now:    time.Now,
	}
}

// Enqueue commits op to sqlite and then asks for a flush. The request is a
// signal on Kicks, so Enqueue never blocks on the network.
func (q *Queue) Enqueue(ctx context.Context, op *Operation) error {
	op.Status = StatusPending
	if err := q.store.Save(ctx, op); err != nil {
		return fmt.Errorf("offline: enqueue %s: %w", op.Kind, err)
	}
	q.logger.Info("Operation queued",
		zap.String("id", op.ID.String()),
		zap.String("kind", string(op.Kind)),
		zap.String("idempotency_key", op.IdempotencyKey))
	q.signal()
	return nil
}

// Kicks delivers a value whenever new work was queued
func (q *Queue) Kicks() <-chan struct{} {
	return q.kick
}

func (q *Queue) signal() {
	select {
	case q.kick <- struct{}{}:
	default:
	}
}

// Flush replays pending operations oldest first. Only one flush runs at a
// time; a concurrent call returns at once with Skipped set.
//
// 2xx and a 409 ALREADY_EXISTS complete an operation. 400/422 and other
// client errors park it as DEAD and the flush moves on. Transport errors, 408,
// 429, 5xx and a 409 DUPLICATE_REQUEST (the same key still in flight) stop the
// flush and start the backoff. 401 and 402 stop the flush without backoff.
func (q *Queue) Flush(ctx context.Context) (FlushResult, error) {
	var res FlushResult
	if !q.flushing.TryLock() {
		res.Skipped = true
		return res, nil
	}
	defer q.flushing.Unlock()

	q.mu.Lock()
	if q.now().Before(q.retryAt) {
		q.mu.Unlock()
		res.Deferred = true
		return res, nil
	}
	q.mu.Unlock()

	err := q.drain(ctx, &res)
	if n, cerr := q.store.Count(context.WithoutCancel(ctx), StatusPending); cerr == nil {
		res.Remaining = n
	}
	if _, perr := q.store.PurgeDone(context.WithoutCancel(ctx)); perr != nil {
		q.logger.Warn("Failed to purge acknowledged operations", zap.Error(perr))
	}

	q.mu.Lock()
	q.lastFlush = q.now()
	if err != nil {
		q.lastError = err.Error()
	} else {
		q.lastError = ""
		q.failures = 0
		q.retryAt = time.Time{}
	}
	q.mu.Unlock()

	if res.Sent > 0 || res.Dead > 0 {
		q.logger.Info("Queue flushed",
			zap.Int("sent", res.Sent),
			zap.Int("dead", res.Dead),
			zap.Int64("remaining", res.Remaining))
	}
	return res, err
}

func (q *Queue) drain(ctx context.Context, res *FlushResult) error {
	for {
		ops, err := q.store.List(ctx, StatusPending, q.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			return nil
		}
		for _, op := range ops {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := q.send(ctx, op, res); err != nil {
				return err
			}
		}
	}
}

// send replays one operation and records the result before returning, so a
// crash never loses the decision about it.
func (q *Queue) send(ctx context.Context, op *Operation, res *FlushResult) error {
	resp, sendErr := q.sender.Do(ctx, op.Method, op.Path, op.Body, op.IdempotencyKey)
	if sendErr != nil && errors.Is(sendErr, ctx.Err()) {
		return sendErr
	}
	// bookkeeping must land even when ctx is cancelled mid-flight
	store := context.WithoutCancel(ctx)

	switch classify(resp, sendErr) {
	case outcomeDone:
		op.Status = StatusDone
		op.LastError = ""
		if err := q.store.Update(store, op); err != nil {
			return err
		}
		res.Sent++
		return nil

	case outcomeDead:
		op.Attempts++
		op.Status = StatusDead
		op.LastError = apiError(resp).Error()
		if err := q.store.Update(store, op); err != nil {
			return err
		}
		res.Dead++
		q.logger.Warn("Operation rejected by server",
			zap.String("id", op.ID.String()),
			zap.String("kind", string(op.Kind)),
			zap.Int("status", resp.StatusCode),
			zap.String("error", op.LastError))
		return nil

	case outcomeStop:
		op.Attempts++
		apiErr := apiError(resp)
		op.LastError = apiErr.Error()
		if err := q.store.Update(store, op); err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %v", ErrUnauthorized, apiErr)
		}
		return apiErr

	default:
		op.Attempts++
		if sendErr != nil {
			op.LastError = sendErr.Error()
		} else {
			op.LastError = apiError(resp).Error()
		}
		if err := q.store.Update(store, op); err != nil {
			return err
		}
		delay := q.backoff()
		q.logger.Info("Server unavailable, backing off",
			zap.String("id", op.ID.String()),
			zap.Int("attempts", op.Attempts),
			zap.Duration("retry_in", delay),
			zap.String("error", op.LastError))
		if sendErr != nil {
			return sendErr
		}
		return fmt.Errorf("%w: %s", ErrUnreachable, op.LastError)
	}
}

// backoff records a transient failure and returns the wait before the next try
func (q *Queue) backoff() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failures++
	delay := time.Duration(float64(q.cfg.BaseBackoff) * math.Pow(2, float64(q.failures-1)))
	if delay > q.cfg.MaxBackoff || delay <= 0 {
		delay = q.cfg.MaxBackoff
	}
	q.retryAt = q.now().Add(delay)
	return delay
}

// ResetBackoff lets the next Flush run immediately
func (q *Queue) ResetBackoff() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failures = 0
	q.retryAt = time.Time{}
}

// Pending lists operations waiting to be sent, oldest first
func (q *Queue) Pending(ctx context.Context) ([]*Operation, error) {
	return q.store.List(ctx, StatusPending, 0)
}

// Dead lists operations the server rejected
func (q *Queue) Dead(ctx context.Context) ([]*Operation, error) {
	return q.store.List(ctx, StatusDead, 0)
}

// Retry returns a dead operation to the queue at its original position
func (q *Queue) Retry(ctx context.Context, id uuid.UUID) (*Operation, error) {
	op, err := q.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if op.Status != StatusDead {
		return nil, ErrNotDead
	}
	op.Status = StatusPending
	op.LastError = ""
	if err := q.store.Update(ctx, op); err != nil {
		return nil, err
	}
	q.logger.Info("Dead operation requeued", zap.String("id", op.ID.String()))
	q.signal()
	return op, nil
}

// Stats summarizes the queue
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error
	if s.Pending, err = q.store.Count(ctx, StatusPending); err != nil {
		return s, err
	}
	if s.Dead, err = q.store.Count(ctx, StatusDead); err != nil {
		return s, err
	}
	if s.OldestPending, err = q.store.OldestPending(ctx); err != nil {
		return s, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.lastFlush.IsZero() {
		t := q.lastFlush
		s.LastFlush = &t
	}
	if q.now().Before(q.retryAt) {
		t := q.retryAt
		s.RetryAt = &t
	}
	s.LastError = q.lastError
	return s, nil
}
