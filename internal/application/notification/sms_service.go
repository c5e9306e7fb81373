package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/notification"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Permissions for the SMS screens
const (
	PermSendSMS = "manage:sms"
	PermViewSMS = "view:sms"
)

// ErrSMSDisabled is returned when the business has not switched SMS on
var ErrSMSDisabled = shared.NewDomainError("SMS_DISABLED", "SMS is not enabled for this business")

// SMSOptions tunes delivery
type SMSOptions struct {
	// InlineAttempts is how many tries Send makes before leaving the message
	// to RetryFailed
	InlineAttempts int
	Backoff        time.Duration
	RetryBatch     int
	Location       *time.Location
	// Metrics is optional
	Metrics DeliveryRecorder
}

// SMSService sends SMS through the configured provider and keeps the log
type SMSService struct {
	repo       notification.SMSRepository
	sender     notification.SMSSender
	businesses business.Repository
	quota      SMSQuotaSource
	opts       SMSOptions
	logger     *zap.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewSMSService creates a new SMSService
func NewSMSService(repo notification.SMSRepository, sender notification.SMSSender, businesses business.Repository, quota SMSQuotaSource, opts SMSOptions, logger *zap.Logger) *SMSService {
	if opts.InlineAttempts <= 0 || opts.InlineAttempts > notification.MaxAttempts {
		opts.InlineAttempts = 1
	}
	if opts.RetryBatch <= 0 {
		opts.RetryBatch = 100
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &SMSService{
		repo:       repo,
		sender:     sender,
		businesses: businesses,
		quota:      quota,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SendSMS sends an ad-hoc message on behalf of a user
func (s *SMSService) SendSMS(ctx context.Context, p *identity.Principal, req SendSMSRequest) (*SMSResponse, error) {
	if !p.CanInSomeBranch(PermSendSMS) {
		return nil, shared.ErrForbidden
	}
	purpose := notification.Purpose(req.Purpose)
	if purpose == "" {
		purpose = notification.PurposePromo
	}
	m, err := s.Send(ctx, p.TenantID, req.To, req.Body, purpose)
	if err != nil {
		return nil, err
	}
	resp := ToSMSResponse(m)
	return &resp, nil
}

// Send records and delivers one message. Delivery failures are not returned
// as errors: the message is logged FAILED and picked up by RetryFailed.
func (s *SMSService) Send(ctx context.Context, tenantID uuid.UUID, to, body string, purpose notification.Purpose) (*notification.SMSMessage, error) {
	meta, err := s.businesses.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !meta.SMSEnabled {
		return nil, ErrSMSDisabled
	}
	if err := s.checkQuota(ctx, tenantID); err != nil {
		return nil, err
	}

	m, err := notification.NewSMSMessage(tenantID, to, body, meta.SMSSenderID, purpose)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, m); err != nil {
		return nil, err
	}
	s.deliver(ctx, m, s.opts.InlineAttempts)
	if err := s.repo.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// deliver tries up to attempts times, backing off between tries
func (s *SMSService) deliver(ctx context.Context, m *notification.SMSMessage, attempts int) {
	delay := s.opts.Backoff
	for i := 0; i < attempts && m.CanRetry(); i++ {
		if i > 0 {
			if err := s.sleep(ctx, delay); err != nil {
				return
			}
			delay *= 2
		}
		ref, err := s.sender.Send(ctx, m.To, m.Body, m.SenderID)
		m.RecordAttempt(ref, err)
		if s.opts.Metrics != nil {
			s.opts.Metrics.RecordSMS(ctx, string(m.Purpose), string(m.Status))
		}
		if err == nil {
			return
		}
		s.logger.Warn("SMS delivery failed",
			zap.String("sms_id", m.ID.String()),
			zap.String("purpose", string(m.Purpose)),
			zap.Int("attempt", m.Attempts),
			zap.Error(err))
	}
}

func (s *SMSService) checkQuota(ctx context.Context, tenantID uuid.UUID) error {
	if s.quota == nil {
		return nil
	}
	quota, err := s.quota.SMSQuota(ctx, tenantID)
	if err != nil {
		return err
	}
	from, to := notification.MonthRange(s.now(), s.opts.Location)
	sent, err := s.repo.CountSent(ctx, tenantID, from, to)
	if err != nil {
		return err
	}
	if sent >= int64(quota) {
		return notification.ErrQuotaExhausted
	}
	return nil
}

// RetryFailed resends FAILED messages that still have attempts left, one
// attempt per run
func (s *SMSService) RetryFailed(ctx context.Context) (int, error) {
	messages, err := s.repo.FindRetryable(ctx, s.opts.RetryBatch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, m := range messages {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		s.deliver(ctx, m, 1)
		if err := s.repo.Save(ctx, m); err != nil {
			s.logger.Error("Failed to save SMS retry", zap.String("sms_id", m.ID.String()), zap.Error(err))
			continue
		}
		if m.Status == notification.SMSStatusSent {
			sent++
		}
	}
	return sent, nil
}

// ListSMS pages through the SMS log
func (s *SMSService) ListSMS(ctx context.Context, p *identity.Principal, f SMSListFilter) (shared.Paginated[SMSResponse], error) {
	if !p.CanInSomeBranch(PermViewSMS) {
		return shared.Paginated[SMSResponse]{}, shared.ErrForbidden
	}
	filter := notification.SMSFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			Search:   strings.TrimSpace(f.Search),
			From:     f.From,
			To:       f.To,
		},
		Status:  notification.SMSStatus(f.Status),
		Purpose: notification.Purpose(f.Purpose),
	}
	filter.Normalize()

	messages, total, err := s.repo.FindAll(ctx, p.TenantID, filter)
	if err != nil {
		return shared.Paginated[SMSResponse]{}, err
	}
	items := make([]SMSResponse, len(messages))
	for i, m := range messages {
		items[i] = ToSMSResponse(m)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// SMSUsage counts sent messages in the month of t against the plan quota
func (s *SMSService) SMSUsage(ctx context.Context, p *identity.Principal, month time.Time) (*SMSUsageResponse, error) {
	if !p.CanInSomeBranch(PermViewSMS) {
		return nil, shared.ErrForbidden
	}
	if month.IsZero() {
		month = s.now()
	}
	from, to := notification.MonthRange(month, s.opts.Location)
	sent, err := s.repo.CountSent(ctx, p.TenantID, from, to)
	if err != nil {
		return nil, err
	}
	resp := &SMSUsageResponse{Month: from.Format("2006-01"), Sent: sent}
	if s.quota != nil {
		quota, err := s.quota.SMSQuota(ctx, p.TenantID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		resp.Quota = quota
	}
	if remaining := int64(resp.Quota) - sent; remaining > 0 {
		resp.Remaining = remaining
	}
	return resp, nil
}
