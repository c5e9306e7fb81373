package notification

import (
	"context"
	"sync"
	"time"

	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/notification"
	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockSMSRepository struct {
	mock.Mock
}

func (m *MockSMSRepository) Save(ctx context.Context, msg *notification.SMSMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockSMSRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter notification.SMSFilter) ([]*notification.SMSMessage, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*notification.SMSMessage), args.Get(1).(int64), args.Error(2)
}

func (m *MockSMSRepository) CountSent(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSMSRepository) FindRetryable(ctx context.Context, limit int) ([]*notification.SMSMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.SMSMessage), args.Error(1)
}

type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) Send(ctx context.Context, to, body, senderID string) (string, error) {
	args := m.Called(ctx, to, body, senderID)
	return args.String(0), args.Error(1)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, msg notification.Email) error {
	return m.Called(ctx, msg).Error(0)
}

// metaStore serves a single business row
type metaStore struct {
	meta *business.Meta
}

func (s *metaStore) Save(_ context.Context, m *business.Meta) error {
	s.meta = m
	return nil
}

func (s *metaStore) Get(_ context.Context, tenantID uuid.UUID) (*business.Meta, error) {
	if s.meta == nil || s.meta.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return s.meta, nil
}

type fixedQuota int

func (q fixedQuota) SMSQuota(context.Context, uuid.UUID) (int, error) {
	return int(q), nil
}

type receiptMap map[uuid.UUID]*sales.Receipt

func (r receiptMap) LoadReceipt(_ context.Context, _ uuid.UUID, orderID uuid.UUID) (*sales.Receipt, error) {
	if rec, ok := r[orderID]; ok {
		return rec, nil
	}
	return nil, shared.ErrNotFound
}

type htmlRenderer struct{}

func (htmlRenderer) RenderInvoice(r *sales.Receipt) (string, error) {
	return "<html>" + r.Order.InvoiceNumber + "</html>", nil
}

type pdfRenderer struct{}

func (pdfRenderer) RenderPDF(_ context.Context, html string) ([]byte, error) {
	return []byte("%PDF " + html), nil
}

// docStore keeps uploads in memory
type docStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newDocStore() *docStore {
	return &docStore{objects: make(map[string][]byte)}
}

func (d *docStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.objects[key] = data
	return nil
}

func (d *docStore) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	return "https://files.example.lk/" + key, time.Now().Add(expiresIn), nil
}
