package catalog

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Save(ctx context.Context, p *catalog.ProductMeta) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProductRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*catalog.ProductMeta, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProductMeta), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter catalog.ProductFilter) ([]*catalog.ProductMeta, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*catalog.ProductMeta), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) FindVariantsByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]catalog.VariantView, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.VariantView), args.Error(1)
}

func (m *MockProductRepository) FindVariantByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*catalog.VariantView, error) {
	args := m.Called(ctx, tenantID, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.VariantView), args.Error(1)
}

func (m *MockProductRepository) FindVariantBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*catalog.VariantView, error) {
	args := m.Called(ctx, tenantID, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.VariantView), args.Error(1)
}

func (m *MockProductRepository) SKUExists(ctx context.Context, tenantID uuid.UUID, sku string, excludeVariant uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, sku, excludeVariant)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) BarcodeExists(ctx context.Context, tenantID uuid.UUID, barcode string, excludeVariant uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, barcode, excludeVariant)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) SearchVariants(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]catalog.VariantView, error) {
	args := m.Called(ctx, tenantID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.VariantView), args.Error(1)
}

func (m *MockProductRepository) VariantsChangedSince(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]catalog.VariantView, error) {
	args := m.Called(ctx, tenantID, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.VariantView), args.Error(1)
}

func (m *MockProductRepository) CountByCategory(ctx context.Context, tenantID uuid.UUID, category string) (int64, error) {
	args := m.Called(ctx, tenantID, category)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) RenameCategory(ctx context.Context, tenantID uuid.UUID, oldName, newName string) error {
	return m.Called(ctx, tenantID, oldName, newName).Error(0)
}

type MockBusinessRepository struct {
	mock.Mock
}

func (m *MockBusinessRepository) Save(ctx context.Context, meta *business.Meta) error {
	return m.Called(ctx, meta).Error(0)
}

func (m *MockBusinessRepository) Get(ctx context.Context, tenantID uuid.UUID) (*business.Meta, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*business.Meta), args.Error(1)
}

type MockSearchIndex struct {
	mock.Mock
}

func (m *MockSearchIndex) IndexProduct(ctx context.Context, p *catalog.ProductMeta) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockSearchIndex) RemoveProduct(ctx context.Context, tenantID, productID uuid.UUID) error {
	return m.Called(ctx, tenantID, productID).Error(0)
}

func (m *MockSearchIndex) Search(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, tenantID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}
