package catalog

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	PermViewProduct   = "view:product"
	PermCreateProduct = "create:product"
	PermEditProduct   = "edit:product"

	defaultSearchLimit = 20
	maxSyncPage        = 500
)

var ErrInvalidCategory = shared.NewDomainError("INVALID_CATEGORY", "Category does not exist in business settings")

// ImageConfig controls presigned product image URLs
type ImageConfig struct {
	UploadExpiry   time.Duration
	DownloadExpiry time.Duration
}

// ProductService handles product and variant operations
type ProductService struct {
	products   catalog.ProductRepository
	businesses business.Repository
	index      catalog.SearchIndex
	storage    ObjectStorageService
	publisher  shared.EventPublisher
	cfg        ImageConfig
	logger     *zap.Logger
}

// NewProductService creates a new ProductService. index may be nil, in which
// case search always uses the database.
func NewProductService(
	products catalog.ProductRepository,
	businesses business.Repository,
	index catalog.SearchIndex,
	storage ObjectStorageService,
	publisher shared.EventPublisher,
	cfg ImageConfig,
	logger *zap.Logger,
) *ProductService {
	if cfg.UploadExpiry <= 0 {
		cfg.UploadExpiry = 15 * time.Minute
	}
	if cfg.DownloadExpiry <= 0 {
		cfg.DownloadExpiry = time.Hour
	}
	return &ProductService{
		products:   products,
		businesses: businesses,
		index:      index,
		storage:    storage,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Create adds a product with at least one variant
func (s *ProductService) Create(ctx context.Context, p *identity.Principal, req CreateProductRequest) (*ProductResponse, error) {
	if err := p.Require(PermCreateProduct, nil); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, p.TenantID, req.Category); err != nil {
		return nil, err
	}

	inputs := make([]catalog.VariantInput, len(req.Variants))
	for i, v := range req.Variants {
		inputs[i] = v.toInput()
	}
	trackStock := true
	if req.TrackStock != nil {
		trackStock = *req.TrackStock
	}
	product, err := catalog.NewProduct(p.TenantID, catalog.ProductInput{
		Name:        req.Name,
		Category:    req.Category,
		Brand:       req.Brand,
		Description: req.Description,
		Unit:        req.Unit,
		TrackStock:  trackStock,
	}, inputs)
	if err != nil {
		return nil, err
	}
	for _, v := range product.Variants {
		if err := s.checkUnique(ctx, p.TenantID, v.SKU, v.Barcode, uuid.Nil); err != nil {
			return nil, err
		}
	}
	product.SetCreatedBy(p.UserID)

	if err := s.save(ctx, product); err != nil {
		return nil, err
	}
	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.Int("variants", len(product.Variants)))
	resp := ToProductResponse(product)
	return &resp, nil
}

// Get returns a product with a presigned image URL when it has an image
func (s *ProductService) Get(ctx context.Context, p *identity.Principal, id uuid.UUID) (*ProductResponse, error) {
	if err := p.Require(PermViewProduct, nil); err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	if product.ImageKey != "" && s.storage != nil {
		url, _, err := s.storage.GenerateDownloadURL(ctx, product.ImageKey, s.cfg.DownloadExpiry)
		if err != nil {
			s.logger.Warn("Failed to presign product image", zap.String("key", product.ImageKey), zap.Error(err))
		} else {
			resp.ImageURL = url
		}
	}
	return &resp, nil
}

// List returns products matching filter
func (s *ProductService) List(ctx context.Context, p *identity.Principal, f ProductListFilter) (shared.Paginated[ProductResponse], error) {
	if err := p.Require(PermViewProduct, nil); err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	filter := catalog.ProductFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			Search:   strings.TrimSpace(f.Search),
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
		},
		Category: f.Category,
		IsActive: f.IsActive,
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
		filter.OrderDir = "asc"
	}
	filter.Normalize()

	products, total, err := s.products.FindAll(ctx, p.TenantID, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	items := make([]ProductResponse, len(products))
	for i, prod := range products {
		items[i] = ToProductResponse(prod)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update edits the shared product fields
func (s *ProductService) Update(ctx context.Context, p *identity.Principal, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	return s.mutate(ctx, p, id, func(product *catalog.ProductMeta) error {
		if req.Category != product.Category {
			if err := s.checkCategory(ctx, p.TenantID, req.Category); err != nil {
				return err
			}
		}
		return product.Update(catalog.ProductInput{
			Name:        req.Name,
			Category:    req.Category,
			Brand:       req.Brand,
			Description: req.Description,
			Unit:        req.Unit,
			TrackStock:  req.TrackStock,
		})
	})
}

// AddVariant appends a SKU to a product
func (s *ProductService) AddVariant(ctx context.Context, p *identity.Principal, id uuid.UUID, req VariantRequest) (*ProductResponse, error) {
	return s.mutate(ctx, p, id, func(product *catalog.ProductMeta) error {
		in := req.toInput()
		if err := s.checkUnique(ctx, p.TenantID, in.SKU, in.Barcode, uuid.Nil); err != nil {
			return err
		}
		_, err := product.AddVariant(in)
		return err
	})
}

// UpdateVariant edits a variant
func (s *ProductService) UpdateVariant(ctx context.Context, p *identity.Principal, id, variantID uuid.UUID, req VariantRequest) (*ProductResponse, error) {
	return s.mutate(ctx, p, id, func(product *catalog.ProductMeta) error {
		in := req.toInput()
		if err := s.checkUnique(ctx, p.TenantID, in.SKU, in.Barcode, variantID); err != nil {
			return err
		}
		return product.UpdateVariant(variantID, in)
	})
}

// SetPriceTiers replaces the price tiers of a variant
func (s *ProductService) SetPriceTiers(ctx context.Context, p *identity.Principal, id, variantID uuid.UUID, req SetPriceTiersRequest) (*ProductResponse, error) {
	return s.mutate(ctx, p, id, func(product *catalog.ProductMeta) error {
		return product.SetPriceTiers(variantID, toTiers(req.PriceTiers))
	})
}

// RemoveVariant takes a variant off sale; the last active one stays
func (s *ProductService) RemoveVariant(ctx context.Context, p *identity.Principal, id, variantID uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, p, id, func(product *catalog.ProductMeta) error {
		return product.RemoveVariant(variantID)
	})
}

// Activate re-lists a product
func (s *ProductService) Activate(ctx context.Context, p *identity.Principal, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, p, id, (*catalog.ProductMeta).Activate)
}

// Deactivate de-lists a product
func (s *ProductService) Deactivate(ctx context.Context, p *identity.Principal, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, p, id, (*catalog.ProductMeta).Deactivate)
}

// FindByBarcode is the scanner lookup
func (s *ProductService) FindByBarcode(ctx context.Context, p *identity.Principal, barcode string) (*SellableVariantResponse, error) {
	if err := p.Require(PermViewProduct, nil); err != nil {
		return nil, err
	}
	v, err := s.products.FindVariantByBarcode(ctx, p.TenantID, strings.TrimSpace(barcode))
	if err != nil {
		return nil, err
	}
	resp := ToSellableVariantResponse(*v)
	return &resp, nil
}

// FindBySKU looks a variant up by SKU
func (s *ProductService) FindBySKU(ctx context.Context, p *identity.Principal, sku string) (*SellableVariantResponse, error) {
	if err := p.Require(PermViewProduct, nil); err != nil {
		return nil, err
	}
	v, err := s.products.FindVariantBySKU(ctx, p.TenantID, strings.ToUpper(strings.TrimSpace(sku)))
	if err != nil {
		return nil, err
	}
	resp := ToSellableVariantResponse(*v)
	return &resp, nil
}

// Search queries the search index and falls back to the database when the
// index is missing or unavailable
func (s *ProductService) Search(ctx context.Context, p *identity.Principal, query string, limit int) ([]SellableVariantResponse, error) {
	if err := p.Require(PermViewProduct, nil); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if limit <= 0 || limit > 100 {
		limit = defaultSearchLimit
	}

	views, err := s.searchIndex(ctx, p.TenantID, query, limit)
	if err != nil {
		s.logger.Warn("Search index unavailable, using database", zap.Error(err))
		views, err = s.products.SearchVariants(ctx, p.TenantID, query, limit)
		if err != nil {
			return nil, err
		}
	}

	out := make([]SellableVariantResponse, 0, len(views))
	for _, v := range views {
		if v.Sellable() {
			out = append(out, ToSellableVariantResponse(v))
		}
	}
	return out, nil
}

var errNoIndex = errors.New("search index not configured")

func (s *ProductService) searchIndex(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]catalog.VariantView, error) {
	if s.index == nil {
		return nil, errNoIndex
	}
	ids, err := s.index.Search(ctx, tenantID, query, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	views, err := s.products.FindVariantsByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	// keep the index ranking
	byID := make(map[uuid.UUID]catalog.VariantView, len(views))
	for _, v := range views {
		byID[v.ID] = v
	}
	ordered := make([]catalog.VariantView, 0, len(views))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered, nil
}

// Sync returns variants changed after since, oldest first, for the offline
// catalog cache. Inactive rows are included so devices can drop them.
func (s *ProductService) Sync(ctx context.Context, p *identity.Principal, since time.Time, limit int) (*SyncResponse, error) {
	if err := p.Require(PermViewProduct, nil); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxSyncPage {
		limit = maxSyncPage
	}
	views, err := s.products.VariantsChangedSince(ctx, p.TenantID, since, limit+1)
	if err != nil {
		return nil, err
	}
	hasMore := len(views) > limit
	if hasMore {
		views = views[:limit]
	}
	resp := &SyncResponse{
		Items:   make([]SellableVariantResponse, len(views)),
		Next:    since,
		HasMore: hasMore,
	}
	for i, v := range views {
		resp.Items[i] = ToSellableVariantResponse(v)
		if v.UpdatedAt.After(resp.Next) {
			resp.Next = v.UpdatedAt
		}
	}
	return resp, nil
}

// RequestImageUpload returns a presigned PUT URL for the product image
func (s *ProductService) RequestImageUpload(ctx context.Context, p *identity.Principal, id uuid.UUID, req ImageUploadRequest) (*ImageUploadResponse, error) {
	if err := p.Require(PermEditProduct, nil); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, shared.NewDomainError("STORAGE_DISABLED", "Image uploads are not configured")
	}
	product, err := s.products.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	key := imageKey(p.TenantID, product.ID, req.Filename)
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, req.ContentType, s.cfg.UploadExpiry)
	if err != nil {
		return nil, err
	}
	return &ImageUploadResponse{UploadURL: url, StorageKey: key, ExpiresAt: expiresAt}, nil
}

// ConfirmImage attaches an uploaded object after checking it exists. The
// previous image is deleted best-effort.
func (s *ProductService) ConfirmImage(ctx context.Context, p *identity.Principal, id uuid.UUID, req ConfirmImageRequest) (*ProductResponse, error) {
	if s.storage == nil {
		return nil, shared.NewDomainError("STORAGE_DISABLED", "Image uploads are not configured")
	}
	prefix := imageKey(p.TenantID, id, "")
	if !strings.HasPrefix(req.StorageKey, prefix) {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Storage key does not belong to this product")
	}
	exists, err := s.storage.ObjectExists(ctx, req.StorageKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.NewDomainError("UPLOAD_NOT_FOUND", "Uploaded image not found")
	}

	var previous string
	resp, err := s.mutate(ctx, p, id, func(product *catalog.ProductMeta) error {
		previous = product.ImageKey
		product.SetImage(req.StorageKey)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if previous != "" && previous != req.StorageKey {
		if err := s.storage.DeleteObject(ctx, previous); err != nil {
			s.logger.Warn("Failed to delete replaced image", zap.String("key", previous), zap.Error(err))
		}
	}
	return resp, nil
}

func imageKey(tenantID, productID uuid.UUID, filename string) string {
	prefix := fmt.Sprintf("products/%s/%s/", tenantID, productID)
	if filename == "" {
		return prefix
	}
	return prefix + path.Base(filename)
}

func (s *ProductService) mutate(ctx context.Context, p *identity.Principal, id uuid.UUID, fn func(*catalog.ProductMeta) error) (*ProductResponse, error) {
	if err := p.Require(PermEditProduct, nil); err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(product); err != nil {
		return nil, err
	}
	if err := s.save(ctx, product); err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

func (s *ProductService) save(ctx context.Context, product *catalog.ProductMeta) error {
	if err := s.products.Save(ctx, product); err != nil {
		return err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, product); err != nil {
		s.logger.Warn("Failed to publish product events", zap.Error(err))
	}
	return nil
}

func (s *ProductService) checkCategory(ctx context.Context, tenantID uuid.UUID, category string) error {
	if strings.TrimSpace(category) == "" {
		return nil
	}
	meta, err := s.businesses.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if !meta.HasCategory(category) {
		return ErrInvalidCategory
	}
	return nil
}

func (s *ProductService) checkUnique(ctx context.Context, tenantID uuid.UUID, sku, barcode string, exclude uuid.UUID) error {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	exists, err := s.products.SKUExists(ctx, tenantID, sku, exclude)
	if err != nil {
		return err
	}
	if exists {
		return catalog.ErrDuplicateSKU
	}
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil
	}
	exists, err = s.products.BarcodeExists(ctx, tenantID, barcode, exclude)
	if err != nil {
		return err
	}
	if exists {
		return catalog.ErrDuplicateBarcode
	}
	return nil
}
