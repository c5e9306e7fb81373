package handler

import (
	"time"

	catalogapp "github.com/cloudpos/backend/internal/application/catalog"
	"github.com/gin-gonic/gin"
)

// ProductHandler handles catalog endpoints
type ProductHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *catalogapp.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// SearchQuery holds the POS search box parameters
type SearchQuery struct {
	Q     string `form:"q" binding:"required,min=1,max=100"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

// SyncQuery holds the offline catalog feed parameters
type SyncQuery struct {
	Since time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit int       `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// Create godoc
// @ID           createProduct
// @Summary      Create a product
// @Description  Creates a product with at least one variant
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.CreateProductRequest true "Product"
// @Success      201 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req catalogapp.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.Create(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Get godoc
// @ID           getProductById
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	byID(&h.BaseHandler, c, h.productService.Get)
}

// List godoc
// @ID           listProducts
// @Summary      List products
// @Tags         products
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Search name, SKU or barcode"
// @Param        category query string false "Category"
// @Param        is_active query bool false "Active filter"
// @Success      200 {object} APIResponse[[]catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /catalog/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter catalogapp.ProductListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.productService.List(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Update godoc
// @ID           updateProduct
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.UpdateProductRequest true "Product"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /catalog/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.Update(c.Request.Context(), p, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Activate godoc
// @ID           activateProduct
// @Summary      Activate a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /catalog/products/{id}/activate [post]
func (h *ProductHandler) Activate(c *gin.Context) {
	byID(&h.BaseHandler, c, h.productService.Activate)
}

// Deactivate godoc
// @ID           deactivateProduct
// @Summary      Deactivate a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /catalog/products/{id}/deactivate [post]
func (h *ProductHandler) Deactivate(c *gin.Context) {
	byID(&h.BaseHandler, c, h.productService.Deactivate)
}

// AddVariant godoc
// @ID           addVariantProduct
// @Summary      Add a variant
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.VariantRequest true "Variant"
// @Success      201 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id}/variants [post]
func (h *ProductHandler) AddVariant(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.VariantRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.AddVariant(c.Request.Context(), p, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// UpdateVariant godoc
// @ID           updateVariantProduct
// @Summary      Update a variant
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        variant_id path string true "Variant ID" format(uuid)
// @Param        request body catalogapp.VariantRequest true "Variant"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /catalog/products/{id}/variants/{variant_id} [put]
func (h *ProductHandler) UpdateVariant(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	variantID, ok := h.parseID(c, "variant_id")
	if !ok {
		return
	}
	var req catalogapp.VariantRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.UpdateVariant(c.Request.Context(), p, id, variantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// SetPriceTiers godoc
// @ID           setPriceTiersProduct
// @Summary      Replace variant price tiers
// @Description  Tiers may not repeat a (name, min_qty) pair
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        variant_id path string true "Variant ID" format(uuid)
// @Param        request body catalogapp.SetPriceTiersRequest true "Tiers"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /catalog/products/{id}/variants/{variant_id}/tiers [put]
func (h *ProductHandler) SetPriceTiers(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	variantID, ok := h.parseID(c, "variant_id")
	if !ok {
		return
	}
	var req catalogapp.SetPriceTiersRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.SetPriceTiers(c.Request.Context(), p, id, variantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// RemoveVariant godoc
// @ID           removeVariantProduct
// @Summary      Remove a variant
// @Description  The last active variant cannot be removed
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        variant_id path string true "Variant ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id}/variants/{variant_id} [delete]
func (h *ProductHandler) RemoveVariant(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	variantID, ok := h.parseID(c, "variant_id")
	if !ok {
		return
	}
	product, err := h.productService.RemoveVariant(c.Request.Context(), p, id, variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// RequestImageUpload godoc
// @ID           requestImageUploadProduct
// @Summary      Presigned image upload
// @Description  Returns a presigned PUT URL; confirm the upload afterwards
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.ImageUploadRequest true "File"
// @Success      200 {object} APIResponse[catalogapp.ImageUploadResponse]
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id}/image/upload-url [post]
func (h *ProductHandler) RequestImageUpload(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.ImageUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	out, err := h.productService.RequestImageUpload(c.Request.Context(), p, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// ConfirmImage godoc
// @ID           confirmImageProduct
// @Summary      Attach an uploaded image
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.ConfirmImageRequest true "Storage key"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id}/image [put]
func (h *ProductHandler) ConfirmImage(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.ConfirmImageRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.ConfirmImage(c.Request.Context(), p, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// FindByBarcode godoc
// @ID           findByBarcodeProduct
// @Summary      Scan a barcode
// @Tags         products
// @Produce      json
// @Param        code path string true "Barcode"
// @Success      200 {object} APIResponse[catalogapp.SellableVariantResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/barcode/{code} [get]
func (h *ProductHandler) FindByBarcode(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	v, err := h.productService.FindByBarcode(c.Request.Context(), p, c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, v)
}

// FindBySKU godoc
// @ID           findBySKUProduct
// @Summary      Look up a SKU
// @Tags         products
// @Produce      json
// @Param        sku path string true "SKU"
// @Success      200 {object} APIResponse[catalogapp.SellableVariantResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/sku/{sku} [get]
func (h *ProductHandler) FindBySKU(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	v, err := h.productService.FindBySKU(c.Request.Context(), p, c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, v)
}

// Search godoc
// @ID           searchProducts
// @Summary      POS search
// @Description  Full-text search over sellable variants, falling back to the database when the index is down
// @Tags         products
// @Produce      json
// @Param        q query string true "Query"
// @Param        limit query int false "Max results" default(20)
// @Success      200 {object} APIResponse[[]catalogapp.SellableVariantResponse]
// @Security     BearerAuth
// @Router       /catalog/search [get]
func (h *ProductHandler) Search(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q SearchQuery
	if !h.bindQuery(c, &q) {
		return
	}
	results, err := h.productService.Search(c.Request.Context(), p, q.Q, q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, results)
}

// Sync godoc
// @ID           syncProducts
// @Summary      Offline catalog feed
// @Description  Variants changed since the given instant, oldest first; follow next while has_more
// @Tags         products
// @Produce      json
// @Param        since query string false "RFC 3339 instant" format(date-time)
// @Param        limit query int false "Page size" default(500)
// @Success      200 {object} APIResponse[catalogapp.SyncResponse]
// @Security     BearerAuth
// @Router       /catalog/products/sync [get]
func (h *ProductHandler) Sync(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q SyncQuery
	if !h.bindQuery(c, &q) {
		return
	}
	out, err := h.productService.Sync(c.Request.Context(), p, q.Since, q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}
