package transport

import (
	"errors"
	"net/http"
	"strconv"

	"caixa-pos/internal/domain"
	"caixa-pos/internal/middleware"
	"caixa-pos/internal/repository"
	"caixa-pos/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest represents the create/update product payload
type ProductRequest struct {
	Name         string          `json:"name" validate:"required"`
	Barcode      *string         `json:"barcode,omitempty"`
	Price        decimal.Decimal `json:"price" validate:"required"`
	Active       *bool           `json:"active,omitempty"`
	InitialStock decimal.Decimal `json:"initial_stock"`
}

// RestockRequest represents the restock payload
type RestockRequest struct {
	Entries []RestockEntry `json:"entries" validate:"required,min=1,dive"`
}

// RestockEntry is one product/quantity pair in a restock
type RestockEntry struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
}

// ProductListResponse represents a paginated product listing
type ProductListResponse struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes. Reads are open to any
// authenticated staff member; writes require the manager role.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, managerOnly func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Get("/barcode/{barcode}", h.GetByBarcode)

		r.Group(func(r chi.Router) {
			r.Use(managerOnly)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Deactivate)
			r.Post("/stock", h.Restock)
		})
	})
}

// Create handles product creation
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.ProductInput{
		Name:    req.Name,
		Barcode: req.Barcode,
		Price:   req.Price,
		Active:  true,
	}

	product, err := h.productService.CreateProduct(r.Context(), input, req.InitialStock)
	if err != nil {
		h.logger.Error("Product creation failed", zap.Error(err))
		h.respondProductError(w, err)
		return
	}

	h.logger.Info("Product created", zap.Int64("product_id", product.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update handles product catalog updates
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	input := service.ProductInput{
		Name:    req.Name,
		Barcode: req.Barcode,
		Price:   req.Price,
		Active:  active,
	}

	product, err := h.productService.UpdateProduct(r.Context(), id, input)
	if err != nil {
		h.logger.Error("Product update failed", zap.Int64("product_id", id), zap.Error(err))
		h.respondProductError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Deactivate handles product soft deletion
func (h *ProductHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.productService.DeactivateProduct(r.Context(), id); err != nil {
		h.logger.Error("Product deactivation failed", zap.Int64("product_id", id), zap.Error(err))
		h.respondProductError(w, err)
		return
	}

	h.logger.Info("Product deactivated", zap.Int64("product_id", id))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "product deactivated"})
}

// Get handles retrieving a single product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		h.respondProductError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// GetByBarcode handles barcode lookup at the till
func (h *ProductHandler) GetByBarcode(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	if barcode == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "barcode is required")
		return
	}

	product, err := h.productService.GetProductByBarcode(r.Context(), barcode)
	if err != nil {
		h.respondProductError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// List handles paginated product listing
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	products, total, err := h.productService.ListProducts(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("Product listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Products: products,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// Restock handles crediting stock for one or more products
func (h *ProductHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Restock validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entries := make([]domain.StockEntry, len(req.Entries))
	for i, entry := range req.Entries {
		entries[i] = domain.StockEntry{ProductID: entry.ProductID, Quantity: entry.Quantity}
	}

	products, err := h.productService.Restock(r.Context(), entries)
	if err != nil {
		h.logger.Error("Restock failed", zap.Error(err))

		if errors.Is(err, service.ErrInvalidRestock) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respondProductError(w, err)
		return
	}

	h.logger.Info("Restock applied", zap.Int("entries", len(entries)))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

func (h *ProductHandler) respondProductError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrProductInactive):
		middleware.RespondWithError(w, http.StatusConflict, "product is inactive")
	case errors.Is(err, repository.ErrBarcodeTaken):
		middleware.RespondWithError(w, http.StatusConflict, "a product with this barcode already exists")
	case errors.Is(err, service.ErrInvalidProduct):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
