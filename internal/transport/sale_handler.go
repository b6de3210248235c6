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

// SaleLinePayload is one product/quantity pair in a sale request
type SaleLinePayload struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
}

// CreateSaleRequest represents the sale creation payload
type CreateSaleRequest struct {
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=cash card pix"`
	Items         []SaleLinePayload `json:"items" validate:"required,min=1,dive"`
}

// SaleListResponse represents a page of sale summaries
type SaleListResponse struct {
	Sales  []*domain.Sale `json:"sales"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// SaleHandler handles HTTP requests for sale operations
type SaleHandler struct {
	saleService service.SaleService
	logger      *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService service.SaleService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
		logger:      logger,
	}
}

// RegisterRoutes registers all sale routes. createLimiter is applied to sale
// creation only, so a stuck client hammering the till cannot starve reads.
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware, createLimiter func(http.Handler) http.Handler) {
	r.Route("/api/sales", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(createLimiter)
			r.Post("/", h.Create)
		})

		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
	})
}

// Create handles sale creation. The seller is always the authenticated
// caller; the payload cannot attribute the sale to someone else.
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateSaleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Sale validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]service.SaleLineRequest, len(req.Items))
	for i, item := range req.Items {
		lines[i] = service.SaleLineRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	sale, err := h.saleService.CreateSale(r.Context(), sellerID, domain.PaymentMethod(req.PaymentMethod), lines)
	if err != nil {
		h.respondSaleError(w, err)
		return
	}

	h.logger.Info("Sale committed",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("seller_id", sellerID),
		zap.String("total", sale.Total.String()),
		zap.Int("items", len(sale.Items)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, sale)
}

// Get handles retrieving a single sale. Sellers can only read their own
// sales; managers can read any.
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	role, _ := middleware.GetUserRole(r.Context())

	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	sale, err := h.saleService.GetSale(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "sale not found")
			return
		}
		h.logger.Error("Failed to get sale", zap.Int64("sale_id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get sale")
		return
	}

	if role != middleware.ManagerRole && sale.SellerID != callerID {
		middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sale)
}

// List handles listing sale summaries. Sellers are always scoped to their
// own sales; managers may narrow by seller_id.
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	role, _ := middleware.GetUserRole(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	filter := repository.SaleFilter{Limit: limit, Offset: offset}
	if role == middleware.ManagerRole {
		if raw := r.URL.Query().Get("seller_id"); raw != "" {
			sellerID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || sellerID <= 0 {
				middleware.RespondWithError(w, http.StatusBadRequest, "invalid seller_id")
				return
			}
			filter.SellerID = &sellerID
		}
	} else {
		filter.SellerID = &callerID
	}

	sales, err := h.saleService.ListSales(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list sales", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list sales")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, SaleListResponse{
		Sales:  sales,
		Limit:  limit,
		Offset: offset,
	})
}

// respondSaleError maps sale creation failures to HTTP responses. Stock
// shortfalls carry the requested and available quantities so the till can
// tell the operator exactly what is missing.
func (h *SaleHandler) respondSaleError(w http.ResponseWriter, err error) {
	var stockErr *repository.InsufficientStockError
	var lineErr *repository.SaleLineError

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stockErr):
		details := map[string]interface{}{
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		}
		if errors.As(err, &lineErr) {
			details["line"] = lineErr.Line
		}
		middleware.RespondWithErrorDetails(w, http.StatusConflict, "insufficient stock", details)
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrProductInactive):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrNegativePrice), errors.Is(err, domain.ErrNoItems):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Sale creation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create sale")
	}
}
