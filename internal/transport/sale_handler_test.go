package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"caixa-pos/internal/domain"
	"caixa-pos/internal/middleware"
	"caixa-pos/internal/repository"
	"caixa-pos/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func withChiURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type mockSaleService struct {
	createSale   func(ctx context.Context, sellerID int64, method domain.PaymentMethod, lines []service.SaleLineRequest) (*domain.Sale, error)
	getSale      func(ctx context.Context, id int64) (*domain.Sale, error)
	gotFilter    repository.SaleFilter
	listedFilter bool
}

func (m *mockSaleService) CreateSale(ctx context.Context, sellerID int64, method domain.PaymentMethod, lines []service.SaleLineRequest) (*domain.Sale, error) {
	if m.createSale != nil {
		return m.createSale(ctx, sellerID, method, lines)
	}
	return &domain.Sale{ID: 1, SellerID: sellerID, PaymentMethod: method, Status: domain.SaleFinalized}, nil
}

func (m *mockSaleService) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	if m.getSale != nil {
		return m.getSale(ctx, id)
	}
	return nil, repository.ErrSaleNotFound
}

func (m *mockSaleService) ListSales(ctx context.Context, filter repository.SaleFilter) ([]*domain.Sale, error) {
	m.gotFilter = filter
	m.listedFilter = true
	return []*domain.Sale{}, nil
}

func authedRequest(method, target string, body []byte, userID int64, role string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, middleware.UserRoleKey, role)
	return req.WithContext(ctx)
}

func TestSaleHandler_Create_AttributesSaleToCaller(t *testing.T) {
	var gotSellerID int64
	svc := &mockSaleService{
		createSale: func(ctx context.Context, sellerID int64, method domain.PaymentMethod, lines []service.SaleLineRequest) (*domain.Sale, error) {
			gotSellerID = sellerID
			return &domain.Sale{ID: 10, SellerID: sellerID, PaymentMethod: method, Status: domain.SaleFinalized}, nil
		},
	}
	logger, _ := zap.NewDevelopment()
	handler := NewSaleHandler(svc, logger)

	body, _ := json.Marshal(CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []SaleLinePayload{
			{ProductID: 1, Quantity: decimal.NewFromInt(2)},
		},
	})
	w := httptest.NewRecorder()
	handler.Create(w, authedRequest(http.MethodPost, "/api/sales", body, 42, "seller"))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int64(42), gotSellerID, "seller must come from the token, not the payload")
}

func TestSaleHandler_Create_RejectsUnknownPaymentMethod(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	handler := NewSaleHandler(&mockSaleService{}, logger)

	body, _ := json.Marshal(CreateSaleRequest{
		PaymentMethod: "voucher",
		Items: []SaleLinePayload{
			{ProductID: 1, Quantity: decimal.NewFromInt(1)},
		},
	})
	w := httptest.NewRecorder()
	handler.Create(w, authedRequest(http.MethodPost, "/api/sales", body, 1, "seller"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaleHandler_Create_InsufficientStockReturnsConflictWithDetail(t *testing.T) {
	svc := &mockSaleService{
		createSale: func(context.Context, int64, domain.PaymentMethod, []service.SaleLineRequest) (*domain.Sale, error) {
			return nil, &repository.SaleLineError{
				Line:      0,
				ProductID: 7,
				Err: &repository.InsufficientStockError{
					ProductID: 7,
					Requested: decimal.NewFromInt(6),
					Available: decimal.NewFromInt(4),
				},
			}
		},
	}
	logger, _ := zap.NewDevelopment()
	handler := NewSaleHandler(svc, logger)

	body, _ := json.Marshal(CreateSaleRequest{
		PaymentMethod: "card",
		Items: []SaleLinePayload{
			{ProductID: 7, Quantity: decimal.NewFromInt(6)},
		},
	})
	w := httptest.NewRecorder()
	handler.Create(w, authedRequest(http.MethodPost, "/api/sales", body, 1, "seller"))

	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Error struct {
			Message string                 `json:"message"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "insufficient stock", resp.Error.Message)
	assert.EqualValues(t, 7, resp.Error.Details["product_id"])
	assert.Equal(t, "6", resp.Error.Details["requested"])
	assert.Equal(t, "4", resp.Error.Details["available"])
}

func TestSaleHandler_List_SellersAreScopedToThemselves(t *testing.T) {
	svc := &mockSaleService{}
	logger, _ := zap.NewDevelopment()
	handler := NewSaleHandler(svc, logger)

	// A seller asking for someone else's sales still only gets their own
	w := httptest.NewRecorder()
	handler.List(w, authedRequest(http.MethodGet, "/api/sales?seller_id=99", nil, 5, "seller"))

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, svc.listedFilter)
	require.NotNil(t, svc.gotFilter.SellerID)
	assert.Equal(t, int64(5), *svc.gotFilter.SellerID)
}

func TestSaleHandler_List_ManagersMayFilterBySeller(t *testing.T) {
	svc := &mockSaleService{}
	logger, _ := zap.NewDevelopment()
	handler := NewSaleHandler(svc, logger)

	w := httptest.NewRecorder()
	handler.List(w, authedRequest(http.MethodGet, "/api/sales?seller_id=99", nil, 5, "manager"))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.gotFilter.SellerID)
	assert.Equal(t, int64(99), *svc.gotFilter.SellerID)

	// Without the filter, managers see everything
	svc2 := &mockSaleService{}
	handler2 := NewSaleHandler(svc2, logger)
	w = httptest.NewRecorder()
	handler2.List(w, authedRequest(http.MethodGet, "/api/sales", nil, 5, "manager"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc2.gotFilter.SellerID)
}

func TestSaleHandler_Get_SellerCannotReadOthersSales(t *testing.T) {
	svc := &mockSaleService{
		getSale: func(ctx context.Context, id int64) (*domain.Sale, error) {
			return &domain.Sale{ID: id, SellerID: 2}, nil
		},
	}
	logger, _ := zap.NewDevelopment()
	handler := NewSaleHandler(svc, logger)

	req := authedRequest(http.MethodGet, "/api/sales/3", nil, 5, "seller")
	req = withChiURLParam(req, "id", "3")
	w := httptest.NewRecorder()
	handler.Get(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	// The owning seller and any manager can read it
	req = authedRequest(http.MethodGet, "/api/sales/3", nil, 2, "seller")
	req = withChiURLParam(req, "id", "3")
	w = httptest.NewRecorder()
	handler.Get(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = authedRequest(http.MethodGet, "/api/sales/3", nil, 5, "manager")
	req = withChiURLParam(req, "id", "3")
	w = httptest.NewRecorder()
	handler.Get(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSaleHandler_Get_NotFound(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	handler := NewSaleHandler(&mockSaleService{}, logger)

	req := authedRequest(http.MethodGet, "/api/sales/404", nil, 1, "manager")
	req = withChiURLParam(req, "id", "404")
	w := httptest.NewRecorder()
	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
