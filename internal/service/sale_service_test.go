package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"caixa-pos/internal/domain"
	"caixa-pos/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSaleRepository struct {
	createSale  func(ctx context.Context, sellerID int64, method domain.PaymentMethod, lines []repository.SaleLine) (*domain.Sale, error)
	findByID    func(ctx context.Context, id int64) (*domain.Sale, error)
	gotSellerID int64
	gotMethod   domain.PaymentMethod
	gotLines    []repository.SaleLine
}

func (m *mockSaleRepository) CreateSale(ctx context.Context, sellerID int64, method domain.PaymentMethod, lines []repository.SaleLine) (*domain.Sale, error) {
	m.gotSellerID = sellerID
	m.gotMethod = method
	m.gotLines = lines
	if m.createSale != nil {
		return m.createSale(ctx, sellerID, method, lines)
	}
	return &domain.Sale{ID: 1, SellerID: sellerID, PaymentMethod: method, Status: domain.SaleFinalized}, nil
}

func (m *mockSaleRepository) FindByID(ctx context.Context, id int64) (*domain.Sale, error) {
	if m.findByID != nil {
		return m.findByID(ctx, id)
	}
	return nil, repository.ErrSaleNotFound
}

func (m *mockSaleRepository) List(ctx context.Context, filter repository.SaleFilter) ([]*domain.Sale, error) {
	return []*domain.Sale{}, nil
}

func (m *mockSaleRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Sale, error) {
	return []*domain.Sale{}, nil
}

func TestSaleService_CreateSale_RejectsEmptyLineList(t *testing.T) {
	repo := &mockSaleRepository{}
	service := NewSaleService(repo)

	_, err := service.CreateSale(context.Background(), 1, domain.PaymentCash, nil)
	require.ErrorIs(t, err, ErrInvalidRequest)

	var reqErr *InvalidRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, -1, reqErr.Line)
	assert.Nil(t, repo.gotLines, "storage must not be touched for invalid requests")
}

func TestSaleService_CreateSale_RejectsUnknownPaymentMethod(t *testing.T) {
	repo := &mockSaleRepository{}
	service := NewSaleService(repo)

	_, err := service.CreateSale(context.Background(), 1, domain.PaymentMethod("voucher"), []SaleLineRequest{
		{ProductID: 1, Quantity: decimal.NewFromInt(1)},
	})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Nil(t, repo.gotLines)
}

func TestSaleService_CreateSale_RejectsBadLinesWithIndex(t *testing.T) {
	repo := &mockSaleRepository{}
	service := NewSaleService(repo)
	ctx := context.Background()

	tests := []struct {
		name     string
		lines    []SaleLineRequest
		wantLine int
	}{
		{
			name: "missing product id",
			lines: []SaleLineRequest{
				{ProductID: 1, Quantity: decimal.NewFromInt(1)},
				{ProductID: 0, Quantity: decimal.NewFromInt(1)},
			},
			wantLine: 1,
		},
		{
			name: "zero quantity",
			lines: []SaleLineRequest{
				{ProductID: 1, Quantity: decimal.Zero},
			},
			wantLine: 0,
		},
		{
			name: "negative quantity",
			lines: []SaleLineRequest{
				{ProductID: 1, Quantity: decimal.NewFromInt(2)},
				{ProductID: 2, Quantity: decimal.NewFromInt(1)},
				{ProductID: 3, Quantity: decimal.NewFromInt(-4)},
			},
			wantLine: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateSale(ctx, 1, domain.PaymentCard, tt.lines)
			require.ErrorIs(t, err, ErrInvalidRequest)

			var reqErr *InvalidRequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.wantLine, reqErr.Line)
		})
	}
}

func TestSaleService_CreateSale_ForwardsLinesInSubmissionOrder(t *testing.T) {
	repo := &mockSaleRepository{}
	service := NewSaleService(repo)

	lines := []SaleLineRequest{
		{ProductID: 7, Quantity: decimal.NewFromInt(2)},
		{ProductID: 3, Quantity: decimal.RequireFromString("0.5")},
		{ProductID: 7, Quantity: decimal.NewFromInt(1)},
	}

	_, err := service.CreateSale(context.Background(), 42, domain.PaymentPix, lines)
	require.NoError(t, err)

	assert.Equal(t, int64(42), repo.gotSellerID)
	assert.Equal(t, domain.PaymentPix, repo.gotMethod)
	require.Len(t, repo.gotLines, 3)
	for i, line := range lines {
		assert.Equal(t, line.ProductID, repo.gotLines[i].ProductID)
		assert.True(t, repo.gotLines[i].Quantity.Equal(line.Quantity))
	}
}

func TestSaleService_CreateSale_RepositoryErrorsPassThrough(t *testing.T) {
	wantErr := &repository.SaleLineError{
		Line:      0,
		ProductID: 9,
		Err: &repository.InsufficientStockError{
			ProductID: 9,
			Requested: decimal.NewFromInt(5),
			Available: decimal.NewFromInt(2),
		},
	}
	repo := &mockSaleRepository{
		createSale: func(context.Context, int64, domain.PaymentMethod, []repository.SaleLine) (*domain.Sale, error) {
			return nil, wantErr
		},
	}
	service := NewSaleService(repo)

	_, err := service.CreateSale(context.Background(), 1, domain.PaymentCash, []SaleLineRequest{
		{ProductID: 9, Quantity: decimal.NewFromInt(5)},
	})

	// The error carries its full diagnostic chain to the transport layer
	var stockErr *repository.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.True(t, stockErr.Available.Equal(decimal.NewFromInt(2)))
}

func TestSaleService_GetSale_NotFound(t *testing.T) {
	service := NewSaleService(&mockSaleRepository{})

	_, err := service.GetSale(context.Background(), 123)
	require.ErrorIs(t, err, repository.ErrSaleNotFound)
}

func TestSaleService_GetSale_ReturnsCommittedSale(t *testing.T) {
	sale := &domain.Sale{ID: 5, SellerID: 2, Total: decimal.RequireFromString("31.50")}
	repo := &mockSaleRepository{
		findByID: func(ctx context.Context, id int64) (*domain.Sale, error) {
			if id == 5 {
				return sale, nil
			}
			return nil, repository.ErrSaleNotFound
		},
	}
	service := NewSaleService(repo)

	got, err := service.GetSale(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, sale, got)
}

func TestSaleService_GetSale_WrapsUnexpectedErrors(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &mockSaleRepository{
		findByID: func(context.Context, int64) (*domain.Sale, error) {
			return nil, boom
		},
	}
	service := NewSaleService(repo)

	_, err := service.GetSale(context.Background(), 1)
	require.ErrorIs(t, err, boom)
	assert.NotEqual(t, boom, err)
}
