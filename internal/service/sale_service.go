package service

import (
	"context"
	"errors"
	"fmt"

	"caixa-pos/internal/domain"
	"caixa-pos/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRequest = errors.New("invalid sale request")
)

// InvalidRequestError describes a request rejected before any storage
// access. Line is -1 when the problem is not tied to a specific line.
type InvalidRequestError struct {
	Reason string
	Line   int
}

func (e *InvalidRequestError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("invalid sale request (line %d): %s", e.Line, e.Reason)
	}
	return "invalid sale request: " + e.Reason
}

func (e *InvalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

// SaleLineRequest is one proposed product/quantity pair.
type SaleLineRequest struct {
	ProductID int64
	Quantity  decimal.Decimal
}

// SaleService defines the interface for sale business logic: creating
// sales atomically and reading committed ones back.
type SaleService interface {
	CreateSale(ctx context.Context, sellerID int64, method domain.PaymentMethod, lines []SaleLineRequest) (*domain.Sale, error)
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	ListSales(ctx context.Context, filter repository.SaleFilter) ([]*domain.Sale, error)
}

type saleService struct {
	sales repository.SaleRepository
}

// NewSaleService creates a new instance of SaleService
func NewSaleService(sales repository.SaleRepository) SaleService {
	return &saleService{sales: sales}
}

// CreateSale rejects malformed requests before touching storage, then hands
// the lines to the repository, which commits the sale, its items, and every
// stock debit as one unit. Failures are returned as-is; retried submissions
// are brand-new transactions.
func (s *saleService) CreateSale(ctx context.Context, sellerID int64, method domain.PaymentMethod, lines []SaleLineRequest) (*domain.Sale, error) {
	if len(lines) == 0 {
		return nil, &InvalidRequestError{Reason: "sale has no line items", Line: -1}
	}
	if !method.Valid() {
		return nil, &InvalidRequestError{Reason: "unrecognized payment method " + string(method), Line: -1}
	}

	requests := make([]repository.SaleLine, len(lines))
	for i, line := range lines {
		if line.ProductID <= 0 {
			return nil, &InvalidRequestError{Reason: "missing product id", Line: i}
		}
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, &InvalidRequestError{
				Reason: fmt.Sprintf("quantity must be positive, got %s", line.Quantity),
				Line:   i,
			}
		}
		requests[i] = repository.SaleLine{ProductID: line.ProductID, Quantity: line.Quantity}
	}

	sale, err := s.sales.CreateSale(ctx, sellerID, method, requests)
	if err != nil {
		return nil, err
	}

	return sale, nil
}

// GetSale retrieves a committed sale with its items
func (s *saleService) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrSaleNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return sale, nil
}

// ListSales lists sale summaries, newest first. Visibility scoping (sellers
// only see their own sales) is the handler's responsibility.
func (s *saleService) ListSales(ctx context.Context, filter repository.SaleFilter) ([]*domain.Sale, error) {
	sales, err := s.sales.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}
