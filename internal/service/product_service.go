package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"caixa-pos/internal/domain"
	"caixa-pos/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidRestock = errors.New("invalid restock entry")
)

// ProductInput carries the caller-editable product fields.
type ProductInput struct {
	Name    string
	Barcode *string
	Price   decimal.Decimal
	Active  bool
}

// ProductService defines the interface for catalog management and restocks.
type ProductService interface {
	CreateProduct(ctx context.Context, input ProductInput, initialStock decimal.Decimal) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, input ProductInput) (*domain.Product, error)
	DeactivateProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	ListProducts(ctx context.Context, page, pageSize int) ([]*domain.Product, int, error)
	Restock(ctx context.Context, entries []domain.StockEntry) ([]*domain.Product, error)
}

type productService struct {
	db       *sql.DB
	products repository.ProductRepository
	ledger   repository.InventoryLedger
}

// NewProductService creates a new instance of ProductService
func NewProductService(db *sql.DB, products repository.ProductRepository, ledger repository.InventoryLedger) ProductService {
	return &productService{
		db:       db,
		products: products,
		ledger:   ledger,
	}
}

// CreateProduct validates and registers a new product
func (s *productService) CreateProduct(ctx context.Context, input ProductInput, initialStock decimal.Decimal) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	if initialStock.IsNegative() {
		return nil, fmt.Errorf("%w: initial stock must not be negative", ErrInvalidProduct)
	}

	product := &domain.Product{
		Name:    input.Name,
		Barcode: input.Barcode,
		Price:   input.Price,
		Stock:   initialStock,
		Active:  true,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// UpdateProduct updates the catalog fields of a product. Stock is never
// touched here; restocks and sales go through the ledger.
func (s *productService) UpdateProduct(ctx context.Context, id int64, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.Barcode = input.Barcode
	product.Price = input.Price
	product.Active = input.Active

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	return s.products.FindByID(ctx, id)
}

// DeactivateProduct soft-deletes a product
func (s *productService) DeactivateProduct(ctx context.Context, id int64) error {
	return s.products.Deactivate(ctx, id)
}

// GetProduct retrieves a product by ID
func (s *productService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// GetProductByBarcode retrieves a product by barcode
func (s *productService) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	return s.products.FindByBarcode(ctx, barcode)
}

// ListProducts lists active products with pagination
func (s *productService) ListProducts(ctx context.Context, page, pageSize int) ([]*domain.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}
	return s.products.List(ctx, page, pageSize)
}

// Restock credits stock for every entry in one transaction. Credits run
// through the same ledger as sale debits, so concurrent restocks and sales
// on a product serialize on its row instead of losing updates.
func (s *productService) Restock(ctx context.Context, entries []domain.StockEntry) ([]*domain.Product, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidRestock)
	}
	for _, entry := range entries {
		if entry.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: quantity must be positive for product %d", ErrInvalidRestock, entry.ProductID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, entry := range entries {
		if err := s.ledger.Credit(ctx, tx, entry.ProductID, entry.Quantity); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit restock: %w", err)
	}

	updated := make([]*domain.Product, 0, len(entries))
	for _, entry := range entries {
		product, err := s.products.FindByID(ctx, entry.ProductID)
		if err != nil {
			return nil, err
		}
		updated = append(updated, product)
	}

	return updated, nil
}

func validateProductInput(input ProductInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if input.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if input.Barcode != nil && *input.Barcode == "" {
		return fmt.Errorf("%w: barcode must not be empty when provided", ErrInvalidProduct)
	}
	return nil
}
