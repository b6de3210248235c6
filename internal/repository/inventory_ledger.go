package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product is inactive")
)

// InsufficientStockError reports a stock debit that would take a product
// below zero, with enough detail for the caller to act on.
type InsufficientStockError struct {
	ProductID int64
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %s, available %s",
		e.ProductID, e.Requested, e.Available)
}

// InventoryLedger is the single authority for stock mutations. Every method
// takes a DBTX so debits and credits run on the caller's transaction; the
// conditional UPDATE in Debit is the enforcement point that keeps stock
// non-negative under concurrent sales and restocks.
type InventoryLedger interface {
	CheckAvailability(ctx context.Context, q DBTX, productID int64, quantity decimal.Decimal) (bool, error)
	Debit(ctx context.Context, q DBTX, productID int64, quantity decimal.Decimal) error
	Credit(ctx context.Context, q DBTX, productID int64, quantity decimal.Decimal) error
}

type inventoryLedger struct{}

// NewInventoryLedger creates a new instance of InventoryLedger
func NewInventoryLedger() InventoryLedger {
	return inventoryLedger{}
}

// CheckAvailability reports whether the product exists, is active, and has
// at least the requested stock. It takes no locks and has no side effect;
// Debit re-validates under the row lock.
func (inventoryLedger) CheckAvailability(ctx context.Context, q DBTX, productID int64, quantity decimal.Decimal) (bool, error) {
	query := `
		SELECT active, stock
		FROM products
		WHERE id = $1
	`

	var active bool
	var stock decimal.Decimal
	err := q.QueryRowContext(ctx, query, productID).Scan(&active, &stock)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check availability: %w", err)
	}

	return active && stock.GreaterThanOrEqual(quantity), nil
}

// Debit decreases stock by quantity as a single conditional update: the
// decrement only applies if the resulting stock stays non-negative. A zero
// row count is diagnosed under the same transaction to tell not-found,
// inactive, and insufficient stock apart.
func (inventoryLedger) Debit(ctx context.Context, q DBTX, productID int64, quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("debit quantity must be positive, got %s", quantity)
	}

	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND active AND stock >= $2
	`

	result, err := q.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to debit stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	return diagnoseFailedMutation(ctx, q, productID, quantity)
}

// Credit increases stock by quantity (restock flows).
func (inventoryLedger) Credit(ctx context.Context, q DBTX, productID int64, quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("credit quantity must be positive, got %s", quantity)
	}

	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND active
	`

	result, err := q.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to credit stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	return diagnoseFailedMutation(ctx, q, productID, decimal.Zero)
}

// diagnoseFailedMutation re-reads the product row to determine why a
// conditional stock update matched nothing.
func diagnoseFailedMutation(ctx context.Context, q DBTX, productID int64, requested decimal.Decimal) error {
	var active bool
	var stock decimal.Decimal
	err := q.QueryRowContext(ctx, `SELECT active, stock FROM products WHERE id = $1`, productID).
		Scan(&active, &stock)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to inspect product %d: %w", productID, err)
	}

	if !active {
		return ErrProductInactive
	}

	return &InsufficientStockError{
		ProductID: productID,
		Requested: requested,
		Available: stock,
	}
}
