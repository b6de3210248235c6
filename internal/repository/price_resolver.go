package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceResolver produces the authoritative unit price for a product at the
// instant of sale. The returned price (and name, kept for receipts) is
// copied into the line item and is decoupled from the live product record
// from that point on.
type PriceResolver interface {
	ResolvePrice(ctx context.Context, q DBTX, productID int64) (name string, price decimal.Decimal, err error)
}

type priceResolver struct{}

// NewPriceResolver creates a new instance of PriceResolver
func NewPriceResolver() PriceResolver {
	return priceResolver{}
}

// ResolvePrice reads the product's current price under the caller's
// transaction. FOR UPDATE pins the row so the price and the later stock
// debit observe the same product version.
func (priceResolver) ResolvePrice(ctx context.Context, q DBTX, productID int64) (string, decimal.Decimal, error) {
	query := `
		SELECT name, price, active
		FROM products
		WHERE id = $1
		FOR UPDATE
	`

	var name string
	var price decimal.Decimal
	var active bool
	err := q.QueryRowContext(ctx, query, productID).Scan(&name, &price, &active)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", decimal.Zero, ErrProductNotFound
		}
		return "", decimal.Zero, fmt.Errorf("failed to resolve price: %w", err)
	}

	if !active {
		return "", decimal.Zero, ErrProductInactive
	}

	return name, price, nil
}
