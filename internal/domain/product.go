package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents an item in the catalog. Stock is a decimal because
// products can be sold in fractional quantities (weighed goods).
type Product struct {
	ID        int64           `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Barcode   *string         `json:"barcode,omitempty" db:"barcode"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Stock     decimal.Decimal `json:"stock" db:"stock"`
	Active    bool            `json:"active" db:"active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// StockEntry is one product/quantity pair in a restock request.
type StockEntry struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}
