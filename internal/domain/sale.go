package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates the accepted payment methods.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentPix  PaymentMethod = "pix"
)

// Valid reports whether the payment method is one of the accepted values.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentPix:
		return true
	}
	return false
}

// SaleStatus enumerates the lifecycle states of a sale.
type SaleStatus string

const (
	SaleFinalized SaleStatus = "finalized"
	SaleCancelled SaleStatus = "cancelled"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrNegativePrice   = errors.New("unit price must not be negative")
	ErrNoItems         = errors.New("sale must have at least one item")
)

// Sale is a committed sale with its line items. The total is always
// recomputed from the items, never taken from caller input.
type Sale struct {
	ID            int64           `json:"id" db:"id"`
	OccurredAt    time.Time       `json:"occurred_at" db:"occurred_at"`
	SellerID      int64           `json:"seller_id" db:"seller_id"`
	Total         decimal.Decimal `json:"total" db:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method" db:"payment_method"`
	Status        SaleStatus      `json:"status" db:"status"`
	Items         []SaleItem      `json:"items"`
}

// SaleItem is one product line within a sale. UnitPrice is the product's
// price captured at sale time; later price edits never touch it.
type SaleItem struct {
	ID          int64           `json:"id" db:"id"`
	SaleID      int64           `json:"sale_id" db:"sale_id"`
	ProductID   int64           `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal" db:"subtotal"`
}

// NewSaleItem builds a line item and computes its subtotal.
func NewSaleItem(productID int64, productName string, quantity, unitPrice decimal.Decimal) (*SaleItem, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return nil, ErrNegativePrice
	}

	return &SaleItem{
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Subtotal:    quantity.Mul(unitPrice),
	}, nil
}

// NewSale builds a finalized sale from its items and recomputes the total
// as the sum of the item subtotals.
func NewSale(sellerID int64, method PaymentMethod, items []SaleItem) (*Sale, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if !method.Valid() {
		return nil, errors.New("unrecognized payment method: " + string(method))
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}

	return &Sale{
		SellerID:      sellerID,
		Total:         total,
		PaymentMethod: method,
		Status:        SaleFinalized,
		Items:         items,
	}, nil
}
