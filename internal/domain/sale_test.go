package domain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func TestProperty_SaleItemSubtotalIsQuantityTimesPrice(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("subtotal equals quantity times unit price exactly", prop.ForAll(
		func(quantityMillis int64, priceCents int64) bool {
			quantity := decimal.New(quantityMillis, -3)
			price := decimal.New(priceCents, -2)

			item, err := NewSaleItem(1, "Test Product", quantity, price)
			if err != nil {
				t.Logf("FAIL: NewSaleItem returned error: %v", err)
				return false
			}

			return item.Subtotal.Equal(quantity.Mul(price))
		},
		gen.Int64Range(1, 10_000_000),  // quantity in thousandths
		gen.Int64Range(0, 100_000_000), // price in cents
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_SaleTotalIsSumOfSubtotals(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("total equals the exact sum of item subtotals", prop.ForAll(
		func(quantities []int64, prices []int64) bool {
			n := len(quantities)
			if len(prices) < n {
				n = len(prices)
			}
			if n == 0 {
				return true
			}

			items := make([]SaleItem, 0, n)
			expected := decimal.Zero
			for i := 0; i < n; i++ {
				item, err := NewSaleItem(int64(i+1), "Product", decimal.New(quantities[i], -3), decimal.New(prices[i], -2))
				if err != nil {
					t.Logf("FAIL: NewSaleItem returned error: %v", err)
					return false
				}
				items = append(items, *item)
				expected = expected.Add(item.Subtotal)
			}

			sale, err := NewSale(1, PaymentCash, items)
			if err != nil {
				t.Logf("FAIL: NewSale returned error: %v", err)
				return false
			}

			return sale.Total.Equal(expected)
		},
		gen.SliceOf(gen.Int64Range(1, 1_000_000)),
		gen.SliceOf(gen.Int64Range(0, 1_000_000)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNewSaleItem_RejectsBadInputs(t *testing.T) {
	if _, err := NewSaleItem(1, "X", decimal.Zero, decimal.NewFromInt(1)); err != ErrInvalidQuantity {
		t.Errorf("expected ErrInvalidQuantity for zero quantity, got %v", err)
	}
	if _, err := NewSaleItem(1, "X", decimal.NewFromInt(-1), decimal.NewFromInt(1)); err != ErrInvalidQuantity {
		t.Errorf("expected ErrInvalidQuantity for negative quantity, got %v", err)
	}
	if _, err := NewSaleItem(1, "X", decimal.NewFromInt(1), decimal.NewFromInt(-1)); err != ErrNegativePrice {
		t.Errorf("expected ErrNegativePrice, got %v", err)
	}
}

func TestNewSale_RejectsEmptyItemsAndBadMethods(t *testing.T) {
	if _, err := NewSale(1, PaymentCash, nil); err != ErrNoItems {
		t.Errorf("expected ErrNoItems, got %v", err)
	}

	item, err := NewSaleItem(1, "X", decimal.NewFromInt(1), decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewSale(1, PaymentMethod("voucher"), []SaleItem{*item}); err == nil {
		t.Error("expected error for unknown payment method")
	}
}

func TestPaymentMethod_Valid(t *testing.T) {
	for _, method := range []PaymentMethod{PaymentCash, PaymentCard, PaymentPix} {
		if !method.Valid() {
			t.Errorf("expected %s to be valid", method)
		}
	}
	for _, method := range []PaymentMethod{"", "voucher", "CASH", "credit"} {
		if method.Valid() {
			t.Errorf("expected %s to be invalid", method)
		}
	}
}
