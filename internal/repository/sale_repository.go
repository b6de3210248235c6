package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"caixa-pos/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrSaleNotFound = errors.New("sale not found")
)

// SaleLine is one requested product/quantity pair in a sale, in submission
// order. Duplicate product ids are kept as independent lines and are not
// merged; each one is checked and debited on its own.
type SaleLine struct {
	ProductID int64
	Quantity  decimal.Decimal
}

// SaleLineError pins a sale failure to the offending request line.
type SaleLineError struct {
	Line      int
	ProductID int64
	Err       error
}

func (e *SaleLineError) Error() string {
	return fmt.Sprintf("line %d (product %d): %v", e.Line, e.ProductID, e.Err)
}

func (e *SaleLineError) Unwrap() error {
	return e.Err
}

// SaleFilter narrows and pages sale listings.
type SaleFilter struct {
	SellerID *int64
	Limit    int
	Offset   int
}

// SaleRepository defines the interface for sale data access. CreateSale is
// the atomicity boundary of the whole system: the sale row, its items, and
// every stock debit commit together or not at all.
type SaleRepository interface {
	CreateSale(ctx context.Context, sellerID int64, method domain.PaymentMethod, lines []SaleLine) (*domain.Sale, error)
	FindByID(ctx context.Context, id int64) (*domain.Sale, error)
	List(ctx context.Context, filter SaleFilter) ([]*domain.Sale, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Sale, error)
}

type saleRepository struct {
	db     *sql.DB
	ledger InventoryLedger
	prices PriceResolver
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db *sql.DB, ledger InventoryLedger, prices PriceResolver) SaleRepository {
	return &saleRepository{
		db:     db,
		ledger: ledger,
		prices: prices,
	}
}

// CreateSale validates every line, snapshots prices, persists the sale with
// its items, and debits stock, all on a single transaction. Validation runs
// first over all lines in submission order; debits run afterwards, also in
// order, so a request listing the same product twice fails on the second
// debit when the combined quantity exceeds stock. Any failure rolls the
// whole transaction back, leaving stock and sale tables untouched.
func (r *saleRepository) CreateSale(ctx context.Context, sellerID int64, method domain.PaymentMethod, lines []SaleLine) (*domain.Sale, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	items := make([]domain.SaleItem, 0, len(lines))
	for i, line := range lines {
		// ResolvePrice locks the product row, so the price snapshot, the
		// availability check, and the later debit see the same row version.
		name, price, err := r.prices.ResolvePrice(ctx, tx, line.ProductID)
		if err != nil {
			return nil, &SaleLineError{Line: i, ProductID: line.ProductID, Err: err}
		}

		ok, err := r.ledger.CheckAvailability(ctx, tx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to check stock for product %d: %w", line.ProductID, err)
		}
		if !ok {
			return nil, &SaleLineError{
				Line:      i,
				ProductID: line.ProductID,
				Err:       diagnoseFailedMutation(ctx, tx, line.ProductID, line.Quantity),
			}
		}

		item, err := domain.NewSaleItem(line.ProductID, name, line.Quantity, price)
		if err != nil {
			return nil, &SaleLineError{Line: i, ProductID: line.ProductID, Err: err}
		}
		items = append(items, *item)
	}

	sale, err := domain.NewSale(sellerID, method, items)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO sales (seller_id, total, payment_method, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, occurred_at
	`, sale.SellerID, sale.Total, sale.PaymentMethod, sale.Status).Scan(&sale.ID, &sale.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sale: %w", err)
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, item.SaleID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.Subtotal).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert sale item: %w", err)
		}
	}

	// Debit after all lines validated. The conditional update re-checks
	// stock, so an interleaving that passed the earlier check still cannot
	// drive stock negative; it aborts the whole sale instead.
	for i, line := range lines {
		if err := r.ledger.Debit(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return nil, &SaleLineError{Line: i, ProductID: line.ProductID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}

	return sale, nil
}

// FindByID retrieves a sale with its items using parameterized queries
func (r *saleRepository) FindByID(ctx context.Context, id int64) (*domain.Sale, error) {
	query := `
		SELECT id, occurred_at, seller_id, total, payment_method, status
		FROM sales
		WHERE id = $1
	`

	sale := &domain.Sale{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sale.ID,
		&sale.OccurredAt,
		&sale.SellerID,
		&sale.Total,
		&sale.PaymentMethod,
		&sale.Status,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to find sale by ID: %w", err)
	}

	items, err := r.loadItems(ctx, []int64{sale.ID})
	if err != nil {
		return nil, err
	}
	sale.Items = items[sale.ID]

	return sale, nil
}

// List retrieves sale summaries (no items) ordered by occurrence, newest
// first, optionally narrowed to one seller.
func (r *saleRepository) List(ctx context.Context, filter SaleFilter) ([]*domain.Sale, error) {
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	if filter.SellerID != nil {
		whereClause = fmt.Sprintf("WHERE seller_id = $%d", argIndex)
		args = append(args, *filter.SellerID)
		argIndex++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT id, occurred_at, seller_id, total, payment_method, status
		FROM sales
		%s
		ORDER BY occurred_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	return scanSales(rows)
}

// ListByDateRange retrieves finalized sales in [from, to), items included,
// for report building.
func (r *saleRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Sale, error) {
	query := `
		SELECT id, occurred_at, seller_id, total, payment_method, status
		FROM sales
		WHERE occurred_at >= $1 AND occurred_at < $2 AND status = $3
		ORDER BY occurred_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, from, to, domain.SaleFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales by date range: %w", err)
	}
	defer rows.Close()

	sales, err := scanSales(rows)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return sales, nil
	}

	ids := make([]int64, len(sales))
	for i, sale := range sales {
		ids[i] = sale.ID
	}

	itemsBySale, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, sale := range sales {
		sale.Items = itemsBySale[sale.ID]
	}

	return sales, nil
}

func (r *saleRepository) loadItems(ctx context.Context, saleIDs []int64) (map[int64][]domain.SaleItem, error) {
	query := `
		SELECT id, sale_id, product_id, product_name, quantity, unit_price, subtotal
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale items: %w", err)
	}
	defer rows.Close()

	itemsBySale := make(map[int64][]domain.SaleItem, len(saleIDs))
	for rows.Next() {
		var item domain.SaleItem
		err := rows.Scan(
			&item.ID,
			&item.SaleID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		itemsBySale[item.SaleID] = append(itemsBySale[item.SaleID], item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale items: %w", err)
	}

	return itemsBySale, nil
}

func scanSales(rows *sql.Rows) ([]*domain.Sale, error) {
	sales := []*domain.Sale{}
	for rows.Next() {
		sale := &domain.Sale{}
		err := rows.Scan(
			&sale.ID,
			&sale.OccurredAt,
			&sale.SellerID,
			&sale.Total,
			&sale.PaymentMethod,
			&sale.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}

	return sales, nil
}
