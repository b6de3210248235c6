package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"caixa-pos/internal/domain"
	"caixa-pos/internal/repository"

	"github.com/shopspring/decimal"
)

const maxReportPeriodDays = 90

var (
	ErrInvalidPeriod = errors.New("invalid report period")
)

// PaymentMethodTotal is the sold value for one payment method.
type PaymentMethodTotal struct {
	Method domain.PaymentMethod `json:"method"`
	Total  decimal.Decimal      `json:"total"`
}

// SellerTotal is the sale count and sold value for one seller.
type SellerTotal struct {
	SellerID int64           `json:"seller_id"`
	Sales    int             `json:"sales"`
	Total    decimal.Decimal `json:"total"`
}

// ProductQuantity is the total quantity sold of one product.
type ProductQuantity struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// SalesReport summarizes a set of committed sales.
type SalesReport struct {
	From            time.Time            `json:"from"`
	To              time.Time            `json:"to"`
	TotalSales      int                  `json:"total_sales"`
	TotalValue      decimal.Decimal      `json:"total_value"`
	ByPaymentMethod []PaymentMethodTotal `json:"by_payment_method"`
	BySeller        []SellerTotal        `json:"by_seller"`
	TopProducts     []ProductQuantity    `json:"top_products"`
}

// ReportService builds sales reports over date ranges.
type ReportService interface {
	Daily(ctx context.Context, day time.Time) (*SalesReport, error)
	Period(ctx context.Context, from, to time.Time) (*SalesReport, error)
}

type reportService struct {
	sales repository.SaleRepository
}

// NewReportService creates a new instance of ReportService
func NewReportService(sales repository.SaleRepository) ReportService {
	return &reportService{sales: sales}
}

// Daily builds the report for one calendar day.
func (s *reportService) Daily(ctx context.Context, day time.Time) (*SalesReport, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.build(ctx, from, from.AddDate(0, 0, 1))
}

// Period builds the report for [from, to], capped at 90 days.
func (s *reportService) Period(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: start date must not be after end date", ErrInvalidPeriod)
	}
	if to.Sub(from) > maxReportPeriodDays*24*time.Hour {
		return nil, fmt.Errorf("%w: period must not exceed %d days", ErrInvalidPeriod, maxReportPeriodDays)
	}
	return s.build(ctx, from, to.AddDate(0, 0, 1))
}

func (s *reportService) build(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	sales, err := s.sales.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales for report: %w", err)
	}

	report := BuildSalesReport(sales)
	report.From = from
	report.To = to
	return report, nil
}

// BuildSalesReport folds a set of already-committed sales into summary
// statistics. Pure and deterministic: no storage, no clocks.
func BuildSalesReport(sales []*domain.Sale) *SalesReport {
	report := &SalesReport{
		TotalSales:      len(sales),
		TotalValue:      decimal.Zero,
		ByPaymentMethod: []PaymentMethodTotal{},
		BySeller:        []SellerTotal{},
		TopProducts:     []ProductQuantity{},
	}

	byMethod := make(map[domain.PaymentMethod]decimal.Decimal)
	bySeller := make(map[int64]*SellerTotal)
	byProduct := make(map[int64]*ProductQuantity)

	for _, sale := range sales {
		report.TotalValue = report.TotalValue.Add(sale.Total)

		byMethod[sale.PaymentMethod] = byMethod[sale.PaymentMethod].Add(sale.Total)

		seller, ok := bySeller[sale.SellerID]
		if !ok {
			seller = &SellerTotal{SellerID: sale.SellerID, Total: decimal.Zero}
			bySeller[sale.SellerID] = seller
		}
		seller.Sales++
		seller.Total = seller.Total.Add(sale.Total)

		for _, item := range sale.Items {
			product, ok := byProduct[item.ProductID]
			if !ok {
				product = &ProductQuantity{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Quantity:    decimal.Zero,
				}
				byProduct[item.ProductID] = product
			}
			product.Quantity = product.Quantity.Add(item.Quantity)
		}
	}

	for method, total := range byMethod {
		report.ByPaymentMethod = append(report.ByPaymentMethod, PaymentMethodTotal{Method: method, Total: total})
	}
	sort.Slice(report.ByPaymentMethod, func(i, j int) bool {
		return report.ByPaymentMethod[i].Method < report.ByPaymentMethod[j].Method
	})

	for _, seller := range bySeller {
		report.BySeller = append(report.BySeller, *seller)
	}
	sort.Slice(report.BySeller, func(i, j int) bool {
		return report.BySeller[i].SellerID < report.BySeller[j].SellerID
	})

	for _, product := range byProduct {
		report.TopProducts = append(report.TopProducts, *product)
	}
	sort.Slice(report.TopProducts, func(i, j int) bool {
		if !report.TopProducts[i].Quantity.Equal(report.TopProducts[j].Quantity) {
			return report.TopProducts[i].Quantity.GreaterThan(report.TopProducts[j].Quantity)
		}
		return report.TopProducts[i].ProductID < report.TopProducts[j].ProductID
	})
	if len(report.TopProducts) > 10 {
		report.TopProducts = report.TopProducts[:10]
	}

	return report
}
