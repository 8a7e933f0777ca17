package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shopstack/inventory-api/internal/dto"
	"github.com/shopstack/inventory-api/internal/repository"
)

const (
	topProductsLimit = 5
	trendDays        = 7
	lowStockLimit    = 10
)

type AdminService struct {
	analyticsRepo repository.AnalyticsRepository
	productRepo   repository.ProductRepository
}

func NewAdminService(analyticsRepo repository.AnalyticsRepository, productRepo repository.ProductRepository) *AdminService {
	return &AdminService{analyticsRepo: analyticsRepo, productRepo: productRepo}
}

func (s *AdminService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	counts, err := s.analyticsRepo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.StatsResponse{
		Products: counts.Products,
		Orders:   counts.Orders,
		Messages: counts.Messages,
		LowStock: counts.LowStock,
	}, nil
}

func (s *AdminService) Analysis(ctx context.Context) (*dto.AnalysisResponse, error) {
	revenue, orders, err := s.analyticsRepo.RevenueTotals(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.AnalysisResponse{
		Revenue:  revenue,
		Orders:   orders,
		AvgOrder: decimal.Zero,
	}
	if orders > 0 {
		resp.AvgOrder = revenue.Div(decimal.NewFromInt(int64(orders))).Round(2)
	}

	top, err := s.analyticsRepo.TopProducts(ctx, topProductsLimit)
	if err != nil {
		return nil, err
	}
	for _, p := range top {
		resp.TopProducts = append(resp.TopProducts, dto.ProductSales{
			ProductID: p.ProductID, Name: p.Name, Sales: p.Sales, Revenue: p.Revenue,
		})
	}

	categories, err := s.analyticsRepo.CategorySales(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		resp.CategorySales = append(resp.CategorySales, dto.CategorySales{
			Category: c.Category, Sales: c.Sales, Revenue: c.Revenue,
		})
	}

	trends, err := s.analyticsRepo.OrderTrends(ctx, trendDays)
	if err != nil {
		return nil, err
	}
	for _, t := range trends {
		resp.OrderTrends = append(resp.OrderTrends, dto.OrderTrendPoint{
			Date: t.Date, Count: t.Count, Revenue: t.Revenue,
		})
	}

	low, err := s.productRepo.ListLowStock(ctx, lowStockLimit)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	for _, p := range low {
		resp.LowStock = append(resp.LowStock, toProductResponse(&p))
	}

	split, err := s.analyticsRepo.PaymentSplit(ctx)
	if err != nil {
		return nil, err
	}
	for _, ps := range split {
		resp.PaymentSplit = append(resp.PaymentSplit, dto.PaymentSplit{
			Mode: ps.Mode, Count: ps.Count, Revenue: ps.Revenue,
		})
	}

	return resp, nil
}
