package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopstack/inventory-api/internal/model"
)

// Sales aggregates for the admin dashboard. Revenue figures count all
// orders regardless of status, matching what the dashboard has always
// shown.

type Counts struct {
	Products int
	Orders   int
	Messages int
	LowStock int
}

type ProductSales struct {
	ProductID uuid.UUID
	Name      string
	Sales     int
	Revenue   decimal.Decimal
}

type CategorySales struct {
	Category string
	Sales    int
	Revenue  decimal.Decimal
}

type TrendPoint struct {
	Date    string
	Count   int
	Revenue decimal.Decimal
}

type PaymentSplit struct {
	Mode    model.PaymentMode
	Count   int
	Revenue decimal.Decimal
}

type AnalyticsRepository interface {
	Counts(ctx context.Context) (*Counts, error)
	RevenueTotals(ctx context.Context) (revenue decimal.Decimal, orders int, err error)
	TopProducts(ctx context.Context, limit int) ([]ProductSales, error)
	CategorySales(ctx context.Context) ([]CategorySales, error)
	OrderTrends(ctx context.Context, days int) ([]TrendPoint, error)
	PaymentSplit(ctx context.Context) ([]PaymentSplit, error)
}

type pgAnalyticsRepo struct{ pool *pgxpool.Pool }

func NewAnalyticsRepository(pool *pgxpool.Pool) AnalyticsRepository {
	return &pgAnalyticsRepo{pool: pool}
}

func (r *pgAnalyticsRepo) Counts(ctx context.Context) (*Counts, error) {
	c := &Counts{}
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM products WHERE stock < 10)`,
	).Scan(&c.Products, &c.Orders, &c.Messages, &c.LowStock)
	if err != nil {
		return nil, fmt.Errorf("stat counts: %w", err)
	}
	return c, nil
}

func (r *pgAnalyticsRepo) RevenueTotals(ctx context.Context) (decimal.Decimal, int, error) {
	var revenue decimal.Decimal
	var orders int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total), 0), COUNT(*) FROM orders`,
	).Scan(&revenue, &orders)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("revenue totals: %w", err)
	}
	return revenue, orders, nil
}

func (r *pgAnalyticsRepo) TopProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT oi.product_id, MIN(oi.name), SUM(oi.quantity), SUM(oi.price * oi.quantity)
		FROM order_items oi
		GROUP BY oi.product_id
		ORDER BY SUM(oi.quantity) DESC
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	var out []ProductSales
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Sales, &ps.Revenue); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		out = append(out, ps)
	}
	return out, nil
}

func (r *pgAnalyticsRepo) CategorySales(ctx context.Context) ([]CategorySales, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.category, SUM(oi.quantity), SUM(oi.price * oi.quantity)
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		GROUP BY p.category`,
	)
	if err != nil {
		return nil, fmt.Errorf("category sales: %w", err)
	}
	defer rows.Close()

	var out []CategorySales
	for rows.Next() {
		var cs CategorySales
		if err := rows.Scan(&cs.Category, &cs.Sales, &cs.Revenue); err != nil {
			return nil, fmt.Errorf("scan category sales: %w", err)
		}
		out = append(out, cs)
	}
	return out, nil
}

func (r *pgAnalyticsRepo) OrderTrends(ctx context.Context, days int) ([]TrendPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT TO_CHAR(created_at, 'YYYY-MM-DD') AS day, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE created_at >= NOW() - ($1 || ' days')::interval
		GROUP BY day
		ORDER BY day`, days,
	)
	if err != nil {
		return nil, fmt.Errorf("order trends: %w", err)
	}
	defer rows.Close()

	var out []TrendPoint
	for rows.Next() {
		var tp TrendPoint
		if err := rows.Scan(&tp.Date, &tp.Count, &tp.Revenue); err != nil {
			return nil, fmt.Errorf("scan trend point: %w", err)
		}
		out = append(out, tp)
	}
	return out, nil
}

func (r *pgAnalyticsRepo) PaymentSplit(ctx context.Context) ([]PaymentSplit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payment_mode, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		GROUP BY payment_mode`,
	)
	if err != nil {
		return nil, fmt.Errorf("payment split: %w", err)
	}
	defer rows.Close()

	var out []PaymentSplit
	for rows.Next() {
		var ps PaymentSplit
		if err := rows.Scan(&ps.Mode, &ps.Count, &ps.Revenue); err != nil {
			return nil, fmt.Errorf("scan payment split: %w", err)
		}
		out = append(out, ps)
	}
	return out, nil
}
