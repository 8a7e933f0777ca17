package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopstack/inventory-api/internal/model"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepository interface {
	// PlaceWithStock decrements stock for every item and persists the order
	// in one transaction: either all decrements and the order land, or none.
	PlaceWithStock(ctx context.Context, order *model.Order) error
	// CreateWithItems persists the order without touching stock (card
	// checkout phase one).
	CreateWithItems(ctx context.Context, order *model.Order) error
	// CompleteAndDecrement flips a pending order to Completed and decrements
	// stock for its items, atomically and exactly once. It returns false
	// when the order was already Completed (duplicate webhook delivery).
	CompleteAndDecrement(ctx context.Context, orderID uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	ListByEmail(ctx context.Context, email string) ([]model.Order, error)
	// UpdateStatus moves the order from one status to another; the guard on
	// the old status makes concurrent admin updates lose cleanly.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error)
	// Cancel marks the order Cancelled unless it is Completed or already
	// Cancelled. Stock is not restored.
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) PlaceWithStock(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range order.Items {
		if err := decrementStock(ctx, tx, order.Items[i].ProductID, order.Items[i].Quantity); err != nil {
			return err
		}
	}
	if err := insertOrder(ctx, tx, order); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgOrderRepo) CreateWithItems(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertOrder(ctx, tx, order); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	order.ID = uuid.New()
	err := tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, customer_email, status, payment_mode, total, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.CustomerEmail, order.Status, order.PaymentMode, order.Total,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, name, price, image, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			order.Items[i].ID, order.ID, order.Items[i].ProductID,
			order.Items[i].Name, order.Items[i].Price, order.Items[i].Image, order.Items[i].Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *pgOrderRepo) CompleteAndDecrement(ctx context.Context, orderID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Check-and-set first: the UPDATE row-locks the order, so the second of
	// two concurrent deliveries blocks here and then sees zero rows.
	ct, err := tx.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 AND status <> $2`,
		orderID, model.StatusCompleted,
	)
	if err != nil {
		return false, fmt.Errorf("complete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return false, fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return false, ErrOrderNotFound
		}
		return false, nil // already Completed
	}

	rows, err := tx.Query(ctx,
		`SELECT product_id, quantity FROM order_items WHERE order_id = $1`, orderID,
	)
	if err != nil {
		return false, fmt.Errorf("get order items: %w", err)
	}
	type line struct {
		productID uuid.UUID
		quantity  int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			rows.Close()
			return false, fmt.Errorf("scan order item: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()

	for _, l := range lines {
		if err := decrementStock(ctx, tx, l.productID, l.quantity); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order := &model.Order{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, customer_email, status, payment_mode, total, created_at, updated_at
		 FROM orders WHERE id = $1`, id,
	).Scan(&order.ID, &order.UserID, &order.CustomerEmail, &order.Status, &order.PaymentMode,
		&order.Total, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.loadItems(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]
	return order, nil
}

func (r *pgOrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT id, user_id, customer_email, status, payment_mode, total, created_at, updated_at
		 FROM orders ORDER BY created_at DESC`)
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT id, user_id, customer_email, status, payment_mode, total, created_at, updated_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *pgOrderRepo) ListByEmail(ctx context.Context, email string) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT id, user_id, customer_email, status, payment_mode, total, created_at, updated_at
		 FROM orders WHERE customer_email = $1 ORDER BY created_at DESC`, email)
}

func (r *pgOrderRepo) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	var ids []uuid.UUID
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.CustomerEmail, &o.Status, &o.PaymentMode,
			&o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *pgOrderRepo) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]model.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, name, price, image, quantity
		 FROM order_items WHERE order_id = ANY($1)`, orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]model.OrderItem)
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Price, &it.Image, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	return items, nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *pgOrderRepo) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status NOT IN ($2, $3)`,
		id, model.StatusCancelled, model.StatusCompleted,
	)
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
