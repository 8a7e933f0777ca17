package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopstack/inventory-api/internal/model"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	ListAll(ctx context.Context) ([]model.Message, error)
}

type pgMessageRepo struct{ pool *pgxpool.Pool }

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &pgMessageRepo{pool: pool}
}

func (r *pgMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	msg.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO messages (id, name, email, body, order_id, product_name, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING created_at`,
		msg.ID, msg.Name, msg.Email, msg.Body, msg.OrderID, msg.ProductName,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (r *pgMessageRepo) ListAll(ctx context.Context) ([]model.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, body, order_id, product_name, created_at
		 FROM messages ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Body, &m.OrderID, &m.ProductName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
