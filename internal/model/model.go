package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	Password  string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// lowStockThreshold marks products that need restocking on dashboards.
const lowStockThreshold = 10

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Category    string
	Image       string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Product) LowStock() bool { return p.Stock < lowStockThreshold }

type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
	Image     string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PaymentMode string

const (
	PaymentCOD  PaymentMode = "COD"
	PaymentCard PaymentMode = "Card"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
	StatusCompleted  OrderStatus = "Completed"
)

// transitions is the admin-facing state machine. Fulfillment is monotonic:
// an order never moves backwards, and Delivered and Cancelled are terminal.
// Completed means the card payment settled; such orders still move through
// fulfillment. Completed is also reached by the payment reconciler, which
// bypasses this table via its own compare-and-set.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusCompleted},
	StatusProcessing: {StatusShipped, StatusDelivered, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusCompleted:  {StatusProcessing, StatusShipped, StatusDelivered},
}

// CanTransition reports whether an order may move from one status to
// another through an administrative update.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether the dedicated cancel action applies: any
// state except Completed, and cancelling twice is a no-op upstream.
func (s OrderStatus) Cancellable() bool {
	return s != StatusCompleted && s != StatusCancelled
}

type Order struct {
	ID            uuid.UUID
	UserID        uuid.NullUUID
	CustomerEmail string
	Items         []OrderItem
	Total         decimal.Decimal
	PaymentMode   PaymentMode
	Status        OrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem snapshots name, price and image at the time of ordering so a
// later catalog edit does not rewrite order history.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
	Image     string
	Quantity  int
}

type Message struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Body        string
	OrderID     string
	ProductName string
	CreatedAt   time.Time
}

// ReconcileMessage is the payload queued when a webhook reconciliation
// fails and must be retried by the worker.
type ReconcileMessage struct {
	OrderID uuid.UUID `json:"order_id"`
}
