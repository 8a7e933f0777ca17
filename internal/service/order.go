package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/shopstack/inventory-api/internal/dto"
	"github.com/shopstack/inventory-api/internal/mailer"
	"github.com/shopstack/inventory-api/internal/model"
	"github.com/shopstack/inventory-api/internal/payment"
	"github.com/shopstack/inventory-api/internal/repository"
)

var (
	ErrEmptyOrder        = errors.New("order has no items")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ReconcileQueue is the durable queue failed webhook reconciliations are
// retried from.
const ReconcileQueue = "reconcile"

type CheckoutURLs struct {
	Success string
	Cancel  string
}

type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	provider    payment.Provider
	mail        mailer.Sender
	amqpCh      *amqp.Channel
	urls        CheckoutURLs
	log         *slog.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	provider payment.Provider,
	mail mailer.Sender,
	amqpCh *amqp.Channel,
	urls CheckoutURLs,
	log *slog.Logger,
) *OrderService {
	if log == nil {
		log = slog.Default()
	}
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		provider:    provider,
		mail:        mail,
		amqpCh:      amqpCh,
		urls:        urls,
		log:         log,
	}
}

// normalizeItems turns client-submitted line items into authoritative
// snapshots. Quantities below one default to one; name, price and image
// come from the catalog, never from the client. Every referenced product
// must exist and have enough stock at this moment — the conditional
// decrement re-verifies at write time.
func (s *OrderService) normalizeItems(ctx context.Context, inputs []dto.OrderItemInput) ([]model.OrderItem, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyOrder
	}

	items := make([]model.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		qty := in.Quantity
		if qty < 1 {
			qty = 1
		}
		product, err := s.productRepo.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return nil, &repository.StockError{ProductID: in.ProductID, Err: repository.ErrProductNotFound}
		}
		if product.Stock < qty {
			return nil, &repository.StockError{ProductID: product.ID, Name: product.Name, Err: repository.ErrInsufficientStock}
		}
		items = append(items, model.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  qty,
		})
	}
	return items, nil
}

func orderTotal(items []model.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// PlaceCODOrder runs the cash-on-delivery flow: all stock decrements and
// the order insert commit together or not at all.
func (s *OrderService) PlaceCODOrder(ctx context.Context, userID uuid.NullUUID, req dto.PlaceOrderRequest) (*model.Order, error) {
	items, err := s.normalizeItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	total := orderTotal(items)
	if req.Total != nil && req.Total.IsPositive() {
		total = *req.Total
	}

	order := &model.Order{
		UserID:        userID,
		CustomerEmail: req.Email,
		Items:         items,
		Total:         total,
		PaymentMode:   model.PaymentCOD,
		Status:        model.StatusPending,
	}
	if err := s.orderRepo.PlaceWithStock(ctx, order); err != nil {
		return nil, err
	}

	if order.CustomerEmail != "" {
		s.sendOrderMail(order, "Order Confirmation - COD",
			"Thank you for your order!", "Your cash-on-delivery order has been placed successfully.")
	}
	return order, nil
}

// CreateCheckoutSession runs phase one of the card flow: the order is
// persisted Pending with stock untouched, and a hosted checkout session
// carrying the order id is returned for the client to redirect to. Stock
// moves only when the provider confirms payment via webhook.
func (s *OrderService) CreateCheckoutSession(ctx context.Context, userID uuid.NullUUID, req dto.PlaceOrderRequest) (*payment.Session, *model.Order, error) {
	items, err := s.normalizeItems(ctx, req.Items)
	if err != nil {
		return nil, nil, err
	}

	order := &model.Order{
		UserID:        userID,
		CustomerEmail: req.Email,
		Items:         items,
		Total:         orderTotal(items),
		PaymentMode:   model.PaymentCard,
		Status:        model.StatusPending,
	}
	if err := s.orderRepo.CreateWithItems(ctx, order); err != nil {
		return nil, nil, err
	}

	lineItems := make([]payment.LineItem, 0, len(items))
	for _, it := range items {
		lineItems = append(lineItems, payment.LineItem{
			Name:       it.Name,
			UnitAmount: it.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
			Quantity:   it.Quantity,
		})
	}
	session, err := s.provider.CreateSession(ctx, payment.SessionParams{
		LineItems:     lineItems,
		SuccessURL:    s.urls.Success,
		CancelURL:     s.urls.Cancel,
		CustomerEmail: order.CustomerEmail,
		Metadata:      map[string]string{"orderId": order.ID.String()},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create checkout session: %w", err)
	}
	return session, order, nil
}

// ProcessWebhookEvent consumes an authenticated provider event. It never
// returns an error for post-signature processing failures: those are
// queued for retry and the event is acknowledged, so the provider does
// not storm us with redeliveries.
func (s *OrderService) ProcessWebhookEvent(ctx context.Context, ev *payment.Event) {
	if ev.Type != payment.EventCheckoutCompleted {
		return
	}
	raw := ev.Data.Object.Metadata["orderId"]
	if raw == "" {
		s.log.Warn("webhook event without order id", "event", ev.ID)
		return
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		s.log.Warn("webhook event with malformed order id", "event", ev.ID, "order_id", raw)
		return
	}

	if err := s.CompletePayment(ctx, orderID); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			s.log.Error("webhook for unknown order", "order_id", orderID)
			return
		}
		s.log.Error("reconcile payment failed, queueing retry", "order_id", orderID, "error", err)
		s.queueReconcile(ctx, orderID)
	}
}

// CompletePayment transitions a pending order to Completed and decrements
// stock exactly once. Safe to call any number of times, concurrently.
func (s *OrderService) CompletePayment(ctx context.Context, orderID uuid.UUID) error {
	completed, err := s.orderRepo.CompleteAndDecrement(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if !completed {
		s.log.Info("order already completed, skipping", "order_id", orderID)
		return nil
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil || order == nil {
		s.log.Error("load completed order for mail", "order_id", orderID, "error", err)
		return nil
	}
	if order.CustomerEmail != "" {
		s.sendOrderMail(order, "Order Confirmation - Card Payment",
			"Payment Successful", "Your payment was received and your order is confirmed.")
	}
	return nil
}

func (s *OrderService) queueReconcile(ctx context.Context, orderID uuid.UUID) {
	if s.amqpCh == nil {
		return
	}
	body, _ := json.Marshal(model.ReconcileMessage{OrderID: orderID})
	err := s.amqpCh.PublishWithContext(ctx, "", ReconcileQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		s.log.Error("publish reconcile retry", "order_id", orderID, "error", err)
	}
}

func (s *OrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListAll(ctx context.Context) ([]model.Order, error) {
	return s.orderRepo.ListAll(ctx)
}

func (s *OrderService) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return s.orderRepo.ListByUserID(ctx, userID)
}

func (s *OrderService) ListByEmail(ctx context.Context, email string) ([]model.Order, error) {
	return s.orderRepo.ListByEmail(ctx, email)
}

// UpdateStatus applies an administrative transition, validated against the
// order state machine and compare-and-set against the status it was read
// at, so racing admins cannot skip states.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, to model.OrderStatus) (*model.Order, error) {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(order.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, to)
	}
	ok, err := s.orderRepo.UpdateStatus(ctx, orderID, order.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
	}
	order.Status = to
	return order, nil
}

// Cancel marks the order Cancelled. Stock already decremented is not
// restored; see the repository contract.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.Cancellable() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, model.StatusCancelled)
	}
	ok, err := s.orderRepo.Cancel(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
	}
	order.Status = model.StatusCancelled
	return order, nil
}

func (s *OrderService) sendOrderMail(order *model.Order, subject, heading, intro string) {
	if s.mail == nil {
		return
	}
	body, err := mailer.OrderBody(heading, intro, order)
	if err != nil {
		s.log.Error("render order mail", "order_id", order.ID, "error", err)
		return
	}
	if err := s.mail.Send(order.CustomerEmail, subject, body); err != nil {
		s.log.Error("send order mail", "order_id", order.ID, "error", err)
	}
}
