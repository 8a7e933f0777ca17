package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/shopstack/inventory-api/internal/model"
	"github.com/shopstack/inventory-api/internal/service"
)

const (
	reconcileQueueName = service.ReconcileQueue
	dlxExchange        = "reconcile.dlx"
	dlqQueueName       = "reconcile.dlq"
	idempotencyTTL     = 24 * time.Hour
)

// ReconcileWorker retries webhook reconciliations that failed inline. The
// completion transaction is idempotent on its own; the Redis key is a
// fast-path skip for orders the worker already settled.
type ReconcileWorker struct {
	channel     *amqp.Channel
	orders      *service.OrderService
	redisClient *redis.Client
	log         *slog.Logger
	done        chan struct{}
}

func NewReconcileWorker(
	ch *amqp.Channel,
	orders *service.OrderService,
	redisClient *redis.Client,
	log *slog.Logger,
) *ReconcileWorker {
	return &ReconcileWorker{
		channel:     ch,
		orders:      orders,
		redisClient: redisClient,
		log:         log,
		done:        make(chan struct{}),
	}
}

// SetupRabbitMQ declares the reconcile queue and its DLX/DLQ bindings.
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, reconcileQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(reconcileQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": reconcileQueueName,
	}); err != nil {
		return fmt.Errorf("declare reconcile queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *ReconcileWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(reconcileQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("reconcile worker started")
	return nil
}

func (w *ReconcileWorker) Stop() { close(w.done) }

func (w *ReconcileWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var job model.ReconcileMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		w.log.Error("unmarshal reconcile message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", job.OrderID)

	idempotencyKey := "reconciled:" + job.OrderID.String()
	exists, err := w.redisClient.Exists(ctx, idempotencyKey).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("order already reconciled, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.orders.CompletePayment(ctx, job.OrderID); err != nil {
		log.Error("reconcile payment failed", "error", err)
		_ = msg.Nack(false, false) // → DLQ
		return
	}

	if err := w.redisClient.Set(ctx, idempotencyKey, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("order reconciled")
}
