package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopstack/inventory-api/internal/config"
	"github.com/shopstack/inventory-api/internal/handler"
	"github.com/shopstack/inventory-api/internal/mailer"
	"github.com/shopstack/inventory-api/internal/middleware"
	"github.com/shopstack/inventory-api/internal/payment"
	"github.com/shopstack/inventory-api/internal/repository"
	"github.com/shopstack/inventory-api/internal/service"
	"github.com/shopstack/inventory-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	adminHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("hash admin password", "error", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	messageRepo := repository.NewMessageRepository(dbPool)
	analyticsRepo := repository.NewAnalyticsRepository(dbPool)

	// Outbound integrations
	mail := mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	checkoutClient := payment.NewClient(cfg.Checkout.APIBase, cfg.Checkout.SecretKey, cfg.Checkout.Currency, cfg.Checkout.Timeout)

	// Services
	otpStore := service.NewRedisOTPStore(redisClient)
	authSvc := service.NewAuthService(
		userRepo, otpStore, mail,
		cfg.JWT.Secret, cfg.JWT.Expiration, cfg.Auth.OTPTTL,
		cfg.Auth.AdminUser, adminHash, log,
	)
	productSvc := service.NewProductService(productRepo, redisClient)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	orderSvc := service.NewOrderService(
		orderRepo, productRepo, checkoutClient, mail, amqpCh,
		service.CheckoutURLs{Success: cfg.Checkout.SuccessURL, Cancel: cfg.Checkout.CancelURL},
		log,
	)
	messageSvc := service.NewMessageService(messageRepo)
	adminSvc := service.NewAdminService(analyticsRepo, productRepo)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	productH := handler.NewProductHandler(productSvc)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	webhookH := handler.NewWebhookHandler(orderSvc, cfg.Checkout.WebhookSecret, log)
	messageH := handler.NewMessageHandler(messageSvc)
	adminH := handler.NewAdminHandler(adminSvc, authSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	reconcileWorker := worker.NewReconcileWorker(amqpCh, orderSvc, redisClient, log)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	authRequired := middleware.AuthMiddleware(cfg.JWT.Secret)
	authOptional := middleware.OptionalAuth(cfg.JWT.Secret)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/send-otp", authH.SendOTP)
		auth.POST("/verify-otp", authH.VerifyOTP)
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.GET("/me", authRequired, authH.Me)

		products := v1.Group("/products")
		products.GET("", productH.List)
		products.GET("/low-stock", productH.ListLowStock)
		products.GET("/:id", productH.GetByID)

		productsAdmin := products.Group("", authRequired, middleware.AdminOnly())
		productsAdmin.POST("", productH.Create)
		productsAdmin.PUT("/:id", productH.Update)
		productsAdmin.DELETE("/:id", productH.Delete)

		cart := v1.Group("/cart", authRequired)
		cart.GET("", cartH.GetCart)
		cart.POST("", cartH.SaveCart)
		cart.DELETE("", cartH.Clear)
		cart.POST("/items", cartH.AddItem)
		cart.PUT("/items/:id", cartH.UpdateItem)
		cart.DELETE("/items/:id", cartH.DeleteItem)

		orders := v1.Group("/orders")
		orders.POST("/cod", authOptional, orderH.PlaceCOD)
		orders.POST("/checkout-session", authOptional, orderH.CreateCheckoutSession)
		orders.GET("/my", authRequired, orderH.ListMine)
		orders.GET("/user", orderH.ListByEmail)

		ordersAdmin := orders.Group("", authRequired, middleware.AdminOnly())
		ordersAdmin.GET("", orderH.ListAll)
		ordersAdmin.GET("/:id", orderH.GetOrder)
		ordersAdmin.PUT("/:id", orderH.UpdateStatus)
		ordersAdmin.PUT("/:id/cancel", orderH.Cancel)

		v1.POST("/webhook", webhookH.HandleEvent)

		admin := v1.Group("/admin")
		admin.POST("/login", adminH.Login)

		adminOnly := admin.Group("", authRequired, middleware.AdminOnly())
		adminOnly.GET("/stats", adminH.Stats)
		adminOnly.GET("/analysis", adminH.Analysis)

		messages := v1.Group("/messages")
		messages.POST("", messageH.Create)
		messages.GET("", authRequired, middleware.AdminOnly(), messageH.ListAll)
	}

	if err := reconcileWorker.Start(ctx); err != nil {
		log.Error("start reconcile worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	reconcileWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
