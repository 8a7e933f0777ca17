package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/inventory-api/internal/model"
)

func seedProduct(t *testing.T, name string, price float64, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name: name, Category: "general",
		Price: decimal.NewFromFloat(price), Stock: stock,
	}
	require.NoError(t, NewProductRepository(testPool).Create(context.Background(), p))
	return p
}

func productStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := NewProductRepository(testPool).GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func TestProductRepo_CRUD(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "products")

	repo := NewProductRepository(testPool)
	ctx := context.Background()

	product := &model.Product{
		Name: "Test", Description: "Desc", Category: "tools",
		Price: decimal.NewFromFloat(29.99), Stock: 100,
	}
	require.NoError(t, repo.Create(ctx, product))
	assert.NotEqual(t, uuid.Nil, product.ID)

	found, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Test", found.Name)
	assert.True(t, found.Price.Equal(decimal.NewFromFloat(29.99)))

	product.Name = "Updated"
	require.NoError(t, repo.Update(ctx, product))
	found, _ = repo.GetByID(ctx, product.ID)
	assert.Equal(t, "Updated", found.Name)

	require.NoError(t, repo.Delete(ctx, product.ID))
	found, _ = repo.GetByID(ctx, product.ID)
	assert.Nil(t, found)
}

func TestProductRepo_ListLowStock(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "products")

	seedProduct(t, "Plenty", 10, 100)
	scarce := seedProduct(t, "Scarce", 10, 3)

	low, err := NewProductRepository(testPool).ListLowStock(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, scarce.ID, low[0].ID)
}

func TestOrderRepo_PlaceWithStock(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "products")

	shirt := seedProduct(t, "Shirt", 100, 5)
	mug := seedProduct(t, "Mug", 50, 5)
	repo := NewOrderRepository(testPool)
	ctx := context.Background()

	order := &model.Order{
		CustomerEmail: "buyer@example.com",
		Total:         decimal.NewFromInt(250),
		PaymentMode:   model.PaymentCOD,
		Status:        model.StatusPending,
		Items: []model.OrderItem{
			{ProductID: shirt.ID, Name: "Shirt", Price: decimal.NewFromInt(100), Quantity: 2},
			{ProductID: mug.ID, Name: "Mug", Price: decimal.NewFromInt(50), Quantity: 1},
		},
	}
	require.NoError(t, repo.PlaceWithStock(ctx, order))

	assert.Equal(t, 3, productStock(t, shirt.ID))
	assert.Equal(t, 4, productStock(t, mug.ID))

	found, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, model.StatusPending, found.Status)
	assert.Len(t, found.Items, 2)
}

func TestOrderRepo_PlaceWithStock_RollsBackOnShortage(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "products")

	shirt := seedProduct(t, "Shirt", 100, 5)
	mug := seedProduct(t, "Mug", 50, 1)
	repo := NewOrderRepository(testPool)

	order := &model.Order{
		Total:       decimal.NewFromInt(300),
		PaymentMode: model.PaymentCOD,
		Status:      model.StatusPending,
		Items: []model.OrderItem{
			{ProductID: shirt.ID, Name: "Shirt", Price: decimal.NewFromInt(100), Quantity: 2},
			{ProductID: mug.ID, Name: "Mug", Price: decimal.NewFromInt(50), Quantity: 2},
		},
	}
	err := repo.PlaceWithStock(context.Background(), order)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Mug", stockErr.Name)

	// The shirt decrement from the same order must have rolled back.
	assert.Equal(t, 5, productStock(t, shirt.ID))
	assert.Equal(t, 1, productStock(t, mug.ID))

	orders, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderRepo_PlaceWithStock_UnknownProduct(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "products")

	repo := NewOrderRepository(testPool)
	order := &model.Order{
		Total:       decimal.NewFromInt(100),
		PaymentMode: model.PaymentCOD,
		Status:      model.StatusPending,
		Items: []model.OrderItem{
			{ProductID: uuid.New(), Name: "Ghost", Price: decimal.NewFromInt(100), Quantity: 1},
		},
	}
	err := repo.PlaceWithStock(context.Background(), order)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestOrderRepo_CompleteAndDecrement(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "products")

	shirt := seedProduct(t, "Shirt", 100, 5)
	repo := NewOrderRepository(testPool)
	ctx := context.Background()

	order := &model.Order{
		Total:       decimal.NewFromInt(200),
		PaymentMode: model.PaymentCard,
		Status:      model.StatusPending,
		Items: []model.OrderItem{
			{ProductID: shirt.ID, Name: "Shirt", Price: decimal.NewFromInt(100), Quantity: 2},
		},
	}
	require.NoError(t, repo.CreateWithItems(ctx, order))
	assert.Equal(t, 5, productStock(t, shirt.ID))

	completed, err := repo.CompleteAndDecrement(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, 3, productStock(t, shirt.ID))

	// Replay: no state change, not an error.
	completed, err = repo.CompleteAndDecrement(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, 3, productStock(t, shirt.ID))

	_, err = repo.CompleteAndDecrement(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderRepo_CompleteAndDecrement_Concurrent(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "products")

	shirt := seedProduct(t, "Shirt", 100, 10)
	repo := NewOrderRepository(testPool)
	ctx := context.Background()

	order := &model.Order{
		Total:       decimal.NewFromInt(100),
		PaymentMode: model.PaymentCard,
		Status:      model.StatusPending,
		Items: []model.OrderItem{
			{ProductID: shirt.ID, Name: "Shirt", Price: decimal.NewFromInt(100), Quantity: 1},
		},
	}
	require.NoError(t, repo.CreateWithItems(ctx, order))

	const deliveries = 8
	results := make([]bool, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			completed, err := repo.CompleteAndDecrement(ctx, order.ID)
			assert.NoError(t, err)
			results[i] = completed
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, r := range results {
		if r {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 9, productStock(t, shirt.ID))
}

func TestOrderRepo_ConcurrentPlacement_NeverOversells(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "products")

	shirt := seedProduct(t, "Shirt", 100, 5)
	repo := NewOrderRepository(testPool)
	ctx := context.Background()

	const buyers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	placed := 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order := &model.Order{
				Total:       decimal.NewFromInt(100),
				PaymentMode: model.PaymentCOD,
				Status:      model.StatusPending,
				Items: []model.OrderItem{
					{ProductID: shirt.ID, Name: "Shirt", Price: decimal.NewFromInt(100), Quantity: 1},
				},
			}
			if err := repo.PlaceWithStock(ctx, order); err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, placed)
	assert.Equal(t, 0, productStock(t, shirt.ID))
}

func TestOrderRepo_StatusTransitions(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "products")

	shirt := seedProduct(t, "Shirt", 100, 5)
	repo := NewOrderRepository(testPool)
	ctx := context.Background()

	order := &model.Order{
		Total:       decimal.NewFromInt(100),
		PaymentMode: model.PaymentCOD,
		Status:      model.StatusPending,
		Items: []model.OrderItem{
			{ProductID: shirt.ID, Name: "Shirt", Price: decimal.NewFromInt(100), Quantity: 1},
		},
	}
	require.NoError(t, repo.PlaceWithStock(ctx, order))

	ok, err := repo.UpdateStatus(ctx, order.ID, model.StatusPending, model.StatusShipped)
	require.NoError(t, err)
	assert.True(t, ok)

	// The guard makes a stale transition lose.
	ok, err = repo.UpdateStatus(ctx, order.ID, model.StatusPending, model.StatusProcessing)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Cancelling twice is a no-op, and stock stays where it was.
	ok, err = repo.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, productStock(t, shirt.ID))
}

func TestUserRepo_CreateAndGetByEmail(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "users")

	repo := NewUserRepository(testPool)
	ctx := context.Background()

	user := &model.User{
		Username: "jo", Email: "test@example.com", Password: "hashed", Verified: true,
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	found, err := repo.GetByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.True(t, found.Verified)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCartRepo_ReplaceItems(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "users", "products")

	userRepo := NewUserRepository(testPool)
	cartRepo := NewCartRepository(testPool)
	ctx := context.Background()

	user := &model.User{Username: "jo", Email: "cart@example.com", Password: "x", Verified: true}
	require.NoError(t, userRepo.Create(ctx, user))
	shirt := seedProduct(t, "Shirt", 100, 5)
	mug := seedProduct(t, "Mug", 50, 5)

	cart, err := cartRepo.GetOrCreateCart(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, cartRepo.ReplaceItems(ctx, cart.ID, []model.CartItem{
		{ProductID: shirt.ID, Name: "Shirt", Price: decimal.NewFromInt(100), Quantity: 2},
	}))

	require.NoError(t, cartRepo.ReplaceItems(ctx, cart.ID, []model.CartItem{
		{ProductID: mug.ID, Name: "Mug", Price: decimal.NewFromInt(50), Quantity: 1},
	}))

	got, err := cartRepo.GetCartWithItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, mug.ID, got.Items[0].ProductID)
}
