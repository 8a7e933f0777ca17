package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/inventory-api/internal/dto"
	"github.com/shopstack/inventory-api/internal/model"
)

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return m.products[id], nil
}

func (m *mockProductRepo) List(_ context.Context, limit, offset int, search, sort, order string) ([]model.Product, int, error) {
	var all []model.Product
	for _, p := range m.products {
		all = append(all, *p)
	}
	return all, len(all), nil
}

func (m *mockProductRepo) ListLowStock(_ context.Context, limit int) ([]model.Product, error) {
	var low []model.Product
	for _, p := range m.products {
		if p.LowStock() {
			low = append(low, *p)
		}
	}
	return low, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) add(name string, price float64, stock int) *model.Product {
	p := &model.Product{
		ID:       uuid.New(),
		Name:     name,
		Category: "general",
		Price:    decimal.NewFromFloat(price),
		Stock:    stock,
	}
	m.products[p.ID] = p
	return p
}

func TestProductService_Create(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	resp, err := svc.Create(context.Background(), dto.CreateProductRequest{
		Name: "Widget", Category: "tools", Price: decimal.NewFromFloat(9.99), Stock: 100,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, resp.ID)
	assert.Equal(t, 100, resp.Stock)
	assert.False(t, resp.LowStock)
}

func TestProductService_Create_FlagsLowStock(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	resp, err := svc.Create(context.Background(), dto.CreateProductRequest{
		Name: "Scarce", Category: "tools", Price: decimal.NewFromFloat(5), Stock: 3,
	})
	require.NoError(t, err)
	assert.True(t, resp.LowStock)
}

func TestProductService_GetByID_NotFound(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Update_Partial(t *testing.T) {
	repo := newMockProductRepo()
	p := repo.add("Widget", 10, 50)
	svc := NewProductService(repo, nil)

	newStock := 7
	resp, err := svc.Update(context.Background(), p.ID, dto.UpdateProductRequest{Stock: &newStock})
	require.NoError(t, err)
	assert.Equal(t, "Widget", resp.Name)
	assert.Equal(t, 7, resp.Stock)
	assert.True(t, resp.LowStock)
	assert.True(t, resp.Price.Equal(decimal.NewFromInt(10)))
}

func TestProductService_ListLowStock(t *testing.T) {
	repo := newMockProductRepo()
	repo.add("Plenty", 10, 100)
	repo.add("Scarce", 10, 2)
	svc := NewProductService(repo, nil)

	low, err := svc.ListLowStock(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Scarce", low[0].Name)
}
