package order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/db/dbtest"
	"github.com/vasiliy-maslov/storefront/internal/order"
)

func TestOrderRepository_CreateAndGet(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()

	catalogRepo := catalog.NewRepository(pool)
	category := &catalog.Category{Name: "Doces"}
	require.NoError(t, catalogRepo.UpsertCategory(ctx, category))
	a := &catalog.Product{Name: "A", CategoryID: category.ID, Price: dec("10.00"), Cost: dec("6.00"), Stock: 5, Active: true}
	b := &catalog.Product{Name: "B", CategoryID: category.ID, Price: dec("5.00"), Cost: dec("5.00"), Stock: 5, Active: true}
	require.NoError(t, catalogRepo.CreateProduct(ctx, a))
	require.NoError(t, catalogRepo.CreateProduct(ctx, b))

	repo := order.NewRepository(pool)
	input := &order.Order{
		CustomerName:    "Joana",
		CustomerPhone:   "119999",
		DeliveryAddress: "Av. Paulista, 1000",
		Lines: []order.Line{
			{ProductID: a.ID, Quantity: 2, UnitPrice: a.Price, UnitCost: a.Cost},
			{ProductID: b.ID, Quantity: 1, UnitPrice: b.Price, UnitCost: b.Cost},
		},
	}
	id, err := repo.CreateOrder(ctx, input)
	require.NoError(t, err)
	require.NotZero(t, id)
	assert.Equal(t, order.StatusReceived, input.Status)

	// later catalog changes must not reach stored lines
	_, err = pool.Exec(ctx, `UPDATE products SET price = 99, cost = 1 WHERE id = $1`, a.ID)
	require.NoError(t, err)

	got, err := repo.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(dec("25.00")), "total = %s", got.Total)
	assert.True(t, got.EstimatedProfit.Equal(dec("8.00")), "profit = %s", got.EstimatedProfit)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "A", got.Lines[0].ProductName)
	assert.True(t, got.Lines[0].UnitPrice.Equal(dec("10.00")))
	assert.True(t, got.Lines[0].UnitCost.Equal(dec("6.00")))

	require.NoError(t, repo.UpdateOrderStatus(ctx, id, order.StatusPaid))
	got, err = repo.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, got.Status)

	err = catalogRepo.DeleteProduct(ctx, a.ID)
	assert.ErrorIs(t, err, catalog.ErrInUse)
}

func TestOrderRepository_CreateOrder_RollsBack(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	repo := order.NewRepository(pool)

	input := &order.Order{
		CustomerName:    "Joana",
		CustomerPhone:   "119999",
		DeliveryAddress: "Rua X",
		Lines:           []order.Line{{ProductID: 424242, Quantity: 1, UnitPrice: dec("1.00")}},
	}
	_, err := repo.CreateOrder(ctx, input)
	require.Error(t, err)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count))
	assert.Zero(t, count, "a failed line insert must not leave the order behind")
}

func TestOrderRepository_NotFound(t *testing.T) {
	pool := dbtest.Open(t)
	repo := order.NewRepository(pool)

	_, err := repo.GetOrderByID(context.Background(), 777)
	require.ErrorIs(t, err, order.ErrOrderNotFound)

	err = repo.UpdateOrderStatus(context.Background(), 777, order.StatusPaid)
	require.ErrorIs(t, err, order.ErrOrderNotFound)
}
