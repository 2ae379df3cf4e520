package service_test

import (
	"context"
	"testing"
	"time"

	"stockpos/internal/dto"
	"stockpos/internal/model"
	"stockpos/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCatalog() (service.ProductService, service.CategoryService, *memStore) {
	store := newMemStore()
	products := service.NewProductService(memTransactor{store}, stubProductRepo{store}, stubCategoryRepo{store}, stubMovementRepo{store}, nil, testPolicy)
	categories := service.NewCategoryService(stubCategoryRepo{store})
	return products, categories, store
}

func ptr[T any](v T) *T { return &v }

func TestProductCreate_WithCategory(t *testing.T) {
	products, categories, _ := buildCatalog()
	cat, err := categories.Create(context.Background(), dto.CreateCategoryRequest{Name: "Drinks"})
	require.NoError(t, err)

	p, err := products.Create(context.Background(), 7, dto.CreateProductRequest{
		Name:       "  Cola  ",
		Price:      ptr(decimal.RequireFromString("1.25")),
		Quantity:   ptr(4),
		CategoryID: &cat.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Cola", p.Name)
	assert.True(t, p.IsActive)
	require.NotNil(t, p.CategoryName)
	assert.Equal(t, "Drinks", *p.CategoryName)
	assert.True(t, p.LowStock, "4 is below the threshold of 10")
}

func TestProductCreate_UnknownCategory(t *testing.T) {
	products, _, _ := buildCatalog()

	_, err := products.Create(context.Background(), 1, dto.CreateProductRequest{
		Name: "Cola", Price: ptr(decimal.NewFromInt(1)), Quantity: ptr(0), CategoryID: ptr(uint(42)),
	})
	require.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, "Category not found.", service.UserMessage(err))
}

func TestProductUpdate_Deactivate(t *testing.T) {
	products, _, store := buildCatalog()
	seeded := store.seedProduct("Cola", "1.00", 20, true)

	p, err := products.Update(context.Background(), seeded.ID, 7, dto.UpdateProductRequest{
		Name: "Cola Zero", Price: ptr(decimal.RequireFromString("1.10")), Quantity: ptr(20), IsActive: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cola Zero", p.Name)
	assert.True(t, decimal.RequireFromString("1.10").Equal(p.Price))
	assert.False(t, p.IsActive)
	assert.False(t, p.LowStock)
	assert.Empty(t, store.movementsFor(seeded.ID), "unchanged quantity writes no movement")
	assert.Equal(t, 1, store.lockCalls, "update goes through the row lock")

	_, err = products.Update(context.Background(), 999, 7, dto.UpdateProductRequest{
		Name: "x", Price: ptr(decimal.NewFromInt(1)), Quantity: ptr(1),
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestProductUpdate_OmittedPriceOrQuantityRejected(t *testing.T) {
	products, _, store := buildCatalog()
	seeded := store.seedProduct("Cola", "1.00", 20, true)

	cases := []struct {
		name string
		req  dto.UpdateProductRequest
	}{
		{"name only", dto.UpdateProductRequest{Name: "Cola Zero"}},
		{"no quantity", dto.UpdateProductRequest{Name: "Cola Zero", Price: ptr(decimal.NewFromInt(2))}},
		{"no price", dto.UpdateProductRequest{Name: "Cola Zero", Quantity: ptr(5)}},
		{"blank name", dto.UpdateProductRequest{Name: "  ", Price: ptr(decimal.NewFromInt(2)), Quantity: ptr(5)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := products.Update(context.Background(), seeded.ID, 7, tc.req)
			require.ErrorIs(t, err, service.ErrInvalidInput)
			assert.Equal(t, "Product name, price, and quantity are required.", service.UserMessage(err))
		})
	}

	got, err := products.Get(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cola", got.Name)
	assert.Equal(t, 20, got.Quantity)
	assert.True(t, decimal.RequireFromString("1.00").Equal(got.Price))
	assert.Empty(t, store.movementsFor(seeded.ID))
}

func TestProductCreate_OmittedPriceOrQuantityRejected(t *testing.T) {
	products, _, store := buildCatalog()

	_, err := products.Create(context.Background(), 7, dto.CreateProductRequest{Name: "Cola", Quantity: ptr(3)})
	require.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = products.Create(context.Background(), 7, dto.CreateProductRequest{Name: "Cola", Price: ptr(decimal.NewFromInt(1))})
	require.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = products.Create(context.Background(), 7, dto.CreateProductRequest{
		Name: "Cola", Price: ptr(decimal.NewFromInt(-1)), Quantity: ptr(3),
	})
	require.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Empty(t, store.products)
}

func TestProductUpdate_QuantityChangeRecordsAdjustment(t *testing.T) {
	products, _, store := buildCatalog()
	seeded := store.seedProduct("Cola", "1.00", 20, true)
	update := func(qty int) {
		t.Helper()
		_, err := products.Update(context.Background(), seeded.ID, 7, dto.UpdateProductRequest{
			Name: "Cola", Price: ptr(decimal.RequireFromString("1.00")), Quantity: ptr(qty),
		})
		require.NoError(t, err)
	}

	update(25)
	update(18)
	assert.Equal(t, 18, store.quantity(seeded.ID))

	movements := store.movementsFor(seeded.ID)
	require.Len(t, movements, 2)
	assert.Equal(t, model.MovementIn, movements[0].MovementType)
	assert.Equal(t, 5, movements[0].Quantity)
	assert.Equal(t, model.MovementOut, movements[1].MovementType)
	assert.Equal(t, 7, movements[1].Quantity)
	for _, m := range movements {
		assert.Equal(t, model.ReasonAdjustment, m.Reason)
		assert.Equal(t, uint(7), m.UserID)
	}
}

func TestProductUpdate_AdjustmentAppliesDeltaAfterSale(t *testing.T) {
	products, _, store := buildCatalog()
	sales := service.NewSaleService(memTransactor{store}, stubProductRepo{store}, stubSaleRepo{store},
		stubMovementRepo{store}, nil, &stubNotifier{}, testPolicy)
	seeded := store.seedProduct("Cola", "1.00", 20, true)

	// The sale commits first; the edit then applies its change against the
	// locked, post-sale quantity and records it.
	_, err := sales.ProcessSale(context.Background(), service.SaleCommand{ProductID: seeded.ID, Quantity: 5, UserID: 7})
	require.NoError(t, err)
	_, err = products.Update(context.Background(), seeded.ID, 7, dto.UpdateProductRequest{
		Name: "Cola", Price: ptr(decimal.RequireFromString("1.00")), Quantity: ptr(12),
	})
	require.NoError(t, err)

	assert.Equal(t, 12, store.quantity(seeded.ID))
	movements := store.movementsFor(seeded.ID)
	require.Len(t, movements, 2)
	assert.Equal(t, model.ReasonSale, movements[0].Reason)
	assert.Equal(t, model.MovementOut, movements[1].MovementType)
	assert.Equal(t, 3, movements[1].Quantity)
	assert.Len(t, store.salesFor(seeded.ID), 1)
}

func TestProductUpdate_AdjustmentNeedsActingUser(t *testing.T) {
	products, _, store := buildCatalog()
	seeded := store.seedProduct("Cola", "1.00", 20, true)

	_, err := products.Update(context.Background(), seeded.ID, 0, dto.UpdateProductRequest{
		Name: "Cola Light", Price: ptr(decimal.RequireFromString("1.00")), Quantity: ptr(30),
	})
	require.ErrorIs(t, err, service.ErrInvalidInput)

	got, err := products.Get(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cola", got.Name, "rolled back with the failed adjustment")
	assert.Equal(t, 20, got.Quantity)
}

func TestProductDelete(t *testing.T) {
	products, _, store := buildCatalog()
	unsold := store.seedProduct("Unsold", "1.00", 1, true)
	sold := store.seedProduct("Sold", "1.00", 1, true)
	store.seedSale(sold.ID, 1, 1, "1.00", time.Now())

	require.NoError(t, products.Delete(context.Background(), unsold.ID))
	assert.ErrorIs(t, products.Delete(context.Background(), unsold.ID), service.ErrNotFound)
	assert.ErrorIs(t, products.Delete(context.Background(), sold.ID), service.ErrInvalidInput)
}

func TestProductList_SearchSortAndPaging(t *testing.T) {
	products, _, store := buildCatalog()
	for _, name := range []string{"Green Tea", "Black Tea", "Coffee", "Herbal Tea"} {
		store.seedProduct(name, "2.00", 10, true)
	}

	res, err := products.List(context.Background(), dto.ProductFilter{Search: "tea", Sort: "product_name", Order: "DESC", Page: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	assert.Equal(t, "desc", res.Order)
	require.Len(t, res.Data, 3)
	assert.Equal(t, "Herbal Tea", res.Data[0].Name)
	assert.Equal(t, "Black Tea", res.Data[2].Name)

	res, err = products.List(context.Background(), dto.ProductFilter{Sort: "password; DROP TABLE", Page: 0})
	require.NoError(t, err)
	assert.Equal(t, "id", res.Sort)
	assert.Equal(t, "asc", res.Order)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, "Green Tea", res.Data[0].Name)
}

func TestProductList_StoreFailure(t *testing.T) {
	products, _, store := buildCatalog()
	store.failListing = errStoreDown

	_, err := products.List(context.Background(), dto.ProductFilter{Page: 1})
	assert.ErrorIs(t, err, service.ErrStoreUnavailable)
}

func TestCategory_DuplicateNameConflict(t *testing.T) {
	_, categories, _ := buildCatalog()
	_, err := categories.Create(context.Background(), dto.CreateCategoryRequest{Name: "Snacks"})
	require.NoError(t, err)

	_, err = categories.Create(context.Background(), dto.CreateCategoryRequest{Name: "snacks"})
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestCategory_UpdateAndDeleteDetachesProducts(t *testing.T) {
	products, categories, _ := buildCatalog()
	cat, err := categories.Create(context.Background(), dto.CreateCategoryRequest{Name: "Snacks"})
	require.NoError(t, err)
	p, err := products.Create(context.Background(), 1, dto.CreateProductRequest{
		Name: "Chips", Price: ptr(decimal.NewFromInt(2)), Quantity: ptr(30), CategoryID: &cat.ID,
	})
	require.NoError(t, err)

	renamed, err := categories.Update(context.Background(), cat.ID, dto.UpdateCategoryRequest{Name: ptr("Savory Snacks")})
	require.NoError(t, err)
	assert.Equal(t, "Savory Snacks", renamed.Name)

	require.NoError(t, categories.Delete(context.Background(), cat.ID))
	got, err := products.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)

	assert.ErrorIs(t, categories.Delete(context.Background(), cat.ID), service.ErrNotFound)
	list, err := categories.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
