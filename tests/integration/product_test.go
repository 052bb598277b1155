//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopworks/storefront/internal/domain/product"
	"github.com/shopworks/storefront/internal/domain/user"
	"github.com/shopworks/storefront/internal/storage/postgres"
)

func TestUserRepository_EmailUniqueness(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := postgres.NewUserRepository(pool)

	first := createUser(t, user.RoleCustomer)

	err := repo.Create(ctx, &user.User{
		ID:           uuid.NewString(),
		Name:         "Dup",
		Email:        first.Email,
		PasswordHash: "x",
		Role:         user.RoleCustomer,
	})
	require.ErrorIs(t, err, user.ErrEmailTaken)

	got, err := repo.GetByEmail(ctx, first.Email)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestProductRepository_ListFilters(t *testing.T) {
	resetDB(t)
	ctx := context.Background()

	admin := createUser(t, user.RoleAdmin)
	repo := postgres.NewProductRepository(pool)

	widget := createProduct(t, admin.ID, "Red Widget", "10.00", 5)
	createProduct(t, admin.ID, "Blue Widget", "30.00", 5)
	gadget := createProduct(t, admin.ID, "Gadget", "20.00", 5)
	_, err := pool.Exec(ctx, `UPDATE products SET category = 'other' WHERE id = $1`, gadget.ID)
	require.NoError(t, err)

	retired := createProduct(t, admin.ID, "Retired Widget", "5.00", 5)
	require.NoError(t, repo.SetStatus(ctx, retired.ID, product.StatusInactive))

	// Category filter excludes other categories and retired products.
	got, err := repo.List(ctx, product.ListFilter{Category: "test"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Case-insensitive substring search.
	got, err = repo.List(ctx, product.ListFilter{Search: "red w"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, widget.ID, got[0].ID)

	// Price sort.
	got, err = repo.List(ctx, product.ListFilter{Sort: product.SortPriceDesc})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Blue Widget", got[0].Name)

	// Pagination.
	got, err = repo.List(ctx, product.ListFilter{Sort: product.SortPriceAsc, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Blue Widget", got[0].Name)
}

func TestProductRepository_PartialUpdate(t *testing.T) {
	resetDB(t)
	ctx := context.Background()

	admin := createUser(t, user.RoleAdmin)
	repo := postgres.NewProductRepository(pool)
	p := createProduct(t, admin.ID, "Widget", "10.00", 5)

	newPrice := decimal.RequireFromString("12.50")
	updated, err := repo.Update(ctx, p.ID, product.Update{Price: &newPrice})
	require.NoError(t, err)

	assert.True(t, newPrice.Equal(updated.Price))
	assert.Equal(t, "Widget", updated.Name, "untouched fields keep their values")
	assert.Equal(t, 5, updated.Stock)
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt) || updated.UpdatedAt.Equal(p.UpdatedAt))

	_, err = repo.Update(ctx, "00000000-0000-0000-0000-000000000000", product.Update{Price: &newPrice})
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestProductRepository_RetiredStaysResolvable(t *testing.T) {
	resetDB(t)
	ctx := context.Background()

	admin := createUser(t, user.RoleAdmin)
	repo := postgres.NewProductRepository(pool)
	p := createProduct(t, admin.ID, "Widget", "10.00", 5)

	require.NoError(t, repo.SetStatus(ctx, p.ID, product.StatusInactive))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, product.StatusInactive, got.Status)

	listed, err := repo.List(ctx, product.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
}
