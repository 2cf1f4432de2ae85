package repository

import (
	"context"
	"testing"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupShoppingListTest(t *testing.T) ShoppingListRepository {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	return NewShoppingListRepository(testDB)
}

func TestShoppingListRepository_CreateAndFind(t *testing.T) {
	repo := setupShoppingListTest(t)
	ctx := context.Background()

	list := &model.ShoppingList{
		CustomerName:  "Gita Rai",
		CustomerPhone: "9822222222",
		ListText:      "2kg onions",
		ListPhotos:    []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
	}
	require.NoError(t, repo.Create(ctx, list))
	assert.NotZero(t, list.ID)

	found, err := repo.FindByID(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShoppingListPending, found.Status)
	assert.Len(t, found.ListPhotos, 2)

	byText, err := repo.FindByPhoneAndText(ctx, "9822222222", "2kg onions")
	require.NoError(t, err)
	assert.Equal(t, list.ID, byText.ID)

	_, err = repo.FindByPhoneAndText(ctx, "9822222222", "3kg onions")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestShoppingListRepository_UpdateStatus(t *testing.T) {
	repo := setupShoppingListTest(t)
	ctx := context.Background()

	list := &model.ShoppingList{CustomerName: "Gita Rai", CustomerPhone: "9822222222", ListText: "eggs"}
	require.NoError(t, repo.Create(ctx, list))

	changed, err := repo.UpdateStatus(ctx, list.ID, model.ShoppingListOutForDelivery)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateStatus(ctx, list.ID, model.ShoppingListOutForDelivery)
	require.NoError(t, err)
	assert.False(t, changed, "applying the same status again is a no-op")

	found, err := repo.FindByID(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShoppingListOutForDelivery, found.Status)
}

func TestShoppingListRepository_UpdateStatusNeverMovesBack(t *testing.T) {
	repo := setupShoppingListTest(t)
	ctx := context.Background()

	list := &model.ShoppingList{CustomerName: "Gita Rai", CustomerPhone: "9822222222", ListText: "eggs", Status: model.ShoppingListPaid}
	require.NoError(t, repo.Create(ctx, list))

	changed, err := repo.UpdateStatus(ctx, list.ID, model.ShoppingListCompleted)
	require.NoError(t, err)
	assert.True(t, changed)

	for _, status := range []model.ShoppingListStatus{
		model.ShoppingListOutForDelivery,
		model.ShoppingListCancelled,
		model.ShoppingListPending,
	} {
		changed, err = repo.UpdateStatus(ctx, list.ID, status)
		require.NoError(t, err)
		assert.False(t, changed, "%s must not replace a completed list", status)
	}

	found, err := repo.FindByID(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShoppingListCompleted, found.Status)
}

func TestShoppingListRepository_FindAll(t *testing.T) {
	repo := setupShoppingListTest(t)
	ctx := context.Background()

	for _, status := range []model.ShoppingListStatus{model.ShoppingListPending, model.ShoppingListPending, model.ShoppingListReady} {
		require.NoError(t, repo.Create(ctx, &model.ShoppingList{
			CustomerName:  "Hari",
			CustomerPhone: "9833333333",
			ListText:      "milk",
			Status:        status,
		}))
	}

	all, err := repo.FindAll(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ready, err := repo.FindAll(ctx, model.ShoppingListReady)
	require.NoError(t, err)
	assert.Len(t, ready, 1)
}
