package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
)

func setupTestDB(t *testing.T) (CartRepository, func()) {
	ctx := context.Background()

	// Replica set is needed for the merge transaction in SaveBoth
	mongoContainer, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, MongoConfig{URI: uri, Database: "testdb", MaxPoolSize: 10})
	require.NoError(t, err)

	repo := NewMongoCartRepository(db)

	mongoRepo := repo.(*mongoCartRepository)
	err = mongoRepo.CreateIndexes(ctx)
	require.NoError(t, err)

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func testCart(id, customerID, sessionID string) *domain.Cart {
	cart := domain.NewCart(id, customerID, sessionID, time.Now())
	cart.Items = []domain.CartItem{
		{
			ItemID:            "item-1",
			ProductTemplateID: "tpl-1",
			ProductName:       "Tilt window",
			ProductFamily:     "WINDOW",
			ConfigurationHash: "hash-1",
			Quantity:          2,
			UnitPrice:         1000,
			LineTotal:         2000,
			ValidationStatus:  domain.ValidationStatusValid,
		},
	}
	cart.Totals = domain.Totals{Subtotal: 2000, Total: 2000, ItemCount: 2}
	return cart
}

func TestFindByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	cart, err := repo.FindByID(ctx, "nonexistent")

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestSave_InsertAndRead(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart := testCart("cart-1", "cust-1", "")
	err := repo.Save(ctx, cart)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cart.Version)

	found, err := repo.FindByID(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, "cust-1", found.CustomerID)
	assert.Len(t, found.Items, 1)
	assert.Equal(t, int64(2000), found.Totals.Total)
	assert.Equal(t, int64(1), found.Version)
}

func TestFindByCustomerID_OnlyActiveCarts(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart := testCart("cart-1", "cust-1", "")
	require.NoError(t, repo.Save(ctx, cart))

	found, err := repo.FindByCustomerID(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "cart-1", found.ID)

	require.NoError(t, found.MarkCheckedOut())
	require.NoError(t, repo.Save(ctx, found))

	_, err = repo.FindByCustomerID(ctx, "cust-1")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestFindBySessionID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart := testCart("cart-1", "", "sess-1")
	require.NoError(t, repo.Save(ctx, cart))

	found, err := repo.FindBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "cart-1", found.ID)
}

func TestSave_VersionConflict(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart := testCart("cart-1", "cust-1", "")
	require.NoError(t, repo.Save(ctx, cart))

	// Two loads of the same version, first save wins
	first, err := repo.FindByID(ctx, "cart-1")
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, "cart-1")
	require.NoError(t, err)

	first.Items[0].Quantity = 3
	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Items[0].Quantity = 7
	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(1), second.Version, "version must not advance on conflict")

	found, err := repo.FindByID(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, 3, found.Items[0].Quantity)
}

func TestSave_MissingCart(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart := testCart("cart-1", "cust-1", "")
	cart.Version = 5

	err := repo.Save(ctx, cart)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestSave_DuplicateActiveOwner(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testCart("cart-1", "cust-1", "")))

	err := repo.Save(ctx, testCart("cart-2", "cust-1", ""))
	assert.ErrorIs(t, err, ErrDuplicateCartOwner)
}

func TestSaveBoth_PersistsTargetAndSource(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	target := testCart("cart-t", "cust-1", "")
	source := testCart("cart-s", "", "sess-1")
	require.NoError(t, repo.Save(ctx, target))
	require.NoError(t, repo.Save(ctx, source))

	target.Items[0].Quantity = 4
	source.Clear()
	require.NoError(t, source.MarkMerged())

	err := repo.SaveBoth(ctx, target, source)
	require.NoError(t, err)

	foundTarget, err := repo.FindByID(ctx, "cart-t")
	require.NoError(t, err)
	assert.Equal(t, 4, foundTarget.Items[0].Quantity)
	assert.Equal(t, int64(2), foundTarget.Version)

	foundSource, err := repo.FindByID(ctx, "cart-s")
	require.NoError(t, err)
	assert.Empty(t, foundSource.Items)
	assert.Equal(t, domain.CartStatusMerged, foundSource.Status)
}

func TestSaveBoth_ConflictRollsBackBoth(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	target := testCart("cart-t", "cust-1", "")
	source := testCart("cart-s", "", "sess-1")
	require.NoError(t, repo.Save(ctx, target))
	require.NoError(t, repo.Save(ctx, source))

	target.Items[0].Quantity = 4
	source.Version = 99 // stale, second save in the transaction fails

	err := repo.SaveBoth(ctx, target, source)
	assert.ErrorIs(t, err, ErrVersionConflict)

	foundTarget, err := repo.FindByID(ctx, "cart-t")
	require.NoError(t, err)
	assert.Equal(t, 2, foundTarget.Items[0].Quantity, "target write must not survive the failed transaction")
}

func TestContextCancellation(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond)

	_, err := repo.FindByID(ctx, "cart-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}
