package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
)

func setupSnapshotStore(t *testing.T) (SnapshotStore, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	store, err := NewPostgresSnapshotStore(&Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "../../migrations",
	})
	require.NoError(t, err)

	cleanup := func() {
		store.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, cleanup
}

func testSnapshot(id string) *domain.CartSnapshot {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.CartSnapshot{
		SnapshotID: id,
		CartID:     "cart-1",
		CustomerID: "cust-1",
		Items: []domain.SnapshotItem{
			{
				ItemID:            "item-1",
				ProductTemplateID: "tpl-1",
				ProductName:       "Tilt window",
				ConfigurationHash: "hash-1",
				Quantity:          2,
				UnitPrice:         1000,
				LineTotal:         2000,
			},
		},
		Totals:     domain.Totals{Subtotal: 2000, Total: 2000, ItemCount: 2},
		Currency:   "EUR",
		CreatedAt:  now,
		ValidUntil: now.Add(15 * time.Minute),
	}
}

func TestSnapshotStore_SaveAndFind(t *testing.T) {
	store, cleanup := setupSnapshotStore(t)
	defer cleanup()
	ctx := context.Background()

	snapshot := testSnapshot("snap-1")
	err := store.Save(ctx, snapshot)
	require.NoError(t, err)

	fetched, err := store.FindByID(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, snapshot.CartID, fetched.CartID)
	assert.Equal(t, snapshot.CustomerID, fetched.CustomerID)
	assert.Equal(t, snapshot.Totals.Total, fetched.Totals.Total)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, "tpl-1", fetched.Items[0].ProductTemplateID)
}

func TestSnapshotStore_NotFound(t *testing.T) {
	store, cleanup := setupSnapshotStore(t)
	defer cleanup()

	_, err := store.FindByID(context.Background(), "snap-missing")

	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSnapshotStore_DuplicateID(t *testing.T) {
	store, cleanup := setupSnapshotStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSnapshot("snap-1")))

	err := store.Save(ctx, testSnapshot("snap-1"))
	assert.Error(t, err, "snapshot rows are immutable, same id must not be written twice")
}

func TestSnapshotStore_Delete(t *testing.T) {
	store, cleanup := setupSnapshotStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSnapshot("snap-1")))
	require.NoError(t, store.Delete(ctx, "snap-1"))

	_, err := store.FindByID(ctx, "snap-1")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}
