package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// postgresSnapshotStore keeps checkout snapshots as immutable rows. The full
// snapshot is stored denormalized as JSON; the indexed columns exist only
// for lookup.
type postgresSnapshotStore struct {
	db *sql.DB
}

func NewPostgresSnapshotStore(cred *Credentials) (SnapshotStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)

	store := &postgresSnapshotStore{db: db}
	if err := store.runMigrations(cred); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *postgresSnapshotStore) runMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (s *postgresSnapshotStore) Save(ctx context.Context, snapshot *domain.CartSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cart_snapshots (id, cart_id, customer_id, payload, created_at, valid_until)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		snapshot.SnapshotID,
		snapshot.CartID,
		snapshot.CustomerID,
		payload,
		snapshot.CreatedAt,
		snapshot.ValidUntil,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

func (s *postgresSnapshotStore) FindByID(ctx context.Context, snapshotID string) (*domain.CartSnapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM cart_snapshots WHERE id = $1`,
		snapshotID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var snapshot domain.CartSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// Delete compensates a checkout whose cart save failed after the snapshot
// row was written. Snapshots are otherwise never removed.
func (s *postgresSnapshotStore) Delete(ctx context.Context, snapshotID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_snapshots WHERE id = $1`, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (s *postgresSnapshotStore) Close() error {
	return s.db.Close()
}
