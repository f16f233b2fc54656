package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoCartRepository) FindByID(ctx context.Context, cartID string) (*domain.Cart, error) {
	return m.findOne(ctx, bson.M{"_id": cartID})
}

func (m *mongoCartRepository) FindByCustomerID(ctx context.Context, customerID string) (*domain.Cart, error) {
	return m.findOne(ctx, bson.M{"customer_id": customerID, "status": domain.CartStatusActive})
}

func (m *mongoCartRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return m.findOne(ctx, bson.M{"session_id": sessionID, "status": domain.CartStatusActive})
}

func (m *mongoCartRepository) findOne(ctx context.Context, filter bson.M) (*domain.Cart, error) {
	var cart domain.Cart

	err := m.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// Save inserts a new cart (Version 0 -> 1) or replaces an existing one only
// if the stored version still matches the version the cart was loaded with.
// A mismatch surfaces as ErrVersionConflict, never as a silent overwrite.
func (m *mongoCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	return m.save(ctx, cart)
}

func (m *mongoCartRepository) save(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	cart.UpdatedAt = now
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}

	if cart.Version == 0 {
		cart.Version = 1
		if _, err := m.collection.InsertOne(ctx, cart); err != nil {
			cart.Version = 0
			if mongo.IsDuplicateKeyError(err) {
				return ErrDuplicateCartOwner
			}
			return fmt.Errorf("failed to insert cart: %w", err)
		}
		return nil
	}

	loadedVersion := cart.Version
	cart.Version = loadedVersion + 1

	filter := bson.M{"_id": cart.ID, "version": loadedVersion}
	result, err := m.collection.ReplaceOne(ctx, filter, cart)
	if err != nil {
		cart.Version = loadedVersion
		return fmt.Errorf("failed to save cart: %w", err)
	}

	if result.MatchedCount == 0 {
		cart.Version = loadedVersion

		count, countErr := m.collection.CountDocuments(ctx, bson.M{"_id": cart.ID})
		if countErr != nil {
			return fmt.Errorf("failed to check cart existence: %w", countErr)
		}
		if count == 0 {
			return ErrCartNotFound
		}
		return ErrVersionConflict
	}

	return nil
}

// SaveBoth persists a merge's target and source inside one MongoDB
// transaction. Requires the server to run as a replica set.
func (m *mongoCartRepository) SaveBoth(ctx context.Context, target, source *domain.Cart) error {
	session, err := m.collection.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if err := m.save(sc, target); err != nil {
			return nil, err
		}
		if err := m.save(sc, source); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// EnsureCartIndexes creates the cart collection's owner-uniqueness and TTL
// indexes. The partial unique indexes are what enforce one active cart per
// customer or session.
func EnsureCartIndexes(ctx context.Context, db *mongo.Database) error {
	repo := &mongoCartRepository{collection: db.Collection("carts")}
	return repo.CreateIndexes(ctx)
}

func (m *mongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().
				SetPartialFilterExpression(bson.M{
					"status":      domain.CartStatusActive,
					"customer_id": bson.M{"$exists": true},
				}).
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().
				SetPartialFilterExpression(bson.M{
					"status":     domain.CartStatusActive,
					"session_id": bson.M{"$exists": true},
				}).
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
