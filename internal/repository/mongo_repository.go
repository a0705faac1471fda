package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	var cart domain.Cart

	err := m.collection.FindOne(ctx, bson.M{"_id": cartID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	if cart.Outbox == nil {
		cart.Outbox = []domain.Receipt{}
	}
	return &cart, nil
}

func (m *MongoRepository) GetOrCreateCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	now := m.now()

	// $setOnInsert only applies when the upsert inserts, so an existing cart
	// is left untouched. Two racing upserts on the same _id produce one
	// document and a duplicate key error for the loser, which is harmless.
	update := bson.M{
		"$setOnInsert": bson.M{
			"lines":      bson.A{},
			"outbox":     bson.A{},
			"version":    int64(0),
			"created_at": now,
			"updated_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, bson.M{"_id": cartID}, update, opts)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return m.GetCart(ctx, cartID)
}

func (m *MongoRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int64) error {
	now := m.now()

	lines := cart.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	outbox := cart.Outbox
	if outbox == nil {
		outbox = []domain.Receipt{}
	}

	filter := bson.M{"_id": cart.ID, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{
			"lines":      lines,
			"outbox":     outbox,
			"version":    expectedVersion + 1,
			"updated_at": now,
			"write_id":   cart.WriteID,
		},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}

	cart.Version = expectedVersion + 1
	cart.UpdatedAt = now
	return nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.collection.Database().Client().Ping(ctx, readpref.Primary())
}
