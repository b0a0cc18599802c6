// Package mongo stores dashboard keys as documents of a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type document struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Store wraps a MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New connects, pings and selects the collection.
func New(ctx context.Context, uri, dbName, collName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	slog.InfoContext(ctx, "Connected to MongoDB", "database", dbName, "collection", collName)
	return &Store{
		client:     client,
		collection: client.Database(dbName).Collection(collName),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc document
	err := s.collection.FindOne(ctx, keyFilter(key)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find key %s: %w", key, err)
	}
	return doc.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, keyFilter(key), newDocument(key, value, time.Now()), opts)
	if err != nil {
		return fmt.Errorf("upsert key %s: %w", key, err)
	}
	return nil
}

func keyFilter(key string) bson.M {
	return bson.M{"_id": key}
}

func newDocument(key string, value []byte, now time.Time) document {
	return document{Key: key, Value: value, UpdatedAt: now.UTC()}
}
