// Package mongodb implements the DocumentStore against a MongoDB
// deployment.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"datagate/internal/document"
	"datagate/internal/repository"
	"datagate/pkg/errors"
)

// Store is a MongoDB-backed DocumentStore. Collections are borrowed
// per operation from the shared client; the driver pools connections
// underneath.
type Store struct {
	client   *mongo.Client
	database string
	logger   *zap.Logger
}

// Connect dials the MongoDB deployment and pings it once so a
// misconfigured URI fails at startup, not on the first request.
func Connect(ctx context.Context, uri, database string, logger *zap.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb unreachable: %w", err)
	}
	logger.Info("connected to mongodb", zap.String("database", database))
	return &Store{client: client, database: database, logger: logger}, nil
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.client.Database(s.database).Collection(name)
}

// Find implements DocumentStore.
func (s *Store) Find(ctx context.Context, collection string, predicate bson.D, opts repository.FindOptions) ([]document.Document, error) {
	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		findOpts.SetSort(opts.Sort)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if len(opts.Projection) > 0 {
		findOpts.SetProjection(opts.Projection)
	}

	cursor, err := s.collection(collection).Find(ctx, predicate, findOpts)
	if err != nil {
		return nil, backendErr("find", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []document.Document
	for cursor.Next(ctx) {
		var doc map[string]any
		if err := cursor.Decode(&doc); err != nil {
			return nil, backendErr("decode", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, backendErr("cursor", collection, err)
	}
	return docs, nil
}

// Insert implements DocumentStore.
func (s *Store) Insert(ctx context.Context, collection string, docs []document.Document) ([]string, error) {
	payload := make([]any, len(docs))
	for i, doc := range docs {
		payload[i] = doc
	}
	result, err := s.collection(collection).InsertMany(ctx, payload)
	if err != nil {
		return nil, backendErr("insert", collection, err)
	}
	ids := make([]string, 0, len(result.InsertedIDs))
	for _, id := range result.InsertedIDs {
		ids = append(ids, fmt.Sprintf("%v", id))
	}
	return ids, nil
}

// Replace implements DocumentStore.
func (s *Store) Replace(ctx context.Context, collection string, id any, doc document.Document) error {
	_, err := s.collection(collection).ReplaceOne(ctx,
		bson.D{{Key: document.FieldID, Value: id}}, doc)
	if err != nil {
		return backendErr("replace", collection, err)
	}
	return nil
}

// Delete implements DocumentStore.
func (s *Store) Delete(ctx context.Context, collection string, predicate bson.D) (int64, error) {
	result, err := s.collection(collection).DeleteMany(ctx, predicate)
	if err != nil {
		return 0, backendErr("delete", collection, err)
	}
	return result.DeletedCount, nil
}

// Count implements DocumentStore.
func (s *Store) Count(ctx context.Context, collection string, predicate bson.D) (int64, error) {
	count, err := s.collection(collection).CountDocuments(ctx, predicate)
	if err != nil {
		return 0, backendErr("count", collection, err)
	}
	return count, nil
}

// Close implements DocumentStore.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func backendErr(op, collection string, err error) error {
	return &errors.GatewayError{
		Kind:    errors.KindBackendUnavailable,
		Message: fmt.Sprintf("backend %s on collection %q failed", op, collection),
		Err:     err,
	}
}
