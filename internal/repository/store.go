// Package repository provides access to the backing document
// database. The gateway core treats connections as short-lived
// borrowed resources: one acquisition per operation, released on all
// exit paths.
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"datagate/internal/document"
)

// FindOptions are the query modifiers applied to a Find.
type FindOptions struct {
	Sort       bson.D
	Limit      int64
	Skip       int64
	Projection bson.D
}

// DocumentStore is the backend contract the executors run against.
type DocumentStore interface {
	// Find returns the documents matching predicate.
	Find(ctx context.Context, collection string, predicate bson.D, opts FindOptions) ([]document.Document, error)
	// Insert stores the documents and returns their ids in order.
	// Documents are expected to carry an _id already.
	Insert(ctx context.Context, collection string, docs []document.Document) ([]string, error)
	// Replace overwrites the document with the given _id.
	Replace(ctx context.Context, collection string, id any, doc document.Document) error
	// Delete removes all documents matching predicate and returns the
	// removed count.
	Delete(ctx context.Context, collection string, predicate bson.D) (int64, error)
	// Count returns the number of documents matching predicate.
	Count(ctx context.Context, collection string, predicate bson.D) (int64, error)
	// Close releases the underlying client.
	Close(ctx context.Context) error
}
