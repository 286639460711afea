package observability

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"datagate/internal/document"
	"datagate/internal/repository"
)

// InstrumentStore wraps a DocumentStore with spans and backend
// metrics. Either collaborator may be nil.
func InstrumentStore(inner repository.DocumentStore, collector *Collector, tracer trace.Tracer) repository.DocumentStore {
	return &instrumentedStore{inner: inner, collector: collector, tracer: tracer}
}

type instrumentedStore struct {
	inner     repository.DocumentStore
	collector *Collector
	tracer    trace.Tracer
}

func (s *instrumentedStore) observe(ctx context.Context, operation, collection string) (context.Context, func(error)) {
	start := time.Now()
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "store."+operation,
			trace.WithAttributes(attribute.String("db.collection", collection)),
		)
	}
	return ctx, func(err error) {
		if span != nil {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}
		if s.collector != nil {
			s.collector.ObserveBackend(operation, collection, err, time.Since(start))
		}
	}
}

func (s *instrumentedStore) Find(ctx context.Context, collection string, predicate bson.D, opts repository.FindOptions) ([]document.Document, error) {
	ctx, done := s.observe(ctx, "find", collection)
	docs, err := s.inner.Find(ctx, collection, predicate, opts)
	done(err)
	return docs, err
}

func (s *instrumentedStore) Insert(ctx context.Context, collection string, docs []document.Document) ([]string, error) {
	ctx, done := s.observe(ctx, "insert", collection)
	ids, err := s.inner.Insert(ctx, collection, docs)
	done(err)
	return ids, err
}

func (s *instrumentedStore) Replace(ctx context.Context, collection string, id any, doc document.Document) error {
	ctx, done := s.observe(ctx, "replace", collection)
	err := s.inner.Replace(ctx, collection, id, doc)
	done(err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, collection string, predicate bson.D) (int64, error) {
	ctx, done := s.observe(ctx, "delete", collection)
	count, err := s.inner.Delete(ctx, collection, predicate)
	done(err)
	return count, err
}

func (s *instrumentedStore) Count(ctx context.Context, collection string, predicate bson.D) (int64, error) {
	ctx, done := s.observe(ctx, "count", collection)
	count, err := s.inner.Count(ctx, collection, predicate)
	done(err)
	return count, err
}

func (s *instrumentedStore) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}
