// Package query models the read side: each request variant knows how
// to validate itself against the endpoint policy, build its backend
// query and execute it.
package query

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"datagate/internal/document"
	"datagate/internal/filter"
	"datagate/internal/registry"
	"datagate/internal/repository"
	"datagate/pkg/api"
)

// Request is one typed read request.
type Request interface {
	// Validate returns accumulated validation problems, empty when the
	// request may execute.
	Validate(endpoint *registry.EndpointDescriptor) []string
	// Execute runs the query and builds the typed response.
	Execute(ctx context.Context, store repository.DocumentStore, endpoint *registry.EndpointDescriptor) (any, error)
}

// FullCollection reads every document of the endpoint's collection.
type FullCollection struct{}

// Validate implements Request.
func (FullCollection) Validate(*registry.EndpointDescriptor) []string { return nil }

// Execute implements Request.
func (FullCollection) Execute(ctx context.Context, store repository.DocumentStore, endpoint *registry.EndpointDescriptor) (any, error) {
	docs, err := store.Find(ctx, endpoint.Collection, bson.D{}, repository.FindOptions{})
	if err != nil {
		return nil, err
	}
	return listResponse(docs), nil
}

// Filtered reads the documents matching a parsed filter tree, with
// optional sort/limit/skip/projection modifiers.
type Filtered struct {
	Filter  filter.Node
	Options *filter.Options
}

// Validate implements Request.
func (q *Filtered) Validate(endpoint *registry.EndpointDescriptor) []string {
	return filter.Validate(q.Filter, endpoint.FilterConfig)
}

// Execute implements Request.
func (q *Filtered) Execute(ctx context.Context, store repository.DocumentStore, endpoint *registry.EndpointDescriptor) (any, error) {
	predicate, err := filter.Translate(q.Filter)
	if err != nil {
		return nil, err
	}

	opts := repository.FindOptions{}
	if q.Options != nil {
		opts.Sort = q.Options.Sort
		opts.Limit = q.Options.Limit
		opts.Skip = q.Options.Skip
		opts.Projection = q.Options.Projection
	}

	docs, err := store.Find(ctx, endpoint.Collection, predicate, opts)
	if err != nil {
		return nil, err
	}
	return listResponse(docs), nil
}

// SequenceBased iterates the collection in monotonic order of the
// sequence field, one page per request.
type SequenceBased struct {
	StartSequence int64
	BulkSize      int
}

// Validate implements Request.
func (q *SequenceBased) Validate(endpoint *registry.EndpointDescriptor) []string {
	var errs []string
	if !endpoint.SequenceEnabled {
		errs = append(errs, fmt.Sprintf("endpoint %q does not support sequence-based reads", endpoint.Name))
	}
	if q.StartSequence < 0 {
		errs = append(errs, "startSequence must not be negative")
	}
	if q.BulkSize < 1 || q.BulkSize > registry.MaxBulkSize {
		errs = append(errs, fmt.Sprintf("bulkSize must be between 1 and %d", registry.MaxBulkSize))
	}
	return errs
}

// Execute implements Request. It fetches one document beyond the page
// to learn whether more are available without a second round trip.
func (q *SequenceBased) Execute(ctx context.Context, store repository.DocumentStore, endpoint *registry.EndpointDescriptor) (any, error) {
	predicate := bson.D{{Key: document.FieldSequence, Value: bson.D{
		{Key: filter.OpGte, Value: q.StartSequence},
	}}}
	opts := repository.FindOptions{
		Sort:  bson.D{{Key: document.FieldSequence, Value: 1}},
		Limit: int64(q.BulkSize) + 1,
	}

	docs, err := store.Find(ctx, endpoint.Collection, predicate, opts)
	if err != nil {
		return nil, err
	}

	hasMore := len(docs) > q.BulkSize
	if hasMore {
		docs = docs[:q.BulkSize]
	}

	next := q.StartSequence
	if len(docs) > 0 {
		if seq, ok := sequenceOf(docs[len(docs)-1]); ok {
			next = seq + 1
		}
	}

	resp := &api.SequenceResponse{
		NextSequence: next,
		Data:         docs,
		HasMore:      hasMore,
	}
	if resp.Data == nil {
		resp.Data = []map[string]any{}
	}
	return resp, nil
}

func sequenceOf(doc document.Document) (int64, bool) {
	switch v := doc[document.FieldSequence].(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func listResponse(docs []document.Document) *api.DocumentListResponse {
	if docs == nil {
		docs = []document.Document{}
	}
	return &api.DocumentListResponse{Data: docs, Count: len(docs)}
}
