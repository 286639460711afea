// Package memory implements the DocumentStore in process, evaluating
// the same MongoDB operator semantics the translator emits. It backs
// tests and memory:// deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"datagate/internal/document"
	"datagate/internal/repository"
)

// Store is an in-memory DocumentStore. Documents keep insertion
// order, which makes unsorted reads deterministic in tests.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]document.Document
}

// New creates an empty store.
func New() *Store {
	return &Store{collections: make(map[string][]document.Document)}
}

// Find implements DocumentStore.
func (s *Store) Find(_ context.Context, collection string, predicate bson.D, opts repository.FindOptions) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []document.Document
	for _, doc := range s.collections[collection] {
		if Matches(doc, predicate) {
			matched = append(matched, document.Clone(doc))
		}
	}

	if len(opts.Sort) > 0 {
		sortDocs(matched, opts.Sort)
	}
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	if len(opts.Projection) > 0 {
		for i, doc := range matched {
			matched[i] = project(doc, opts.Projection)
		}
	}
	return matched, nil
}

// Insert implements DocumentStore.
func (s *Store) Insert(_ context.Context, collection string, docs []document.Document) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id, ok := doc[document.FieldID]
		if !ok {
			return nil, fmt.Errorf("document inserted without %s", document.FieldID)
		}
		s.collections[collection] = append(s.collections[collection], document.Clone(doc))
		ids = append(ids, fmt.Sprintf("%v", id))
	}
	return ids, nil
}

// Replace implements DocumentStore.
func (s *Store) Replace(_ context.Context, collection string, id any, doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.collections[collection] {
		if equalValues(existing[document.FieldID], id) {
			s.collections[collection][i] = document.Clone(doc)
			return nil
		}
	}
	return fmt.Errorf("no document with %s=%v in %q", document.FieldID, id, collection)
}

// Delete implements DocumentStore.
func (s *Store) Delete(_ context.Context, collection string, predicate bson.D) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []document.Document
	var removed int64
	for _, doc := range s.collections[collection] {
		if Matches(doc, predicate) {
			removed++
		} else {
			kept = append(kept, doc)
		}
	}
	s.collections[collection] = kept
	return removed, nil
}

// Count implements DocumentStore.
func (s *Store) Count(_ context.Context, collection string, predicate bson.D) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, doc := range s.collections[collection] {
		if Matches(doc, predicate) {
			count++
		}
	}
	return count, nil
}

// Close implements DocumentStore.
func (s *Store) Close(context.Context) error {
	return nil
}

func sortDocs(docs []document.Document, spec bson.D) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range spec {
			dir, _ := key.Value.(int)
			a := resolvePath(docs[i], key.Key)
			b := resolvePath(docs[j], key.Key)
			cmp, ok := compareValues(a, b)
			if !ok || cmp == 0 {
				continue
			}
			if dir < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// project applies a projection. Include mode wins when any field is
// requested with 1; _id is kept unless excluded explicitly.
func project(doc document.Document, spec bson.D) document.Document {
	includeMode := false
	for _, e := range spec {
		if v, _ := e.Value.(int); v == 1 {
			includeMode = true
			break
		}
	}

	out := make(document.Document)
	if includeMode {
		idExcluded := false
		for _, e := range spec {
			v, _ := e.Value.(int)
			if e.Key == document.FieldID && v == 0 {
				idExcluded = true
			}
			if v == 1 {
				if value, ok := doc[e.Key]; ok {
					out[e.Key] = value
				}
			}
		}
		if !idExcluded {
			if id, ok := doc[document.FieldID]; ok {
				out[document.FieldID] = id
			}
		}
		return out
	}

	excluded := make(map[string]bool, len(spec))
	for _, e := range spec {
		excluded[e.Key] = true
	}
	for key, value := range doc {
		if !excluded[key] {
			out[key] = value
		}
	}
	return out
}
