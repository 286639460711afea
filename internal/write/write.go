// Package write implements the mutation pipeline: create, update,
// delete and upsert, with audit-field injection, schema validation
// and sub-entity merge.
package write

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"datagate/internal/document"
	"datagate/internal/filter"
	"datagate/internal/registry"
	"datagate/internal/repository"
	"datagate/pkg/api"
	"datagate/pkg/errors"
)

// SchemaValidator validates a document against a named schema.
type SchemaValidator interface {
	Validate(name string, instance any) error
}

// Pipeline carries the collaborators every write needs. The clock and
// id source are injectable for tests.
type Pipeline struct {
	store   repository.DocumentStore
	schemas SchemaValidator
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewPipeline wires a pipeline over the store and schema registry.
func NewPipeline(store repository.DocumentStore, schemas SchemaValidator, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:   store,
		schemas: schemas,
		logger:  logger,
		now:     time.Now,
		newID:   newUUID,
	}
}

func newUUID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Request is one typed write request.
type Request interface {
	// Validate returns accumulated validation problems, empty when the
	// request may execute.
	Validate(endpoint *registry.EndpointDescriptor) []string
	// Execute runs the mutation and builds the typed response.
	Execute(ctx context.Context, p *Pipeline, endpoint *registry.EndpointDescriptor) (any, error)
}

// Create inserts one or more documents.
type Create struct {
	Documents []document.Document
	RequestID string
}

// Validate implements Request.
func (c *Create) Validate(*registry.EndpointDescriptor) []string {
	if len(c.Documents) == 0 {
		return []string{"create requires at least one document"}
	}
	return nil
}

// Execute implements Request.
func (c *Create) Execute(ctx context.Context, p *Pipeline, endpoint *registry.EndpointDescriptor) (any, error) {
	prepared := make([]document.Document, 0, len(c.Documents))
	for _, raw := range c.Documents {
		doc, err := p.prepareCreate(raw, endpoint, false)
		if err != nil {
			return nil, err
		}
		document.InjectCreateAudit(doc, p.now(), c.RequestID)
		prepared = append(prepared, doc)
	}

	ids, err := p.store.Insert(ctx, endpoint.Collection, prepared)
	if err != nil {
		return nil, err
	}
	p.logger.Info("documents created",
		zap.String("collection", endpoint.Collection),
		zap.Int("count", len(ids)),
	)
	return &api.CreateResponse{
		AffectedCount: len(ids),
		InsertedIDs:   ids,
		InsertedCount: len(ids),
	}, nil
}

// prepareCreate strips audit fields, normalises sub-entity lists,
// validates the payload against the bound schema and assigns an id.
// A client-supplied _id is honoured only when keepID is set (the
// upsert insert path); a plain create always generates its own.
// Audit fields are injected afterwards, outside the schema's view.
func (p *Pipeline) prepareCreate(raw document.Document, endpoint *registry.EndpointDescriptor, keepID bool) (document.Document, error) {
	doc := document.Clone(raw)
	document.StripAudit(doc)

	for _, field := range endpoint.SubEntityFields {
		list, ok := doc[field].([]any)
		if !ok {
			continue
		}
		prepared, err := prepareNewSubEntities(field, list, p.newID)
		if err != nil {
			return nil, err
		}
		doc[field] = prepared
	}

	if endpoint.SchemaName != "" {
		if err := p.schemas.Validate(endpoint.SchemaName, map[string]any(doc)); err != nil {
			return nil, err
		}
	}

	if !keepID {
		delete(doc, document.FieldID)
	}
	if id, ok := doc[document.FieldID]; !ok || id == "" {
		doc[document.FieldID] = p.newID()
	}
	return doc, nil
}

// Update merges the given field updates into every document matching
// the filter.
type Update struct {
	Filter    filter.Node
	Updates   document.Document
	RequestID string
}

// Validate implements Request.
func (u *Update) Validate(endpoint *registry.EndpointDescriptor) []string {
	errs := filter.Validate(u.Filter, endpoint.FilterConfig)
	if len(u.Updates) == 0 {
		errs = append(errs, "update requires a non-empty updates object")
	}
	return errs
}

// Execute implements Request. All matches are merged and validated
// before the first replace, so a conflict in any of them leaves the
// collection untouched.
func (u *Update) Execute(ctx context.Context, p *Pipeline, endpoint *registry.EndpointDescriptor) (any, error) {
	merged, err := p.resolveUpdates(ctx, u.Filter, u.Updates, endpoint)
	if err != nil {
		return nil, err
	}

	modified := 0
	for _, doc := range merged {
		document.InjectUpdateAudit(doc, p.now(), u.RequestID)
		if err := p.store.Replace(ctx, endpoint.Collection, doc[document.FieldID], doc); err != nil {
			return nil, err
		}
		modified++
	}
	return &api.UpdateResponse{
		AffectedCount: modified,
		MatchedCount:  len(merged),
		ModifiedCount: modified,
	}, nil
}

// resolveUpdates finds the targets and produces their merged
// replacements without writing anything.
func (p *Pipeline) resolveUpdates(ctx context.Context, node filter.Node, updates document.Document, endpoint *registry.EndpointDescriptor) ([]document.Document, error) {
	predicate, err := filter.Translate(node)
	if err != nil {
		return nil, err
	}
	matches, err := p.store.Find(ctx, endpoint.Collection, predicate, repository.FindOptions{})
	if err != nil {
		return nil, err
	}

	merged := make([]document.Document, 0, len(matches))
	for _, current := range matches {
		doc, err := p.mergeUpdate(current, updates, endpoint)
		if err != nil {
			return nil, err
		}
		merged = append(merged, doc)
	}
	return merged, nil
}

// mergeUpdate applies updates to one stored document. The primary key
// and _createdAt are preserved; sub-entity fields go through the merge
// rules instead of plain overwrite.
func (p *Pipeline) mergeUpdate(current, updates document.Document, endpoint *registry.EndpointDescriptor) (document.Document, error) {
	doc := document.Clone(current)

	incoming := document.Clone(updates)
	document.StripAudit(incoming)
	delete(incoming, document.FieldID)

	subEntityFields := make(map[string]bool, len(endpoint.SubEntityFields))
	for _, field := range endpoint.SubEntityFields {
		subEntityFields[field] = true
	}

	for field, value := range incoming {
		if subEntityFields[field] {
			incomingList, ok := value.([]any)
			if !ok {
				return nil, errors.New(errors.KindSubEntityConflict,
					"sub-entity field "+field+" must be a list")
			}
			currentList, _ := doc[field].([]any)
			mergedList, err := mergeSubEntities(field, currentList, incomingList, p.newID)
			if err != nil {
				return nil, err
			}
			doc[field] = mergedList
			continue
		}
		doc[field] = value
	}

	if endpoint.SchemaName != "" {
		effective := document.Clone(doc)
		document.StripAudit(effective)
		if err := p.schemas.Validate(endpoint.SchemaName, map[string]any(effective)); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Delete removes every document matching the filter.
type Delete struct {
	Filter    filter.Node
	RequestID string
}

// Validate implements Request.
func (d *Delete) Validate(endpoint *registry.EndpointDescriptor) []string {
	return filter.Validate(d.Filter, endpoint.FilterConfig)
}

// Execute implements Request.
func (d *Delete) Execute(ctx context.Context, p *Pipeline, endpoint *registry.EndpointDescriptor) (any, error) {
	predicate, err := filter.Translate(d.Filter)
	if err != nil {
		return nil, err
	}
	deleted, err := p.store.Delete(ctx, endpoint.Collection, predicate)
	if err != nil {
		return nil, err
	}
	p.logger.Info("documents deleted",
		zap.String("collection", endpoint.Collection),
		zap.Int64("count", deleted),
	)
	return &api.DeleteResponse{
		AffectedCount: int(deleted),
		DeletedCount:  int(deleted),
	}, nil
}

// Upsert updates the documents matching the filter, or creates the
// document when nothing matches.
type Upsert struct {
	Filter    filter.Node
	Document  document.Document
	RequestID string
}

// Validate implements Request.
func (u *Upsert) Validate(endpoint *registry.EndpointDescriptor) []string {
	errs := filter.Validate(u.Filter, endpoint.FilterConfig)
	if len(u.Document) == 0 {
		errs = append(errs, "upsert requires a non-empty document")
	}
	return errs
}

// Execute implements Request.
func (u *Upsert) Execute(ctx context.Context, p *Pipeline, endpoint *registry.EndpointDescriptor) (any, error) {
	merged, err := p.resolveUpdates(ctx, u.Filter, u.Document, endpoint)
	if err != nil {
		return nil, err
	}

	if len(merged) > 0 {
		modified := 0
		for _, doc := range merged {
			document.InjectUpdateAudit(doc, p.now(), u.RequestID)
			if err := p.store.Replace(ctx, endpoint.Collection, doc[document.FieldID], doc); err != nil {
				return nil, err
			}
			modified++
		}
		matched := len(merged)
		return &api.UpsertResponse{
			WasInserted:   false,
			MatchedCount:  &matched,
			ModifiedCount: &modified,
		}, nil
	}

	doc, err := p.prepareCreate(u.Document, endpoint, true)
	if err != nil {
		return nil, err
	}
	document.InjectCreateAudit(doc, p.now(), u.RequestID)
	ids, err := p.store.Insert(ctx, endpoint.Collection, []document.Document{doc})
	if err != nil {
		return nil, err
	}
	return &api.UpsertResponse{
		WasInserted: true,
		DocumentID:  ids[0],
	}, nil
}
