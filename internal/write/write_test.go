package write

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"datagate/internal/document"
	"datagate/internal/filter"
	"datagate/internal/registry"
	"datagate/internal/repository"
	"datagate/internal/repository/memory"
	"datagate/pkg/api"
	"datagate/pkg/errors"
)

type noSchema struct{}

func (noSchema) Validate(string, any) error { return nil }

type failingSchema struct{ err error }

func (s failingSchema) Validate(string, any) error { return s.err }

func newTestPipeline(store repository.DocumentStore, schemas SchemaValidator) *Pipeline {
	p := NewPipeline(store, schemas, zap.NewNop())
	p.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	seq := 0
	p.newID = func() string {
		seq++
		return fmt.Sprintf("generated-%d", seq)
	}
	return p
}

func ordersEndpoint() *registry.EndpointDescriptor {
	return &registry.EndpointDescriptor{
		Name:            "orders",
		Path:            "/orders",
		Method:          "POST",
		Collection:      "orders",
		WriteMethods:    map[string]bool{"POST": true, "PATCH": true, "DELETE": true},
		SubEntityFields: []string{"items"},
		FilterConfig: &filter.Config{
			Enabled: true,
			FieldOperators: map[string][]string{
				"item": {filter.OpEq},
			},
		},
	}
}

func idFilter(id any) filter.Node {
	return &filter.FieldFilter{
		Field:      document.FieldID,
		Conditions: []filter.Condition{{Operator: filter.OpEq, Value: id}},
	}
}

func fetch(t *testing.T, store repository.DocumentStore, collection string, id any) document.Document {
	t.Helper()
	docs, err := store.Find(context.Background(), collection,
		bson.D{{Key: document.FieldID, Value: bson.D{{Key: filter.OpEq, Value: id}}}},
		repository.FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0]
}

func TestCreate(t *testing.T) {
	t.Run("Should inject fresh audit fields and drop client-supplied ones", func(t *testing.T) {
		store := memory.New()
		p := newTestPipeline(store, noSchema{})

		req := &Create{
			Documents: []document.Document{{
				"_createdAt": "1970-01-01T00:00:00Z",
				"item":       "x",
			}},
			RequestID: "req-1",
		}
		require.Empty(t, req.Validate(ordersEndpoint()))

		resp, err := req.Execute(context.Background(), p, ordersEndpoint())
		require.NoError(t, err)

		created := resp.(*api.CreateResponse)
		assert.Equal(t, 1, created.InsertedCount)
		require.Len(t, created.InsertedIDs, 1)

		stored := fetch(t, store, "orders", created.InsertedIDs[0])
		assert.Equal(t, "x", stored["item"])
		assert.Equal(t, p.now(), stored[document.FieldCreatedAt])
		assert.Equal(t, stored[document.FieldCreatedAt], stored[document.FieldUpdatedAt])
		assert.Equal(t, "req-1", stored[document.FieldLastRequestID])
	})

	t.Run("Should assign ids and flags to new sub-entities", func(t *testing.T) {
		store := memory.New()
		p := newTestPipeline(store, noSchema{})

		req := &Create{
			Documents: []document.Document{{
				"item":  "x",
				"items": []any{map[string]any{"qty": 1.0}},
			}},
			RequestID: "req-1",
		}
		resp, err := req.Execute(context.Background(), p, ordersEndpoint())
		require.NoError(t, err)

		stored := fetch(t, store, "orders", resp.(*api.CreateResponse).InsertedIDs[0])
		items := stored["items"].([]any)
		require.Len(t, items, 1)
		entry := items[0].(map[string]any)
		assert.NotEmpty(t, entry[document.FieldMyID])
		assert.Equal(t, false, entry[document.FieldIsDeleted])
		assert.Equal(t, 1.0, entry["qty"])
	})

	t.Run("Should replace a client-supplied _id", func(t *testing.T) {
		store := memory.New()
		p := newTestPipeline(store, noSchema{})

		req := &Create{
			Documents: []document.Document{{"_id": "client-id", "item": "x"}},
			RequestID: "req-1",
		}
		resp, err := req.Execute(context.Background(), p, ordersEndpoint())
		require.NoError(t, err)

		created := resp.(*api.CreateResponse)
		require.Len(t, created.InsertedIDs, 1)
		assert.Equal(t, "generated-1", created.InsertedIDs[0])
		assert.Equal(t, "x", fetch(t, store, "orders", "generated-1")["item"])

		docs, err := store.Find(context.Background(), "orders",
			bson.D{{Key: document.FieldID, Value: bson.D{{Key: filter.OpEq, Value: "client-id"}}}},
			repository.FindOptions{})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("Should reject a delete flag on create", func(t *testing.T) {
		p := newTestPipeline(memory.New(), noSchema{})
		req := &Create{
			Documents: []document.Document{{
				"items": []any{map[string]any{"qty": 1.0, "isDelete": true}},
			}},
			RequestID: "req-1",
		}
		_, err := req.Execute(context.Background(), p, ordersEndpoint())
		assert.True(t, errors.IsSubEntityConflict(err))
	})

	t.Run("Should surface schema validation failures", func(t *testing.T) {
		schemaErr := errors.NewWithDetails(errors.KindSchemaValidationFailed, "bad", []string{"item missing"})
		p := newTestPipeline(memory.New(), failingSchema{err: schemaErr})

		endpoint := ordersEndpoint()
		endpoint.SchemaName = "order"
		req := &Create{Documents: []document.Document{{"item": "x"}}, RequestID: "r"}
		_, err := req.Execute(context.Background(), p, endpoint)
		assert.True(t, errors.IsSchemaValidation(err))
	})
}

func seedOrder(t *testing.T, store repository.DocumentStore) {
	t.Helper()
	_, err := store.Insert(context.Background(), "orders", []document.Document{{
		"_id":  "1",
		"item": "x",
		"items": []any{
			map[string]any{"myId": "a", "qty": 1.0, "isDeleted": false},
			map[string]any{"myId": "b", "qty": 2.0, "isDeleted": false},
		},
		document.FieldCreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)
}

func TestUpdateSubEntityMerge(t *testing.T) {
	t.Run("Should merge, soft-delete and append in one request", func(t *testing.T) {
		store := memory.New()
		seedOrder(t, store)
		p := newTestPipeline(store, noSchema{})

		req := &Update{
			Filter: idFilter("1"),
			Updates: document.Document{
				"items": []any{
					map[string]any{"myId": "a", "qty": 5.0},
					map[string]any{"myId": "b", "isDelete": true},
					map[string]any{"qty": 7.0},
				},
			},
			RequestID: "req-2",
		}
		resp, err := req.Execute(context.Background(), p, ordersEndpoint())
		require.NoError(t, err)
		assert.Equal(t, 1, resp.(*api.UpdateResponse).ModifiedCount)

		stored := fetch(t, store, "orders", "1")
		items := stored["items"].([]any)
		require.Len(t, items, 3)

		first := items[0].(map[string]any)
		assert.Equal(t, "a", first["myId"])
		assert.Equal(t, 5.0, first["qty"])
		assert.Equal(t, false, first["isDeleted"])

		second := items[1].(map[string]any)
		assert.Equal(t, "b", second["myId"])
		assert.Equal(t, true, second["isDeleted"])
		assert.Equal(t, 2.0, second["qty"])

		third := items[2].(map[string]any)
		assert.NotEmpty(t, third["myId"])
		assert.Equal(t, 7.0, third["qty"])
		assert.Equal(t, false, third["isDeleted"])

		// _createdAt preserved, _updatedAt stamped.
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), stored[document.FieldCreatedAt])
		assert.Equal(t, p.now(), stored[document.FieldUpdatedAt])
		assert.Equal(t, "req-2", stored[document.FieldLastRequestID])
	})

	t.Run("Should reject a delete without myId", func(t *testing.T) {
		store := memory.New()
		seedOrder(t, store)
		p := newTestPipeline(store, noSchema{})

		req := &Update{
			Filter:    idFilter("1"),
			Updates:   document.Document{"items": []any{map[string]any{"isDelete": true}}},
			RequestID: "r",
		}
		_, err := req.Execute(context.Background(), p, ordersEndpoint())
		assert.True(t, errors.IsSubEntityConflict(err))
	})

	t.Run("Should reject an unknown myId", func(t *testing.T) {
		store := memory.New()
		seedOrder(t, store)
		p := newTestPipeline(store, noSchema{})

		req := &Update{
			Filter:    idFilter("1"),
			Updates:   document.Document{"items": []any{map[string]any{"myId": "ghost", "qty": 1.0}}},
			RequestID: "r",
		}
		_, err := req.Execute(context.Background(), p, ordersEndpoint())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("Should reject updating an already deleted sub-entity", func(t *testing.T) {
		store := memory.New()
		_, err := store.Insert(context.Background(), "orders", []document.Document{{
			"_id":   "1",
			"items": []any{map[string]any{"myId": "a", "isDeleted": true}},
		}})
		require.NoError(t, err)
		p := newTestPipeline(store, noSchema{})

		req := &Update{
			Filter:    idFilter("1"),
			Updates:   document.Document{"items": []any{map[string]any{"myId": "a", "qty": 1.0}}},
			RequestID: "r",
		}
		_, err = req.Execute(context.Background(), p, ordersEndpoint())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already deleted")
	})

	t.Run("Should not persist anything when the merge fails", func(t *testing.T) {
		store := memory.New()
		seedOrder(t, store)
		p := newTestPipeline(store, noSchema{})

		req := &Update{
			Filter: idFilter("1"),
			Updates: document.Document{
				"item":  "changed",
				"items": []any{map[string]any{"myId": "ghost", "qty": 1.0}},
			},
			RequestID: "r",
		}
		_, err := req.Execute(context.Background(), p, ordersEndpoint())
		require.Error(t, err)

		stored := fetch(t, store, "orders", "1")
		assert.Equal(t, "x", stored["item"])
	})

	t.Run("Should be idempotent for the same updates", func(t *testing.T) {
		store := memory.New()
		seedOrder(t, store)
		p := newTestPipeline(store, noSchema{})

		req := &Update{
			Filter:    idFilter("1"),
			Updates:   document.Document{"items": []any{map[string]any{"myId": "a", "qty": 5.0}}},
			RequestID: "r",
		}
		_, err := req.Execute(context.Background(), p, ordersEndpoint())
		require.NoError(t, err)
		first := fetch(t, store, "orders", "1")

		_, err = req.Execute(context.Background(), p, ordersEndpoint())
		require.NoError(t, err)
		second := fetch(t, store, "orders", "1")

		delete(first, document.FieldUpdatedAt)
		delete(second, document.FieldUpdatedAt)
		assert.Equal(t, first, second)
	})
}

func TestDelete(t *testing.T) {
	store := memory.New()
	seedOrder(t, store)
	p := newTestPipeline(store, noSchema{})

	req := &Delete{Filter: idFilter("1"), RequestID: "r"}
	require.Empty(t, req.Validate(ordersEndpoint()))

	resp, err := req.Execute(context.Background(), p, ordersEndpoint())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.(*api.DeleteResponse).DeletedCount)

	count, err := store.Count(context.Background(), "orders", bson.D{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestUpsert(t *testing.T) {
	t.Run("Should insert and report the new id when nothing matches", func(t *testing.T) {
		store := memory.New()
		p := newTestPipeline(store, noSchema{})

		req := &Upsert{
			Filter:    idFilter("missing"),
			Document:  document.Document{"item": "x"},
			RequestID: "r",
		}
		resp, err := req.Execute(context.Background(), p, ordersEndpoint())
		require.NoError(t, err)

		upserted := resp.(*api.UpsertResponse)
		assert.True(t, upserted.WasInserted)
		assert.NotEmpty(t, upserted.DocumentID)
		assert.Nil(t, upserted.MatchedCount)
	})

	t.Run("Should honour the document _id when inserting", func(t *testing.T) {
		store := memory.New()
		p := newTestPipeline(store, noSchema{})

		req := &Upsert{
			Filter:    idFilter("chosen"),
			Document:  document.Document{"_id": "chosen", "item": "x"},
			RequestID: "r",
		}
		resp, err := req.Execute(context.Background(), p, ordersEndpoint())
		require.NoError(t, err)

		upserted := resp.(*api.UpsertResponse)
		assert.True(t, upserted.WasInserted)
		assert.Equal(t, "chosen", upserted.DocumentID)
		assert.Equal(t, "x", fetch(t, store, "orders", "chosen")["item"])
	})

	t.Run("Should update and report counts when a match exists", func(t *testing.T) {
		store := memory.New()
		seedOrder(t, store)
		p := newTestPipeline(store, noSchema{})

		req := &Upsert{
			Filter:    idFilter("1"),
			Document:  document.Document{"item": "y"},
			RequestID: "r",
		}
		resp, err := req.Execute(context.Background(), p, ordersEndpoint())
		require.NoError(t, err)

		upserted := resp.(*api.UpsertResponse)
		assert.False(t, upserted.WasInserted)
		assert.Empty(t, upserted.DocumentID)
		require.NotNil(t, upserted.MatchedCount)
		assert.Equal(t, 1, *upserted.MatchedCount)
		assert.Equal(t, "y", fetch(t, store, "orders", "1")["item"])
	})
}
