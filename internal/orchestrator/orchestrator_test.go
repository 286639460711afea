package orchestrator

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"datagate/internal/document"
	"datagate/internal/enum"
	"datagate/internal/filter"
	"datagate/internal/middleware"
	"datagate/internal/query"
	"datagate/internal/registry"
	"datagate/internal/repository"
	"datagate/internal/repository/memory"
	"datagate/internal/request"
	"datagate/internal/schema"
	"datagate/internal/write"
	"datagate/pkg/api"
)

type staticBindings map[string][]schema.Binding

func (b staticBindings) Bindings(name string) []schema.Binding { return b[name] }

type noSchema struct{}

func (noSchema) Validate(string, any) error { return nil }

func usersEndpoint() *registry.EndpointDescriptor {
	return &registry.EndpointDescriptor{
		Name:       "users",
		Path:       "/users",
		Method:     "GET",
		Collection: "users",
		FilterConfig: &filter.Config{
			Enabled: true,
			FieldOperators: map[string][]string{
				"age": {filter.OpGt, filter.OpLt},
			},
		},
		WriteMethods: map[string]bool{"POST": true},
	}
}

func newOrchestrator(t *testing.T) (*Orchestrator, *memory.Store) {
	t.Helper()
	store := memory.New()
	enums := enum.NewRegistry()
	enums.Replace([]enum.Enum{
		enum.NewEnum("status", []string{"1"}, map[string]string{"1": "ACTIVE"}),
	})
	pipeline := write.NewPipeline(store, noSchema{}, zap.NewNop())
	o := New(store, pipeline, staticBindings{
		"user": {{Pointer: []string{"status"}, Enum: "status"}},
	}, enums, zap.NewNop())
	return o, store
}

func TestExecuteQuery(t *testing.T) {
	t.Run("Should return 200 with matching documents", func(t *testing.T) {
		o, store := newOrchestrator(t)
		_, err := store.Insert(context.Background(), "users", []document.Document{
			{"_id": "1", "age": 30.0},
			{"_id": "2", "age": 10.0},
		})
		require.NoError(t, err)

		parsed := &request.Parsed{Read: &query.Filtered{
			Filter: &filter.FieldFilter{
				Field:      "age",
				Conditions: []filter.Condition{{Operator: filter.OpGt, Value: 18.0}},
			},
		}}
		status, body := o.Execute(context.Background(), parsed, usersEndpoint())

		assert.Equal(t, http.StatusOK, status)
		list := body.(*api.DocumentListResponse)
		assert.Equal(t, 1, list.Count)
	})

	t.Run("Should return 400 with accumulated validation details", func(t *testing.T) {
		o, _ := newOrchestrator(t)
		parsed := &request.Parsed{Read: &query.Filtered{
			Filter: &filter.Composite{Children: []filter.Node{
				&filter.FieldFilter{Field: "name", Conditions: []filter.Condition{{Operator: filter.OpEq, Value: "x"}}},
				&filter.FieldFilter{Field: "age", Conditions: []filter.Condition{{Operator: filter.OpRegex, Value: "x"}}},
			}},
		}}
		status, body := o.Execute(context.Background(), parsed, usersEndpoint())

		assert.Equal(t, http.StatusBadRequest, status)
		resp := body.(*api.ErrorResponse)
		assert.Len(t, resp.Details, 2)
	})

	t.Run("Should apply enum literals and the requested time format", func(t *testing.T) {
		o, store := newOrchestrator(t)
		created := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)
		_, err := store.Insert(context.Background(), "users", []document.Document{{
			"_id":                   "1",
			"status":                "1",
			document.FieldCreatedAt: created,
		}})
		require.NoError(t, err)

		endpoint := usersEndpoint()
		endpoint.SchemaName = "user"
		ctx := middleware.WithTimeFormat(context.Background(), document.FormatUnix)

		parsed := &request.Parsed{Read: query.FullCollection{}}
		status, body := o.Execute(ctx, parsed, endpoint)

		require.Equal(t, http.StatusOK, status)
		doc := body.(*api.DocumentListResponse).Data[0]
		assert.Equal(t, "ACTIVE", doc["status"])
		assert.Equal(t, created.Unix(), doc[document.FieldCreatedAt])
	})
}

func TestExecuteWrite(t *testing.T) {
	t.Run("Should return 201 for a create", func(t *testing.T) {
		o, _ := newOrchestrator(t)
		parsed := &request.Parsed{Write: &write.Create{
			Documents: []document.Document{{"name": "Ada"}},
			RequestID: "r",
		}}
		status, body := o.Execute(context.Background(), parsed, usersEndpoint())

		assert.Equal(t, http.StatusCreated, status)
		assert.Equal(t, 1, body.(*api.CreateResponse).InsertedCount)
	})

	t.Run("Should return 201 for an inserting upsert and 200 for a matching one", func(t *testing.T) {
		o, _ := newOrchestrator(t)
		upsert := &write.Upsert{
			Filter: &filter.FieldFilter{
				Field:      document.FieldID,
				Conditions: []filter.Condition{{Operator: filter.OpEq, Value: "u1"}},
			},
			Document:  document.Document{"_id": "u1", "name": "Ada"},
			RequestID: "r",
		}

		status, body := o.Execute(context.Background(), &request.Parsed{Write: upsert}, usersEndpoint())
		assert.Equal(t, http.StatusCreated, status)
		assert.True(t, body.(*api.UpsertResponse).WasInserted)

		status, body = o.Execute(context.Background(), &request.Parsed{Write: upsert}, usersEndpoint())
		assert.Equal(t, http.StatusOK, status)
		assert.False(t, body.(*api.UpsertResponse).WasInserted)
	})

	t.Run("Should map sub-entity conflicts to 400", func(t *testing.T) {
		o, store := newOrchestrator(t)
		_, err := store.Insert(context.Background(), "users", []document.Document{{"_id": "1", "items": []any{}}})
		require.NoError(t, err)

		endpoint := usersEndpoint()
		endpoint.SubEntityFields = []string{"items"}
		parsed := &request.Parsed{Write: &write.Update{
			Filter: &filter.FieldFilter{
				Field:      document.FieldID,
				Conditions: []filter.Condition{{Operator: filter.OpEq, Value: "1"}},
			},
			Updates:   document.Document{"items": []any{map[string]any{"myId": "ghost"}}},
			RequestID: "r",
		}}
		status, body := o.Execute(context.Background(), parsed, endpoint)

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body.(*api.ErrorResponse).Error, "does not exist")
	})

	t.Run("Should recover a panic into a 500 response", func(t *testing.T) {
		o, _ := newOrchestrator(t)
		parsed := &request.Parsed{Read: panickingQuery{}}
		status, body := o.Execute(context.Background(), parsed, usersEndpoint())

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "internal server error", body.(*api.ErrorResponse).Error)
	})
}

type panickingQuery struct{}

func (panickingQuery) Validate(*registry.EndpointDescriptor) []string { return nil }
func (panickingQuery) Execute(context.Context, repository.DocumentStore, *registry.EndpointDescriptor) (any, error) {
	panic("boom")
}
