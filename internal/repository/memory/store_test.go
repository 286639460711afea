package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"datagate/internal/document"
	"datagate/internal/repository"
)

func seed(t *testing.T) *Store {
	t.Helper()
	store := New()
	_, err := store.Insert(context.Background(), "users", []document.Document{
		{"_id": "1", "name": "Ada", "age": 36, "tags": []any{"math", "code"}},
		{"_id": "2", "name": "Bob", "age": 17, "tags": []any{"code"}},
		{"_id": "3", "name": "Cara", "age": 52, "address": map[string]any{"city": "Berlin"}},
	})
	require.NoError(t, err)
	return store
}

func find(t *testing.T, store *Store, predicate bson.D, opts repository.FindOptions) []document.Document {
	t.Helper()
	docs, err := store.Find(context.Background(), "users", predicate, opts)
	require.NoError(t, err)
	return docs
}

func ids(docs []document.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d["_id"].(string))
	}
	return out
}

func TestMatcherOperators(t *testing.T) {
	store := seed(t)

	cases := []struct {
		name      string
		predicate bson.D
		want      []string
	}{
		{"eq", bson.D{{Key: "name", Value: bson.D{{Key: "$eq", Value: "Ada"}}}}, []string{"1"}},
		{"ne", bson.D{{Key: "name", Value: bson.D{{Key: "$ne", Value: "Ada"}}}}, []string{"2", "3"}},
		{"gt", bson.D{{Key: "age", Value: bson.D{{Key: "$gt", Value: float64(18)}}}}, []string{"1", "3"}},
		{"gte", bson.D{{Key: "age", Value: bson.D{{Key: "$gte", Value: 36}}}}, []string{"1", "3"}},
		{"lt and gt", bson.D{{Key: "age", Value: bson.D{
			{Key: "$gt", Value: 18}, {Key: "$lt", Value: 40},
		}}}, []string{"1"}},
		{"in", bson.D{{Key: "name", Value: bson.D{{Key: "$in", Value: []any{"Ada", "Cara"}}}}}, []string{"1", "3"}},
		{"nin", bson.D{{Key: "name", Value: bson.D{{Key: "$nin", Value: []any{"Ada", "Cara"}}}}}, []string{"2"}},
		{"regex", bson.D{{Key: "name", Value: bson.D{{Key: "$regex", Value: "^[AB]"}}}}, []string{"1", "2"}},
		{"exists true", bson.D{{Key: "address", Value: bson.D{{Key: "$exists", Value: true}}}}, []string{"3"}},
		{"exists false", bson.D{{Key: "address", Value: bson.D{{Key: "$exists", Value: false}}}}, []string{"1", "2"}},
		{"type string", bson.D{{Key: "name", Value: bson.D{{Key: "$type", Value: float64(2)}}}}, []string{"1", "2", "3"}},
		{"size", bson.D{{Key: "tags", Value: bson.D{{Key: "$size", Value: float64(2)}}}}, []string{"1"}},
		{"all", bson.D{{Key: "tags", Value: bson.D{{Key: "$all", Value: []any{"code"}}}}}, []string{"1", "2"}},
		{"array eq matches any element", bson.D{{Key: "tags", Value: bson.D{{Key: "$eq", Value: "math"}}}}, []string{"1"}},
		{"dotted path", bson.D{{Key: "address.city", Value: bson.D{{Key: "$eq", Value: "Berlin"}}}}, []string{"3"}},
		{"and", bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "age", Value: bson.D{{Key: "$gt", Value: 18}}}},
			bson.D{{Key: "name", Value: bson.D{{Key: "$regex", Value: "^A"}}}},
		}}}, []string{"1"}},
		{"or", bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: bson.D{{Key: "$eq", Value: "Bob"}}}},
			bson.D{{Key: "age", Value: bson.D{{Key: "$gt", Value: 50}}}},
		}}}, []string{"2", "3"}},
		{"nor", bson.D{{Key: "$nor", Value: bson.A{
			bson.D{{Key: "name", Value: bson.D{{Key: "$eq", Value: "Bob"}}}},
		}}}, []string{"1", "3"}},
		{"match all", bson.D{}, []string{"1", "2", "3"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := find(t, store, tc.predicate, repository.FindOptions{})
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestElemMatch(t *testing.T) {
	store := New()
	_, err := store.Insert(context.Background(), "orders", []document.Document{
		{"_id": "1", "items": []any{
			map[string]any{"sku": "a", "qty": 2},
			map[string]any{"sku": "b", "qty": 9},
		}},
		{"_id": "2", "items": []any{
			map[string]any{"sku": "c", "qty": 1},
		}},
	})
	require.NoError(t, err)

	docs, err := store.Find(context.Background(), "orders", bson.D{
		{Key: "items", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
			{Key: "qty", Value: bson.D{{Key: "$gt", Value: 5}}},
		}}}},
	}, repository.FindOptions{})

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "1", docs[0]["_id"])
}

func TestFindOptions(t *testing.T) {
	store := seed(t)

	t.Run("Should sort by multiple keys", func(t *testing.T) {
		docs := find(t, store, bson.D{}, repository.FindOptions{
			Sort: bson.D{{Key: "age", Value: -1}},
		})
		assert.Equal(t, []string{"3", "1", "2"}, ids(docs))
	})

	t.Run("Should apply skip and limit after sort", func(t *testing.T) {
		docs := find(t, store, bson.D{}, repository.FindOptions{
			Sort:  bson.D{{Key: "age", Value: 1}},
			Skip:  1,
			Limit: 1,
		})
		assert.Equal(t, []string{"1"}, ids(docs))
	})

	t.Run("Should project includes plus _id", func(t *testing.T) {
		docs := find(t, store, bson.D{{Key: "_id", Value: bson.D{{Key: "$eq", Value: "1"}}}},
			repository.FindOptions{Projection: bson.D{{Key: "name", Value: 1}}})
		require.Len(t, docs, 1)
		assert.Equal(t, document.Document{"_id": "1", "name": "Ada"}, docs[0])
	})

	t.Run("Should project excludes", func(t *testing.T) {
		docs := find(t, store, bson.D{{Key: "_id", Value: bson.D{{Key: "$eq", Value: "2"}}}},
			repository.FindOptions{Projection: bson.D{{Key: "tags", Value: 0}}})
		require.Len(t, docs, 1)
		_, hasTags := docs[0]["tags"]
		assert.False(t, hasTags)
		assert.Equal(t, "Bob", docs[0]["name"])
	})
}

func TestMutations(t *testing.T) {
	t.Run("Should replace by id", func(t *testing.T) {
		store := seed(t)
		err := store.Replace(context.Background(), "users", "2",
			document.Document{"_id": "2", "name": "Robert"})
		require.NoError(t, err)

		docs := find(t, store, bson.D{{Key: "_id", Value: bson.D{{Key: "$eq", Value: "2"}}}}, repository.FindOptions{})
		require.Len(t, docs, 1)
		assert.Equal(t, "Robert", docs[0]["name"])
	})

	t.Run("Should delete by predicate", func(t *testing.T) {
		store := seed(t)
		removed, err := store.Delete(context.Background(), "users",
			bson.D{{Key: "age", Value: bson.D{{Key: "$lt", Value: 40}}}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		count, err := store.Count(context.Background(), "users", bson.D{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Should refuse documents without an id", func(t *testing.T) {
		store := New()
		_, err := store.Insert(context.Background(), "users", []document.Document{{"name": "x"}})
		assert.Error(t, err)
	})

	t.Run("Should return copies, not aliases", func(t *testing.T) {
		store := seed(t)
		docs := find(t, store, bson.D{{Key: "_id", Value: bson.D{{Key: "$eq", Value: "1"}}}}, repository.FindOptions{})
		docs[0]["name"] = "mutated"

		again := find(t, store, bson.D{{Key: "_id", Value: bson.D{{Key: "$eq", Value: "1"}}}}, repository.FindOptions{})
		assert.Equal(t, "Ada", again[0]["name"])
	})
}
