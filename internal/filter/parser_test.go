package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datagate/pkg/errors"
)

func mustDecode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestParse(t *testing.T) {
	t.Run("Should desugar a bare value into equality", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"name": "Ada"}`))

		require.NoError(t, err)
		ff, ok := node.(*FieldFilter)
		require.True(t, ok)
		assert.Equal(t, "name", ff.Field)
		require.Len(t, ff.Conditions, 1)
		assert.Equal(t, OpEq, ff.Conditions[0].Operator)
		assert.Equal(t, "Ada", ff.Conditions[0].Value)
	})

	t.Run("Should parse operator mappings", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"age": {"$gt": 18, "$lt": 65}}`))

		require.NoError(t, err)
		ff := node.(*FieldFilter)
		assert.Len(t, ff.Conditions, 2)
	})

	t.Run("Should treat multiple keys as implicit AND", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"age": {"$gt": 18}, "name": {"$regex": "^A"}}`))

		require.NoError(t, err)
		comp, ok := node.(*Composite)
		require.True(t, ok)
		assert.Len(t, comp.Children, 2)
	})

	t.Run("Should parse logical operators with list children", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"$or": [{"age": 1}, {"name": "x"}]}`))

		require.NoError(t, err)
		lg, ok := node.(*Logical)
		require.True(t, ok)
		assert.Equal(t, OpOr, lg.Operator)
		assert.Len(t, lg.Children, 2)
	})

	t.Run("Should reject unknown logical operators", func(t *testing.T) {
		_, err := Parse(mustDecode(t, `{"$xor": [{"a": 1}]}`))

		require.Error(t, err)
		assert.True(t, errors.IsInvalidFilter(err))
	})

	t.Run("Should reject non-list logical children", func(t *testing.T) {
		_, err := Parse(mustDecode(t, `{"$and": {"a": 1}}`))

		require.Error(t, err)
		assert.True(t, errors.IsInvalidFilter(err))
	})

	t.Run("Should reject dollar signs in field names", func(t *testing.T) {
		_, err := Parse(mustDecode(t, `{"a$b": 1}`))

		require.Error(t, err)
		assert.True(t, errors.IsInvalidFilter(err))
	})

	t.Run("Should reject unknown field operators", func(t *testing.T) {
		_, err := Parse(mustDecode(t, `{"age": {"$between": [1, 2]}}`))

		require.Error(t, err)
		assert.True(t, errors.IsInvalidFilter(err))
	})

	t.Run("Should match plain objects by equality", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"address": {"city": "Berlin"}}`))

		require.NoError(t, err)
		ff := node.(*FieldFilter)
		assert.Equal(t, OpEq, ff.Conditions[0].Operator)
	})

	t.Run("Should parse an empty document as match-all", func(t *testing.T) {
		node, err := Parse(map[string]any{})

		require.NoError(t, err)
		comp := node.(*Composite)
		assert.Empty(t, comp.Children)
	})
}

func TestParseRenderRoundTrip(t *testing.T) {
	raws := []string{
		`{"age": {"$gt": 18, "$lt": 65}, "name": {"$regex": "^A"}}`,
		`{"$or": [{"age": {"$gte": 21}}, {"$not": [{"name": {"$eq": "x"}}]}]}`,
		`{"tags": {"$in": ["a", "b"]}}`,
	}
	for _, raw := range raws {
		t.Run(raw, func(t *testing.T) {
			first, err := Parse(mustDecode(t, raw))
			require.NoError(t, err)

			second, err := Parse(Render(first))
			require.NoError(t, err)

			assert.Equal(t, Render(first), Render(second))

			t1, err := Translate(first)
			require.NoError(t, err)
			t2, err := Translate(second)
			require.NoError(t, err)
			assert.Equal(t, t1, t2)
		})
	}
}
