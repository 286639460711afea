package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Enabled: true,
		FieldOperators: map[string][]string{
			"age":  {OpGt, OpLt, OpEq},
			"name": {OpEq, OpRegex},
			"tags": {OpIn, OpAll, OpSize},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("Should accept filters within policy", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"age": {"$gt": 18}, "name": {"$regex": "^A"}}`))
		require.NoError(t, err)

		assert.Empty(t, Validate(node, testConfig()))
	})

	t.Run("Should reject unfilterable fields", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"salary": {"$gt": 1}}`))
		require.NoError(t, err)

		errs := Validate(node, testConfig())
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], `field "salary" is not filterable`)
	})

	t.Run("Should reject disallowed operators", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"name": {"$gt": "x"}}`))
		require.NoError(t, err)

		errs := Validate(node, testConfig())
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "$gt")
		assert.Contains(t, errs[0], `"name"`)
	})

	t.Run("Should check value-type predicates", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"tags": {"$in": "not-a-list"}}`))
		require.NoError(t, err)

		errs := Validate(node, testConfig())
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "requires a list")
	})

	t.Run("Should accumulate all problems", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"salary": 1, "name": {"$gt": "x"}, "tags": {"$in": 5}}`))
		require.NoError(t, err)

		errs := Validate(node, testConfig())
		assert.Len(t, errs, 3)
	})

	t.Run("Should always allow equality on the primary key", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"_id": "abc"}`))
		require.NoError(t, err)

		assert.Empty(t, Validate(node, &Config{Enabled: true}))
	})

	t.Run("Should permit only the primary key when filtering is disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Enabled = false

		node, err := Parse(mustDecode(t, `{"age": {"$gt": 18}}`))
		require.NoError(t, err)
		errs := Validate(node, cfg)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], `field "age" is not filterable`)

		node, err = Parse(mustDecode(t, `{"_id": "abc"}`))
		require.NoError(t, err)
		assert.Empty(t, Validate(node, cfg))
	})

	t.Run("Should enforce $not arity", func(t *testing.T) {
		for _, raw := range []string{
			`{"$not": []}`,
			`{"$not": [{"age": 1}, {"name": "x"}]}`,
		} {
			node, err := Parse(mustDecode(t, raw))
			require.NoError(t, err)

			errs := Validate(node, testConfig())
			require.NotEmpty(t, errs, raw)
			assert.Contains(t, errs[0], "$not requires exactly 1 child")
		}

		node, err := Parse(mustDecode(t, `{"$not": [{"age": {"$gt": 1}}]}`))
		require.NoError(t, err)
		assert.Empty(t, Validate(node, testConfig()))
	})

	t.Run("Should enforce at least one child for other logicals", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"$or": []}`))
		require.NoError(t, err)

		errs := Validate(node, testConfig())
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "$or requires at least 1 child")
	})

	t.Run("Should include the child index in nested errors", func(t *testing.T) {
		node, err := Parse(mustDecode(t, `{"$or": [{"age": {"$gt": 1}}, {"salary": 2}]}`))
		require.NoError(t, err)

		errs := Validate(node, testConfig())
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "child 1 of $or")
	})
}
