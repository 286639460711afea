package filter

import (
	"fmt"
	"sort"
	"strings"

	"datagate/pkg/errors"
)

// Parse turns a decoded filter document into a tree. Structural
// problems (unknown logical operators, non-list logical children,
// $-prefixed field names) fail here with KindInvalidFilter; policy
// and arity problems are left to the validator so a client sees all
// of them accumulated in one response.
func Parse(doc map[string]any) (Node, error) {
	if len(doc) == 0 {
		return &Composite{}, nil
	}

	// Iteration order of a decoded JSON object is undefined; sort the
	// keys so parse errors are deterministic.
	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	children := make([]Node, 0, len(doc))
	for _, key := range keys {
		child, err := parseEntry(key, doc[key])
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &Composite{Children: children}, nil
}

func parseEntry(key string, value any) (Node, error) {
	if strings.HasPrefix(key, "$") {
		return parseLogical(key, value)
	}
	return parseField(key, value)
}

func parseLogical(symbol string, value any) (Node, error) {
	op, ok := LookupOperator(symbol)
	if !ok || !op.Logical {
		return nil, errors.New(errors.KindInvalidFilter,
			fmt.Sprintf("unknown logical operator %s", symbol))
	}

	list, ok := value.([]any)
	if !ok {
		return nil, errors.New(errors.KindInvalidFilter,
			fmt.Sprintf("%s requires a list of sub-filters", symbol))
	}

	children := make([]Node, 0, len(list))
	for i, item := range list {
		sub, ok := item.(map[string]any)
		if !ok {
			return nil, errors.New(errors.KindInvalidFilter,
				fmt.Sprintf("child %d of %s is not a filter object", i, symbol))
		}
		child, err := Parse(sub)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &Logical{Operator: symbol, Children: children}, nil
}

func parseField(field string, value any) (Node, error) {
	if strings.Contains(field, "$") {
		return nil, errors.New(errors.KindInvalidFilter,
			fmt.Sprintf("field name %q must not contain '$'", field))
	}

	conds, ok := value.(map[string]any)
	if !ok {
		// Bare value is sugar for equality.
		return &FieldFilter{
			Field:      field,
			Conditions: []Condition{{Operator: OpEq, Value: value}},
		}, nil
	}

	// An empty object or an object without operator keys is a plain
	// equality match on the object value.
	if !hasOperatorKeys(conds) {
		return &FieldFilter{
			Field:      field,
			Conditions: []Condition{{Operator: OpEq, Value: value}},
		}, nil
	}

	symbols := make([]string, 0, len(conds))
	for sym := range conds {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	conditions := make([]Condition, 0, len(conds))
	for _, sym := range symbols {
		op, ok := LookupOperator(sym)
		if !ok || op.Logical {
			return nil, errors.New(errors.KindInvalidFilter,
				fmt.Sprintf("unknown operator %s for field %q", sym, field))
		}
		conditions = append(conditions, Condition{Operator: sym, Value: conds[sym]})
	}
	return &FieldFilter{Field: field, Conditions: conditions}, nil
}

// hasOperatorKeys reports whether m looks like an operator mapping.
// Mixing operator and plain keys in one object is a structural error
// surfaced by parseField via the unknown-operator path.
func hasOperatorKeys(m map[string]any) bool {
	for key := range m {
		if strings.HasPrefix(key, "$") {
			return true
		}
	}
	return false
}
