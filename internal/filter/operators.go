// Package filter implements the JSON-shaped filter DSL: parsing into
// an operator tree, validation against per-endpoint policy, and
// translation into a MongoDB predicate.
package filter

// Operator describes one symbol of the closed operator set: whether
// it is logical (combines sub-filters) or applies to a field, and the
// value-type predicate its operand must satisfy.
type Operator struct {
	Symbol  string
	Logical bool
	// ExactlyOne restricts a logical operator to a single child.
	ExactlyOne bool
	// ValidValue reports whether v satisfies the operator's value-type
	// predicate. Nil means any value is acceptable.
	ValidValue func(v any) bool
	// Expects names the expected value shape for error messages.
	Expects string
}

// Comparison operator symbols.
const (
	OpEq        = "$eq"
	OpNe        = "$ne"
	OpGt        = "$gt"
	OpGte       = "$gte"
	OpLt        = "$lt"
	OpLte       = "$lte"
	OpIn        = "$in"
	OpNin       = "$nin"
	OpRegex     = "$regex"
	OpExists    = "$exists"
	OpType      = "$type"
	OpSize      = "$size"
	OpAll       = "$all"
	OpElemMatch = "$elemMatch"
)

// Logical operator symbols.
const (
	OpAnd = "$and"
	OpOr  = "$or"
	OpNot = "$not"
	OpNor = "$nor"
)

func isList(v any) bool {
	_, ok := v.([]any)
	return ok
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64:
		return true
	}
	return false
}

func isObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

var operators = map[string]Operator{
	OpEq:        {Symbol: OpEq},
	OpNe:        {Symbol: OpNe},
	OpGt:        {Symbol: OpGt},
	OpGte:       {Symbol: OpGte},
	OpLt:        {Symbol: OpLt},
	OpLte:       {Symbol: OpLte},
	OpIn:        {Symbol: OpIn, ValidValue: isList, Expects: "a list"},
	OpNin:       {Symbol: OpNin, ValidValue: isList, Expects: "a list"},
	OpAll:       {Symbol: OpAll, ValidValue: isList, Expects: "a list"},
	OpRegex:     {Symbol: OpRegex, ValidValue: isString, Expects: "a string"},
	OpExists:    {Symbol: OpExists, ValidValue: isBool, Expects: "a boolean"},
	OpType:      {Symbol: OpType, ValidValue: isNumber, Expects: "a number"},
	OpSize:      {Symbol: OpSize, ValidValue: isNumber, Expects: "a number"},
	OpElemMatch: {Symbol: OpElemMatch, ValidValue: isObject, Expects: "an object"},

	OpAnd: {Symbol: OpAnd, Logical: true},
	OpOr:  {Symbol: OpOr, Logical: true},
	OpNor: {Symbol: OpNor, Logical: true},
	OpNot: {Symbol: OpNot, Logical: true, ExactlyOne: true},
}

// LookupOperator returns the operator for a symbol.
func LookupOperator(symbol string) (Operator, bool) {
	op, ok := operators[symbol]
	return op, ok
}

// ComparisonOperators returns the symbols of all field-level
// operators, for building filter policies.
func ComparisonOperators() []string {
	out := make([]string, 0, len(operators))
	for sym, op := range operators {
		if !op.Logical {
			out = append(out, sym)
		}
	}
	return out
}
