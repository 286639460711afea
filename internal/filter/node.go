package filter

// Node is one node of the parsed filter tree. The variant set is
// closed: FieldFilter, Composite, Logical.
type Node interface {
	isNode()
}

// Condition is one operator applied to a field.
type Condition struct {
	Operator string
	Value    any
}

// FieldFilter applies one or more conditions to a single field. The
// bare-value sugar form parses into a single $eq condition.
type FieldFilter struct {
	Field      string
	Conditions []Condition
}

func (*FieldFilter) isNode() {}

// Composite is an implicit AND over its children, produced by a
// mapping with multiple top-level keys.
type Composite struct {
	Children []Node
}

func (*Composite) isNode() {}

// Logical combines child filters with $and, $or, $not or $nor.
type Logical struct {
	Operator string
	Children []Node
}

func (*Logical) isNode() {}
