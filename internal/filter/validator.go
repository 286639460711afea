package filter

import (
	"fmt"
)

// Validate checks a parsed tree against the endpoint's filter policy
// and the operators' value-type predicates. Errors are accumulated,
// not fail-fast, so the client sees every problem at once. An empty
// result means Translate is defined for the tree.
func Validate(node Node, cfg *Config) []string {
	v := &validator{cfg: cfg}
	v.walk(node, "")
	return v.errs
}

type validator struct {
	cfg  *Config
	errs []string
}

func (v *validator) addf(prefix, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	v.errs = append(v.errs, msg)
}

func (v *validator) walk(node Node, prefix string) {
	switch n := node.(type) {
	case *FieldFilter:
		v.validateField(n, prefix)
	case *Composite:
		for _, child := range n.Children {
			v.walk(child, prefix)
		}
	case *Logical:
		v.validateLogical(n, prefix)
	}
}

func (v *validator) validateField(n *FieldFilter, prefix string) {
	if !v.cfg.Filterable(n.Field) {
		v.addf(prefix, "field %q is not filterable", n.Field)
		return
	}
	for _, cond := range n.Conditions {
		if !v.cfg.Allows(n.Field, cond.Operator) {
			v.addf(prefix, "operator %s is not allowed for field %q", cond.Operator, n.Field)
			continue
		}
		op, _ := LookupOperator(cond.Operator)
		if op.ValidValue != nil && !op.ValidValue(cond.Value) {
			v.addf(prefix, "operator %s for field %q requires %s", cond.Operator, n.Field, op.Expects)
		}
	}
}

func (v *validator) validateLogical(n *Logical, prefix string) {
	op, _ := LookupOperator(n.Operator)
	switch {
	case op.ExactlyOne && len(n.Children) != 1:
		v.addf(prefix, "%s requires exactly 1 child, got %d", n.Operator, len(n.Children))
	case !op.ExactlyOne && len(n.Children) == 0:
		v.addf(prefix, "%s requires at least 1 child", n.Operator)
	}
	for i, child := range n.Children {
		childPrefix := fmt.Sprintf("child %d of %s", i, n.Operator)
		if prefix != "" {
			childPrefix = prefix + ": " + childPrefix
		}
		v.walk(child, childPrefix)
	}
}
