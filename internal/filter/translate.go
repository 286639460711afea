package filter

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"datagate/pkg/errors"
)

// Translate turns a validated tree into a MongoDB predicate. Call
// Validate first: translation assumes the tree is well-formed and
// only fails on structural impossibilities.
func Translate(node Node) (bson.D, error) {
	switch n := node.(type) {
	case *FieldFilter:
		return translateField(n)
	case *Composite:
		return translateComposite(n.Children, OpAnd)
	case *Logical:
		return translateLogical(n)
	default:
		return nil, errors.New(errors.KindInternal,
			fmt.Sprintf("unknown filter node type %T", node))
	}
}

func translateField(n *FieldFilter) (bson.D, error) {
	conds := bson.D{}
	for _, cond := range n.Conditions {
		value := cond.Value
		if cond.Operator == OpElemMatch {
			// The operand is itself a filter document.
			inner, ok := cond.Value.(map[string]any)
			if !ok {
				return nil, errors.New(errors.KindInvalidFilter,
					fmt.Sprintf("operator %s for field %q requires an object", OpElemMatch, n.Field))
			}
			tree, err := Parse(inner)
			if err != nil {
				return nil, err
			}
			translated, err := Translate(tree)
			if err != nil {
				return nil, err
			}
			value = translated
		}
		conds = append(conds, bson.E{Key: cond.Operator, Value: value})
	}
	return bson.D{{Key: n.Field, Value: conds}}, nil
}

func translateComposite(children []Node, symbol string) (bson.D, error) {
	if len(children) == 0 {
		return bson.D{}, nil
	}
	if len(children) == 1 && symbol == OpAnd {
		return Translate(children[0])
	}
	parts := bson.A{}
	for _, child := range children {
		translated, err := Translate(child)
		if err != nil {
			return nil, err
		}
		parts = append(parts, translated)
	}
	return bson.D{{Key: symbol, Value: parts}}, nil
}

func translateLogical(n *Logical) (bson.D, error) {
	if n.Operator == OpNot {
		// MongoDB has no top-level $not; negation of a single
		// predicate is $nor with one branch.
		return translateComposite(n.Children, OpNor)
	}
	return translateComposite(n.Children, n.Operator)
}
