package schema

import "fmt"

// LiteralSource resolves an enum code to its display literal.
type LiteralSource interface {
	Literal(name, code string) (string, bool)
}

// ApplyLiterals rewrites enum-coded values in doc to their display
// literals, following the recorded bindings. Unknown codes are left as
// stored; read responses never fail over presentation.
func ApplyLiterals(doc map[string]any, bindings []Binding, literals LiteralSource) {
	for _, binding := range bindings {
		applyAt(doc, binding.Pointer, binding.Enum, literals)
	}
}

func applyAt(node any, pointer []string, enumName string, literals LiteralSource) {
	if len(pointer) == 0 {
		return
	}
	segment, rest := pointer[0], pointer[1:]

	if segment == ArraySegment {
		list, ok := node.([]any)
		if !ok {
			return
		}
		if len(rest) == 0 {
			for i, item := range list {
				if literal, found := literals.Literal(enumName, fmt.Sprintf("%v", item)); found {
					list[i] = literal
				}
			}
			return
		}
		for _, item := range list {
			applyAt(item, rest, enumName, literals)
		}
		return
	}

	obj, ok := node.(map[string]any)
	if !ok {
		return
	}
	if len(rest) > 0 {
		applyAt(obj[segment], rest, enumName, literals)
		return
	}

	value, ok := obj[segment]
	if !ok {
		return
	}
	if literal, found := literals.Literal(enumName, fmt.Sprintf("%v", value)); found {
		obj[segment] = literal
	}
}
