package schema

import (
	"fmt"
	"strings"
)

// ArraySegment marks an array-element step in a binding pointer.
const ArraySegment = "[]"

// Binding records where an enum-typed value sits inside documents
// validated by a schema. The response transformer follows the pointer
// to swap stored codes for display literals.
type Binding struct {
	Pointer []string
	Enum    string
}

// EnumSource supplies the code lists materialised into schemas.
type EnumSource interface {
	Codes(name string) ([]string, bool)
}

// augment walks a parsed schema tree and rewrites it in place:
// enumRef nodes become concrete enum arrays, and by-name base-types
// references become resolvable resource URLs. Bindings are collected
// along the way.
func augment(node any, path []string, enums EnumSource, bindings *[]Binding) (any, error) {
	obj, ok := node.(map[string]any)
	if !ok {
		return node, nil
	}

	if ref, ok := obj["enumRef"].(string); ok {
		codes, found := enums.Codes(ref)
		if !found {
			return nil, fmt.Errorf("enumRef %q has no loaded enum", ref)
		}
		values := make([]any, len(codes))
		for i, code := range codes {
			values[i] = code
		}
		*bindings = append(*bindings, Binding{
			Pointer: append([]string(nil), path...),
			Enum:    ref,
		})
		return map[string]any{"type": "string", "enum": values}, nil
	}

	if ref, ok := obj["$ref"].(string); ok {
		obj["$ref"] = rewriteRef(ref)
	}

	if props, ok := obj["properties"].(map[string]any); ok {
		for name, sub := range props {
			replaced, err := augment(sub, append(path, name), enums, bindings)
			if err != nil {
				return nil, err
			}
			props[name] = replaced
		}
	}
	if items, ok := obj["items"]; ok {
		replaced, err := augment(items, append(path, ArraySegment), enums, bindings)
		if err != nil {
			return nil, err
		}
		obj["items"] = replaced
	}
	for _, combinator := range []string{"allOf", "anyOf"} {
		branches, ok := obj[combinator].([]any)
		if !ok {
			continue
		}
		for i, branch := range branches {
			// Combinator branches describe the same instance location,
			// so the pointer does not grow.
			replaced, err := augment(branch, path, enums, bindings)
			if err != nil {
				return nil, err
			}
			branches[i] = replaced
		}
	}
	return obj, nil
}

// rewriteRef maps a by-name base-types reference onto the compiler
// resource it was registered under. References are resolved locally,
// never over the network.
func rewriteRef(ref string) string {
	if ref == BaseTypesName {
		return resourceURL(BaseTypesName)
	}
	if strings.HasPrefix(ref, BaseTypesName+"#") {
		return resourceURL(BaseTypesName) + strings.TrimPrefix(ref, BaseTypesName)
	}
	return ref
}
