package filter

// Render produces the canonical DSL form of a tree: field conditions
// always spelled with explicit operator symbols, composites merged
// back into a single mapping. Parsing the rendered form yields an
// equivalent tree.
func Render(node Node) map[string]any {
	switch n := node.(type) {
	case *FieldFilter:
		conds := make(map[string]any, len(n.Conditions))
		for _, cond := range n.Conditions {
			conds[cond.Operator] = cond.Value
		}
		return map[string]any{n.Field: conds}
	case *Composite:
		out := make(map[string]any)
		for _, child := range n.Children {
			for key, value := range Render(child) {
				out[key] = value
			}
		}
		return out
	case *Logical:
		children := make([]any, 0, len(n.Children))
		for _, child := range n.Children {
			children = append(children, Render(child))
		}
		return map[string]any{n.Operator: children}
	default:
		return map[string]any{}
	}
}
