package memory

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Matches evaluates a translated predicate against a document,
// mirroring MongoDB matching semantics for the gateway's operator
// set.
func Matches(doc map[string]any, predicate bson.D) bool {
	for _, entry := range predicate {
		if !matchesEntry(doc, entry) {
			return false
		}
	}
	return true
}

func matchesEntry(doc map[string]any, entry bson.E) bool {
	switch entry.Key {
	case "$and":
		for _, branch := range toBranches(entry.Value) {
			if !Matches(doc, branch) {
				return false
			}
		}
		return true
	case "$or":
		branches := toBranches(entry.Value)
		for _, branch := range branches {
			if Matches(doc, branch) {
				return true
			}
		}
		return len(branches) == 0
	case "$nor":
		for _, branch := range toBranches(entry.Value) {
			if Matches(doc, branch) {
				return false
			}
		}
		return true
	}

	value := resolvePath(doc, entry.Key)
	_, present := lookupPath(doc, entry.Key)

	if conds, ok := entry.Value.(bson.D); ok && isOperatorDoc(conds) {
		for _, cond := range conds {
			if !applyOperator(cond.Key, value, present, cond.Value) {
				return false
			}
		}
		return true
	}
	// Plain value: equality.
	return matchEq(value, entry.Value)
}

func toBranches(v any) []bson.D {
	list, ok := v.(bson.A)
	if !ok {
		return nil
	}
	branches := make([]bson.D, 0, len(list))
	for _, item := range list {
		if d, ok := item.(bson.D); ok {
			branches = append(branches, d)
		}
	}
	return branches
}

func isOperatorDoc(d bson.D) bool {
	for _, e := range d {
		if strings.HasPrefix(e.Key, "$") {
			return true
		}
	}
	return false
}

func applyOperator(symbol string, value any, present bool, operand any) bool {
	switch symbol {
	case "$eq":
		return matchEq(value, operand)
	case "$ne":
		return !matchEq(value, operand)
	case "$gt":
		cmp, ok := compareValues(value, operand)
		return ok && cmp > 0
	case "$gte":
		cmp, ok := compareValues(value, operand)
		return ok && cmp >= 0
	case "$lt":
		cmp, ok := compareValues(value, operand)
		return ok && cmp < 0
	case "$lte":
		cmp, ok := compareValues(value, operand)
		return ok && cmp <= 0
	case "$in":
		for _, candidate := range toList(operand) {
			if matchEq(value, candidate) {
				return true
			}
		}
		return false
	case "$nin":
		for _, candidate := range toList(operand) {
			if matchEq(value, candidate) {
				return false
			}
		}
		return true
	case "$exists":
		want, _ := operand.(bool)
		return want == present
	case "$regex":
		pattern, ok := operand.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		str, ok := value.(string)
		return ok && re.MatchString(str)
	case "$type":
		want, ok := toFloat(operand)
		return ok && bsonTypeOf(value) == int(want)
	case "$size":
		want, ok := toFloat(operand)
		if !ok {
			return false
		}
		list, ok := value.([]any)
		return ok && len(list) == int(want)
	case "$all":
		list, ok := value.([]any)
		if !ok {
			return false
		}
		for _, required := range toList(operand) {
			found := false
			for _, item := range list {
				if equalValues(item, required) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case "$elemMatch":
		predicate, ok := operand.(bson.D)
		if !ok {
			return false
		}
		list, ok := value.([]any)
		if !ok {
			return false
		}
		for _, item := range list {
			if element, ok := item.(map[string]any); ok && Matches(element, predicate) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// matchEq applies MongoDB equality: a direct match, or any-element
// match when the stored value is an array.
func matchEq(value, operand any) bool {
	if equalValues(value, operand) {
		return true
	}
	if list, ok := value.([]any); ok {
		for _, item := range list {
			if equalValues(item, operand) {
				return true
			}
		}
	}
	return false
}

func toList(v any) []any {
	switch list := v.(type) {
	case []any:
		return list
	case bson.A:
		return list
	}
	return nil
}

func equalValues(a, b any) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return a == b
}

// compareValues orders two scalars of compatible types. Numeric types
// compare across widths; strings and times compare natively.
func compareValues(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), true
		}
		return 0, false
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0, true
			case bb:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// bsonTypeOf maps a Go value onto the BSON type number used by $type.
func bsonTypeOf(v any) int {
	switch v.(type) {
	case float64, float32:
		return 1
	case string:
		return 2
	case map[string]any:
		return 3
	case []any:
		return 4
	case bool:
		return 8
	case time.Time:
		return 9
	case nil:
		return 10
	case int, int32:
		return 16
	case int64:
		return 18
	}
	return 0
}

// resolvePath walks a dotted field path through nested objects.
func resolvePath(doc map[string]any, path string) any {
	value, _ := lookupPath(doc, path)
	return value
}

func lookupPath(doc map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = doc
	for _, segment := range segments {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
