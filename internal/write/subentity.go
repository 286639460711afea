package write

import (
	"fmt"
	"strings"

	"datagate/internal/document"
	"datagate/pkg/errors"
)

// subEntity is one incoming element after its operation flags have
// been extracted and removed.
type subEntity struct {
	fields document.Document
	myID   string
	delete bool
}

// extractSubEntity converts a raw list element into a subEntity. The
// operation flags isDelete/isDeleted are matched case-insensitively
// and never survive into the stored element.
func extractSubEntity(field string, index int, raw any) (*subEntity, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New(errors.KindSubEntityConflict,
			fmt.Sprintf("element %d of %q is not an object", index, field))
	}

	entity := &subEntity{fields: make(document.Document, len(obj))}
	for key, value := range obj {
		switch {
		case strings.EqualFold(key, document.FieldIsDelete), strings.EqualFold(key, document.FieldIsDeleted):
			entity.delete = entity.delete || isTruthy(value)
		case key == document.FieldMyID:
			if s, ok := value.(string); ok {
				entity.myID = strings.TrimSpace(s)
			}
		default:
			entity.fields[key] = value
		}
	}
	return entity, nil
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	}
	return false
}

// prepareNewSubEntities normalises a sub-entity list on create: every
// element must be an object without a delete flag; missing technical
// ids are assigned, and isDeleted starts out false.
func prepareNewSubEntities(field string, list []any, newID func() string) ([]any, error) {
	out := make([]any, 0, len(list))
	for i, raw := range list {
		entity, err := extractSubEntity(field, i, raw)
		if err != nil {
			return nil, err
		}
		if entity.delete {
			return nil, errors.New(errors.KindSubEntityConflict,
				fmt.Sprintf("element %d of %q must not carry a delete flag on create", i, field))
		}
		if entity.myID == "" {
			entity.myID = newID()
		}
		entity.fields[document.FieldMyID] = entity.myID
		entity.fields[document.FieldIsDeleted] = false
		out = append(out, map[string]any(entity.fields))
	}
	return out, nil
}

// mergeSubEntities folds an incoming sub-entity list into the current
// one. Existing order is preserved; new entries are appended. The
// merge is all-or-nothing: the first conflict aborts it.
func mergeSubEntities(field string, current, incoming []any, newID func() string) ([]any, error) {
	merged := make([]any, 0, len(current)+len(incoming))
	indexByID := make(map[string]int, len(current))
	for i, raw := range current {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, errors.New(errors.KindSubEntityConflict,
				fmt.Sprintf("stored element %d of %q is not an object", i, field))
		}
		clone := document.Clone(obj)
		if id, ok := clone[document.FieldMyID].(string); ok {
			indexByID[id] = i
		}
		merged = append(merged, clone)
	}

	for i, raw := range incoming {
		entity, err := extractSubEntity(field, i, raw)
		if err != nil {
			return nil, err
		}

		if entity.myID == "" {
			if entity.delete {
				return nil, errors.New(errors.KindSubEntityConflict,
					fmt.Sprintf("element %d of %q requests a delete without a %s", i, field, document.FieldMyID))
			}
			entity.fields[document.FieldMyID] = newID()
			entity.fields[document.FieldIsDeleted] = false
			merged = append(merged, map[string]any(entity.fields))
			continue
		}

		pos, found := indexByID[entity.myID]
		if !found {
			return nil, errors.New(errors.KindSubEntityConflict,
				fmt.Sprintf("sub-entity %q of %q does not exist", entity.myID, field))
		}
		existing := merged[pos].(map[string]any)
		if deleted, _ := existing[document.FieldIsDeleted].(bool); deleted {
			return nil, errors.New(errors.KindSubEntityConflict,
				fmt.Sprintf("sub-entity %q of %q is already deleted", entity.myID, field))
		}

		if entity.delete {
			existing[document.FieldIsDeleted] = true
			continue
		}
		for key, value := range entity.fields {
			existing[key] = value
		}
		existing[document.FieldIsDeleted] = false
	}
	return merged, nil
}
