package filter

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"datagate/pkg/errors"
)

// Reserved query parameter names; everything else becomes an equality
// filter on its string value. GET-style values are never coerced:
// typed comparisons go through the body DSL.
var reservedParams = map[string]bool{
	"limit":    true,
	"skip":     true,
	"sort":     true,
	"sequence": true,
	"bulkSize": true,
}

// FromQuery translates flat GET query parameters into a filter tree
// plus options. Sort uses a comma-separated field list with a leading
// '-' for descending order.
func FromQuery(params url.Values) (Node, *Options, error) {
	fields := make([]string, 0, len(params))
	for name := range params {
		if !reservedParams[name] {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)

	children := make([]Node, 0, len(fields))
	for _, name := range fields {
		if strings.Contains(name, "$") {
			return nil, nil, errors.New(errors.KindInvalidFilter,
				fmt.Sprintf("field name %q must not contain '$'", name))
		}
		children = append(children, &FieldFilter{
			Field:      name,
			Conditions: []Condition{{Operator: OpEq, Value: params.Get(name)}},
		})
	}

	var node Node
	switch len(children) {
	case 0:
		node = &Composite{}
	case 1:
		node = children[0]
	default:
		node = &Composite{Children: children}
	}

	opts, err := optionsFromQuery(params)
	if err != nil {
		return nil, nil, err
	}
	return node, opts, nil
}

func optionsFromQuery(params url.Values) (*Options, error) {
	opts := &Options{}

	if v := params.Get("limit"); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil || limit < 0 {
			return nil, errors.New(errors.KindInvalidFilter, "limit must be a non-negative integer")
		}
		opts.Limit = limit
	}
	if v := params.Get("skip"); v != "" {
		skip, err := strconv.ParseInt(v, 10, 64)
		if err != nil || skip < 0 {
			return nil, errors.New(errors.KindInvalidFilter, "skip must be a non-negative integer")
		}
		opts.Skip = skip
	}
	if v := params.Get("sort"); v != "" {
		for _, field := range strings.Split(v, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			dir := 1
			if strings.HasPrefix(field, "-") {
				dir = -1
				field = field[1:]
			}
			if field == "" {
				return nil, errors.New(errors.KindInvalidFilter, "sort field must not be empty")
			}
			opts.Sort = append(opts.Sort, bson.E{Key: field, Value: dir})
		}
	}
	return opts, nil
}
