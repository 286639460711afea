package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"

	"datagate/pkg/errors"
)

// Options are the query modifiers of a filtered read: sort order,
// limit, skip and projection. Sort and projection preserve the key
// order of the wire representation.
type Options struct {
	Sort       bson.D
	Limit      int64
	Skip       int64
	Projection bson.D
}

// ParseOptions decodes a FilterOptions block from its raw JSON. The
// sort and projection objects are scanned token-wise because decoded
// Go maps would lose the key order the backend must respect.
func ParseOptions(raw json.RawMessage) (*Options, error) {
	if len(raw) == 0 {
		return &Options{}, nil
	}

	var block struct {
		Sort       json.RawMessage `json:"sort"`
		Limit      *int64          `json:"limit"`
		Skip       *int64          `json:"skip"`
		Projection json.RawMessage `json:"projection"`
	}
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, errors.New(errors.KindInvalidFilter, "malformed filter options")
	}

	opts := &Options{}

	if block.Limit != nil {
		if *block.Limit < 0 {
			return nil, errors.New(errors.KindInvalidFilter, "limit must not be negative")
		}
		opts.Limit = *block.Limit
	}
	if block.Skip != nil {
		if *block.Skip < 0 {
			return nil, errors.New(errors.KindInvalidFilter, "skip must not be negative")
		}
		opts.Skip = *block.Skip
	}

	if len(block.Sort) > 0 {
		sortDoc, err := orderedIntObject(block.Sort, "sort")
		if err != nil {
			return nil, err
		}
		for _, e := range sortDoc {
			dir, _ := e.Value.(int)
			if dir != 1 && dir != -1 {
				return nil, errors.New(errors.KindInvalidFilter,
					fmt.Sprintf("sort direction for field %q must be 1 or -1", e.Key))
			}
		}
		opts.Sort = sortDoc
	}

	if len(block.Projection) > 0 {
		proj, err := orderedIntObject(block.Projection, "projection")
		if err != nil {
			return nil, err
		}
		seen := make(map[string]int)
		for _, e := range proj {
			v, _ := e.Value.(int)
			if v != 0 && v != 1 {
				return nil, errors.New(errors.KindInvalidFilter,
					fmt.Sprintf("projection for field %q must be 0 or 1", e.Key))
			}
			if prev, ok := seen[e.Key]; ok && prev != v {
				return nil, errors.New(errors.KindInvalidFilter,
					fmt.Sprintf("projection requests both include and exclude for field %q", e.Key))
			}
			seen[e.Key] = v
		}
		opts.Projection = proj
	}

	return opts, nil
}

// orderedIntObject decodes a flat JSON object of integer values into
// a bson.D, preserving key order and keeping duplicate keys visible.
func orderedIntObject(raw json.RawMessage, what string) (bson.D, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.New(errors.KindInvalidFilter, "malformed "+what+" block")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New(errors.KindInvalidFilter, what+" must be an object")
	}

	out := bson.D{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errors.New(errors.KindInvalidFilter, "malformed "+what+" block")
		}
		key := keyTok.(string)

		valTok, err := dec.Token()
		if err == io.EOF || err != nil {
			return nil, errors.New(errors.KindInvalidFilter, "malformed "+what+" block")
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return nil, errors.New(errors.KindInvalidFilter,
				fmt.Sprintf("%s value for field %q must be a number", what, key))
		}
		v, err := num.Int64()
		if err != nil {
			return nil, errors.New(errors.KindInvalidFilter,
				fmt.Sprintf("%s value for field %q must be an integer", what, key))
		}
		out = append(out, bson.E{Key: key, Value: int(v)})
	}
	return out, nil
}
