// Package request classifies an HTTP request against its endpoint
// descriptor and parses it into a typed read or write request.
package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"datagate/internal/document"
	"datagate/internal/filter"
	"datagate/internal/query"
	"datagate/internal/registry"
	"datagate/internal/write"
	"datagate/pkg/errors"
)

// Parsed is the outcome of classification: exactly one of Read or
// Write is set.
type Parsed struct {
	Read  query.Request
	Write write.Request
}

var knownMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Parse turns an HTTP request into a typed gateway request. GET is
// always a read; other known methods are writes only when the
// endpoint lists them in its write methods, otherwise they carry a
// filter body (the DSL's filtered query via POST).
func Parse(r *http.Request, endpoint *registry.EndpointDescriptor, requestID string) (*Parsed, error) {
	method := strings.ToUpper(r.Method)
	if !knownMethods[method] {
		return nil, errors.New(errors.KindMethodNotAllowed,
			fmt.Sprintf("method %s is not supported", method))
	}

	if method != http.MethodGet && endpoint.AllowsWrite(method) {
		w, err := parseWrite(r, method, endpoint, requestID)
		if err != nil {
			return nil, err
		}
		return &Parsed{Write: w}, nil
	}

	q, err := parseRead(r, endpoint)
	if err != nil {
		return nil, err
	}
	return &Parsed{Read: q}, nil
}

func parseRead(r *http.Request, endpoint *registry.EndpointDescriptor) (query.Request, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}

	if len(body) > 0 {
		return parseFilterBody(body)
	}

	params := r.URL.Query()
	if params.Has("sequence") || params.Has("bulkSize") {
		return parseSequence(params, endpoint)
	}
	if len(params) > 0 {
		node, opts, err := filter.FromQuery(params)
		if err != nil {
			return nil, err
		}
		return &query.Filtered{Filter: node, Options: opts}, nil
	}
	return query.FullCollection{}, nil
}

// parseFilterBody accepts either a bare filter document or an
// envelope {"filter": ..., "options": ...}.
func parseFilterBody(body []byte) (query.Request, error) {
	var envelope struct {
		Filter  json.RawMessage `json:"filter"`
		Options json.RawMessage `json:"options"`
	}
	raw := map[string]any{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.New(errors.KindInvalidFilter, "request body is not a JSON object")
	}

	filterDoc := raw
	var optionsRaw json.RawMessage
	if _, ok := raw["filter"]; ok {
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, errors.New(errors.KindInvalidFilter, "malformed filter envelope")
		}
		if err := json.Unmarshal(envelope.Filter, &filterDoc); err != nil {
			return nil, errors.New(errors.KindInvalidFilter, "filter must be a JSON object")
		}
		optionsRaw = envelope.Options
	}

	node, err := filter.Parse(filterDoc)
	if err != nil {
		return nil, err
	}
	opts, err := filter.ParseOptions(optionsRaw)
	if err != nil {
		return nil, err
	}
	return &query.Filtered{Filter: node, Options: opts}, nil
}

func parseSequence(params url.Values, endpoint *registry.EndpointDescriptor) (query.Request, error) {
	start := int64(0)
	if v := params.Get("sequence"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.New(errors.KindInvalidFilter, "sequence must be an integer")
		}
		start = parsed
	}

	bulkSize := endpoint.DefaultBulkSize
	if bulkSize == 0 {
		bulkSize = registry.DefaultBulkSize
	}
	if v := params.Get("bulkSize"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New(errors.KindInvalidFilter, "bulkSize must be an integer")
		}
		bulkSize = parsed
	}
	return &query.SequenceBased{StartSequence: start, BulkSize: bulkSize}, nil
}

func parseWrite(r *http.Request, method string, endpoint *registry.EndpointDescriptor, requestID string) (write.Request, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}

	switch method {
	case http.MethodPost:
		return parseCreate(body, requestID)
	case http.MethodPut, http.MethodPatch:
		return parseUpdate(body, r.URL.Query(), requestID)
	case http.MethodDelete:
		return parseDelete(body, r.URL.Query(), requestID)
	}
	return nil, errors.New(errors.KindMethodNotAllowed,
		fmt.Sprintf("method %s is not a write method", method))
}

// parseCreate accepts a single document or a list of documents.
func parseCreate(body []byte, requestID string) (write.Request, error) {
	if len(body) == 0 {
		return nil, errors.New(errors.KindInvalidFilter, "create requires a request body")
	}

	var docs []document.Document
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &docs); err != nil {
			return nil, errors.New(errors.KindInvalidFilter, "create body must be a list of JSON objects")
		}
	} else {
		var doc document.Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, errors.New(errors.KindInvalidFilter, "create body must be a JSON object")
		}
		docs = []document.Document{doc}
	}
	return &write.Create{Documents: docs, RequestID: requestID}, nil
}

func parseUpdate(body []byte, params url.Values, requestID string) (write.Request, error) {
	var envelope struct {
		Filter  map[string]any    `json:"filter"`
		Updates document.Document `json:"updates"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.New(errors.KindInvalidFilter, "update body must be {filter, updates}")
	}
	if envelope.Filter == nil {
		return nil, errors.New(errors.KindInvalidFilter, "update requires a filter")
	}
	node, err := filter.Parse(envelope.Filter)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(params.Get("upsert"), "true") {
		return &write.Upsert{Filter: node, Document: envelope.Updates, RequestID: requestID}, nil
	}
	return &write.Update{Filter: node, Updates: envelope.Updates, RequestID: requestID}, nil
}

// parseDelete accepts a body {"filter": ...} or an _id query
// parameter.
func parseDelete(body []byte, params url.Values, requestID string) (write.Request, error) {
	if len(body) > 0 {
		var envelope struct {
			Filter map[string]any `json:"filter"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.Filter == nil {
			return nil, errors.New(errors.KindInvalidFilter, "delete body must be {filter}")
		}
		node, err := filter.Parse(envelope.Filter)
		if err != nil {
			return nil, err
		}
		return &write.Delete{Filter: node, RequestID: requestID}, nil
	}

	if id := params.Get(document.FieldID); id != "" {
		node := &filter.FieldFilter{
			Field:      document.FieldID,
			Conditions: []filter.Condition{{Operator: filter.OpEq, Value: id}},
		}
		return &write.Delete{Filter: node, RequestID: requestID}, nil
	}
	return nil, errors.New(errors.KindInvalidFilter,
		"delete requires a filter body or an _id parameter")
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Internal("failed to read request body", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	return body, nil
}
