package enum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Client fetches enum definitions from the enum service. Calls go
// through a circuit breaker so a flapping service does not stall every
// refresh tick with a full timeout.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient creates a client for the enum service at baseURL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "enum-service",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 3 && counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: cb,
		logger:  logger,
	}
}

// FetchAll retrieves every enum definition.
func (c *Client) FetchAll(ctx context.Context) ([]Enum, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Enum), nil
}

func (c *Client) fetch(ctx context.Context) ([]Enum, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/enums", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build enum request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enum service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("enum service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read enum response: %w", err)
	}
	return ParseEnums(body)
}

// ParseEnums decodes the service payload:
// [{"name": ..., "values": {code: literal, ...}}, ...].
// Code order within "values" is preserved.
func ParseEnums(body []byte) ([]Enum, error) {
	var raw []struct {
		Name   string          `json:"name"`
		Values json.RawMessage `json:"values"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("malformed enum payload: %w", err)
	}

	enums := make([]Enum, 0, len(raw))
	for _, entry := range raw {
		if entry.Name == "" {
			return nil, fmt.Errorf("enum definition without a name")
		}
		codes, literals, err := parseValues(entry.Values)
		if err != nil {
			return nil, fmt.Errorf("enum %q: %w", entry.Name, err)
		}
		enums = append(enums, NewEnum(entry.Name, codes, literals))
	}
	return enums, nil
}

// parseValues reads the values object token-wise so the wire order of
// codes survives decoding.
func parseValues(raw json.RawMessage) ([]string, map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("malformed values: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("values must be an object")
	}

	var codes []string
	literals := make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("malformed values: %w", err)
		}
		code := keyTok.(string)

		var literal string
		if err := dec.Decode(&literal); err != nil {
			return nil, nil, fmt.Errorf("value of code %q must be a string", code)
		}
		codes = append(codes, code)
		literals[code] = literal
	}
	return codes, literals, nil
}
