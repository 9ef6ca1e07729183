package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rickgao/orders-dashboard/internal/model"
)

// NetworkError means the endpoint could not be reached or answered with a
// non-success status. StatusCode is 0 for transport failures.
type NetworkError struct {
	StatusCode int
	Message    string
	Body       []byte
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("order api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("order api unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError means the response body could not be decoded.
type ParseError struct {
	Subject string // What was being decoded, e.g. "order items"
	Body    []byte
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Subject, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FetchOrderItems performs one GET against the endpoint and decodes the body.
// A JSON null body yields an empty slice.
func (c *Client) FetchOrderItems(ctx context.Context) ([]model.OrderItem, error) {
	body, err := c.doRequest(ctx, "application/json")
	if err != nil {
		return nil, err
	}

	var items []model.OrderItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &ParseError{Subject: "order items", Body: body, Err: err}
	}
	if items == nil {
		items = []model.OrderItem{}
	}

	c.logger.Debug("fetched order items",
		"endpoint", c.endpoint,
		"items", len(items),
	)

	return items, nil
}

// doRequest performs the GET and returns the raw body of a 2xx response.
func (c *Client) doRequest(ctx context.Context, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}
