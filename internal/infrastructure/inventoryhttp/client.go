package inventoryhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	dominv "github.com/shopcore/fulfillment/internal/domain/inventory"
)

// Client talks to a remote inventory service over HTTP. Timeouts and
// breaker policy live with the caller; the client itself only honors the
// request context.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// LookupByCodes performs one batched search for all codes.
// GET {base}/api/inventory/search?skuCode=a&skuCode=b
func (c *Client) LookupByCodes(ctx context.Context, codes []string) ([]dominv.Record, error) {
	query := url.Values{}
	for _, code := range codes {
		query.Add("skuCode", code)
	}

	var records []dominv.Record
	if err := c.get(ctx, "/api/inventory/search?"+query.Encode(), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) LookupByCode(ctx context.Context, code string) (*dominv.Record, error) {
	var rec dominv.Record
	if err := c.get(ctx, "/api/inventory/"+url.PathEscape(code), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReduceStock debits one SKU.
// PUT {base}/api/inventory/{skuCode}?quantity=n
func (c *Client) ReduceStock(ctx context.Context, code string, amount int) error {
	endpoint := fmt.Sprintf("%s/api/inventory/%s?quantity=%s",
		c.baseURL, url.PathEscape(code), strconv.Itoa(amount))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return fmt.Errorf("inventory client: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inventory client: reduce stock: %w", err)
	}
	defer drain(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return dominv.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return dominv.ErrInsufficientStock
	case resp.StatusCode >= 300:
		return fmt.Errorf("inventory client: reduce stock: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("inventory client: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inventory client: %w", err)
	}
	defer drain(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return dominv.ErrNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("inventory client: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("inventory client: decode response: %w", err)
	}
	return nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
