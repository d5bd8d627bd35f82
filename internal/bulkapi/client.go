// Package bulkapi talks to the admin bulk endpoints over HTTP. importctl uses
// it as the targets.Sink so a local import lands through the same endpoint
// the admin UI uses.
package bulkapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/domain"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// Client posts records to /api/<resource>/bulk.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New returns a client for baseURL. A zero timeout leaves the request bounded
// only by the caller's context.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// UpsertCities posts cities to the cities bulk endpoint.
func (c *Client) UpsertCities(ctx context.Context, cities []domain.City) (core.BulkResult, error) {
	return post(ctx, c, "cities", cities)
}

// UpsertTriplists posts triplists to the triplists bulk endpoint.
func (c *Client) UpsertTriplists(ctx context.Context, triplists []domain.Triplist) (core.BulkResult, error) {
	return post(ctx, c, "triplists", triplists)
}

// UpsertCarouselItems posts carousel items to the carousel bulk endpoint.
func (c *Client) UpsertCarouselItems(ctx context.Context, items []domain.CarouselItem) (core.BulkResult, error) {
	return post(ctx, c, "carousel", items)
}

// errorBody is the JSON error shape the server writes.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func post[T any](ctx context.Context, c *Client, resource string, records []T) (core.BulkResult, error) {
	body, err := json.Marshal(records)
	if err != nil {
		return core.BulkResult{}, fmt.Errorf("encode %s: %w", resource, err)
	}

	url := c.baseURL + "/api/" + resource + "/bulk"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return core.BulkResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return core.BulkResult{}, fmt.Errorf("post %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return core.BulkResult{}, fmt.Errorf("bulk endpoint rejected the request (%d): %s", resp.StatusCode, describeBody(raw))
	}

	var result core.BulkResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return core.BulkResult{}, fmt.Errorf("decode %s response: %w", resource, err)
	}

	slog.Debug("bulk request finished",
		"resource", resource,
		"count", result.Count,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func describeBody(raw []byte) string {
	var e errorBody
	if err := json.Unmarshal(raw, &e); err == nil && e.Error != "" {
		if e.Code != "" {
			return fmt.Sprintf("%s [%s]", e.Error, e.Code)
		}
		return e.Error
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "empty response"
	}
	return text
}
