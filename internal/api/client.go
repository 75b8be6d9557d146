package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fragreel/internal/services"
)

// Client talks to a running API server. The CLI uses it when another
// process holds the workspace lock.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the server bound at bind (host:port or a
// full http URL).
func NewClient(bind string) *Client {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Status fetches the server status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var resp Status
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp)
	return resp, err
}

// Ingest asks the server to ingest a recording or a directory.
func (c *Client) Ingest(ctx context.Context, path string) (IngestResponse, error) {
	var resp IngestResponse
	err := c.do(ctx, http.MethodPost, "/api/ingest", IngestRequest{Path: path}, &resp)
	return resp, err
}

// DeleteMatch removes a match on the server.
func (c *Client) DeleteMatch(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/matches/"+url.PathEscape(id), nil, nil)
}

// Render starts a render task.
func (c *Client) Render(ctx context.Context, highlightID string, req RenderRequest) (TaskResponse, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodPost, "/api/highlights/"+url.PathEscape(highlightID)+"/render", req, &resp)
	return resp, err
}

// Import attaches an external recording to a highlight.
func (c *Client) Import(ctx context.Context, highlightID string, req ImportRequest) (TaskResponse, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodPost, "/api/highlights/"+url.PathEscape(highlightID)+"/import", req, &resp)
	return resp, err
}

// Task fetches one task.
func (c *Client) Task(ctx context.Context, id string) (TaskResponse, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// RemoveTask deletes a task on the server.
func (c *Client) RemoveTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact fragreel server at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(method, path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// responseError maps an error response back onto the service markers so
// callers classify remote and local failures alike.
func responseError(method, path string, resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(raw))
	}
	if payload.Error == "" {
		payload.Error = resp.Status
	}
	op := method + " " + path
	var marker error
	switch resp.StatusCode {
	case http.StatusNotFound:
		marker = services.ErrNotFound
	case http.StatusBadRequest:
		marker = services.ErrValidation
	case http.StatusConflict:
		marker = services.ErrConfiguration
	case http.StatusGatewayTimeout:
		marker = services.ErrTimeout
	default:
		marker = services.ErrSubprocess
	}
	return services.Wrap(marker, "api client", op, payload.Error, nil)
}
