// Package mindsdb talks to a MindsDB server over its HTTP SQL API.
package mindsdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"wyse/internal/logger"

	"go.uber.org/zap"
)

var ErrUnavailable = errors.New("mindsdb is not available")

// Client holds its own connection state; it is safe for concurrent use.
type Client struct {
	BaseURL      string
	HTTPClient   *http.Client
	HealthClient *http.Client

	mu        sync.Mutex
	connected bool
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		HealthClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Result mirrors the MindsDB /api/sql/query response body.
type Result struct {
	Type         string          `json:"type"`
	ColumnNames  []string        `json:"column_names"`
	Data         [][]interface{} `json:"data"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Raw          json.RawMessage `json:"-"`
}

// QueryError is an error reported by the engine for a well-formed request.
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string { return "mindsdb query error: " + e.Message }

// Rows returns the result as column-keyed maps.
func (r *Result) Rows() []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(r.Data))
	for _, rec := range r.Data {
		row := make(map[string]interface{}, len(r.ColumnNames))
		for i, col := range r.ColumnNames {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Empty reports whether the result carried no rows.
func (r *Result) Empty() bool { return r == nil || len(r.Data) == 0 }

// Connect probes GET /health and records the outcome.
func (c *Client) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HealthClient.Do(req)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			err = fmt.Errorf("health check returned status %d", resp.StatusCode)
		}
	}

	c.mu.Lock()
	c.connected = err == nil
	c.mu.Unlock()

	if err != nil {
		logger.Log.Warn("MindsDB connection failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	logger.Log.Info("MindsDB connected", zap.String("url", c.BaseURL))
	return nil
}

// EnsureConnected connects lazily on first use.
func (c *Client) EnsureConnected(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}
	return c.Connect(ctx)
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Disconnect clears the connection flag so the next call probes again.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

// Query runs a SQL statement, retrying once against the legacy /sql
// endpoint when the primary endpoint fails. Engine-level errors are not
// retried.
func (c *Client) Query(ctx context.Context, query string) (*Result, error) {
	res, err := c.post(ctx, "/api/sql/query", query)
	if err == nil {
		return res, nil
	}
	var qe *QueryError
	if errors.As(err, &qe) || ctx.Err() != nil {
		return nil, err
	}

	res, altErr := c.post(ctx, "/sql", query)
	if altErr != nil {
		logger.Log.Error("SQL execution failed",
			zap.NamedError("primary", err),
			zap.NamedError("alternate", altErr),
		)
		// Unreachable on both endpoints: the next call probes /health again.
		if errors.Is(err, ErrUnavailable) && errors.Is(altErr, ErrUnavailable) && ctx.Err() == nil {
			c.Disconnect()
		}
		return nil, err
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, path, query string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute query: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read query response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mindsdb %s returned status %d: %s", path, resp.StatusCode, truncate(string(bodyBytes), 200))
	}

	var res Result
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	if res.Type == "error" {
		return nil, &QueryError{Message: res.ErrorMessage}
	}
	res.Raw = bodyBytes
	return &res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
