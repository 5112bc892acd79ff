// Package store provides the row history the engine reads: a remote
// tabular web service, a SQLite cache of it, CSV exports, and a fail-open
// chain over them.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/spektr-org/tally/engine"
)

// Remote reads and appends stats rows over HTTP.
//
// GET endpoint returns the sheet in any of these shapes:
//
//	[{"Location": "South Campus", "Total Attendance": 145}, ...]
//	{"rows": [{...}, ...]}
//	{"values": [["Location", "Total Attendance"], ["South Campus", "145"], ...]}
//
// POST endpoint appends one row and may answer {"id": "..."}.
type Remote struct {
	endpoint string
	token    string
	client   *http.Client
	limiter  *rate.Limiter
	backoffs []time.Duration
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.client = c }
}

// WithRateLimit sets the request rate. Default one request per 500ms.
func WithRateLimit(every time.Duration, burst int) RemoteOption {
	return func(r *Remote) { r.limiter = rate.NewLimiter(rate.Every(every), burst) }
}

// WithBackoffs sets the waits between retries; its length is the retry count.
func WithBackoffs(backoffs ...time.Duration) RemoteOption {
	return func(r *Remote) { r.backoffs = backoffs }
}

// NewRemote creates a client for endpoint. token is sent as a bearer token
// when non-empty.
func NewRemote(endpoint, token string, opts ...RemoteOption) *Remote {
	r := &Remote{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		backoffs: []time.Duration{1 * time.Second, 2 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether an endpoint is configured.
func (r *Remote) Available() bool { return r.endpoint != "" }

// Rows fetches the whole history.
func (r *Remote) Rows(ctx context.Context) ([]engine.Row, error) {
	if !r.Available() {
		return nil, fmt.Errorf("store: remote endpoint not configured")
	}
	body, err := r.doWithRetry(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(body)
	if err != nil {
		return nil, fmt.Errorf("store: failed to parse rows: %w", err)
	}
	return rows, nil
}

type recordResponse struct {
	ID string `json:"id"`
}

// Record appends one row and returns the id the service assigned, if any.
func (r *Remote) Record(ctx context.Context, row engine.Row) (string, error) {
	if !r.Available() {
		return "", fmt.Errorf("store: remote endpoint not configured")
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("store: failed to marshal row: %w", err)
	}
	body, err := r.doWithRetry(ctx, http.MethodPost, payload)
	if err != nil {
		return "", err
	}
	var resp recordResponse
	if len(bytes.TrimSpace(body)) > 0 {
		_ = json.Unmarshal(body, &resp)
	}
	return resp.ID, nil
}

// doWithRetry retries on 429 and 5xx, honoring Retry-After on 429.
func (r *Remote) doWithRetry(ctx context.Context, method string, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= len(r.backoffs); attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("store: rate limiter wait failed: %w", err)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, r.endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("store: failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if r.token != "" {
			req.Header.Set("Authorization", "Bearer "+r.token)
		}

		resp, err := r.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("store: request cancelled: %w", ctx.Err())
			}
			return nil, fmt.Errorf("store: request failed: %w", err)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("store: failed to read response: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		lastErr = fmt.Errorf("store: remote returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable || attempt == len(r.backoffs) {
			return nil, lastErr
		}

		delay := r.backoffs[attempt]
		if resp.StatusCode == http.StatusTooManyRequests {
			if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
				delay = time.Duration(s) * time.Second
			}
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("store: request cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// ============================================================================
// DECODING
// ============================================================================

type rowsEnvelope struct {
	Rows   []map[string]any `json:"rows"`
	Values [][]any          `json:"values"`
}

func decodeRows(body []byte) ([]engine.Row, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var objects []map[string]any
		if err := json.Unmarshal(trimmed, &objects); err != nil {
			return nil, err
		}
		return objectsToRows(objects), nil
	}

	var env rowsEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	if len(env.Values) > 0 {
		return valuesToRows(env.Values), nil
	}
	return objectsToRows(env.Rows), nil
}

func objectsToRows(objects []map[string]any) []engine.Row {
	rows := make([]engine.Row, 0, len(objects))
	for _, obj := range objects {
		row := make(engine.Row, len(obj))
		for k, v := range obj {
			row[k] = cellString(v)
		}
		rows = append(rows, row)
	}
	return rows
}

// valuesToRows treats the first line as the header.
func valuesToRows(values [][]any) []engine.Row {
	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = strings.TrimSpace(cellString(h))
	}
	rows := make([]engine.Row, 0, len(values)-1)
	for _, line := range values[1:] {
		row := make(engine.Row, len(header))
		for i, v := range line {
			if i >= len(header) || header[i] == "" {
				break
			}
			row[header[i]] = cellString(v)
		}
		rows = append(rows, row)
	}
	return rows
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
