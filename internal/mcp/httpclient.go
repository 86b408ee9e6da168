package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/trainingdiary/internal/models"
	"github.com/meltforce/trainingdiary/internal/storage"
)

// HTTPClient implements DataSource by calling the training diary REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func getJSON[T any](ctx context.Context, c *HTTPClient, path string, params url.Values) (T, error) {
	var out T
	body, err := c.get(ctx, path, params)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return out, nil
}

func (c *HTTPClient) GetActivePlan(ctx context.Context, _ int) (*models.ActivePlan, error) {
	return getJSON[*models.ActivePlan](ctx, c, "/api/v1/plan", nil)
}

func (c *HTTPClient) QueryHistory(ctx context.Context, _ int, q models.HistoryQuery) (*models.HistoryPage, error) {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.From != "" {
		params.Set("from", q.From)
	}
	if q.To != "" {
		params.Set("to", q.To)
	}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	return getJSON[*models.HistoryPage](ctx, c, "/api/v1/history", params)
}

func (c *HTTPClient) GetSessionDetails(ctx context.Context, _ int, sessionID uuid.UUID) (*models.WorkoutSession, error) {
	return getJSON[*models.WorkoutSession](ctx, c, "/api/v1/sessions/"+sessionID.String(), nil)
}

func (c *HTTPClient) QueryImportLogs(ctx context.Context, _ int, limit int) ([]storage.ImportLog, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return getJSON[[]storage.ImportLog](ctx, c, "/api/v1/import-logs", params)
}
