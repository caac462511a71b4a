// Package hub is an HTTP client for the ideas API.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ideaspark/hub/internal/layout"
	"github.com/ideaspark/hub/internal/models"
)

// ClientOptions configures the ideas API client
type ClientOptions struct {
	// BaseURL is the server root, e.g. "http://localhost:8080". Do not include /v1.
	BaseURL string
	// APIKey is sent as a Bearer token
	APIKey string
	// RetryMax is the maximum number of retries (default: 3)
	RetryMax int
	// Timeout is the HTTP client timeout (default: 60 seconds)
	Timeout time.Duration
}

// Client talks to the ideas API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
}

// APIError is a non-2xx response, carrying the problem details when the server sent them.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Detail)
	}

	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a new ideas API client with default settings
func NewClient(baseURL, apiKey string) *Client {
	return NewClientWithOptions(ClientOptions{
		BaseURL: baseURL,
		APIKey:  apiKey,
	})
}

// NewClientWithOptions creates a new ideas API client with custom options
func NewClientWithOptions(opts ClientOptions) *Client {
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/v1")

	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = 3
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.Logger = nil

	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		httpClient: retryClient,
	}
}

// CreateIdea posts a single idea and returns it with its similarity alert.
func (c *Client) CreateIdea(ctx context.Context, req *models.CreateIdeaRequest) (*models.CreateIdeaResponse, error) {
	var out models.CreateIdeaResponse
	if err := c.do(ctx, http.MethodPost, "/v1/ideas", nil, req, http.StatusCreated, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ImportIdeas creates a batch of ideas in one request.
func (c *Client) ImportIdeas(ctx context.Context, ideas []models.CreateIdeaRequest) (*models.ImportIdeasResponse, error) {
	body := models.ImportIdeasRequest{Ideas: ideas}

	var out models.ImportIdeasResponse
	if err := c.do(ctx, http.MethodPost, "/v1/ideas/import", nil, body, http.StatusCreated, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ListIdeas returns a page of the feed.
func (c *Client) ListIdeas(ctx context.Context, filters models.ListIdeasFilters) (*models.ListIdeasResponse, error) {
	params := url.Values{}
	if filters.Author != nil {
		params.Set("author", *filters.Author)
	}
	if filters.ExcludeAuthor != nil {
		params.Set("exclude_author", *filters.ExcludeAuthor)
	}
	if filters.Limit > 0 {
		params.Set("limit", strconv.Itoa(filters.Limit))
	}
	if filters.Offset > 0 {
		params.Set("offset", strconv.Itoa(filters.Offset))
	}

	var out models.ListIdeasResponse
	if err := c.do(ctx, http.MethodGet, "/v1/ideas", params, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Match queries for ideas similar to a text or an embedding.
func (c *Client) Match(ctx context.Context, req *models.MatchIdeasRequest) (*models.MatchIdeasResponse, error) {
	var out models.MatchIdeasResponse
	if err := c.do(ctx, http.MethodPost, "/v1/ideas/match", nil, req, http.StatusOK, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Embed returns the server provider's embedding of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var out models.EmbedResponse
	if err := c.do(ctx, http.MethodPost, "/v1/embed", nil, models.EmbedRequest{Text: text}, http.StatusOK, &out); err != nil {
		return nil, err
	}

	return out.Embedding, nil
}

// Layout computes a fresh layout; zero query fields use the server's configuration.
func (c *Client) Layout(ctx context.Context, query models.LayoutQuery) (*layout.Layout, error) {
	params := url.Values{}
	if query.Width > 0 {
		params.Set("width", strconv.FormatFloat(query.Width, 'f', -1, 64))
	}
	if query.Height > 0 {
		params.Set("height", strconv.FormatFloat(query.Height, 'f', -1, 64))
	}
	if query.Margin != nil {
		params.Set("margin", strconv.FormatFloat(*query.Margin, 'f', -1, 64))
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	var out layout.Layout
	if err := c.do(ctx, http.MethodGet, "/v1/layout", params, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Snapshot returns the layout last computed in the background.
func (c *Client) Snapshot(ctx context.Context) (*models.LayoutSnapshot, error) {
	var out models.LayoutSnapshot
	if err := c.do(ctx, http.MethodGet, "/v1/layout/snapshot", nil, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, in any, wantStatus int, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		body = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != wantStatus {
		return newAPIError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}

	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &problem); err == nil {
		apiErr.Title = problem.Title
		apiErr.Detail = problem.Detail
	}

	return apiErr
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
