// Package client provides an HTTP client for the chunking API served by
// rice-chunk serve.
package client

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

	"github.com/ricesearch/rice-chunker/internal/chunk"
	apperrors "github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// Client is an HTTP client for the chunking API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config configures the client.
type Config struct {
	// BaseURL is the base URL of the API server.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// MaxIdleConns controls the maximum number of idle (keep-alive) connections
	// across all hosts. Zero means no limit.
	MaxIdleConns int

	// MaxConnsPerHost limits the total number of connections per host.
	// Zero means no limit.
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle (keep-alive)
	// connection will remain idle before closing itself.
	IdleConnTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:8080",
		Timeout:         30 * time.Second,
		MaxIdleConns:    100,
		MaxConnsPerHost: 100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// New creates a new API client. Zero fields of cfg take their defaults.
func New(cfg Config) *Client {
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = defaults.MaxIdleConns
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = defaults.MaxConnsPerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = defaults.IdleConnTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ChunkRequest is the body of POST /v1/chunk. Nil overrides keep the
// server's configuration.
type ChunkRequest struct {
	Text             string  `json:"text"`
	Language         string  `json:"language,omitempty"`
	Path             string  `json:"path,omitempty"`
	FileID           string  `json:"file_id,omitempty"`
	MaxChunkSize     *int    `json:"max_chunk_size,omitempty"`
	ChunkOverlap     *int    `json:"chunk_overlap,omitempty"`
	MetadataTemplate *string `json:"metadata_template,omitempty"`
}

// ChunkResponse is the result of a chunk call.
type ChunkResponse struct {
	FileID   string        `json:"file_id"`
	Language string        `json:"language"`
	Count    int           `json:"count"`
	Chunks   []chunk.Chunk `json:"chunks"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Health checks if the API is healthy.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/healthz", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Languages returns the languages the server can chunk.
func (c *Client) Languages(ctx context.Context) ([]string, error) {
	var resp struct {
		Languages []string `json:"languages"`
	}
	if err := c.get(ctx, "/v1/languages", &resp); err != nil {
		return nil, err
	}
	return resp.Languages, nil
}

// Chunk chunks one document on the server.
func (c *Client) Chunk(ctx context.Context, req ChunkRequest) (*ChunkResponse, error) {
	var resp ChunkResponse
	if err := c.post(ctx, "/v1/chunk", req, &resp); err != nil {
		return nil, err
	}
	if resp.Chunks == nil {
		resp.Chunks = []chunk.Chunk{}
	}
	return &resp, nil
}

// get performs a GET request.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, result)
}

// post performs a POST request.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req, result)
}

// do executes a request. Error responses come back as *errors.AppError with
// the server's code, so callers classify remote and local failures alike.
func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		appErr := apperrors.ServiceUnavailableError(c.baseURL)
		appErr.Err = err
		return appErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

func decodeError(status int, body []byte) error {
	var er apperrors.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Code == "" {
		return apperrors.New(apperrors.CodeInternal, fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body)))).
			WithDetail("status", strconv.Itoa(status))
	}
	msg := er.Message
	if msg == "" {
		msg = er.Error
	}
	appErr := apperrors.New(er.Code, msg).WithDetails(er.Details)
	return appErr.WithDetail("status", strconv.Itoa(status))
}
