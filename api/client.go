package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	apiPrefix      = "/api"
	defaultTimeout = 10 * time.Second

	// maxResponseBytes caps how much of a response body is read
	maxResponseBytes = 10 << 20
)

var (
	statusOK      = []int{http.StatusOK}
	statusCreated = []int{http.StatusOK, http.StatusCreated}
)

// TokenSource supplies the bearer token at call time
type TokenSource interface {
	Token() (string, bool)
}

// Client applies the request convention shared by every resource client.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new client for the backend at baseURL
func NewClient(baseURL string, tokens TokenSource, logger zerolog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: malformed base URL %q", ErrInvalidConfig, baseURL)
	}
	if tokens == nil {
		return nil, fmt.Errorf("%w: token source is required", ErrInvalidConfig)
	}

	options := clientOptions{
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.timeout}
	}

	return &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// BaseURL returns the backend root the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call describes one request
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	// auth attaches the session token
	auth bool
	// token overrides the session token when non-empty
	token    string
	accept   []int
	fallback string
}

// do sends the request and decodes an accepted response into dest.
// It blocks the calling goroutine until ctx ends or the client timeout passes.
func (c *Client) do(ctx context.Context, cl call, dest any) error {
	target := c.baseURL + apiPrefix + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return &TransportError{Message: "failed to encode request body", Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return &TransportError{Message: "failed to create request", Err: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.auth {
		token := cl.token
		if token == "" {
			token, _ = c.tokens.Token()
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &TransportError{Message: "request cancelled", Err: err}
		}
		return &TransportError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Message: "failed to read response body", Err: err}
	}

	c.logger.Debug().
		Str("method", cl.method).
		Str("path", cl.path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("duration", time.Since(start)).
		Msg("Backend request completed")

	accept := cl.accept
	if len(accept) == 0 {
		accept = statusOK
	}
	if !slices.Contains(accept, resp.StatusCode) {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    ExtractMessage(data, cl.fallback),
			Body:       string(data),
		}
	}

	if dest == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return &TransportError{Message: "failed to parse response", Err: err}
	}
	return nil
}
