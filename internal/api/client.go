package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rb-om1999/ensofinal/internal/infra"
)

// TokenSource yields the bearer token at the moment a request is built. An
// empty string means there is no session.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource, handy for one-shot tools and tests.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Options configures the backend client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs JSON calls against the analysis backend. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Client{
		baseURL:    baseURL + "/api",
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// call describes one request. Public endpoints skip the bearer token.
type call struct {
	method   string
	path     string
	tokens   TokenSource
	public   bool
	body     any
	fallback string
}

// do sends the request and returns the raw 2xx body.
func (c *Client) do(ctx context.Context, req call) ([]byte, error) {
	var token string
	if !req.public {
		if req.tokens != nil {
			token = strings.TrimSpace(req.tokens.Token())
		}
		if token == "" {
			return nil, ErrNoSession
		}
	}

	var reader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			c.logger.Warn().Str("path", req.path).Dur("elapsed", time.Since(start)).Msg("api: request timed out")
			return nil, &Error{Kind: KindTimeout, Message: "the request timed out, please try again"}
		}
		c.logger.Warn().Err(err).Str("path", req.path).Msg("api: request failed")
		return nil, &Error{Kind: KindBackend, Message: req.fallback, err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &Error{Kind: KindTimeout, Status: resp.StatusCode, Message: "the request timed out, please try again"}
		}
		return nil, fmt.Errorf("api: read response: %w", err)
	}

	c.logger.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api: backend call")

	if resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, raw, req.fallback, req.public)
	}
	return raw, nil
}

// doJSON sends the request and decodes a 2xx body into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, req call, out any) error {
	raw, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if apiErr := bodyError(http.StatusOK, raw); apiErr != nil {
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
