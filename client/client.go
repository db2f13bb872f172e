// Package client provides an HTTP client for the OpenGPTs backend API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/identity"
	"github.com/xiaot623/gptchat/logging"
)

// Client is an HTTP client for the backend API. Every request carries the
// bearer token of the session the client was created with.
type Client struct {
	baseURL      string
	session      identity.Session
	httpClient   *http.Client
	streamClient *http.Client
	logger       *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the client used for both plain and streaming calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.streamClient = hc
	}
}

// WithStreamTimeout sets the timeout of streaming calls.
func WithStreamTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.streamClient = &http.Client{Timeout: timeout}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logging.OrNop(logger)
	}
}

// NewClient creates a new backend client.
func NewClient(baseURL string, session identity.Session, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		session: session,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		streamClient: &http.Client{
			Timeout: 5 * time.Minute, // Long timeout for streaming
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the identity the client authenticates with.
func (c *Client) Session() identity.Session {
	return c.session
}

// StatusError is returned when the backend answers with a non-success status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// errorResponse is the FastAPI error body.
type errorResponse struct {
	Detail interface{} `json:"detail"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.session.AuthorizationHeader())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends a request and returns the response body of a 2xx answer.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response of %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp, respBody)
	}
	return respBody, nil
}

// doJSON sends a request and decodes a 2xx answer into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	respBody, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
	}
	return nil
}

func statusError(resp *http.Response, body []byte) *StatusError {
	se := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(body))}
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail != nil {
		if s, ok := errResp.Detail.(string); ok {
			se.Body = s
		}
	}
	return se
}
