package rail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the upstream rail backend that owns all booking state.
// It centralizes the base URL, JSON codec, bearer-token attachment and the
// mapping of upstream statuses onto the error taxonomy below.
type Client struct {
	httpClient HTTPClient
	baseURL    string
}

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

type Option func(*Client)

var (
	// ErrUnauthorized is an upstream 401; callers go through auth.Refresher
	// which retries exactly once after a token refresh.
	ErrUnauthorized = errors.New("rail: unauthorized")
	// ErrForbidden is an upstream 403; surfaced verbatim, never retried.
	ErrForbidden = errors.New("rail: forbidden")
	ErrNotFound  = errors.New("rail: not found")
	// ErrUnavailable means no usable response arrived (network failure).
	ErrUnavailable = errors.New("rail: backend unreachable")
)

// StatusError carries a non-2xx upstream status together with the message
// the backend supplied. Unwrap maps the well-known statuses onto the
// sentinels so callers can branch with errors.Is while keeping the message.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rail: upstream status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout replaces the default 15s request timeout. There is no
// automatic retry or backoff for non-auth failures.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "http://localhost:8080",
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// do runs one JSON round trip. token may be empty for anonymous requests.
// out may be nil when the response body is irrelevant.
func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, in, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		jsonBytes, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: upstreamMessage(raw)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// upstreamMessage digs the human-readable message out of an error body. The
// backend is inconsistent about the envelope key.
func upstreamMessage(raw []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
