package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Request describes one logical API call. Params are opaque to the pipeline;
// the filter DSL and entity schema live above this layer.
type Request struct {
	Method string
	Path   string
	Params url.Values
	Header http.Header
}

// Response is the decoded-enough wire response: status, headers, raw body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs a single attempt of a wire request. The pipeline calls
// Send exactly once per attempt; retry, breaker, and queue orchestration all
// live above it.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport is the default Transport over net/http. Connection pooling
// and TLS are net/http's problem, not ours.
type HTTPTransport struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewHTTPTransport creates a transport for the API at baseURL.
func NewHTTPTransport(baseURL, userAgent string) *HTTPTransport {
	return &HTTPTransport{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (t *HTTPTransport) SetHTTPClient(c *http.Client) {
	t.httpClient = c
}

// Send performs one HTTP attempt and classifies the outcome. Statuses >= 400
// are returned as *APIError; 429 carries the parsed Retry-After delay.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	u := t.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Params) > 0 {
		u += "?" + req.Params.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for name, vals := range req.Header {
		httpReq.Header[name] = vals
	}
	httpReq.Header.Set("User-Agent", t.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		class := ClassNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			class = ClassTimeout
		}
		return nil, &APIError{
			Class:   class,
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{
			Class:   ClassNetwork,
			Message: "read response body",
			Err:     err,
		}
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      classForStatus(resp.StatusCode),
			Message:    resp.Status,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// parseRetryAfter parses a Retry-After header value, supporting both
// delay-seconds and HTTP-date formats. Delays are capped at one hour.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds <= 0 {
			return 0
		}
		delay := time.Duration(seconds) * time.Second
		if delay > time.Hour {
			delay = time.Hour
		}
		return delay
	}

	if at, err := http.ParseTime(value); err == nil {
		delay := time.Until(at)
		if delay > 0 && delay <= time.Hour {
			return delay
		}
	}

	return 0
}
