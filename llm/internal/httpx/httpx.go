// Package httpx carries the HTTP plumbing shared by the hand-rolled vendor
// adapters: client construction with the configured timeout, transport-error
// classification, and server-sent-event line scanning. Vendor packages keep
// their own request shapes, frame prefixes, and error-body parsing.
package httpx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/omnillm/omnillm/llm"
)

const maxSSELineBytes = 1024 * 1024

// Client wraps two http.Clients owned by one adapter instance: one with an
// overall deadline for unary calls, and one without it for streaming, where
// only the connection and response-header phases are bounded.
type Client struct {
	provider string
	timeout  time.Duration
	call     *http.Client
	stream   *http.Client
}

// NewClient builds the transport pair for an adapter. Close must be called
// when the adapter is released.
func NewClient(provider string, timeout time.Duration) *Client {
	transport := newTransport(timeout)
	return &Client{
		provider: provider,
		timeout:  timeout,
		call:     &http.Client{Transport: transport, Timeout: timeout},
		stream:   &http.Client{Transport: transport},
	}
}

func newTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}
}

// SDKClient returns an http.Client for vendor SDK transports that serve both
// unary and streaming calls. The dial, TLS, and response-header phases are
// bounded by timeout; there is no overall deadline, so long streams survive.
func SDKClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: newTransport(timeout)}
}

// Close releases idle connections held by the transports.
func (c *Client) Close() error {
	c.call.CloseIdleConnections()
	return nil
}

// PostJSON issues a unary JSON POST and returns the raw response. Transport
// failures are classified into the timeout/network error kinds; HTTP status
// handling is left to the caller.
func (c *Client) PostJSON(ctx context.Context, url, apiKey string, payload any) (*http.Response, error) {
	return c.post(ctx, c.call, url, apiKey, nil, payload)
}

// PostStream issues a streaming JSON POST using the deadline-free client.
// The caller owns the response body and must close it.
func (c *Client) PostStream(ctx context.Context, url, apiKey string, headers map[string]string, payload any) (*http.Response, error) {
	return c.post(ctx, c.stream, url, apiKey, headers, payload)
}

func (c *Client) post(ctx context.Context, hc *http.Client, url, apiKey string, headers map[string]string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, llm.NewAPIError(c.provider, "failed to encode request body: "+err.Error(), 0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewNetworkError(c.provider, err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, c.ClassifyTransportError(err)
	}
	return resp, nil
}

// ClassifyTransportError maps a transport-level failure to the timeout or
// network error kind.
func (c *Client) ClassifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError(c.provider, c.timeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return llm.NewTimeoutError(c.provider, c.timeout, err)
	}
	return llm.NewNetworkError(c.provider, err)
}

// NewLineScanner returns a scanner sized for SSE frames.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxSSELineBytes)
	return sc
}

// RetryAfter parses a Retry-After response header into a duration. Both the
// seconds form and the HTTP-date form are supported.
func RetryAfter(h http.Header) *time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		return &d
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return &d
	}
	return nil
}
