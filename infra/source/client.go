// Package source fetches delivery records from the remote sheet endpoint.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dk0164/TMS-MONITOR/core/model"
	"github.com/dk0164/TMS-MONITOR/infra/logger"
)

// maxBody caps how much of a response is read.
const maxBody = 32 << 20

// ErrTransport wraps every failure to reach the source or to decode its
// answer.
var ErrTransport = errors.New("source unreachable")

// SourceError is an error reported by the source in its own payload.
type SourceError struct {
	Message string
}

func (e *SourceError) Error() string { return "source error: " + e.Message }

// Payload is one complete snapshot of the source.
type Payload struct {
	Records []model.Record
	Vocab   model.Vocabulary
}

type wirePayload struct {
	Items   []map[string]json.RawMessage `json:"items"`
	Filters *model.Vocabulary            `json:"filters"`
	Error   any                          `json:"error"`
}

// Authorizer decorates outgoing requests with credentials.
type Authorizer interface {
	SetAuthHeader(r *http.Request) error
}

// Client performs the GET request against the source URL.
type Client struct {
	url  string
	http *http.Client
	log  logger.Logger
	auth Authorizer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithAuthorizer authenticates every request. When the source answers 401
// and the authorizer has an Invalidate method, the cached credentials are
// dropped so the next fetch obtains fresh ones.
func WithAuthorizer(a Authorizer) Option {
	return func(cl *Client) { cl.auth = a }
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) { cl.log = l }
}

// NewClient creates a client for url.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:  url,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  logger.New("source-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client polls.
func (c *Client) URL() string { return c.url }

// Fetch retrieves the current snapshot. Source-reported errors are returned
// as *SourceError, everything else wraps ErrTransport.
func (c *Client) Fetch(ctx context.Context) (Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: create request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		if err := c.auth.SetAuthHeader(req); err != nil {
			return Payload{}, fmt.Errorf("%w: authorize: %w", ErrTransport, err)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := c.auth.(interface{ Invalidate() }); ok {
			inv.Invalidate()
		}
	}
	if resp.StatusCode != http.StatusOK {
		return Payload{}, fmt.Errorf("%w: unexpected status code %d, body: %s", ErrTransport, resp.StatusCode, snippet(body))
	}

	var w wirePayload
	if err := json.Unmarshal(body, &w); err != nil {
		return Payload{}, fmt.Errorf("%w: decode response: %w", ErrTransport, err)
	}
	if msg, ok := errorMessage(w.Error); ok {
		return Payload{}, &SourceError{Message: msg}
	}

	p := Payload{Records: make([]model.Record, 0, len(w.Items))}
	for _, item := range w.Items {
		p.Records = append(p.Records, model.RecordFromFields(item))
	}
	if w.Filters != nil {
		p.Vocab = *w.Filters
	}
	p.Vocab = p.Vocab.Normalize()
	c.log.Debugw("source fetched", map[string]any{"records": len(p.Records), "bytes": len(body)})
	return p, nil
}

// errorMessage reports whether v is a truthy error value and renders it.
func errorMessage(v any) (string, bool) {
	switch e := v.(type) {
	case nil:
		return "", false
	case string:
		return e, e != ""
	case bool:
		return "true", e
	case float64:
		return fmt.Sprint(e), e != 0
	default:
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Sprint(e), true
		}
		return string(b), true
	}
}

func snippet(b []byte) string {
	const n = 256
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
