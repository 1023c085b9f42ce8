package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal"
)

const maxResponseBytes = 4 << 20

// Observer receives one callback per upstream round trip.
type Observer interface {
	ObserveUpstream(service, method string, status int, duration time.Duration, err error)
}

type Config struct {
	Name    string
	BaseURL string
	Timeout time.Duration
}

// Client talks JSON to one external collaborator and attaches the caller's
// bearer credential to every request.
type Client struct {
	name       string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

func NewClient(config Config, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	client := &Client{
		name:       config.Name,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		timeout:    config.Timeout,
		httpClient: &http.Client{},
		logger:     logger.With("upstream", config.Name),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *Client) Name() string {
	return c.name
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Body)
}

// Message returns the human readable reason carried by the body. JSON bodies
// are searched for detail, error and message fields in that order.
func (e *StatusError) Message() string {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if msg, ok := payload[key].(string); ok && msg != "" {
				return msg
			}
		}
	}
	if e.Body != "" {
		return e.Body
	}
	return http.StatusText(e.Status)
}

// TransportError covers failures where no usable answer came back: dial
// errors, deadlines and undecodable bodies.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// DoJSON encodes in (when not nil) and decodes the response into out (when not nil).
func (c *Client) DoJSON(ctx context.Context, method, path, bearer string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", c.name, err)
		}
		body = bytes.NewReader(jsonData)
		contentType = "application/json"
	}
	return c.Do(ctx, method, path, bearer, contentType, body, out)
}

func (c *Client) Do(ctx context.Context, method, path, bearer, contentType string, body io.Reader, out interface{}) error {
	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", c.name, err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if traceID := internal.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		terr := &TransportError{Service: c.name, Err: err}
		c.observe(method, 0, start, terr)
		c.logger.WarnContext(ctx, "upstream request failed", "method", method, "path", path, "error", err)
		return terr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		terr := &TransportError{Service: c.name, Err: fmt.Errorf("read body: %w", err)}
		c.observe(method, resp.StatusCode, start, terr)
		return terr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Service: c.name, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		c.observe(method, resp.StatusCode, start, serr)
		c.logger.InfoContext(ctx, "upstream returned non-success status",
			"method", method,
			"path", path,
			"status_code", resp.StatusCode)
		return serr
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			terr := &TransportError{Service: c.name, Err: fmt.Errorf("decode response: %w", err)}
			c.observe(method, resp.StatusCode, start, terr)
			return terr
		}
	}

	c.observe(method, resp.StatusCode, start, nil)
	c.logger.DebugContext(ctx, "upstream request completed",
		"method", method,
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

func (c *Client) observe(method string, status int, start time.Time, err error) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(c.name, method, status, time.Since(start), err)
}
