// Package schoolapi is the client of the remote school API.
package schoolapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
)

const maxBodySize = 4 << 20

// Error is a non-successful API response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("school api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("school api: %d %s", e.Status, e.Message)
}

// ServerMessage returns the message from the response payload, if any.
func (e *Error) ServerMessage() string { return e.Message }

// IsUnauthorized tells whether err is a 401 from the API: the token is no longer valid.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Message returns the API's message for err, or fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Observer is notified of every API call; route is the path template, eg. "/classes/{id}".
type Observer interface {
	APICall(method, route string, status int, elapsed time.Duration)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithObserver(obs Observer) Option {
	return func(c *Client) { c.observer = obs }
}

// Client calls the school API. Tokens are passed per call: the client holds no session.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   core.Logger
	observer Observer
}

func NewClient(conf *core.Config, logger core.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(conf.API.BaseURL, "/"),
		http:    &http.Client{Timeout: conf.API.Timeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type call struct {
	method string
	route  string   // path template, `{}` placeholders are replaced by args
	args   []string // path args
	query  url.Values
	token  string
	body   interface{}
}

func (c call) path() string {
	p := c.route
	for _, arg := range c.args {
		start, end := strings.Index(p, "{"), strings.Index(p, "}")
		if start < 0 || end < start {
			break
		}
		p = p[:start] + url.PathEscape(arg) + p[end+1:]
	}
	if len(c.query) > 0 {
		p += "?" + c.query.Encode()
	}
	return p
}

// do sends the call and decodes the envelope's data into out (if not nil).
func (c *Client) do(ctx context.Context, cl call, out interface{}) error {
	start := time.Now()
	status := 0
	defer func() {
		if c.observer != nil {
			c.observer.APICall(cl.method, cl.route, status, time.Since(start))
		}
	}()

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path(), body)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", cl.method, cl.route)
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return errors.Wrapf(err, "reading %s %s response", cl.method, cl.route)
	}

	// 204 replies carry no envelope
	var env envelope
	var decodeErr error
	if len(bytes.TrimSpace(raw)) > 0 {
		decodeErr = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &Error{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = env.Message
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			c.logger.Error("schoolapi: server error", apiErr, map[string]interface{}{"route": cl.route})
		}
		return apiErr
	}
	if decodeErr != nil {
		return errors.Wrapf(decodeErr, "decoding %s %s response", cl.method, cl.route)
	}
	if env.Success != nil && !*env.Success {
		return &Error{Status: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrapf(err, "decoding %s %s data", cl.method, cl.route)
	}
	return nil
}

func (c *Client) get(ctx context.Context, token, route string, out interface{}, args ...string) error {
	return c.do(ctx, call{method: http.MethodGet, route: route, args: args, token: token}, out)
}

func (c *Client) post(ctx context.Context, token, route string, body, out interface{}, args ...string) error {
	return c.do(ctx, call{method: http.MethodPost, route: route, args: args, token: token, body: body}, out)
}
