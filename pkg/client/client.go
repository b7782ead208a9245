// Package client is a typed client for the coupon scheduler API. Every call
// authenticates with the Session it was built with; a 401 clears it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "coupon-scheduler/pkg/errors"
	"coupon-scheduler/pkg/validation"
)

// Polling intervals used by dashboards built on this client.
const (
	BannerInterval = time.Minute
	ListInterval   = 5 * time.Minute
)

// ErrNetworkOrServer is matched by transport failures and 5xx responses.
var ErrNetworkOrServer = errors.New("network or server error")

// APIError is a non-2xx response that is neither 401 nor 422.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api error: %d %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode >= 500 {
		return ErrNetworkOrServer
	}
	return nil
}

// Client calls the API under baseURL.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

type Option func(*Client)

// WithHTTPClient replaces the default client with a 15 second timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, session *Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		session: session,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session { return c.session }

type envelope struct {
	Status  string                `json:"status"`
	Message string                `json:"message"`
	Data    json.RawMessage       `json:"data"`
	Errors  apperrors.FieldErrors `json:"errors"`
}

// do sends body as JSON and decodes the envelope's data into out. Request
// bodies are validated locally first.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		if err := validation.Struct(body); err != nil {
			return err
		}
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	u := c.baseURL + "/api" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNetworkOrServer, method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.session.Clear()
		return fmt.Errorf("%w: %s", apperrors.ErrAuthExpired, env.Message)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return &apperrors.ValidationError{Fields: env.Errors}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if decodeErr != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrNetworkOrServer, method, path, decodeErr)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}
