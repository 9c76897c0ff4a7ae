// Package apiclient is the single gateway to the booking REST API. Every
// call goes through one request interceptor (bearer header from the
// browser's Token Store) and one response interceptor (401 clears the store
// and reports ErrUnauthenticated; everything else surfaces unchanged).
package apiclient

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
	"unicode/utf8"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/session"
	"github.com/rs/zerolog/log"
)

// TokenSource supplies the bearer token and is cleared on a 401
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context, reason session.ClearReason) error
}

// UnauthorizedFunc is called after a 401 cleared the token source
type UnauthorizedFunc func(ctx context.Context, method, path string)

// APIError is a non-401 rejection from the API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed (status %d)", e.Status)
}

// ServerFault reports a 5xx, which is shown as a generic failure
func (e *APIError) ServerFault() bool {
	return e.Status >= http.StatusInternalServerError
}

// ErrNetwork wraps transport failures (refused, timeout, DNS)
var ErrNetwork = errors.New("network failure")

// Client handles HTTP communication with the booking API
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized UnauthorizedFunc
}

// New creates a client for baseURL, which already includes any /api prefix
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithHTTPClient swaps the transport, mostly for tests
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	cp.httpClient = hc
	return &cp
}

// OnUnauthorized installs a hook run after every 401
func (c *Client) OnUnauthorized(fn UnauthorizedFunc) {
	c.onUnauthorized = fn
}

// ForSession returns a copy of the client bound to one browser's tokens
func (c *Client) ForSession(tokens TokenSource) *Client {
	cp := *c
	cp.tokens = tokens
	return &cp
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observeCall(method, "error", start)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrNetwork, err)
	}
	defer resp.Body.Close()
	observeCall(method, statusLabel(resp.StatusCode), start)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrNetwork, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(ctx, method, path)
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrUnauthenticated)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: extractMessage(data)}
		log.Debug().
			Str("component", "apiclient").
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg(apiErr.Error())
		return apiErr
	}

	return decodeBody(data, out)
}

// newRequest is the request interceptor
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var (
		reader      io.Reader
		contentType = "application/json"
	)

	switch b := body.(type) {
	case nil:
	case *Multipart:
		buf, ct, err := b.encode()
		if err != nil {
			return nil, fmt.Errorf("failed to encode form: %w", err)
		}
		reader, contentType = buf, ct
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read session token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) handleUnauthorized(ctx context.Context, method, path string) {
	unauthorizedTotal.Inc()
	log.Warn().
		Str("component", "apiclient").
		Str("method", method).
		Str("path", path).
		Msg("API rejected credentials, clearing session")

	if c.tokens != nil {
		if err := c.tokens.Clear(context.WithoutCancel(ctx), session.ReasonUnauthorized); err != nil {
			log.Error().Err(err).Str("component", "apiclient").Msg("Failed to clear session after 401")
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx, method, path)
	}
}

// maxMessageRunes caps plain-text error bodies shown to the user
const maxMessageRunes = 300

// extractMessage pulls the server's explanation out of an error body
func extractMessage(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(trimmed, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		return payload.Error
	}

	if trimmed[0] == '<' {
		return ""
	}
	msg := string(trimmed)
	if utf8.RuneCountInString(msg) > maxMessageRunes {
		msg = string([]rune(msg)[:maxMessageRunes])
	}
	return msg
}

func decodeBody(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if s, ok := out.(*string); ok {
		if json.Unmarshal(data, s) != nil {
			*s = string(data)
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
