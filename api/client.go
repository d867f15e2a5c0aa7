// Package api is the HTTP+JSON client for the FerretControl backend endpoints
// the console core depends on. Calls are never retried; callers decide what a
// failure means.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/ferretcontrol-console/internal/errors"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 1 << 20

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return errors.ErrUnauthorized
	case http.StatusNotFound:
		return errors.ErrNotFound
	default:
		return errors.ErrUnexpectedResponse
	}
}

// Client talks to the backend. The zero value is not usable; build one with NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authClient *http.Client // nil until WithTokens
	timeout    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client (its Transport is reused for authenticated calls)
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds every request; zero leaves only the caller's context in charge
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// WithTokens returns a copy of c whose authenticated calls carry a bearer token
// taken from ts on every request.
func (c *Client) WithTokens(ts oauth2.TokenSource) *Client {
	cp := *c
	cp.authClient = &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: c.httpClient.Transport},
		Timeout:   c.httpClient.Timeout,
	}
	return &cp
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ObtainToken exchanges credentials for an access/refresh pair.
// Rejected credentials are reported as errors.ErrInvalidCredentials.
func (c *Client) ObtainToken(ctx context.Context, creds Credentials) (*TokenPair, error) {
	var pair TokenPair
	if err := c.do(ctx, c.httpClient, http.MethodPost, RouteAuthToken, creds, nil, &pair); err != nil {
		return nil, credentialError(err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		return nil, fmt.Errorf("%w: token response missing access or refresh", errors.ErrUnexpectedResponse)
	}
	return &pair, nil
}

// RefreshToken exchanges a refresh token for a new access token. The backend
// may rotate the refresh token, in which case TokenPair.Refresh is set.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair TokenPair
	if err := c.do(ctx, c.httpClient, http.MethodPost, RouteAuthRefresh, refreshRequest{Refresh: refreshToken}, nil, &pair); err != nil {
		var se *StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusBadRequest) {
			return nil, fmt.Errorf("%w: %w", errors.ErrInvalidRefreshToken, err)
		}
		return nil, err
	}
	if pair.Access == "" {
		return nil, fmt.Errorf("%w: refresh response missing access", errors.ErrUnexpectedResponse)
	}
	return &pair, nil
}

// Logout tells the backend the session identified by accessToken has ended.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	tok := &oauth2.Token{AccessToken: accessToken}
	return c.do(ctx, c.httpClient, http.MethodPost, RouteAuthLogout, nil, tok, nil)
}

// UnreadCount returns the number of unread security notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp unreadCountResponse
	if err := c.doAuth(ctx, http.MethodGet, RouteNotificationsUnread, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Count == nil || *resp.Count < 0 {
		return 0, fmt.Errorf("%w: unread_count response has no valid count", errors.ErrUnexpectedResponse)
	}
	return *resp.Count, nil
}

// ListNotifications returns the caller's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context) ([]Notification, error) {
	var list []Notification
	if err := c.doAuth(ctx, http.MethodGet, RouteNotifications+"?ordering=-created_at", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) MarkRead(ctx context.Context, id int64) error {
	return c.doAuth(ctx, http.MethodPost, RouteNotificationMarkRead(id), nil, nil)
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.doAuth(ctx, http.MethodPost, RouteNotificationsReadAll, nil, nil)
}

func (c *Client) doAuth(ctx context.Context, method, path string, body, out any) error {
	if c.authClient == nil {
		return fmt.Errorf("%s %s: %w", method, path, errors.ErrNotAuthenticated)
	}
	return c.do(ctx, c.authClient, method, path, body, nil, out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body any, bearer *oauth2.Token, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != nil && bearer.AccessToken != "" {
		bearer.SetAuthHeader(req)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", errors.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %s %s: read body: %w", errors.ErrNetwork, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: decode: %w", errors.ErrUnexpectedResponse, method, path, err)
	}
	return nil
}

func credentialError(err error) error {
	var se *StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusBadRequest) {
		return fmt.Errorf("%w: %w", errors.ErrInvalidCredentials, err)
	}
	return err
}
