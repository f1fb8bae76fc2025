// Package client is a small HTTP client for the user directory API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"userhub/internal/errors"
	"userhub/internal/handler"
	"userhub/internal/limiter"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response decoded from the standard error body.
type APIError struct {
	Status int
	Code   string
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Msg)
}

// UserItem is one listing entry. Email is empty on the authenticated projection.
type UserItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// UserPage is one page of the user listing.
type UserPage struct {
	Items      []UserItem `json:"items"`
	Total      int64      `json:"total"`
	TotalPages int64      `json:"totalPages"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
}

// Client talks to the API. After Login it sends the bearer token on every call.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New returns a client for baseURL. A nil httpClient gets a default with a timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Token returns the bearer token obtained by Login.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*handler.LoginResponse, error) {
	var resp handler.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", handler.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return &resp, nil
}

// Me returns the identity carried by the current token.
func (c *Client) Me(ctx context.Context) (*handler.MeResponse, error) {
	var resp handler.MeResponse
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUsers fetches one page of users. Zero values use the server defaults.
func (c *Client) ListUsers(ctx context.Context, page, pageSize int) (*UserPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	path := "/api/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp UserPage
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUsersBounded fetches the given pages through l, never holding more than
// l.Size() requests in flight. Results follow the order of pages.
func (c *Client) ListUsersBounded(ctx context.Context, l *limiter.Limiter, pages []int, pageSize int) ([]*UserPage, error) {
	tasks := make([]limiter.Task[*UserPage], len(pages))
	for i, page := range pages {
		tasks[i] = func(ctx context.Context) (*UserPage, error) {
			return c.ListUsers(ctx, page, pageSize)
		}
	}
	return limiter.All(ctx, l, tasks)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var er errors.ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			apiErr.Code = er.Code
			apiErr.Msg = er.Error
		} else {
			apiErr.Msg = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
