package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client talks to the scraper backend's auth endpoints.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates an auth client for the backend base URL.
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the register request body.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the backend's auth payload: a bearer token plus the user
// fields inlined.
type authResponse struct {
	Token    string `json:"token"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// ErrUnauthorized is returned for rejected credentials.
var ErrUnauthorized = fmt.Errorf("auth: unauthorized")

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	return c.post(ctx, "/api/auth/login", creds)
}

// Register creates a backend account and returns its initial session.
func (c *Client) Register(ctx context.Context, reg Registration) (Session, error) {
	return c.post(ctx, "/api/auth/register", reg)
}

func (c *Client) post(ctx context.Context, path string, body any) (Session, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return Session{}, fmt.Errorf("auth: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(buf))
	if err != nil {
		return Session{}, fmt.Errorf("auth: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("auth: %s: %w", path, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return Session{}, ErrUnauthorized
	case res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated:
		return Session{}, fmt.Errorf("auth: %s: unexpected status %d", path, res.StatusCode)
	}

	var payload authResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return Session{}, fmt.Errorf("auth: decode response: %w", err)
	}
	if payload.Token == "" {
		return Session{}, fmt.Errorf("auth: backend returned no token")
	}

	return Session{
		User: User{
			ID:       payload.ID,
			Username: payload.Username,
			Email:    payload.Email,
			Role:     payload.Role,
		},
		Token: payload.Token,
	}, nil
}
