package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrAuthenticationFailed is the opaque failure surfaced for any login
	// or register problem. Invalid credentials, network failures and server
	// errors are deliberately indistinguishable to the caller.
	ErrAuthenticationFailed = errors.New("auth: authentication failed")

	// ErrLoginRequired indicates registration succeeded but no session token
	// was issued; the caller should fall back to the login flow.
	ErrLoginRequired = errors.New("auth: login required")
)

// User is the profile returned alongside a session token.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Chips int    `json:"chips"`
}

// Grant is a successful authentication: a session token plus the user it
// belongs to.
type Grant struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Credentials are what the login form collects.
type Credentials struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Client talks to the account service's login and register endpoints.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an authentication client for the account service at
// baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Login exchanges credentials for a session token and user profile.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Grant, error) {
	grant, err := c.post(ctx, c.baseURL+"/login", creds)
	if err != nil {
		return nil, err
	}
	if grant.Token == "" {
		return nil, ErrAuthenticationFailed
	}
	return grant, nil
}

// Register creates an account. A response without a token means the account
// exists but the caller must log in; that is surfaced as ErrLoginRequired.
func (c *Client) Register(ctx context.Context, creds Credentials) (*Grant, error) {
	grant, err := c.post(ctx, c.baseURL+"/register", creds)
	if err != nil {
		return nil, err
	}
	if grant.Token == "" {
		return grant, ErrLoginRequired
	}
	return grant, nil
}

func (c *Client) post(ctx context.Context, url string, creds Credentials) (*Grant, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		// All failure modes collapse into one opaque error.
		return nil, ErrAuthenticationFailed
	}

	var grant Grant
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&grant); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return &grant, nil
}
