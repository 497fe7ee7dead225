// Package auth provides external authentication for table connections: a
// client for the account service's login/register endpoints and a token
// validator the table server calls back with.
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
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service is unreachable or unavailable.
	// Callers may choose to fail open (allow) or fail closed (reject).
	ErrUnavailable = errors.New("auth: unavailable")
)

// Identity represents an authenticated player's identity.
type Identity struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Chips    int    `json:"chips"`
}

// Validator validates authentication tokens.
type Validator interface {
	// Validate checks if a token is valid and returns the player identity.
	// Returns:
	//   - (*Identity, nil) if token is valid
	//   - (nil, ErrInvalidToken) if token is definitively invalid
	//   - (nil, ErrUnavailable) if auth service is unavailable
	//   - (nil, nil) if auth is disabled (NoopValidator only)
	Validate(ctx context.Context, token string) (*Identity, error)
}

// Saver writes settled chip balances back to the account service.
type Saver interface {
	// SaveChips persists an absolute balance for an account. Returns
	// ErrUnavailable when the service cannot be reached.
	SaveChips(ctx context.Context, playerID string, chips int) error
}

// HTTPValidator validates tokens via HTTP callback to the account service.
type HTTPValidator struct {
	url    string
	client *http.Client
}

// NewHTTPValidator creates a validator that calls an external HTTP endpoint.
func NewHTTPValidator(url string) *HTTPValidator {
	return &HTTPValidator{
		url: url,
		client: &http.Client{
			Timeout: 500 * time.Millisecond, // Align with context timeout
		},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid    bool   `json:"valid"`
	PlayerID string `json:"player_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Chips    int    `json:"chips,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	// Empty token is invalid when auth is enabled
	if token == "" {
		return nil, ErrInvalidToken
	}

	// Apply timeout via context
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	reqBody, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		// Network errors, timeouts, etc. = unavailable
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Success - decode response
	case http.StatusUnauthorized, http.StatusForbidden:
		// Definitive rejection
		return nil, ErrInvalidToken
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable:
		// Service issues
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		// Treat unexpected status as unavailable
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	// Limit response body to 1MB to avoid pathological responses
	limitedReader := io.LimitReader(resp.Body, 1<<20)

	var authResp validateResponse
	if err := json.NewDecoder(limitedReader).Decode(&authResp); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}

	if !authResp.Valid {
		return nil, ErrInvalidToken
	}

	return &Identity{
		PlayerID: authResp.PlayerID,
		Name:     authResp.Name,
		Chips:    authResp.Chips,
	}, nil
}

// HTTPSaver persists balances via HTTP callback to the account service.
type HTTPSaver struct {
	url    string
	client *http.Client
}

// NewHTTPSaver creates a saver that posts balances to an external HTTP
// endpoint.
func NewHTTPSaver(url string) *HTTPSaver {
	return &HTTPSaver{
		url: url,
		client: &http.Client{
			Timeout: 500 * time.Millisecond, // Align with context timeout
		},
	}
}

type saveChipsRequest struct {
	PlayerID string `json:"player_id"`
	Chips    int    `json:"chips"`
}

func (s *HTTPSaver) SaveChips(ctx context.Context, playerID string, chips int) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	reqBody, err := json.Marshal(saveChipsRequest{PlayerID: playerID, Chips: chips})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("save chips: unknown account %s", playerID)
	default:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
}

// NoopValidator allows all connections without validation (dev mode).
// Players get a fresh session with the standard starting balance.
type NoopValidator struct{}

// NewNoopValidator creates a validator that allows all connections.
func NewNoopValidator() *NoopValidator {
	return &NoopValidator{}
}

func (v *NoopValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	// No authentication - allow all connections
	return nil, nil
}
