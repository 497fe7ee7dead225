package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPValidator_ValidToken(t *testing.T) {
	// Mock account service
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req validateRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Token == "valid-token" {
			json.NewEncoder(w).Encode(validateResponse{
				Valid:    true,
				PlayerID: "player-123",
				Name:     "dealer-buster",
				Chips:    10000,
			})
		} else {
			json.NewEncoder(w).Encode(validateResponse{Valid: false})
		}
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL)

	identity, err := validator.Validate(context.Background(), "valid-token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity.PlayerID != "player-123" {
		t.Errorf("expected player-123, got %s", identity.PlayerID)
	}
	if identity.Name != "dealer-buster" {
		t.Errorf("expected dealer-buster, got %s", identity.Name)
	}
	if identity.Chips != 10000 {
		t.Errorf("expected 10000 chips, got %d", identity.Chips)
	}
}

func TestHTTPValidator_InvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(validateResponse{Valid: false})
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL)
	_, err := validator.Validate(context.Background(), "invalid-token")

	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHTTPValidator_EmptyToken(t *testing.T) {
	validator := NewHTTPValidator("http://localhost:9999")
	_, err := validator.Validate(context.Background(), "")

	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestHTTPValidator_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrInvalidToken},
		{"forbidden", http.StatusForbidden, ErrInvalidToken},
		{"rate limited", http.StatusTooManyRequests, ErrUnavailable},
		{"server error", http.StatusInternalServerError, ErrUnavailable},
		{"bad gateway", http.StatusBadGateway, ErrUnavailable},
		{"service unavailable", http.StatusServiceUnavailable, ErrUnavailable},
		{"unexpected", http.StatusTeapot, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			validator := NewHTTPValidator(server.URL)
			_, err := validator.Validate(context.Background(), "token")

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestHTTPValidator_Unreachable(t *testing.T) {
	validator := NewHTTPValidator("http://127.0.0.1:1")
	_, err := validator.Validate(context.Background(), "some-token")

	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for unreachable host, got %v", err)
	}
}

func TestHTTPValidator_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL)
	_, err := validator.Validate(context.Background(), "some-token")

	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for timeout, got %v", err)
	}
}

func TestNoopValidator(t *testing.T) {
	validator := NewNoopValidator()
	identity, err := validator.Validate(context.Background(), "anything")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity != nil {
		t.Errorf("expected nil identity from noop validator, got %+v", identity)
	}
}
