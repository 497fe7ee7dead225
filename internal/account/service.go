package account

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service exposes the account store over HTTP: login and register for
// clients, validate for the table server's auth callback.
type Service struct {
	store  *Store
	logger *log.Logger
}

// NewService creates the HTTP account service.
func NewService(store *Store, logger *log.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.WithPrefix("account"),
	}
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Chips int    `json:"chips"`
}

type grantResponse struct {
	Token string       `json:"token,omitempty"`
	User  userResponse `json:"user"`
}

type validateRequest struct {
	Token string `json:"token"`
}

type saveChipsRequest struct {
	PlayerID string `json:"player_id"`
	Chips    int    `json:"chips"`
}

type validateResponse struct {
	Valid    bool   `json:"valid"`
	PlayerID string `json:"player_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Chips    int    `json:"chips,omitempty"`
}

// Router builds the chi router for the service.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/validate", s.handleValidate)
	r.Post("/chips", s.handleSaveChips)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	acct, token, err := s.store.Register(creds.Name, creds.Password)
	if errors.Is(err, ErrNameTaken) {
		// The name exists: respond without a token so the caller falls back
		// to the login flow.
		s.logger.Info("Register for existing name", "name", creds.Name)
		writeJSON(w, http.StatusOK, grantResponse{User: userResponse{Name: creds.Name}})
		return
	}
	if errors.Is(err, ErrBadCredentials) {
		s.unauthorized(w)
		return
	}
	if err != nil {
		s.internalError(w, "register", err)
		return
	}

	s.logger.Info("Account registered", "name", acct.Name, "id", acct.ID)
	writeJSON(w, http.StatusCreated, grantResponse{
		Token: token,
		User:  userResponse{ID: acct.ID, Name: acct.Name, Chips: acct.Chips},
	})
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	acct, token, err := s.store.Authenticate(creds.Name, creds.Password)
	if errors.Is(err, ErrBadCredentials) {
		s.unauthorized(w)
		return
	}
	if err != nil {
		s.internalError(w, "login", err)
		return
	}

	s.logger.Info("Login", "name", acct.Name, "id", acct.ID)
	writeJSON(w, http.StatusOK, grantResponse{
		Token: token,
		User:  userResponse{ID: acct.ID, Name: acct.Name, Chips: acct.Chips},
	})
}

func (s *Service) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false})
		return
	}

	acct, err := s.store.ByToken(req.Token)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false})
		return
	}
	if err != nil {
		s.internalError(w, "validate", err)
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Valid:    true,
		PlayerID: acct.ID,
		Name:     acct.Name,
		Chips:    acct.Chips,
	})
}

// handleSaveChips writes a settled balance back for the table server. The
// balance is absolute, so retries and duplicate writes are harmless.
func (s *Service) handleSaveChips(w http.ResponseWriter, r *http.Request) {
	var req saveChipsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}
	if req.PlayerID == "" || req.Chips < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	err := s.store.SaveChips(req.PlayerID, req.Chips)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown account"})
		return
	}
	if err != nil {
		s.internalError(w, "save chips", err)
		return
	}

	s.logger.Info("Chips saved", "id", req.PlayerID, "chips", req.Chips)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var creds credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&creds); err != nil {
		s.unauthorized(w)
		return creds, false
	}
	if creds.Name == "" || creds.Password == "" {
		s.unauthorized(w)
		return creds, false
	}
	return creds, true
}

// unauthorized is the single opaque failure response: callers cannot tell
// bad credentials from anything else.
func (s *Service) unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication failed"})
}

func (s *Service) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("Request failed", "op", op, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
