// Package http provides HTTP handlers exposing the authentication core to
// the UI layer and other data-consuming modules.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/finnova/finnova/internal/face"
	"github.com/finnova/finnova/internal/models"
	"github.com/finnova/finnova/internal/registry"
	"github.com/finnova/finnova/internal/session"
)

// AccountService defines the registry operations required by the HTTP
// handlers, on top of the view that authentication attempts consume.
type AccountService interface {
	session.Accounts
	// Register creates a new account with the supplied credentials.
	Register(username, password string, encoding []float64) error
	// UpdatePassword replaces the stored password digest for username.
	UpdatePassword(username, newPassword string) error
	// AuthMethods returns the methods available to username, empty if unknown.
	AuthMethods(username string) []models.AuthMethod
}

// AuthHandler handles HTTP requests for registration and login.
type AuthHandler struct {
	// Accounts performs the underlying account operations.
	Accounts AccountService
	// Matcher supplies the embedding tolerances for login attempts.
	Matcher *face.Matcher
	// Log records attempt outcomes.
	Log *zap.Logger
}

// RegisterRequest represents the JSON payload for user registration.
type RegisterRequest struct {
	// Username is the account name to register.
	Username string `json:"username"`
	// Password enables password authentication when non-empty.
	Password string `json:"password,omitempty"`
	// FaceEncoding enables face authentication when present; it must be
	// exactly 128 numbers.
	FaceEncoding []float64 `json:"face_encoding,omitempty"`
}

// LoginRequest represents the JSON payload for a login attempt.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// FaceEncoding, when present, is verified as a second factor against
	// the account's stored encoding.
	FaceEncoding []float64 `json:"face_encoding,omitempty"`
}

// FaceLoginRequest represents the JSON payload for a username-less
// biometric login.
type FaceLoginRequest struct {
	FaceEncoding []float64 `json:"face_encoding"`
}

// ChangePasswordRequest represents the JSON payload for a password change.
type ChangePasswordRequest struct {
	Username string `json:"username"`
	// OldPassword is verified when non-empty; the reset flow sends it empty.
	OldPassword string `json:"old_password,omitempty"`
	NewPassword string `json:"new_password"`
}

// Register handles account registration requests. Validation and
// uniqueness failures map to distinct statuses so the UI can show a
// specific message per failure kind.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	err := h.Accounts.Register(req.Username, req.Password, req.FaceEncoding)
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrEmptyUsername),
		errors.Is(err, registry.ErrNoAuthMethod),
		errors.Is(err, registry.ErrInvalidEmbedding):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, registry.ErrDuplicateUsername),
		errors.Is(err, registry.ErrDuplicateFace):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	default:
		http.Error(w, "failed to save user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"user":    req.Username,
		"methods": h.Accounts.AuthMethods(req.Username),
	})
}

// Login handles password login, optionally followed by a face second
// factor when the request carries an encoding.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	attempt := session.NewAttempt(h.Accounts, h.Matcher, h.Log)
	state, err := attempt.CheckPassword(req.Username, req.Password)
	if err == nil && state == session.StateCredentialsChecked {
		if req.FaceEncoding != nil {
			state, err = attempt.CheckFace(req.FaceEncoding)
		} else {
			state, err = attempt.Complete()
		}
	}
	if errors.Is(err, session.ErrInvalidProbe) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeAttemptResult(w, attempt, state)
}

// LoginFace handles a username-less biometric login: the probe is resolved
// against every enrolled template.
func (h *AuthHandler) LoginFace(w http.ResponseWriter, r *http.Request) {
	var req FaceLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FaceEncoding == nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	attempt := session.NewAttempt(h.Accounts, h.Matcher, h.Log)
	state, err := attempt.IdentifyFace(req.FaceEncoding)
	if errors.Is(err, session.ErrInvalidProbe) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeAttemptResult(w, attempt, state)
}

// ChangePassword handles password changes. The old password is verified
// when supplied; the UI's reset dialog sends it empty.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.NewPassword == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if req.OldPassword != "" && !h.Accounts.VerifyPassword(req.Username, req.OldPassword) {
		writeReason(w, http.StatusUnauthorized, session.ReasonInvalidCredentials)
		return
	}

	err := h.Accounts.UpdatePassword(req.Username, req.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrUnknownUser):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	default:
		http.Error(w, "failed to save user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "user": req.Username})
}

// Methods returns the authentication methods of an account.
// 404 when the account does not exist.
func (h *AuthHandler) Methods(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	methods := h.Accounts.AuthMethods(username)
	if methods == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"user":    username,
		"methods": methods,
	})
}

func writeAttemptResult(w http.ResponseWriter, attempt *session.Attempt, state session.State) {
	if state != session.StateAuthenticated {
		writeReason(w, http.StatusUnauthorized, attempt.Reason())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"user":   attempt.Username(),
	})
}

// writeReason reports a rejected attempt with its machine-readable reason,
// so the UI layer can render a distinct message per failure subtype.
func writeReason(w http.ResponseWriter, status int, reason session.Reason) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "rejected",
		"reason": string(reason),
	})
}
