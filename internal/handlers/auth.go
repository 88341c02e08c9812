package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openveil/veilforum/internal/auth"
	"github.com/openveil/veilforum/internal/models"
	"github.com/openveil/veilforum/internal/services"
	pkghttp "github.com/openveil/veilforum/pkg/http"
)

// AccountServiceInterface defines the interface for account business logic
type AccountServiceInterface interface {
	Register(ctx context.Context, regNo, password, ipAddress string) (*services.RegisterResponse, error)
	Login(ctx context.Context, regNo, password, ipAddress string) (*services.LoginResponse, error)
	Logout(ctx context.Context, sessionToken string) error
	SessionTTLSeconds() int
}

// AuthHandler handles registration, login and logout requests
type AuthHandler struct {
	service      AccountServiceInterface
	ipConfig     *pkghttp.IPConfig
	cookieConfig auth.CookieConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AccountServiceInterface, ipConfig *pkghttp.IPConfig, cookieConfig auth.CookieConfig) *AuthHandler {
	return &AuthHandler{
		service:      service,
		ipConfig:     ipConfig,
		cookieConfig: cookieConfig,
	}
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	RegNo    string `json:"reg_no" validate:"required,max=20"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	RegNo    string `json:"reg_no" validate:"required,max=20"`
	Password string `json:"password" validate:"required"`
}

// Register handles enrollment of a registration number
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	resp, err := h.service.Register(r.Context(), req.RegNo, req.Password, ipAddress)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid registration number or password")
		case errors.Is(err, models.ErrPolicyViolation):
			pkghttp.WriteForbidden(w, "Registration number is not eligible")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Registration number is already enrolled")
		case errors.Is(err, models.ErrHandleCollision):
			pkghttp.WriteConflict(w, "Could not assign an anonymous name")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// Login handles authentication. On success the opaque session token rides
// back in an httpOnly cookie and the bearer token in the body.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	resp, err := h.service.Login(r.Context(), req.RegNo, req.Password, ipAddress)
	if err != nil {
		var rateErr *models.RateLimitError
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Invalid credentials")
		case errors.As(err, &rateErr):
			pkghttp.WriteTooManyRequests(w, "Too many login attempts. Please try again later.", rateErr.RetryAfterSeconds)
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	auth.SetSessionCookie(w, resp.SessionToken, h.service.SessionTTLSeconds(), h.cookieConfig)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Logout invalidates the caller's session and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := auth.GetSessionCookie(r)
	if err == nil && token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			pkghttp.WriteInternalError(w, "Internal server error")
			return
		}
	}

	auth.ClearSessionCookie(w, h.cookieConfig)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Logged out"})
}
