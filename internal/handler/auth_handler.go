package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/storefront/internal/auth"
	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/service"
)

// AuthHandler serves registration, login and session endpoints.
type AuthHandler struct {
	authService *service.AuthService
	cookies     *auth.CookieStore
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. cookies may be nil.
func NewAuthHandler(authService *service.AuthService, cookies *auth.CookieStore, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
		logger:      logger.With().Str("handler", "auth").Logger(),
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

type authResponse struct {
	Message   string       `json:"message"`
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Register handles POST /api/auth/register.
// Only an administrator may create another administrator; an administrator
// registering someone else keeps their own session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	principal := auth.PrincipalFrom(r.Context())
	if req.IsAdmin {
		if err := service.RequireAdministrator(principal); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if principal == nil {
		h.saveCookie(w, r, result.Token)
	}
	writeJSON(w, http.StatusCreated, authResponse{
		Message:   "Registration successful",
		User:      result.User,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.authService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.saveCookie(w, r, result.Token)
	writeJSON(w, http.StatusOK, authResponse{
		Message:   "Login successful",
		User:      result.User,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFrom(r.Context())
	if token == "" {
		token = auth.ExtractToken(r, h.cookies)
	}
	if token != "" {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	if h.cookies != nil {
		if err := h.cookies.Clear(w, r); err != nil {
			h.logger.Warn().Err(err).Msg("failed to clear session cookie")
		}
	}
	writeJSON(w, http.StatusOK, message{Message: "Logout successful"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFrom(r.Context())
	if err := service.RequireAuthenticated(principal); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": principal})
}

func (h *AuthHandler) saveCookie(w http.ResponseWriter, r *http.Request, token string) {
	if h.cookies == nil {
		return
	}
	if err := h.cookies.Save(w, r, token); err != nil {
		h.logger.Warn().Err(err).Msg("failed to save session cookie")
	}
}
