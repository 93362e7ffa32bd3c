package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aegisd/aegis/internal/middleware"
	"github.com/aegisd/aegis/internal/model"
	"github.com/aegisd/aegis/internal/service"
)

// JSON helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// --- Registration Handler ---

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Register handles identity registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Username, email and password are required")
		return
	}

	id, err := h.authSvc.Register(r.Context(), service.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateIdentity):
			writeError(w, http.StatusConflict, "identity_exists", "An account with this username or email already exists")
		case errors.Is(err, service.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "password_too_weak", err.Error())
		case errors.Is(err, service.ErrInvalidFormat):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			h.log.Error().Err(err).Msg("registration failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Registration failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// --- Login Handler ---

type loginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"twoFactorCode,omitempty"`
}

// Login handles authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Username and password are required")
		return
	}

	pair, err := h.authSvc.Authenticate(r.Context(), service.AuthenticateRequest{
		Username:      req.Username,
		Password:      req.Password,
		TwoFactorCode: req.TwoFactorCode,
		IPAddress:     middleware.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTwoFactorRequired):
			writeError(w, http.StatusUnauthorized, "two_factor_required", "A two-factor code is required.")
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "The username or password is incorrect.")
		case errors.Is(err, service.ErrAccountLocked):
			writeError(w, http.StatusForbidden, "account_locked", "Your account has been temporarily locked due to too many failed login attempts.")
		case errors.Is(err, service.ErrAccountInactive):
			writeError(w, http.StatusForbidden, "account_inactive", "Your account is not active.")
		default:
			h.log.Error().Err(err).Msg("login failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Login failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// --- Token Refresh Handler ---

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh exchanges a refresh token for a new access token
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := readJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Refresh token is required")
		return
	}

	accessToken, err := h.authSvc.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenExpired):
			writeError(w, http.StatusUnauthorized, "token_expired", "The refresh token has expired.")
		case errors.Is(err, service.ErrTokenInvalid):
			writeError(w, http.StatusUnauthorized, "token_invalid", "The refresh token is invalid or revoked.")
		case errors.Is(err, service.ErrAccountInactive):
			writeError(w, http.StatusForbidden, "account_inactive", "Your account is not active.")
		default:
			h.log.Error().Err(err).Msg("token refresh failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Token refresh failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken": accessToken,
		"tokenType":   "Bearer",
		"expiresIn":   int(h.cfg.Security.Tokens.AccessTokenTTL.Seconds()),
	})
}

// --- Logout Handler ---

type logoutRequest struct {
	Token string `json:"token"`
}

// Logout revokes the presented token and tears down its session. The
// body token wins over the Authorization header so a client can revoke
// its refresh token while authenticating with its access token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	_ = readJSON(r, &req)

	token := req.Token
	if token == "" {
		token = bearerToken(r)
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Token is required")
		return
	}

	if err := h.authSvc.Logout(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, service.ErrTokenInvalid):
			writeError(w, http.StatusUnauthorized, "token_invalid", "The token is invalid.")
		default:
			h.log.Error().Err(err).Msg("logout failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Logout failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// Me returns the authenticated identity
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identityID := middleware.GetIdentityID(r.Context())
	if identityID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	identity, err := h.authSvc.GetIdentity(r.Context(), identityID)
	if err != nil {
		h.log.Error().Err(err).Str("identity_id", identityID).Msg("failed to get identity")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get identity")
		return
	}

	writeJSON(w, http.StatusOK, identity)
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && (authHeader[:7] == "Bearer " || authHeader[:7] == "bearer ") {
		return authHeader[7:]
	}
	return ""
}
