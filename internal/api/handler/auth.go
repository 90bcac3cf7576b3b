package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pulsewatch/pulsewatch/internal/api/models"
	"github.com/pulsewatch/pulsewatch/internal/api/response"
	"github.com/pulsewatch/pulsewatch/internal/auth"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login handles POST /api/v1/auth/login - email/password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		fieldErrors := make([]models.FieldError, len(errs))
		for i, e := range errs {
			fieldErrors[i] = models.FieldError{
				Field:   e.Field,
				Message: e.Message,
				Code:    e.Code,
			}
		}
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	tokenResp, err := h.authService.AuthenticateWithPassword(r.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Unauthorized(w, r, "invalid email or password")
			return
		}

		response.InternalError(w, r, "authentication failed")
		return
	}

	response.JSON(w, r, http.StatusOK, tokenResp)
}

// RefreshToken handles POST /api/v1/auth/refresh - refresh access token.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req auth.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		fieldErrors := make([]models.FieldError, len(errs))
		for i, e := range errs {
			fieldErrors[i] = models.FieldError{
				Field:   e.Field,
				Message: e.Message,
				Code:    e.Code,
			}
		}
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	tokenResp, err := h.authService.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			response.Unauthorized(w, r, "invalid refresh token")
			return
		}
		if errors.Is(err, auth.ErrRefreshTokenExpired) {
			response.Unauthorized(w, r, "refresh token has expired")
			return
		}
		if errors.Is(err, auth.ErrUserNotFound) {
			response.Unauthorized(w, r, "user not found")
			return
		}

		response.InternalError(w, r, "token refresh failed")
		return
	}

	response.JSON(w, r, http.StatusOK, tokenResp)
}

// Logout handles POST /api/v1/auth/logout - revoke current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if req.RefreshToken == "" {
		response.BadRequest(w, r, "refreshToken is required", nil)
		return
	}

	if err := h.authService.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		response.InternalError(w, r, "logout failed")
		return
	}

	response.NoContent(w, r)
}

// LogoutAll handles POST /api/v1/auth/logout-all - revoke all sessions for the user.
// This endpoint requires authentication.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	if err := h.authService.RevokeAllTokens(r.Context(), userID); err != nil {
		response.InternalError(w, r, "logout failed")
		return
	}

	response.NoContent(w, r)
}
