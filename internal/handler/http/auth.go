package http

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/phonoecho_service/internal/errors"
	"github.com/windfall/phonoecho_service/internal/service"
	"github.com/windfall/phonoecho_service/pkg/response"
)

// AuthHandler handles authentication HTTP endpoints.
type AuthHandler struct {
	log         zerolog.Logger
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(log zerolog.Logger, authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		log:         log,
		authService: authService,
	}
}

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	UserID string `json:"user_id"`
}

// IssueToken handles POST /api/v1/auth/token. It is only routed in
// development, where there is no identity provider in front of the service.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.AppError(w, errors.Validation("invalid request body"))
		return
	}

	token, err := h.authService.IssueToken(req.UserID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	h.log.Info().Str("user_id", req.UserID).Msg("Development token issued")
	response.Created(w, map[string]string{"token": token})
}
