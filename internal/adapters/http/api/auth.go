package api

import (
	"context"
	"net/http"

	service "github.com/okian/kam/internal/app"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/pkg/logger"
)

// AuthService logs users in and describes the caller.
type AuthService interface {
	Login(ctx context.Context, login, password string) (service.Session, error)
	Me(ctx context.Context, p access.Principal) (model.User, error)
}

// AuthHandler handles login and the current user.
type AuthHandler struct {
	deps   AuthService
	logger logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(deps AuthService, l logger.Logger) *AuthHandler {
	return &AuthHandler{deps: deps, logger: l}
}

type loginRequest struct {
	Login    string `json:"login" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// HandleLogin handles POST /api/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	var req loginRequest
	if err := decodeJSON(r, op, &req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	sess, err := h.deps.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleMe handles GET /api/me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	u, err := h.deps.Me(r.Context(), p)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// principal returns the caller placed in the context by RequireAuth. A
// missing principal has no role and passes no access check.
func principal(r *http.Request) access.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

func items[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
