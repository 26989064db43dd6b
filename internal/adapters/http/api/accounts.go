package api

import (
	"context"
	"net/http"

	service "github.com/okian/kam/internal/app"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/pkg/logger"
)

// AccountService manages branch accounts.
type AccountService interface {
	Accounts(p access.Principal) ([]model.BranchAccount, error)
	CreateAccount(ctx context.Context, p access.Principal, in service.NewAccount) (model.BranchAccount, error)
	DeleteAccount(ctx context.Context, p access.Principal, id string) error
}

// AccountsHandler serves branch account management.
type AccountsHandler struct {
	deps   AccountService
	logger logger.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(deps AccountService, l logger.Logger) *AccountsHandler {
	return &AccountsHandler{deps: deps, logger: l}
}

type accountRequest struct {
	FirstName  string     `json:"firstName" validate:"required,max=100"`
	LastName   string     `json:"lastName" validate:"required,max=100"`
	Email      string     `json:"email" validate:"required,email"`
	Phone      string     `json:"phone" validate:"max=32"`
	Department string     `json:"department" validate:"max=100"`
	Role       model.Role `json:"role" validate:"required,oneof=admin employee"`
	Branch     string     `json:"branch" validate:"max=100"`
	Username   string     `json:"username" validate:"required,min=3,max=64"`
	Password   string     `json:"password" validate:"required,min=6,max=72"`
}

// HandleList handles GET /api/accounts.
func (h *AccountsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.deps.Accounts(principal(r))
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, items(accounts))
}

// HandleCreate handles POST /api/accounts.
func (h *AccountsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_account"
	var req accountRequest
	if err := decodeJSON(r, op, &req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	acc, err := h.deps.CreateAccount(r.Context(), principal(r), service.NewAccount{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Department: req.Department,
		Role:       req.Role,
		Branch:     req.Branch,
		Username:   req.Username,
		Password:   req.Password,
	})
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

// HandleDelete handles DELETE /api/accounts/{id}.
func (h *AccountsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteAccount(r.Context(), principal(r), r.PathValue("id")); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
