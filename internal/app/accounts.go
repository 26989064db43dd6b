package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/kam/internal/adapters/auth"
	"github.com/okian/kam/internal/adapters/repository"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/pkg/logger"
	"github.com/okian/kam/pkg/metrics"
)

// Session is a successful login.
type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      model.User `json:"user"`
}

// NewAccount is the input for CreateAccount.
type NewAccount struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Department string
	Role       model.Role
	Branch     string
	Username   string
	Password   string
}

// PrincipalOf builds the principal carried in tokens for u.
func PrincipalOf(u model.User) access.Principal {
	return access.Principal{UserID: u.ID, Name: u.Name, Role: u.Role, POC: u.POC}
}

// Login checks a password for the user with login as email or username.
// Unknown users and wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, login, password string) (Session, error) {
	if s.tokens == nil {
		return Session{}, fmt.Errorf("%w: no token issuer", ErrNotStarted)
	}
	u, err := s.store.UserByLogin(strings.TrimSpace(login))
	if err != nil {
		metrics.RecordLogin("unknown_user")
		return Session{}, auth.ErrInvalidCredentials
	}
	if err := auth.ComparePassword(u.PasswordHash, password); err != nil {
		metrics.RecordLogin("bad_password")
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Error(ctx, "password check failed", logger.Error(err))
		}
		return Session{}, auth.ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(PrincipalOf(u))
	if err != nil {
		metrics.RecordLogin("error")
		return Session{}, err
	}
	metrics.RecordLogin("ok")
	s.logger.Info(ctx, "user logged in", logger.String("user", u.ID), logger.String("role", string(u.Role)))
	return Session{Token: token, ExpiresAt: exp, User: u.Public()}, nil
}

// Verify checks a bearer token and returns the principal of the user it
// names as currently stored. Tokens of deleted users stop working at once,
// and role or POC changes apply without a new login.
func (s *Service) Verify(raw string) (access.Principal, error) {
	if s.tokens == nil {
		return access.Principal{}, fmt.Errorf("%w: no token issuer", auth.ErrInvalidToken)
	}
	claimed, err := s.tokens.Verify(raw)
	if err != nil {
		return access.Principal{}, err
	}
	u, err := s.store.UserByID(claimed.UserID)
	if err != nil {
		return access.Principal{}, fmt.Errorf("%w: user %s is gone", auth.ErrInvalidToken, claimed.UserID)
	}
	return PrincipalOf(u), nil
}

// Me returns the stored user behind p.
func (s *Service) Me(_ context.Context, p access.Principal) (model.User, error) {
	u, err := s.store.UserByID(p.UserID)
	if err != nil {
		return model.User{}, err
	}
	return u.Public(), nil
}

// Accounts lists branch accounts without password hashes.
func (s *Service) Accounts(p access.Principal) ([]model.BranchAccount, error) {
	if err := access.RequireAdmin(p); err != nil {
		return nil, err
	}
	accounts := s.store.Snapshot().Accounts
	out := make([]model.BranchAccount, len(accounts))
	for i, a := range accounts {
		out[i] = a.Public()
	}
	return out, nil
}

// CreateAccount adds a branch account and the login user for it. The user's
// POC is the account's full name, which ties it to the records it owns.
func (s *Service) CreateAccount(ctx context.Context, p access.Principal, in NewAccount) (model.BranchAccount, error) {
	if err := access.RequireAdmin(p); err != nil {
		return model.BranchAccount{}, err
	}
	if in.Password == "" {
		return model.BranchAccount{}, fmt.Errorf("%w: password is required", repository.ErrInvalid)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.BranchAccount{}, err
	}

	acc, err := s.store.CreateAccount(ctx, model.BranchAccount{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		Department:   strings.TrimSpace(in.Department),
		Role:         in.Role,
		Branch:       strings.TrimSpace(in.Branch),
		Username:     in.Username,
		PasswordHash: hash,
		CreatedBy:    p.UserID,
	})
	if err != nil {
		return model.BranchAccount{}, err
	}

	_, err = s.store.UpsertUser(ctx, model.User{
		Email:        acc.Email,
		Username:     acc.Username,
		Role:         acc.Role,
		Name:         acc.FullName(),
		POC:          acc.FullName(),
		PasswordHash: hash,
	})
	if err != nil {
		if _, rbErr := s.store.DeleteAccount(ctx, acc.ID); rbErr != nil {
			s.logger.Error(ctx, "rolling back account failed", logger.String("account", acc.ID), logger.Error(rbErr))
		}
		return model.BranchAccount{}, err
	}

	s.logger.Info(ctx, "branch account created", logger.String("account", acc.ID), logger.String("by", p.UserID))
	return acc.Public(), nil
}

// DeleteAccount removes a branch account and its login user.
func (s *Service) DeleteAccount(ctx context.Context, p access.Principal, id string) error {
	if err := access.RequireAdmin(p); err != nil {
		return err
	}
	acc, err := s.store.DeleteAccount(ctx, id)
	if err != nil {
		return err
	}
	u, err := s.store.UserByLogin(acc.Username)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case u.ID == p.UserID:
		// never lock out the caller
		return nil
	}
	return s.store.DeleteUser(ctx, u.ID)
}

// bootstrapAdmin creates the configured administrator when no user exists.
func (s *Service) bootstrapAdmin(ctx context.Context) error {
	if len(s.store.Snapshot().Users) > 0 {
		return nil
	}
	if s.admin.Password == "" {
		s.logger.Warn(ctx, "no users and no admin password configured, logins are impossible")
		return nil
	}
	hash, err := auth.HashPassword(s.admin.Password)
	if err != nil {
		return err
	}
	u, err := s.store.UpsertUser(ctx, model.User{
		Email:        s.admin.Email,
		Username:     s.admin.Username,
		Role:         model.RoleAdmin,
		Name:         s.admin.Name,
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.logger.Info(ctx, "bootstrap admin created", logger.String("user", u.ID), logger.String("username", u.Username))
	return nil
}
