package repository

import (
	"context"
	"slices"
	"strings"

	"github.com/okian/kam/internal/domain/model"
)

// CreateAccount adds a branch account. Email and username must be unique
// among accounts, ignoring case.
func (s *Store) CreateAccount(ctx context.Context, acc model.BranchAccount) (model.BranchAccount, error) {
	acc.Email = strings.TrimSpace(acc.Email)
	acc.Username = strings.TrimSpace(acc.Username)
	switch {
	case acc.FirstName == "" || acc.LastName == "":
		return model.BranchAccount{}, invalid("first and last name are required")
	case acc.Email == "" || acc.Username == "":
		return model.BranchAccount{}, invalid("email and username are required")
	case !acc.Role.Valid():
		return model.BranchAccount{}, invalid("role %q", acc.Role)
	}
	if acc.ID == "" {
		acc.ID = s.newID()
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = s.now().UTC()
	}

	err := s.mutate(ctx, model.CollectionAccounts, model.ActionCreate, func(next *model.Snapshot) (string, error) {
		for _, a := range next.Accounts {
			if a.ID == acc.ID || equalFold(a.Email, acc.Email) || equalFold(a.Username, acc.Username) {
				return "", ErrDuplicate
			}
		}
		next.Accounts = append(slices.Clone(next.Accounts), acc)
		return acc.ID, nil
	})
	if err != nil {
		return model.BranchAccount{}, err
	}
	return acc, nil
}

// DeleteAccount removes the account with id and returns it.
func (s *Store) DeleteAccount(ctx context.Context, id string) (model.BranchAccount, error) {
	var out model.BranchAccount
	err := s.mutate(ctx, model.CollectionAccounts, model.ActionDelete, func(next *model.Snapshot) (string, error) {
		i := slices.IndexFunc(next.Accounts, func(a model.BranchAccount) bool { return a.ID == id })
		if i < 0 {
			return "", ErrNotFound
		}
		out = next.Accounts[i]
		next.Accounts = slices.Delete(slices.Clone(next.Accounts), i, i+1)
		return id, nil
	})
	return out, err
}

// UpsertUser stores u, replacing the user with the same ID. Email and
// username must not belong to another user.
func (s *Store) UpsertUser(ctx context.Context, u model.User) (model.User, error) {
	u.Email = strings.TrimSpace(u.Email)
	u.Username = strings.TrimSpace(u.Username)
	switch {
	case u.Email == "" && u.Username == "":
		return model.User{}, invalid("email or username is required")
	case !u.Role.Valid():
		return model.User{}, invalid("role %q", u.Role)
	}
	if u.ID == "" {
		u.ID = s.newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}

	err := s.mutate(ctx, model.CollectionUsers, model.ActionUpsert, func(next *model.Snapshot) (string, error) {
		idx := -1
		for i, x := range next.Users {
			if x.ID == u.ID {
				idx = i
				continue
			}
			if equalFold(x.Email, u.Email) || equalFold(x.Username, u.Username) {
				return "", ErrDuplicate
			}
		}
		users := slices.Clone(next.Users)
		if idx >= 0 {
			users[idx] = u
		} else {
			users = append(users, u)
		}
		next.Users = users
		return u.ID, nil
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// DeleteUser removes the user with id.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.mutate(ctx, model.CollectionUsers, model.ActionDelete, func(next *model.Snapshot) (string, error) {
		i := slices.IndexFunc(next.Users, func(u model.User) bool { return u.ID == id })
		if i < 0 {
			return "", ErrNotFound
		}
		next.Users = slices.Delete(slices.Clone(next.Users), i, i+1)
		return id, nil
	})
}

// UserByLogin finds a user by email or username, ignoring case.
func (s *Store) UserByLogin(login string) (model.User, error) {
	for _, u := range s.Snapshot().Users {
		if equalFold(u.Email, login) || equalFold(u.Username, login) {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

// UserByID finds a user by ID.
func (s *Store) UserByID(id string) (model.User, error) {
	for _, u := range s.Snapshot().Users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}
