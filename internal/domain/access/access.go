// Package access decides which parts of a snapshot a principal may see and
// which operations they may perform.
package access

import (
	"errors"

	"github.com/okian/kam/internal/domain/model"
)

var (
	// ErrUnauthenticated is returned when no principal is present.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the principal lacks the required role or
	// cannot see the target user.
	ErrForbidden = errors.New("forbidden")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string     `json:"id"`
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
	POC    string     `json:"poc,omitempty"`
}

// IsAdmin reports whether p has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// scoped reports whether p is an employee bound to a POC.
func (p Principal) scoped() bool { return p.Role == model.RoleEmployee && p.POC != "" }

// RequireAdmin returns ErrForbidden unless p is an admin.
func RequireAdmin(p Principal) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// VisibleUsers returns the UserIDs of the records p may see. The result is
// nil for an admin, meaning no restriction.
func VisibleUsers(p Principal, records []model.PerformanceRecord) map[string]struct{} {
	if p.IsAdmin() {
		return nil
	}
	ids := make(map[string]struct{})
	if !p.scoped() {
		return ids
	}
	for _, r := range records {
		if r.POC == p.POC {
			ids[r.UserID] = struct{}{}
		}
	}
	return ids
}

// CanSeeUser reports whether p may see or act on userID.
func CanSeeUser(p Principal, s *model.Snapshot, userID string) bool {
	if p.IsAdmin() {
		return true
	}
	if !p.scoped() || s == nil {
		return false
	}
	for _, r := range s.Records {
		if r.UserID == userID && r.POC == p.POC {
			return true
		}
	}
	return false
}

// Scope returns the part of s visible to p. Admins get s itself. Employees
// get the records of their POC plus the calls, queries and retailer tags of
// those users; account and user collections are never exposed to them.
// Complaint tags are shared by everyone.
func Scope(p Principal, s *model.Snapshot) *model.Snapshot {
	if s == nil {
		return &model.Snapshot{}
	}
	if p.IsAdmin() {
		return s
	}

	out := &model.Snapshot{ComplaintTags: s.ComplaintTags}
	if !p.scoped() {
		return out
	}

	ids := VisibleUsers(p, s.Records)
	for _, r := range s.Records {
		if r.POC == p.POC {
			out.Records = append(out.Records, r)
		}
	}
	out.Calls = filterByUser(s.Calls, ids, func(c model.CallRecord) string { return c.UserID })
	out.Queries = filterByUser(s.Queries, ids, func(q model.UserQuery) string { return q.UserID })
	out.RetailerTags = filterByUser(s.RetailerTags, ids, func(t model.RetailerTag) string { return t.UserID })
	return out
}

func filterByUser[T any](items []T, ids map[string]struct{}, userID func(T) string) []T {
	var out []T
	for _, it := range items {
		if _, ok := ids[userID(it)]; ok {
			out = append(out, it)
		}
	}
	return out
}
