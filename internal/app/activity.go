package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/kam/internal/adapters/repository"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/model"
)

// scoped returns the part of the current snapshot p may see.
func (s *Service) scoped(p access.Principal) *model.Snapshot {
	return access.Scope(p, s.store.Snapshot())
}

// guardUser fails with ErrForbidden unless p may act on userID.
func (s *Service) guardUser(p access.Principal, userID string) error {
	if !access.CanSeeUser(p, s.store.Snapshot(), userID) {
		return access.ErrForbidden
	}
	return nil
}

// userName returns the record name of userID, or fallback when unknown.
func (s *Service) userName(userID, fallback string) string {
	if fallback != "" {
		return fallback
	}
	for _, r := range s.store.Records() {
		if r.UserID == userID {
			return r.Name
		}
	}
	return ""
}

// Calls lists the call records p may see.
func (s *Service) Calls(p access.Principal) []model.CallRecord {
	return s.scoped(p).Calls
}

// SaveCall records the latest call outcome for a user p can see.
func (s *Service) SaveCall(ctx context.Context, p access.Principal, call model.CallRecord) (model.CallRecord, error) {
	if err := s.guardUser(p, call.UserID); err != nil {
		return model.CallRecord{}, err
	}
	if err := s.knownComplaintTag(call.ComplaintTag); err != nil {
		return model.CallRecord{}, err
	}
	call.CreatedBy = p.UserID
	return s.store.UpsertCall(ctx, call)
}

// Queries lists the queries p may see, newest first.
func (s *Service) Queries(p access.Principal) []model.UserQuery {
	return s.scoped(p).Queries
}

// SaveQuery creates a query, or updates the one with q.ID. An update must
// target a query p can see and keeps its user, timestamp and author; empty
// fields keep their stored values.
func (s *Service) SaveQuery(ctx context.Context, p access.Principal, q model.UserQuery) (model.UserQuery, error) {
	if err := s.knownComplaintTag(q.ComplaintTag); err != nil {
		return model.UserQuery{}, err
	}
	if q.ID != "" {
		merged, err := s.mergeQuery(p, q)
		if err != nil {
			return model.UserQuery{}, err
		}
		q = merged
	}
	if err := s.guardUser(p, q.UserID); err != nil {
		return model.UserQuery{}, err
	}
	q.UserName = s.userName(q.UserID, q.UserName)
	if q.CreatedBy == "" {
		q.CreatedBy = p.UserID
	}
	return s.store.UpsertQuery(ctx, q)
}

// mergeQuery lays the non-empty fields of q over the stored query q.ID.
func (s *Service) mergeQuery(p access.Principal, q model.UserQuery) (model.UserQuery, error) {
	queries := s.store.Snapshot().Queries
	i := slices.IndexFunc(queries, func(x model.UserQuery) bool { return x.ID == q.ID })
	if i < 0 {
		return model.UserQuery{}, repository.ErrNotFound
	}
	cur := queries[i]
	if err := s.guardUser(p, cur.UserID); err != nil {
		return model.UserQuery{}, err
	}
	if q.UserID != "" && q.UserID != cur.UserID {
		return model.UserQuery{}, fmt.Errorf("%w: query %s belongs to user %s", repository.ErrInvalid, cur.ID, cur.UserID)
	}
	if q.ComplaintTag != "" {
		cur.ComplaintTag = q.ComplaintTag
	}
	if q.Comment != "" {
		cur.Comment = q.Comment
	}
	if q.Status != "" {
		cur.Status = q.Status
	}
	return cur, nil
}

// SetQueryStatus changes the status of query id.
func (s *Service) SetQueryStatus(ctx context.Context, p access.Principal, id string, status model.QueryStatus) (model.UserQuery, error) {
	queries := s.store.Snapshot().Queries
	i := slices.IndexFunc(queries, func(x model.UserQuery) bool { return x.ID == id })
	if i < 0 {
		return model.UserQuery{}, repository.ErrNotFound
	}
	if err := s.guardUser(p, queries[i].UserID); err != nil {
		return model.UserQuery{}, err
	}
	return s.store.SetQueryStatus(ctx, id, status)
}

// RetailerTags lists the retailer tags p may see.
func (s *Service) RetailerTags(p access.Principal) []model.RetailerTag {
	return s.scoped(p).RetailerTags
}

// SaveRetailerTag sets the retailers of a user p can see.
func (s *Service) SaveRetailerTag(ctx context.Context, p access.Principal, tag model.RetailerTag) (model.RetailerTag, error) {
	if err := s.guardUser(p, tag.UserID); err != nil {
		return model.RetailerTag{}, err
	}
	tag.UserName = s.userName(tag.UserID, tag.UserName)
	tag.CreatedBy = p.UserID
	return s.store.UpsertRetailerTag(ctx, tag)
}

// Retailers returns the selectable retail channels.
func (s *Service) Retailers() []string {
	return slices.Clone(model.Retailers)
}

// ComplaintTags returns the complaint tag names in order.
func (s *Service) ComplaintTags() []string {
	return slices.Clone(s.store.ComplaintTags())
}

// AddComplaintTag appends a complaint tag.
func (s *Service) AddComplaintTag(ctx context.Context, p access.Principal, name string) error {
	if err := access.RequireAdmin(p); err != nil {
		return err
	}
	return s.store.AddComplaintTag(ctx, name)
}

// RenameComplaintTag renames a complaint tag in place.
func (s *Service) RenameComplaintTag(ctx context.Context, p access.Principal, from, to string) error {
	if err := access.RequireAdmin(p); err != nil {
		return err
	}
	return s.store.RenameComplaintTag(ctx, from, to)
}

// DeleteComplaintTag removes a complaint tag. Calls and queries already
// carrying it keep the old name.
func (s *Service) DeleteComplaintTag(ctx context.Context, p access.Principal, name string) error {
	if err := access.RequireAdmin(p); err != nil {
		return err
	}
	return s.store.DeleteComplaintTag(ctx, name)
}

// knownComplaintTag accepts an empty tag or one of the current tags.
func (s *Service) knownComplaintTag(tag string) error {
	if tag == "" || slices.Contains(s.store.ComplaintTags(), tag) {
		return nil
	}
	return fmt.Errorf("%w: unknown complaint tag %q", repository.ErrInvalid, tag)
}
