package repository

import (
	"context"
	"slices"
	"strings"

	"github.com/okian/kam/internal/domain/model"
)

// ReplaceRecords swaps the whole performance record collection for recs.
func (s *Store) ReplaceRecords(ctx context.Context, recs []model.PerformanceRecord) error {
	recs = slices.Clone(recs)
	if recs == nil {
		recs = []model.PerformanceRecord{}
	}
	return s.mutate(ctx, model.CollectionRecords, model.ActionReplace, func(next *model.Snapshot) (string, error) {
		next.Records = recs
		return "", nil
	})
}

// UpsertCall stores call as the current call of its user, replacing any
// earlier one. A zero Timestamp is set to now.
func (s *Store) UpsertCall(ctx context.Context, call model.CallRecord) (model.CallRecord, error) {
	call.UserID = strings.TrimSpace(call.UserID)
	switch {
	case call.UserID == "":
		return model.CallRecord{}, invalid("call userId is required")
	case !call.Status.Valid():
		return model.CallRecord{}, invalid("call status %q", call.Status)
	}
	if call.Timestamp.IsZero() {
		call.Timestamp = s.now().UTC()
	}

	err := s.mutate(ctx, model.CollectionCalls, model.ActionUpsert, func(next *model.Snapshot) (string, error) {
		calls := slices.Clone(next.Calls)
		i := slices.IndexFunc(calls, func(c model.CallRecord) bool { return c.UserID == call.UserID })
		if i >= 0 {
			calls[i] = call
		} else {
			calls = append(calls, call)
		}
		next.Calls = calls
		return call.UserID, nil
	})
	if err != nil {
		return model.CallRecord{}, err
	}
	return call, nil
}

// UpsertQuery updates the query with q.ID, or adds q in front of the list
// when it is new. New queries get an ID, an open status and a timestamp when
// those are missing.
func (s *Store) UpsertQuery(ctx context.Context, q model.UserQuery) (model.UserQuery, error) {
	q.UserID = strings.TrimSpace(q.UserID)
	if q.UserID == "" {
		return model.UserQuery{}, invalid("query userId is required")
	}
	if q.Status == "" {
		q.Status = model.QueryOpen
	}
	if !q.Status.Valid() {
		return model.UserQuery{}, invalid("query status %q", q.Status)
	}
	if q.ID == "" {
		q.ID = s.newID()
	}
	if q.Timestamp.IsZero() {
		q.Timestamp = s.now().UTC()
	}

	err := s.mutate(ctx, model.CollectionQueries, model.ActionUpsert, func(next *model.Snapshot) (string, error) {
		i := slices.IndexFunc(next.Queries, func(x model.UserQuery) bool { return x.ID == q.ID })
		if i >= 0 {
			queries := slices.Clone(next.Queries)
			queries[i] = q
			next.Queries = queries
			return q.ID, nil
		}
		queries := make([]model.UserQuery, 0, len(next.Queries)+1)
		queries = append(queries, q)
		next.Queries = append(queries, next.Queries...)
		return q.ID, nil
	})
	if err != nil {
		return model.UserQuery{}, err
	}
	return q, nil
}

// SetQueryStatus moves query id to status.
func (s *Store) SetQueryStatus(ctx context.Context, id string, status model.QueryStatus) (model.UserQuery, error) {
	if !status.Valid() {
		return model.UserQuery{}, invalid("query status %q", status)
	}
	var out model.UserQuery
	err := s.mutate(ctx, model.CollectionQueries, model.ActionUpdate, func(next *model.Snapshot) (string, error) {
		i := slices.IndexFunc(next.Queries, func(x model.UserQuery) bool { return x.ID == id })
		if i < 0 {
			return "", ErrNotFound
		}
		queries := slices.Clone(next.Queries)
		queries[i].Status = status
		out = queries[i]
		next.Queries = queries
		return id, nil
	})
	return out, err
}

// UpsertRetailerTag stores tag as the retailer tag of its user. A tag needs
// one to MaxRetailersPerUser distinct known retailers.
func (s *Store) UpsertRetailerTag(ctx context.Context, tag model.RetailerTag) (model.RetailerTag, error) {
	tag.UserID = strings.TrimSpace(tag.UserID)
	if tag.UserID == "" {
		return model.RetailerTag{}, invalid("retailer tag userId is required")
	}
	if err := validateRetailers(tag.Retailers); err != nil {
		return model.RetailerTag{}, err
	}
	tag.Retailers = slices.Clone(tag.Retailers)
	if tag.Timestamp.IsZero() {
		tag.Timestamp = s.now().UTC()
	}

	err := s.mutate(ctx, model.CollectionRetailerTags, model.ActionUpsert, func(next *model.Snapshot) (string, error) {
		tags := slices.Clone(next.RetailerTags)
		i := slices.IndexFunc(tags, func(t model.RetailerTag) bool { return t.UserID == tag.UserID })
		if i >= 0 {
			tags[i] = tag
		} else {
			tags = append(tags, tag)
		}
		next.RetailerTags = tags
		return tag.UserID, nil
	})
	if err != nil {
		return model.RetailerTag{}, err
	}
	return tag, nil
}

func validateRetailers(rs []string) error {
	if len(rs) == 0 || len(rs) > model.MaxRetailersPerUser {
		return invalid("between 1 and %d retailers required, got %d", model.MaxRetailersPerUser, len(rs))
	}
	seen := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		if !model.IsRetailer(r) {
			return invalid("unknown retailer %q", r)
		}
		if _, dup := seen[r]; dup {
			return invalid("retailer %q listed twice", r)
		}
		seen[r] = struct{}{}
	}
	return nil
}

// AddComplaintTag appends name to the complaint tag list.
func (s *Store) AddComplaintTag(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("complaint tag name is required")
	}
	return s.mutate(ctx, model.CollectionComplaintTags, model.ActionCreate, func(next *model.Snapshot) (string, error) {
		if slices.Contains(next.ComplaintTags, name) {
			return "", ErrDuplicate
		}
		next.ComplaintTags = append(slices.Clone(next.ComplaintTags), name)
		return name, nil
	})
}

// RenameComplaintTag renames a tag in place. Calls and queries keep the old
// name; tags are plain strings and nothing cascades.
func (s *Store) RenameComplaintTag(ctx context.Context, from, to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return invalid("complaint tag name is required")
	}
	return s.mutate(ctx, model.CollectionComplaintTags, model.ActionUpdate, func(next *model.Snapshot) (string, error) {
		i := slices.Index(next.ComplaintTags, from)
		if i < 0 {
			return "", ErrNotFound
		}
		if from != to && slices.Contains(next.ComplaintTags, to) {
			return "", ErrDuplicate
		}
		tags := slices.Clone(next.ComplaintTags)
		tags[i] = to
		next.ComplaintTags = tags
		return to, nil
	})
}

// DeleteComplaintTag removes name from the list.
func (s *Store) DeleteComplaintTag(ctx context.Context, name string) error {
	return s.mutate(ctx, model.CollectionComplaintTags, model.ActionDelete, func(next *model.Snapshot) (string, error) {
		i := slices.Index(next.ComplaintTags, name)
		if i < 0 {
			return "", ErrNotFound
		}
		next.ComplaintTags = slices.Delete(slices.Clone(next.ComplaintTags), i, i+1)
		return name, nil
	})
}
