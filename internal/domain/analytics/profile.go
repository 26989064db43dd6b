package analytics

import (
	"slices"
	"strings"

	"github.com/okian/kam/internal/domain/model"
)

// UserProfile gathers everything known about one user.
type UserProfile struct {
	Record      model.PerformanceRecord `json:"record"`
	Call        *model.CallRecord       `json:"call,omitempty"`
	Queries     []model.UserQuery       `json:"queries"`
	RetailerTag *model.RetailerTag      `json:"retailerTag,omitempty"`
}

// Profile builds the profile of userID from s. ok is false when s holds no
// record for the user.
func Profile(s *model.Snapshot, userID string) (UserProfile, bool) {
	var p UserProfile
	found := false
	for _, r := range s.Records {
		if r.UserID == userID {
			p.Record = r
			found = true
			break
		}
	}
	if !found {
		return UserProfile{}, false
	}

	for i := range s.Calls {
		if s.Calls[i].UserID == userID {
			c := s.Calls[i]
			p.Call = &c
			break
		}
	}
	for i := range s.RetailerTags {
		if s.RetailerTags[i].UserID == userID {
			t := s.RetailerTags[i]
			p.RetailerTag = &t
			break
		}
	}

	p.Queries = []model.UserQuery{}
	for _, q := range s.Queries {
		if q.UserID == userID {
			p.Queries = append(p.Queries, q)
		}
	}
	slices.SortStableFunc(p.Queries, func(a, b model.UserQuery) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return p, true
}

// UniquePOCs returns the distinct POC names of records, sorted.
func UniquePOCs(records []model.PerformanceRecord) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		if _, ok := seen[r.POC]; ok || r.POC == "" {
			continue
		}
		seen[r.POC] = struct{}{}
		out = append(out, r.POC)
	}
	slices.Sort(out)
	return out
}

// MatchAccount finds the branch account a POC name refers to, comparing the
// account's full name and username case-insensitively.
func MatchAccount(poc string, accounts []model.BranchAccount) (model.BranchAccount, bool) {
	for _, a := range accounts {
		if strings.EqualFold(a.FullName(), poc) || strings.EqualFold(a.Username, poc) {
			return a, true
		}
	}
	return model.BranchAccount{}, false
}
