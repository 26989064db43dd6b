package service

import (
	"github.com/okian/kam/internal/adapters/repository"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/analytics"
	"github.com/okian/kam/internal/domain/model"
)

// DashboardView is the landing page of the dashboard.
type DashboardView struct {
	Stats              analytics.DashboardStats  `json:"stats"`
	TopUnderperformers []model.PerformanceRecord `json:"topUnderperformers"`
}

// ComplaintsView is the complaint analytics page.
type ComplaintsView struct {
	Tags     []analytics.TagCount      `json:"tags"`
	Timeline []analytics.DayCount      `json:"timeline"`
	Affected []model.PerformanceRecord `json:"affected"`
}

// RetailersView is the retailer analytics page.
type RetailersView struct {
	Counts      []analytics.RetailerCount       `json:"counts"`
	Performance []analytics.RetailerPerformance `json:"performance"`
}

// POCEntry is a distinct POC and the branch account it belongs to, if any.
type POCEntry struct {
	POC     string               `json:"poc"`
	Account *model.BranchAccount `json:"account,omitempty"`
}

// Records returns one page of the records table visible to p.
func (s *Service) Records(p access.Principal, q analytics.TableQuery) (analytics.TablePage, error) {
	return analytics.Table(s.scoped(p).Records, q)
}

// Profile returns everything known about userID, if p may see it.
func (s *Service) Profile(p access.Principal, userID string) (analytics.UserProfile, error) {
	prof, ok := analytics.Profile(s.scoped(p), userID)
	if !ok {
		return analytics.UserProfile{}, repository.ErrNotFound
	}
	return prof, nil
}

// POCs lists the distinct POCs visible to p. Admins also get the matching
// branch account of each.
func (s *Service) POCs(p access.Principal) []POCEntry {
	snap := s.scoped(p)
	pocs := analytics.UniquePOCs(snap.Records)
	out := make([]POCEntry, len(pocs))
	for i, poc := range pocs {
		out[i].POC = poc
		if acc, ok := analytics.MatchAccount(poc, snap.Accounts); ok {
			acc = acc.Public()
			out[i].Account = &acc
		}
	}
	return out
}

// Dashboard returns the headline numbers and the worst performers.
func (s *Service) Dashboard(p access.Principal) DashboardView {
	snap := s.scoped(p)
	return DashboardView{
		Stats:              analytics.Dashboard(snap),
		TopUnderperformers: analytics.TopUnderperformers(snap.Records, analytics.DefaultTopN),
	}
}

// Complaints returns tag counts, the issue timeline and the users affected
// by tags, narrowed by search.
func (s *Service) Complaints(p access.Principal, tags []string, search string) ComplaintsView {
	snap := s.scoped(p)
	return ComplaintsView{
		Tags:     analytics.ComplaintTagCounts(snap.Calls, snap.Queries),
		Timeline: analytics.IssuesTimeline(snap.Calls, snap.Queries),
		Affected: analytics.AffectedUsers(snap, tags, search),
	}
}

// RetailerStats returns retailer counts and mean performance.
func (s *Service) RetailerStats(p access.Principal) RetailersView {
	snap := s.scoped(p)
	return RetailersView{
		Counts:      analytics.RetailerCounts(snap.RetailerTags),
		Performance: analytics.RetailerPerformances(snap.Records, snap.RetailerTags),
	}
}

// Scatter returns the performance scatter points visible to p.
func (s *Service) Scatter(p access.Principal) []analytics.ScatterPoint {
	return analytics.Scatter(s.scoped(p).Records)
}
