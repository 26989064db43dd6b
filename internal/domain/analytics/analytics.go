// Package analytics derives dashboard figures from a snapshot. Every
// function is pure; callers scope the snapshot to the principal first.
package analytics

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/internal/domain/scoring"
)

// DefaultTopN is how many underperformers the dashboard lists.
const DefaultTopN = 5

// timelineLayout buckets activity by calendar day.
const timelineLayout = "2006-01-02"

// DashboardStats are the headline numbers of the dashboard.
type DashboardStats struct {
	AssignedUsers   int     `json:"assignedUsers"`
	Underperforming int     `json:"underperforming"`
	CallsCompleted  int     `json:"callsCompleted"`
	SuccessRate     float64 `json:"successRate"`
	UntaggedUsers   int     `json:"untaggedUsers"`
	OpenQueries     int     `json:"openQueries"`
}

// TagCount is how often a complaint tag was used.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// RetailerCount is how many users are tagged with a retailer.
type RetailerCount struct {
	Retailer string `json:"retailer"`
	Count    int    `json:"count"`
}

// RetailerPerformance is the mean achievement of users tagged with a
// retailer.
type RetailerPerformance struct {
	Retailer       string  `json:"retailer"`
	AvgPerformance float64 `json:"avgPerformance"`
	Users          int     `json:"users"`
}

// DayCount is the activity of one calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ScatterPoint places one user on the potential / achievement plane.
type ScatterPoint struct {
	UserID      string  `json:"userId"`
	Name        string  `json:"name"`
	Potential   float64 `json:"potential"`
	Last30Days  float64 `json:"last30Days"`
	ProRatedAch float64 `json:"proRatedAch"`
}

// Dashboard computes the headline numbers of s.
func Dashboard(s *model.Snapshot) DashboardStats {
	st := DashboardStats{
		AssignedUsers:  len(s.Records),
		CallsCompleted: len(s.Calls),
	}

	tagged := make(map[string]struct{}, len(s.RetailerTags))
	for _, t := range s.RetailerTags {
		tagged[t.UserID] = struct{}{}
	}
	for _, r := range s.Records {
		if scoring.IsUnderperforming(r.ProRatedAch) {
			st.Underperforming++
		}
		if _, ok := tagged[r.UserID]; !ok {
			st.UntaggedUsers++
		}
	}

	connected := 0
	for _, c := range s.Calls {
		if c.Status == model.CallConnected {
			connected++
		}
	}
	if st.CallsCompleted > 0 {
		st.SuccessRate = scoring.Round1(float64(connected) / float64(st.CallsCompleted) * 100)
	}

	for _, q := range s.Queries {
		if q.Status == model.QueryOpen {
			st.OpenQueries++
		}
	}
	return st
}

// TopUnderperformers returns at most n underperforming records, worst first.
func TopUnderperformers(records []model.PerformanceRecord, n int) []model.PerformanceRecord {
	var out []model.PerformanceRecord
	for _, r := range records {
		if scoring.IsUnderperforming(r.ProRatedAch) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b model.PerformanceRecord) int {
		return cmp.Compare(a.ProRatedAch, b.ProRatedAch)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ComplaintTagCounts counts non-blank complaint tags across calls and
// queries, most used first.
func ComplaintTagCounts(calls []model.CallRecord, queries []model.UserQuery) []TagCount {
	counts := make(map[string]int)
	for _, c := range calls {
		if strings.TrimSpace(c.ComplaintTag) != "" {
			counts[c.ComplaintTag]++
		}
	}
	for _, q := range queries {
		if strings.TrimSpace(q.ComplaintTag) != "" {
			counts[q.ComplaintTag]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	slices.SortFunc(out, func(a, b TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Tag, b.Tag)
	})
	return out
}

// RetailerCounts counts tagged users per retailer, most used first.
func RetailerCounts(tags []model.RetailerTag) []RetailerCount {
	counts := make(map[string]int)
	for _, t := range tags {
		for _, r := range t.Retailers {
			counts[r]++
		}
	}

	out := make([]RetailerCount, 0, len(counts))
	for r, n := range counts {
		out = append(out, RetailerCount{Retailer: r, Count: n})
	}
	slices.SortFunc(out, func(a, b RetailerCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Retailer, b.Retailer)
	})
	return out
}

// RetailerPerformances averages ProRatedAch over the users tagged with each
// retailer. Tags whose user has no record are ignored.
func RetailerPerformances(records []model.PerformanceRecord, tags []model.RetailerTag) []RetailerPerformance {
	byUser := indexRecords(records)

	type acc struct {
		total float64
		users int
	}
	sums := make(map[string]*acc)
	for _, t := range tags {
		rec, ok := byUser[t.UserID]
		if !ok {
			continue
		}
		for _, r := range t.Retailers {
			a := sums[r]
			if a == nil {
				a = &acc{}
				sums[r] = a
			}
			a.total += rec.ProRatedAch
			a.users++
		}
	}

	out := make([]RetailerPerformance, 0, len(sums))
	for r, a := range sums {
		out = append(out, RetailerPerformance{
			Retailer:       r,
			AvgPerformance: scoring.Round2(a.total / float64(a.users)),
			Users:          a.users,
		})
	}
	slices.SortFunc(out, func(a, b RetailerPerformance) int {
		if c := cmp.Compare(b.AvgPerformance, a.AvgPerformance); c != 0 {
			return c
		}
		return strings.Compare(a.Retailer, b.Retailer)
	})
	return out
}

// IssuesTimeline counts tagged calls and all queries per UTC day, oldest
// first. Zero timestamps are skipped.
func IssuesTimeline(calls []model.CallRecord, queries []model.UserQuery) []DayCount {
	counts := make(map[string]int)
	add := func(ts time.Time) {
		if ts.IsZero() {
			return
		}
		counts[ts.UTC().Format(timelineLayout)]++
	}
	for _, c := range calls {
		if c.ComplaintTag != "" {
			add(c.Timestamp)
		}
	}
	for _, q := range queries {
		add(q.Timestamp)
	}

	out := make([]DayCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DayCount{Date: d, Count: n})
	}
	slices.SortFunc(out, func(a, b DayCount) int { return strings.Compare(a.Date, b.Date) })
	return out
}

// AffectedUsers returns the records of users with a call or query carrying
// one of tags, narrowed by a case-insensitive search. With no tags every
// call and query counts.
func AffectedUsers(s *model.Snapshot, tags []string, search string) []model.PerformanceRecord {
	selected := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		selected[t] = struct{}{}
	}
	match := func(tag string) bool {
		if len(selected) == 0 {
			return true
		}
		_, ok := selected[tag]
		return ok
	}

	ids := make(map[string]struct{})
	for _, c := range s.Calls {
		if len(selected) == 0 || (c.ComplaintTag != "" && match(c.ComplaintTag)) {
			ids[c.UserID] = struct{}{}
		}
	}
	for _, q := range s.Queries {
		if match(q.ComplaintTag) {
			ids[q.UserID] = struct{}{}
		}
	}

	var out []model.PerformanceRecord
	for _, r := range s.Records {
		if _, ok := ids[r.UserID]; ok && matchesSearch(r, search) {
			out = append(out, r)
		}
	}
	return out
}

// Scatter returns one point per record.
func Scatter(records []model.PerformanceRecord) []ScatterPoint {
	out := make([]ScatterPoint, len(records))
	for i, r := range records {
		out[i] = ScatterPoint{
			UserID:      r.UserID,
			Name:        r.Name,
			Potential:   r.Potential,
			Last30Days:  r.Last30Days,
			ProRatedAch: r.ProRatedAch,
		}
	}
	return out
}

func indexRecords(records []model.PerformanceRecord) map[string]model.PerformanceRecord {
	m := make(map[string]model.PerformanceRecord, len(records))
	for _, r := range records {
		if _, dup := m[r.UserID]; !dup {
			m[r.UserID] = r
		}
	}
	return m
}

// matchesSearch is a case-insensitive substring match on UserID, Name and
// POC. An empty term matches everything.
func matchesSearch(r model.PerformanceRecord, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.UserID), term) ||
		strings.Contains(strings.ToLower(r.Name), term) ||
		strings.Contains(strings.ToLower(r.POC), term)
}
