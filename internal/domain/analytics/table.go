package analytics

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/internal/domain/scoring"
)

// ErrInvalidQuery is returned for an unknown sort field or direction.
var ErrInvalidQuery = errors.New("invalid table query")

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// DefaultSort is the column the records table opens on.
const DefaultSort = model.HeaderProRatedAch

// TableQuery filters, sorts and pages the records table. Sort takes a
// spreadsheet header name; numeric columns sort numerically and text
// columns case-insensitively.
type TableQuery struct {
	Search      string
	POC         string
	Performance scoring.Band
	Sort        string
	Dir         string
	Limit       int
	Offset      int
}

// TablePage is one page of the records table plus figures over every
// filtered row.
type TablePage struct {
	Rows            []model.PerformanceRecord `json:"rows"`
	Total           int                       `json:"total"`
	Underperforming int                       `json:"underperforming"`
	AvgProRatedAch  float64                   `json:"avgProRatedAch"`
}

var numericColumns = map[string]func(model.PerformanceRecord) float64{
	model.HeaderPotential:   func(r model.PerformanceRecord) float64 { return r.Potential },
	model.HeaderLast30Days:  func(r model.PerformanceRecord) float64 { return r.Last30Days },
	model.HeaderProRatedAch: func(r model.PerformanceRecord) float64 { return r.ProRatedAch },
	model.HeaderShortFall:   func(r model.PerformanceRecord) float64 { return r.ShortFall },
}

var textColumns = map[string]func(model.PerformanceRecord) string{
	model.HeaderUserID: func(r model.PerformanceRecord) string { return r.UserID },
	model.HeaderDate:   func(r model.PerformanceRecord) string { return r.Date },
	model.HeaderName:   func(r model.PerformanceRecord) string { return r.Name },
	model.HeaderPOC:    func(r model.PerformanceRecord) string { return r.POC },
}

// Table applies q to records. The input slice is not modified.
func Table(records []model.PerformanceRecord, q TableQuery) (TablePage, error) {
	compare, err := comparator(q.Sort, q.Dir)
	if err != nil {
		return TablePage{}, err
	}

	band := q.Performance
	if band == "" {
		band = scoring.BandAll
	}

	var rows []model.PerformanceRecord
	var sum float64
	page := TablePage{}
	for _, r := range records {
		if !matchesSearch(r, q.Search) || (q.POC != "" && r.POC != q.POC) || !band.Matches(r.ProRatedAch) {
			continue
		}
		rows = append(rows, r)
		sum += r.ProRatedAch
		if scoring.IsUnderperforming(r.ProRatedAch) {
			page.Underperforming++
		}
	}
	page.Total = len(rows)
	if page.Total > 0 {
		page.AvgProRatedAch = scoring.Round1(sum / float64(page.Total))
	}

	slices.SortStableFunc(rows, compare)
	page.Rows = paginate(rows, q.Limit, q.Offset)
	return page, nil
}

func comparator(field, dir string) (func(a, b model.PerformanceRecord) int, error) {
	if field == "" {
		field = DefaultSort
	}
	sign := 1
	switch strings.ToLower(dir) {
	case "", Asc:
	case Desc:
		sign = -1
	default:
		return nil, fmt.Errorf("%w: direction %q", ErrInvalidQuery, dir)
	}

	if get, ok := numericColumns[field]; ok {
		return func(a, b model.PerformanceRecord) int {
			return sign * cmp.Compare(get(a), get(b))
		}, nil
	}
	if get, ok := textColumns[field]; ok {
		return func(a, b model.PerformanceRecord) int {
			return sign * strings.Compare(strings.ToLower(get(a)), strings.ToLower(get(b)))
		}, nil
	}
	return nil, fmt.Errorf("%w: sort field %q", ErrInvalidQuery, field)
}

func paginate(rows []model.PerformanceRecord, limit, offset int) []model.PerformanceRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []model.PerformanceRecord{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
