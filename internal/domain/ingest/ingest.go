// Package ingest turns a raw spreadsheet grid into validated performance
// records.
//
// Ingestion is a single pure pass: the first invalid cell aborts the whole
// batch and nothing is returned. Rows lacking a UserID, Name or POC are
// dropped without error.
package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/internal/domain/scoring"
)

// firstDataRow is the spreadsheet row number of the first data row.
const firstDataRow = 2

// datePattern accepts dd/mm/yyyy without checking the day against the month.
var datePattern = regexp.MustCompile(`^(0[1-9]|[12][0-9]|3[01])/(0[1-9]|1[0-2])/\d{4}$`)

// Result is the outcome of a successful ingestion.
type Result struct {
	Records  []model.PerformanceRecord
	DataRows int
	Dropped  int
}

// Ingest validates rows (header first) and returns the kept records in input
// order.
func Ingest(rows [][]string) ([]model.PerformanceRecord, error) {
	res, err := Process(rows)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Process is Ingest with row accounting.
func Process(rows [][]string) (Result, error) {
	if len(rows) < 2 {
		return Result{}, &ValidationError{Kind: ErrEmptyDataset}
	}

	columns, missing := indexHeaders(rows[0])
	if len(missing) > 0 {
		return Result{}, &ValidationError{Kind: ErrMissingHeaders, Missing: missing}
	}

	data := rows[1:]
	out := make([]model.PerformanceRecord, 0, len(data))
	for i, row := range data {
		rec, err := parseRow(columns, row, i+firstDataRow)
		if err != nil {
			return Result{}, err
		}
		if rec.UserID == "" || rec.Name == "" || rec.POC == "" {
			continue
		}
		out = append(out, rec)
	}

	return Result{Records: out, DataRows: len(data), Dropped: len(data) - len(out)}, nil
}

// indexHeaders maps each label to its column. A repeated label resolves to
// its last occurrence.
func indexHeaders(header []string) (map[string]int, []string) {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[h] = i
	}
	var missing []string
	for _, h := range model.RequiredHeaders {
		if _, ok := columns[h]; !ok {
			missing = append(missing, h)
		}
	}
	return columns, missing
}

func parseRow(columns map[string]int, row []string, rowNum int) (model.PerformanceRecord, error) {
	cell := func(h string) string {
		if i := columns[h]; i < len(row) {
			return row[i]
		}
		return ""
	}

	rec := model.PerformanceRecord{
		UserID: cell(model.HeaderUserID),
		Name:   cell(model.HeaderName),
		POC:    cell(model.HeaderPOC),
		Date:   cell(model.HeaderDate),
	}

	numbers := [...]struct {
		header string
		dst    *float64
	}{
		{model.HeaderPotential, &rec.Potential},
		{model.HeaderLast30Days, &rec.Last30Days},
		{model.HeaderShortFall, &rec.ShortFall},
	}
	for _, n := range numbers {
		raw := cell(n.header)
		v, ok := parseNumber(raw)
		if !ok {
			return model.PerformanceRecord{}, &ValidationError{Kind: ErrInvalidNumeric, Row: rowNum, Field: n.header, Value: raw}
		}
		*n.dst = v
	}

	if !datePattern.MatchString(rec.Date) {
		return model.PerformanceRecord{}, &ValidationError{Kind: ErrInvalidDate, Row: rowNum, Field: model.HeaderDate, Value: rec.Date}
	}

	rec.ProRatedAch = scoring.ProRatedAch(rec.Last30Days, rec.Potential)
	return rec, nil
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
