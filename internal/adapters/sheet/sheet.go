// Package sheet reads uploaded spreadsheets into a grid of cell strings.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sentinel kinds for sheet errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoSheet           = errors.New("workbook has no sheets")
	ErrUnreadable        = errors.New("unreadable spreadsheet")
)

// Format is a spreadsheet container format.
type Format string

// Supported formats.
const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatOf picks the format from a file name's extension.
func FormatOf(filename string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q (use .xlsx or .csv)", ErrUnsupportedFormat, ext)
	}
}

// Read parses r according to filename's extension.
func Read(r io.Reader, filename string) ([][]string, error) {
	f, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}
	if f == FormatCSV {
		return ReadCSV(r)
	}
	return ReadXLSX(r)
}

// ReadXLSX returns the rows of the first worksheet. Cells hold their raw
// stored values, so numbers are not thousands-separated and date cells come
// back as serial numbers. Rows keep their sheet positions; trailing empty
// cells are omitted.
func ReadXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrUnreadable, sheets[0], err)
	}
	return rows, nil
}

// ReadCSV returns every record of a comma separated file. Records may have
// differing lengths and a leading byte order mark is dropped.
func ReadCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\uFEFF")
	}
	return rows, nil
}
