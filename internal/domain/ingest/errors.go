package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/kam/internal/domain/model"
)

// Validation kinds. Every failure returned by Ingest is a *ValidationError
// whose Kind is one of these, so errors.Is(err, ErrInvalidDate) works.
var (
	ErrEmptyDataset   = errors.New("empty dataset")
	ErrMissingHeaders = errors.New("missing headers")
	ErrInvalidNumeric = errors.New("invalid numeric value")
	ErrInvalidDate    = errors.New("invalid date")
)

// ValidationError locates a rejected input. Row is the 1-based spreadsheet
// row (the header is row 1), Field the offending column.
type ValidationError struct {
	Kind    error
	Row     int
	Field   string
	Value   string
	Missing []string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrEmptyDataset:
		return "sheet must contain at least a header row and one data row"
	case ErrMissingHeaders:
		return fmt.Sprintf("sheet must contain the following headers: %s (missing: %s)",
			strings.Join(model.RequiredHeaders, ", "), strings.Join(e.Missing, ", "))
	case ErrInvalidNumeric:
		return fmt.Sprintf("invalid numeric value in row %d, column %s: %q", e.Row, e.Field, e.Value)
	case ErrInvalidDate:
		return fmt.Sprintf("invalid date format in row %d: %q, expected dd/mm/yyyy", e.Row, e.Value)
	}
	return fmt.Sprintf("row %d: %v", e.Row, e.Kind)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Code returns a stable snake_case identifier of the kind.
func (e *ValidationError) Code() string {
	switch e.Kind {
	case ErrEmptyDataset:
		return "empty_dataset"
	case ErrMissingHeaders:
		return "missing_headers"
	case ErrInvalidNumeric:
		return "invalid_numeric"
	case ErrInvalidDate:
		return "invalid_date"
	}
	return "invalid"
}
