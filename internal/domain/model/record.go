// Package model contains the domain entities shared by every layer.
package model

// Spreadsheet header labels of a performance sheet.
const (
	HeaderUserID     = "UserID"
	HeaderDate       = "Date"
	HeaderName       = "Name"
	HeaderPOC        = "POC"
	HeaderPotential  = "Potential"
	HeaderLast30Days = "Last 30 days"
	HeaderShortFall  = "ShortFall"

	// HeaderProRatedAch labels the derived column; it is never read from
	// input.
	HeaderProRatedAch = "ProRatedAch"
)

// RequiredHeaders lists the header labels an import must carry, in the order
// they are reported to the user.
var RequiredHeaders = []string{
	HeaderUserID,
	HeaderDate,
	HeaderName,
	HeaderPOC,
	HeaderPotential,
	HeaderLast30Days,
	HeaderShortFall,
}

// PerformanceRecord is one validated spreadsheet row. ProRatedAch is always
// derived during ingestion and never read from input.
type PerformanceRecord struct {
	UserID      string  `json:"UserID"`
	Date        string  `json:"Date"`
	Name        string  `json:"Name"`
	POC         string  `json:"POC"`
	Potential   float64 `json:"Potential"`
	Last30Days  float64 `json:"Last 30 days"`
	ProRatedAch float64 `json:"ProRatedAch"`
	ShortFall   float64 `json:"ShortFall"`
}
