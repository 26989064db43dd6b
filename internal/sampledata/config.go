// Package sampledata generates performance spreadsheets and drives a
// running KAM server through the import workflow with them.
package sampledata

import (
	"time"

	"github.com/okian/kam/pkg/logger"
)

// Config holds configuration for a sample run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Login    string        // Admin username or email
	Password string        // Admin password
	Rows     int           // Number of data rows to generate
	POCs     int           // Number of distinct POCs the rows are spread over
	Seed     uint64        // Seed for reproducible sheets; 0 picks one
	Workers  int           // Concurrent profile checks
	Timeout  time.Duration // HTTP request timeout
	Output   string        // Optional path the generated workbook is kept at
	Verbose  bool          // Log every profile mismatch
	Logger   logger.Logger // Progress log; nil discards it
}

func (c *Config) logger() logger.Logger {
	if c.Logger == nil {
		return logger.Nop()
	}
	return c.Logger.Named("sample")
}

// Stats holds run statistics.
type Stats struct {
	RowsGenerated    int
	Underperforming  int
	RecordsImported  int
	Dropped          int
	ProfilesChecked  int
	ProfilesMismatch int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
