package sampledata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/kam/internal/domain/scoring"
	"github.com/okian/kam/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o640
)

// Maximum profiles verified per run.
const maxProfileChecks = 200

// ErrVerification is returned when the server disagrees with the sheet.
var ErrVerification = errors.New("imported data does not match the generated sheet")

// Run generates a sheet, imports it through the preview and confirm
// endpoints and checks the server's view of it.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := cfg.logger()

	log.Info(ctx, "starting kam sample run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("rows", cfg.Rows),
		logger.Int("pocs", cfg.POCs),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	rows, err := Generate(cfg.Rows, cfg.POCs, cfg.Seed, time.Now())
	if err != nil {
		return stats, fmt.Errorf("generation failed: %w", err)
	}
	stats.RowsGenerated = len(rows) - 1
	stats.Underperforming = Underperforming(rows)

	book, err := Workbook(rows)
	if err != nil {
		return stats, fmt.Errorf("workbook failed: %w", err)
	}
	if cfg.Output != "" {
		if err := SaveFile(cfg.Output, book); err != nil {
			log.Warn(ctx, "failed to keep workbook", logger.String("path", cfg.Output), logger.Error(err))
		}
	}

	if err := client.Login(ctx, cfg.Login, cfg.Password); err != nil {
		return stats, fmt.Errorf("login failed: %w", err)
	}
	preview, err := client.Upload(ctx, "sample.xlsx", book)
	if err != nil {
		return stats, fmt.Errorf("upload failed: %w", err)
	}
	log.Info(ctx, "preview staged", logger.String("id", preview.ID), logger.Int("records", len(preview.Records)))

	res, err := client.Confirm(ctx, preview.ID)
	if err != nil {
		return stats, fmt.Errorf("confirm failed: %w", err)
	}
	stats.RecordsImported = res.Records
	stats.Dropped = res.Dropped

	if err := verify(ctx, cfg, client, rows, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// verify compares table totals and a sample of profiles with the sheet.
func verify(ctx context.Context, cfg *Config, client *Client, rows [][]any, stats *Stats) error {
	page, err := client.Records(ctx, url.Values{"limit": {"1"}})
	if err != nil {
		return fmt.Errorf("records failed: %w", err)
	}
	if page.Total != stats.RowsGenerated {
		return fmt.Errorf("%w: server holds %d records, sheet has %d", ErrVerification, page.Total, stats.RowsGenerated)
	}
	if page.Underperforming != stats.Underperforming {
		return fmt.Errorf("%w: server counts %d underperforming, sheet has %d", ErrVerification, page.Underperforming, stats.Underperforming)
	}

	type check struct {
		userID string
		ach    float64
	}
	checks := make(chan check, cfg.Workers*2)
	var (
		wg       sync.WaitGroup
		checked  atomic.Int64
		mismatch atomic.Int64
		failures atomic.Int64
	)
	log := cfg.logger()

	for i := 0; i < max(cfg.Workers, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range checks {
				prof, err := client.Profile(ctx, c.userID)
				checked.Add(1)
				switch {
				case err != nil:
					failures.Add(1)
					log.Warn(ctx, "profile fetch failed", logger.String("userID", c.userID), logger.Error(err))
				case math.Abs(prof.Record.ProRatedAch-c.ach) > 0.001:
					mismatch.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "profile mismatch",
							logger.String("userID", c.userID),
							logger.Float64("want", c.ach),
							logger.Float64("got", prof.Record.ProRatedAch))
					}
				}
			}
		}()
	}

	step := max(len(rows)/maxProfileChecks, 1)
feed:
	for i := 1; i < len(rows); i += step {
		userID, _ := rows[i][0].(string)
		last30, _ := rows[i][5].(float64)
		potential, _ := rows[i][4].(float64)
		select {
		case <-ctx.Done():
			break feed
		case checks <- check{userID: userID, ach: scoring.ProRatedAch(last30, potential)}:
		}
	}
	close(checks)
	wg.Wait()

	stats.ProfilesChecked = int(checked.Load())
	stats.ProfilesMismatch = int(mismatch.Load() + failures.Load())
	if err := ctx.Err(); err != nil {
		return err
	}
	if stats.ProfilesMismatch > 0 {
		return fmt.Errorf("%w: %d of %d profiles differ", ErrVerification, stats.ProfilesMismatch, stats.ProfilesChecked)
	}
	return nil
}

// SaveFile writes data to path, creating parent directories.
func SaveFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// DefaultOutput names a timestamped workbook in the working directory.
func DefaultOutput(now time.Time) string {
	return "kam_sample_" + now.Format("20060102_150405") + ".xlsx"
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var rowsPerSecond float64
	if stats.Duration > 0 {
		rowsPerSecond = float64(stats.RecordsImported) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("rowsGenerated", stats.RowsGenerated),
		logger.Int("underperforming", stats.Underperforming),
		logger.Int("recordsImported", stats.RecordsImported),
		logger.Int("dropped", stats.Dropped),
		logger.Int("profilesChecked", stats.ProfilesChecked),
		logger.String("duration", stats.Duration.String()),
		logger.String("rowsPerSecond", strconv.FormatFloat(rowsPerSecond, 'f', 1, 64)))
}
