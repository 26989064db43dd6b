package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/ingest"
	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/pkg/logger"
	"github.com/okian/kam/pkg/metrics"
)

// ImportPreview is a validated upload waiting for confirmation.
type ImportPreview struct {
	ID        string                    `json:"id"`
	Records   []model.PerformanceRecord `json:"records"`
	DataRows  int                       `json:"dataRows"`
	Dropped   int                       `json:"dropped"`
	ExpiresAt time.Time                 `json:"expiresAt"`
}

// ImportResult reports a confirmed import.
type ImportResult struct {
	PreviewID string `json:"previewId"`
	Records   int    `json:"records"`
	Dropped   int    `json:"dropped"`
}

type preview struct {
	ImportPreview
	createdAt time.Time
	createdBy string
}

// PreviewImport validates rows and keeps the result under a new preview ID.
// Nothing is replaced until ConfirmImport.
func (s *Service) PreviewImport(ctx context.Context, p access.Principal, rows [][]string) (ImportPreview, error) {
	if err := access.RequireAdmin(p); err != nil {
		metrics.RecordImport("preview", "forbidden")
		return ImportPreview{}, err
	}

	start := time.Now()
	res, err := ingest.Process(rows)
	metrics.RecordImportLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		kind := "unknown"
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			kind = verr.Code()
		}
		metrics.RecordImport("preview", "invalid")
		metrics.RecordImportFailure(kind)
		s.logger.Warn(ctx, "import rejected", logger.String("kind", kind), logger.Error(err))
		return ImportPreview{}, err
	}

	now := s.now()
	pv := &preview{
		ImportPreview: ImportPreview{
			ID:        uuid.NewString(),
			Records:   res.Records,
			DataRows:  res.DataRows,
			Dropped:   res.Dropped,
			ExpiresAt: now.Add(s.previewTTL),
		},
		createdAt: now,
		createdBy: p.UserID,
	}
	s.putPreview(pv)

	metrics.RecordImport("preview", "ok")
	metrics.RecordImportRows(len(res.Records), res.Dropped)
	s.logger.Info(ctx, "import preview ready",
		logger.String("preview", pv.ID),
		logger.Int("records", len(res.Records)),
		logger.Int("dropped", res.Dropped))
	return pv.ImportPreview, nil
}

// ConfirmImport replaces the record collection with the records of preview
// id. A preview can be confirmed once.
func (s *Service) ConfirmImport(ctx context.Context, p access.Principal, id string) (ImportResult, error) {
	if err := access.RequireAdmin(p); err != nil {
		metrics.RecordImport("confirm", "forbidden")
		return ImportResult{}, err
	}
	if s.confirmed.SeenAndRecord(ctx, id) {
		metrics.RecordImport("confirm", "duplicate")
		return ImportResult{}, ErrPreviewConfirmed
	}

	pv, ok := s.takePreview(id)
	if !ok {
		s.confirmed.Unrecord(ctx, id)
		metrics.RecordImport("confirm", "not_found")
		return ImportResult{}, ErrPreviewNotFound
	}

	if err := s.store.ReplaceRecords(ctx, pv.Records); err != nil {
		s.confirmed.Unrecord(ctx, id)
		s.putPreview(pv)
		metrics.RecordImport("confirm", "error")
		return ImportResult{}, fmt.Errorf("confirm import: %w", err)
	}

	metrics.RecordImport("confirm", "ok")
	s.logger.Info(ctx, "import confirmed",
		logger.String("preview", id),
		logger.String("by", p.UserID),
		logger.Int("records", len(pv.Records)))
	return ImportResult{PreviewID: id, Records: len(pv.Records), Dropped: pv.Dropped}, nil
}

// DirectImport previews and confirms rows in one step.
func (s *Service) DirectImport(ctx context.Context, p access.Principal, rows [][]string) (ImportResult, error) {
	pv, err := s.PreviewImport(ctx, p, rows)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ConfirmImport(ctx, p, pv.ID)
}

// putPreview stores pv, evicting expired previews and then the oldest one
// when the limit is reached.
func (s *Service) putPreview(pv *preview) {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()

	s.sweepLocked()
	for len(s.previews) >= s.maxPreviews {
		var oldest *preview
		for _, x := range s.previews {
			if oldest == nil || x.createdAt.Before(oldest.createdAt) {
				oldest = x
			}
		}
		delete(s.previews, oldest.ID)
	}
	s.previews[pv.ID] = pv
	metrics.UpdatePreviewsActive(len(s.previews))
}

// takePreview removes and returns a live preview.
func (s *Service) takePreview(id string) (*preview, bool) {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()

	pv, ok := s.previews[id]
	if !ok {
		return nil, false
	}
	delete(s.previews, id)
	metrics.UpdatePreviewsActive(len(s.previews))
	if !s.now().Before(pv.ExpiresAt) {
		return nil, false
	}
	return pv, true
}

func (s *Service) sweepPreviews() int {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	return s.sweepLocked()
}

func (s *Service) sweepLocked() int {
	now := s.now()
	n := 0
	for id, pv := range s.previews {
		if !now.Before(pv.ExpiresAt) {
			delete(s.previews, id)
			n++
		}
	}
	if n > 0 {
		metrics.UpdatePreviewsActive(len(s.previews))
	}
	return n
}

func (s *Service) pendingPreviews() int {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	return len(s.previews)
}
