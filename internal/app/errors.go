package service

import "errors"

var (
	// ErrNotStarted is returned by operations that need a started service.
	ErrNotStarted = errors.New("service not started")
	// ErrPreviewNotFound is returned for unknown or expired previews.
	ErrPreviewNotFound = errors.New("import preview not found or expired")
	// ErrPreviewConfirmed is returned when a preview was already confirmed.
	ErrPreviewConfirmed = errors.New("import preview already confirmed")
)
