package config

import (
	"errors"
)

// Sentinel error kinds. Load and Validate wrap one of these so callers can
// distinguish a bad value from an unreadable source with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
