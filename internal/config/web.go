package config

import (
	"fmt"
	"time"
)

// WebConfig configures cmd/csvviz-web.
type WebConfig struct {
	Addr string
	// Sessions bounds the in-memory session cache.
	Sessions int
	// MaxUploadBytes caps uploaded and downloaded inputs.
	MaxUploadBytes int64
	// StopTimeout bounds graceful shutdown.
	StopTimeout time.Duration
	// AllowURL enables loading sources by URL from the browser.
	AllowURL bool
	Log      Log
}

// DefaultWebConfig returns the settings used when no flags are given.
func DefaultWebConfig() WebConfig {
	return WebConfig{
		Addr:           ":8080",
		Sessions:       256,
		MaxUploadBytes: 64 << 20,
		StopTimeout:    10 * time.Second,
		AllowURL:       true,
	}
}

// Validate checks the server settings.
func (w WebConfig) Validate() error {
	switch {
	case w.Addr == "":
		return fmt.Errorf("config: web addr must not be empty")
	case w.Sessions <= 0:
		return fmt.Errorf("config: web sessions must be positive, got %d", w.Sessions)
	case w.MaxUploadBytes <= 0:
		return fmt.Errorf("config: web max upload must be positive, got %d", w.MaxUploadBytes)
	case w.StopTimeout < 0:
		return fmt.Errorf("config: web stop timeout must not be negative")
	}
	return nil
}
