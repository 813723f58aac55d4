// Package settings holds the runtime-editable webhook settings record.
package settings

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/igoorng/webhook/internal/constants"
	"github.com/igoorng/webhook/internal/jsonfile"
	"github.com/igoorng/webhook/internal/logger"
	apperrors "github.com/igoorng/webhook/pkg/errors"
	"github.com/igoorng/webhook/pkg/metrics"
)

type Settings struct {
	Secret      string `json:"secret"`
	Enabled     bool   `json:"enabled"`
	EventFilter string `json:"event_filter"`
}

// Update is a partial change; nil fields are left as they are.
type Update struct {
	Secret      *string `json:"secret"`
	Enabled     *bool   `json:"enabled"`
	EventFilter *string `json:"event_filter"`
}

func (u Update) apply(s Settings) Settings {
	if u.Secret != nil {
		s.Secret = *u.Secret
	}
	if u.Enabled != nil {
		s.Enabled = *u.Enabled
	}
	if u.EventFilter != nil {
		s.EventFilter = *u.EventFilter
	}
	return s
}

type Store struct {
	path   string
	logger logger.Logger

	mu      sync.RWMutex
	current Settings
}

// Load reads the settings file, filling keys it lacks from defaults. A
// missing or unreadable file yields defaults.
func Load(dataDir string, defaults Settings, log logger.Logger) *Store {
	s := &Store{
		path:    filepath.Join(dataDir, constants.SettingsFile),
		logger:  log,
		current: defaults,
	}

	// Decoding over the defaults keeps them for absent keys.
	loaded := defaults
	if err := jsonfile.Read(s.path, &loaded); err != nil {
		if !errors.Is(err, jsonfile.ErrNotExist) {
			metrics.IncStorageError("settings_load")
			log.Errorw("Failed to load settings, using defaults", "error", err)
		}
		return s
	}

	s.current = loaded
	return s
}

func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Apply persists the updated settings and only then makes them current.
func (s *Store) Apply(ctx context.Context, u Update) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := u.apply(s.current)
	if err := jsonfile.Write(s.path, next); err != nil {
		metrics.IncStorageError("settings_save")
		s.logger.ErrorwCtx(ctx, "Failed to save settings", "error", err)
		return s.current, apperrors.ErrStorage.WithCause(err)
	}

	s.current = next
	s.logger.InfowCtx(ctx, "Settings updated",
		"enabled", next.Enabled,
		"secret_set", next.Secret != "",
		"event_filter", next.EventFilter,
	)
	return next, nil
}
