package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoorng/webhook/internal/constants"
	"github.com/igoorng/webhook/internal/logger"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestLoadDefaultsWhenMissing(t *testing.T) {
	defaults := Settings{Secret: "d", Enabled: true, EventFilter: "push"}
	s := Load(t.TempDir(), defaults, logger.NopLogger())
	assert.Equal(t, defaults, s.Get())
}

func TestLoadFillsMissingKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, constants.SettingsFile), []byte(`{"secret":"abc"}`), 0o644))

	s := Load(dir, Settings{Enabled: true, EventFilter: "push"}, logger.NopLogger())
	assert.Equal(t, Settings{Secret: "abc", Enabled: true, EventFilter: "push"}, s.Get())
}

func TestLoadCorruptFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, constants.SettingsFile), []byte(`{`), 0o644))

	s := Load(dir, Settings{Enabled: true}, logger.NopLogger())
	assert.Equal(t, Settings{Enabled: true}, s.Get())
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	s := Load(dir, Settings{Enabled: true}, logger.NopLogger())

	tests := []struct {
		name   string
		update Update
		want   Settings
	}{
		{
			name:   "set secret",
			update: Update{Secret: strPtr("s3cr3t")},
			want:   Settings{Secret: "s3cr3t", Enabled: true},
		},
		{
			name:   "disable keeps secret",
			update: Update{Enabled: boolPtr(false)},
			want:   Settings{Secret: "s3cr3t", Enabled: false},
		},
		{
			name:   "set filter and clear secret",
			update: Update{Secret: strPtr(""), EventFilter: strPtr("push")},
			want:   Settings{Secret: "", Enabled: false, EventFilter: "push"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Apply(context.Background(), tt.update)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, s.Get())

			reloaded := Load(dir, Settings{Enabled: true, EventFilter: "other"}, logger.NopLogger())
			assert.Equal(t, tt.want, reloaded.Get())
		})
	}
}

func TestApplyFailureKeepsCurrent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	s := Load(dir, Settings{Enabled: true}, logger.NopLogger())
	require.NoError(t, os.RemoveAll(dir))

	got, err := s.Apply(context.Background(), Update{Enabled: boolPtr(false)})
	require.Error(t, err)
	assert.True(t, got.Enabled)
	assert.True(t, s.Get().Enabled)
}
