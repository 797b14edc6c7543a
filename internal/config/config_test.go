package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "0.0.0.0:7711", cfg.Authority.BindAddress)
	assert.Equal(t, "http://localhost:7711", cfg.Viewer.AuthorityURL)
	assert.Equal(t, 16*time.Millisecond, cfg.Viewer.FrameInterval)
	assert.Empty(t, cfg.Database.DSN)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orrery.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[authority]
bind_address = "127.0.0.1:9000"

[viewer]
starfield_count = 300

[logging]
format = "json"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Authority.BindAddress)
	assert.Equal(t, 300, cfg.Viewer.StarfieldCount)
	assert.Equal(t, "json", cfg.Logging.Format)
	// Untouched keys keep their defaults.
	assert.Equal(t, 16, cfg.Authority.BroadcastQueue)
	assert.Equal(t, 2*time.Second, cfg.Viewer.RetryWait)
}

func TestLoadRejectsNonPositiveIntervals(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zero frame interval", body: "[viewer]\nframe_interval = \"0s\""},
		{name: "negative retry wait", body: "[viewer]\nretry_wait = \"-1s\""},
		{name: "zero broadcast queue", body: "[authority]\nbroadcast_queue = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "orrery.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orrery.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadOrDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadOrDefaults(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}
