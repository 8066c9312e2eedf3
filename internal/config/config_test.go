package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cofre/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "/home/tester/.local/share/cofre/cofre.db", cfg.Database.Path)
	assert.Equal(t, 3, cfg.Database.BusyRetries)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 5*time.Minute, cfg.Engine.CacheTTL)
	assert.Equal(t, 2, cfg.Engine.StrongTokens)
	assert.Equal(t, model.ConflictKeep, cfg.Learning.ConflictPolicy)
	assert.InDelta(t, 0.75, cfg.Learning.SeedConfidence, 1e-9)
	assert.Equal(t, 180*24*time.Hour, cfg.History.Window)
	assert.InDelta(t, 0.7, cfg.Import.MinConfidence, 1e-9)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Address)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/cofre-test.db
engine:
  cache_ttl: 30s
  strong_tokens: 3
learning:
  conflict_policy: overwrite
server:
  address: ":9090"
`), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cofre-test.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.Engine.CacheTTL)
	assert.Equal(t, 3, cfg.Engine.StrongTokens)
	assert.Equal(t, model.ConflictOverwrite, cfg.Learning.ConflictPolicy)
	assert.Equal(t, ":9090", cfg.Server.Address)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("COFRE_IMPORT_MIN_CONFIDENCE", "0.85")

	v := viper.New()
	v.SetEnvPrefix("COFRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.InDelta(t, 0.85, cfg.Import.MinConfidence, 1e-9)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		wantErr string
	}{
		{"unknown policy", "learning.conflict_policy", "merge", "conflict_policy"},
		{"bad level", "logging.level", "loud", "logging.level"},
		{"bad format", "logging.format", "xml", "logging.format"},
		{"zero ttl", "engine.cache_ttl", "0s", "engine.cache_ttl"},
		{"no strong tokens", "engine.strong_tokens", 0, "engine.strong_tokens"},
		{"seed above one", "learning.seed_confidence", 1.5, "seed_confidence"},
		{"negative import threshold", "import.min_confidence", -0.1, "import.min_confidence"},
		{"empty address", "server.address", "", "server.address"},
		{"no busy retries", "database.busy_retries", 0, "database.busy_retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("COFRE_DATA", "/srv/cofre")

	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{":memory:", ":memory:"},
		{"~", "/home/tester"},
		{"~/cofre.db", "/home/tester/cofre.db"},
		{"$COFRE_DATA/cofre.db", "/srv/cofre/cofre.db"},
		{"/abs/path.db", "/abs/path.db"},
		{"~other/path", "~other/path"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.input))
		})
	}
}

func TestDefaultBackupPath(t *testing.T) {
	at := time.Date(2025, time.March, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "/data/backups/cofre-2025-03-04-050607.db", DefaultBackupPath("/data/cofre.db", at))
}
