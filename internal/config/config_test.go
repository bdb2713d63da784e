package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
source:
  lot_urls:
    - https://carstat.info/lot/1
    - "  "
    - https://carstat.info/lot/2
filter:
  allow_keywords: ["Runs And Drives", " starts "]
http:
  total_timeout_ms: 15000
storage:
  driver: postgres
  dsn: postgres://localhost/lots
blob:
  driver: local
  dir: /tmp/blobs
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOT_URLS", "ALLOW_KEYWORDS", "DENY_KEYWORDS",
		"SUPABASE_URL", "SUPABASE_SERVICE_KEY", "SUPABASE_BUCKET",
		"STORAGE_DRIVER", "STORAGE_DSN", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://carstat.info/lot/1", "https://carstat.info/lot/2"}, cfg.Source.LotURLs)
	assert.Equal(t, []string{"runs and drives", "starts"}, cfg.Filter.AllowKeywords)
	assert.Equal(t, DefaultDenyKeywords, cfg.Filter.DenyKeywords)
	assert.Equal(t, 15*time.Second, cfg.GetTotalTimeout())
	assert.Equal(t, 400*time.Millisecond, cfg.GetPhotoDelay())
	assert.Equal(t, 25, cfg.Photos.MaxPerLot)
	assert.Equal(t, DefaultSourceName, cfg.Source.Name)
	assert.Equal(t, DefaultSourceOrigin, cfg.Source.Origin)
	assert.Equal(t, DefaultUserAgent, cfg.HTTP.UserAgent)
	assert.Equal(t, DefaultBucket, cfg.Blob.Bucket)
	assert.Equal(t, "oneshot", cfg.Scheduler.Mode)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOT_URLS", "https://carstat.info/lot/9, ,https://carstat.info/lot/10")
	t.Setenv("DENY_KEYWORDS", "Scrap,Junk")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
	t.Setenv("SUPABASE_BUCKET", "photos")

	path := writeConfig(t, `
storage:
  driver: sqlite
  dsn: file:lots.db
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://carstat.info/lot/9", "https://carstat.info/lot/10"}, cfg.Source.LotURLs)
	assert.Equal(t, []string{"scrap", "junk"}, cfg.Filter.DenyKeywords)
	assert.Equal(t, DefaultAllowKeywords, cfg.Filter.AllowKeywords)
	assert.Equal(t, "supabase", cfg.Blob.Driver)
	assert.Equal(t, "https://project.supabase.co", cfg.Blob.URL)
	assert.Equal(t, "photos", cfg.Blob.Bucket)
}

func TestLoadConfigMissingLotURLsIsFatal(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
storage:
  dsn: file:lots.db
blob:
  driver: local
  dir: /tmp/blobs
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSourceURLs), "got %v", err)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOT_URLS", "https://carstat.info/lot/1")
	t.Setenv("STORAGE_DSN", "file:lots.db")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{
			Source:  SourceConfig{LotURLs: []string{"https://carstat.info/lot/1"}},
			Storage: StorageConfig{DSN: "file:lots.db"},
			Blob:    BlobConfig{Driver: "local", Dir: "/tmp"},
		}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad storage driver", func(c *Config) { c.Storage.Driver = "oracle" }, false},
		{"supabase without key", func(c *Config) { c.Blob.Driver = "supabase"; c.Blob.URL = "https://x" }, false},
		{"relative origin", func(c *Config) { c.Source.Origin = "carstat.info" }, false},
		{"interval without period", func(c *Config) { c.Scheduler.Mode = "interval" }, false},
		{"cron with expr", func(c *Config) { c.Scheduler.Mode = "cron"; c.Scheduler.CronExpr = "@hourly" }, true},
		{"negative delay", func(c *Config) { c.Photos.DelayMS = intPtr(-1) }, false},
		{"delay disabled", func(c *Config) { c.Photos.DelayMS = intPtr(0) }, true},
		{"photo cap at limit", func(c *Config) { c.Photos.MaxPerLot = MaxPhotosPerLot }, true},
		{"photo cap above limit", func(c *Config) { c.Photos.MaxPerLot = MaxPhotosPerLot + 1 }, false},
		{"photo cap negative", func(c *Config) { c.Photos.MaxPerLot = -3 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPhotoDelayZeroDisablesPause(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(writeConfig(t, sampleYAML+`
photos:
  delay_ms: 0
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Photos.DelayMS)
	assert.Zero(t, cfg.GetPhotoDelay())
}

func TestPhotoCapAboveLimitIsRejected(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(writeConfig(t, sampleYAML+`
photos:
  max_per_lot: 40
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "photos.max_per_lot")
}

func intPtr(v int) *int { return &v }
