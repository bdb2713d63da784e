package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoSourceURLs is returned when no lot URLs are configured.
var ErrNoSourceURLs = errors.New("no lot URLs configured (set source.lot_urls or LOT_URLS)")

var (
	DefaultAllowKeywords = []string{"run and drive", "runs and drives", "engine starts", "starts"}
	DefaultDenyKeywords  = []string{"parts only", "non-repairable", "scrap", "junk", "certificate of destruction"}
)

const (
	DefaultSourceName   = "carstat.info"
	DefaultSourceOrigin = "https://carstat.info"
	DefaultUserAgent    = "Mozilla/5.0 (vinwreck-parser/1.0)"
	DefaultBucket       = "lot-photos"

	// MaxPhotosPerLot is the upper bound for photos.max_per_lot.
	MaxPhotosPerLot     = 25
	DefaultPhotoDelayMS = 400
)

type Config struct {
	Source        SourceConfig        `yaml:"source"`
	Filter        FilterConfig        `yaml:"filter"`
	HTTP          HttpConfig          `yaml:"http"`
	Photos        PhotosConfig        `yaml:"photos"`
	Storage       StorageConfig       `yaml:"storage"`
	Blob          BlobConfig          `yaml:"blob"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type SourceConfig struct {
	Name    string   `yaml:"name"`
	Origin  string   `yaml:"origin"`
	LotURLs []string `yaml:"lot_urls"`
}

type FilterConfig struct {
	AllowKeywords []string `yaml:"allow_keywords"`
	DenyKeywords  []string `yaml:"deny_keywords"`
}

type HttpConfig struct {
	UserAgent              string `yaml:"user_agent"`
	TotalTimeoutMS         int    `yaml:"total_timeout_ms"`
	MaxIdleConnections     int    `yaml:"max_idle_connections"`
	IdleConnectionTimeoutS int    `yaml:"idle_connection_timeout_s"`
}

type PhotosConfig struct {
	MaxPerLot int `yaml:"max_per_lot"`
	// DelayMS is the pause between photo attempts. Unset means the
	// default; an explicit 0 disables the pause.
	DelayMS *int `yaml:"delay_ms"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
	MaxConnections   int    `yaml:"max_connections"`
	// ViaBouncer switches postgres to the simple protocol for PgBouncer
	// transaction pooling (Supabase pooler).
	ViaBouncer bool `yaml:"via_bouncer"`
}

type BlobConfig struct {
	Driver     string `yaml:"driver"`
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
	Bucket     string `yaml:"bucket"`
	Dir        string `yaml:"dir"`
}

type SchedulerConfig struct {
	Mode      string `yaml:"mode"`
	IntervalS int    `yaml:"interval_s"`
	CronExpr  string `yaml:"cron_expr"`
}

type ObservabilityConfig struct {
	LogPath     string `yaml:"log_path"`
	LogLevel    string `yaml:"log_level"`
	MetricsPath string `yaml:"metrics_path"`
}

// ApplyDefaults fills every optional field left empty by the config file.
func (c *Config) ApplyDefaults() {
	if c.Source.Name == "" {
		c.Source.Name = DefaultSourceName
	}
	if c.Source.Origin == "" {
		c.Source.Origin = DefaultSourceOrigin
	}
	c.Source.Origin = strings.TrimRight(c.Source.Origin, "/")
	c.Source.LotURLs = cleanList(c.Source.LotURLs, false)

	c.Filter.AllowKeywords = cleanList(c.Filter.AllowKeywords, true)
	if len(c.Filter.AllowKeywords) == 0 {
		c.Filter.AllowKeywords = append([]string(nil), DefaultAllowKeywords...)
	}
	c.Filter.DenyKeywords = cleanList(c.Filter.DenyKeywords, true)
	if len(c.Filter.DenyKeywords) == 0 {
		c.Filter.DenyKeywords = append([]string(nil), DefaultDenyKeywords...)
	}

	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = DefaultUserAgent
	}
	if c.HTTP.TotalTimeoutMS == 0 {
		c.HTTP.TotalTimeoutMS = 30000
	}
	if c.HTTP.MaxIdleConnections == 0 {
		c.HTTP.MaxIdleConnections = 10
	}
	if c.HTTP.IdleConnectionTimeoutS == 0 {
		c.HTTP.IdleConnectionTimeoutS = 90
	}

	if c.Photos.MaxPerLot == 0 {
		c.Photos.MaxPerLot = MaxPhotosPerLot
	}
	if c.Photos.DelayMS == nil {
		delay := DefaultPhotoDelayMS
		c.Photos.DelayMS = &delay
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.CommandTimeoutMS == 0 {
		c.Storage.CommandTimeoutMS = 10000
	}
	if c.Storage.MaxConnections == 0 {
		c.Storage.MaxConnections = 2
	}

	if c.Blob.Driver == "" {
		c.Blob.Driver = "supabase"
	}
	if c.Blob.Bucket == "" {
		c.Blob.Bucket = DefaultBucket
	}

	if c.Scheduler.Mode == "" {
		c.Scheduler.Mode = "oneshot"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
}

// Validation
func (c *Config) Validate() error {
	if len(c.Source.LotURLs) == 0 {
		return ErrNoSourceURLs
	}
	if c.Source.Name == "" {
		return fmt.Errorf("source.name is required")
	}
	if !strings.HasPrefix(c.Source.Origin, "http://") && !strings.HasPrefix(c.Source.Origin, "https://") {
		return fmt.Errorf("source.origin must be an absolute http(s) URL, got %q", c.Source.Origin)
	}
	if len(c.Filter.AllowKeywords) == 0 {
		return fmt.Errorf("filter.allow_keywords must not be empty")
	}
	if len(c.Filter.DenyKeywords) == 0 {
		return fmt.Errorf("filter.deny_keywords must not be empty")
	}
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.Photos.MaxPerLot <= 0 || c.Photos.MaxPerLot > MaxPhotosPerLot {
		return fmt.Errorf("photos.max_per_lot must be between 1 and %d, got %d", MaxPhotosPerLot, c.Photos.MaxPerLot)
	}
	if c.Photos.DelayMS != nil && *c.Photos.DelayMS < 0 {
		return fmt.Errorf("photos.delay_ms must be >= 0")
	}
	switch c.Storage.Driver {
	case "mssql", "postgres", "sqlite":
	default:
		return fmt.Errorf("storage.driver must be 'mssql', 'postgres' or 'sqlite'")
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required")
	}
	if c.Storage.CommandTimeoutMS <= 0 {
		return fmt.Errorf("storage.command_timeout_ms must be > 0")
	}
	switch c.Blob.Driver {
	case "supabase":
		if c.Blob.URL == "" {
			return fmt.Errorf("blob.url is required when blob.driver is 'supabase'")
		}
		if c.Blob.ServiceKey == "" {
			return fmt.Errorf("blob.service_key is required when blob.driver is 'supabase'")
		}
	case "local":
		if c.Blob.Dir == "" {
			return fmt.Errorf("blob.dir is required when blob.driver is 'local'")
		}
	default:
		return fmt.Errorf("blob.driver must be 'supabase' or 'local'")
	}
	if c.Blob.Bucket == "" {
		return fmt.Errorf("blob.bucket is required")
	}
	if c.Scheduler.Mode != "interval" && c.Scheduler.Mode != "cron" && c.Scheduler.Mode != "oneshot" {
		return fmt.Errorf("scheduler.mode must be 'interval', 'cron' or 'oneshot'")
	}
	if c.Scheduler.Mode == "interval" && c.Scheduler.IntervalS <= 0 {
		return fmt.Errorf("scheduler.interval_s must be > 0 when mode is 'interval'")
	}
	if c.Scheduler.Mode == "cron" && c.Scheduler.CronExpr == "" {
		return fmt.Errorf("scheduler.cron_expr must be set when mode is 'cron'")
	}
	return nil
}

// Getters
func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetIdleConnectionTimeout() time.Duration {
	return time.Duration(c.HTTP.IdleConnectionTimeoutS) * time.Second
}

func (c *Config) GetPhotoDelay() time.Duration {
	if c.Photos.DelayMS == nil {
		return DefaultPhotoDelayMS * time.Millisecond
	}
	return time.Duration(*c.Photos.DelayMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}

func (c *Config) GetSchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalS) * time.Second
}

// cleanList trims entries and drops empty ones, optionally lower-casing them.
func cleanList(items []string, lower bool) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if lower {
			item = strings.ToLower(item)
		}
		out = append(out, item)
	}
	return out
}
