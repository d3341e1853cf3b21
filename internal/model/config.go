package model

import "time"

// Config is the complete fixit3d configuration
type Config struct {
	HTTP         HTTPConfig         `mapstructure:"http" yaml:"http"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Crawl        CrawlConfig        `mapstructure:"crawl" yaml:"crawl"`
	Volume       VolumeConfig       `mapstructure:"volume" yaml:"volume"`
	Sources      SourcesConfig      `mapstructure:"sources" yaml:"sources"`
	Catalog      CatalogConfig      `mapstructure:"catalog" yaml:"catalog"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	Schedule     ScheduleConfig     `mapstructure:"schedule" yaml:"schedule"`
}

// HTTPConfig controls the shared source fetcher
type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	MaxModelBytes int64         `mapstructure:"max_model_bytes" yaml:"max_model_bytes"`
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries"`
	RespectRobots bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
	HTTPProxy     string        `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy    string        `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy       string        `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
}

// CacheConfig controls the page-response cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir       string        `mapstructure:"dir" yaml:"dir"`
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `mapstructure:"disk_ttl" yaml:"disk_ttl"`
}

// RateLimitingConfig sets the politeness delay between page requests per host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size" yaml:"burst_size"`
}

// CrawlConfig controls the crawl planner
type CrawlConfig struct {
	Strategy     string `mapstructure:"strategy" yaml:"strategy"`             // incremental, full, initial
	FullMaxPages int    `mapstructure:"full_max_pages" yaml:"full_max_pages"` // Pages per term for full crawls
	RequireImage bool   `mapstructure:"require_image" yaml:"require_image"`   // Skip listings without a preview image
	PlanFile     string `mapstructure:"plan_file" yaml:"plan_file,omitempty"` // Optional YAML crawl plan
}

// VolumeConfig controls volume measurement and estimation
type VolumeConfig struct {
	Measure  bool    `mapstructure:"measure" yaml:"measure"`   // Download meshes and measure when available
	Estimate bool    `mapstructure:"estimate" yaml:"estimate"` // Fill missing volumes with flagged estimates
	Seed     int64   `mapstructure:"seed" yaml:"seed"`         // 0 = time-based seed
	Ceiling  float64 `mapstructure:"ceiling" yaml:"ceiling"`   // Sanity ceiling in cm³
}

// SourcesConfig holds per-source settings
type SourcesConfig struct {
	Thingiverse   SourceConfig `mapstructure:"thingiverse" yaml:"thingiverse"`
	Printables    SourceConfig `mapstructure:"printables" yaml:"printables"`
	MyMiniFactory SourceConfig `mapstructure:"myminifactory" yaml:"myminifactory"`
}

// SourceConfig configures one external catalog
type SourceConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	BaseURL       string `mapstructure:"base_url" yaml:"base_url"`
	Token         string `mapstructure:"token" yaml:"token,omitempty"`
	PerPage       int    `mapstructure:"per_page" yaml:"per_page"`
	MinPopularity int    `mapstructure:"min_popularity" yaml:"min_popularity"`
	// License restricts Printables results to one license type
	License string `mapstructure:"license" yaml:"license,omitempty"`
}

// CatalogConfig selects the catalog store
type CatalogConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // json, postgres
	Path   string `mapstructure:"path" yaml:"path"`
	DSN    string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// ScheduleConfig controls the schedule command
type ScheduleConfig struct {
	Spec string `mapstructure:"spec" yaml:"spec"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       10 * time.Second,
			UserAgent:     "fixit3d/0.3 (+https://github.com/ppiankov/fixit3d)",
			MaxBodyBytes:  5_000_000,
			MaxModelBytes: 50_000_000,
			MaxRetries:    3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".fixit3d/cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   6 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2, // 500ms between page requests
			BurstSize:         1,
		},
		Crawl: CrawlConfig{
			Strategy:     "incremental",
			FullMaxPages: 5,
			RequireImage: true,
		},
		Volume: VolumeConfig{
			Measure:  true,
			Estimate: true,
			Ceiling:  50000,
		},
		Sources: SourcesConfig{
			Thingiverse: SourceConfig{
				Enabled: true,
				BaseURL: "https://api.thingiverse.com",
				PerPage: 40,
			},
			Printables: SourceConfig{
				Enabled:       false,
				BaseURL:       "https://api.printables.com/graphql",
				PerPage:       100,
				MinPopularity: 10,
				License:       "COMMERCIAL_USE_ALLOWED",
			},
			MyMiniFactory: SourceConfig{
				Enabled: false,
				BaseURL: "https://www.myminifactory.com/api/v2",
				PerPage: 20,
			},
		},
		Catalog: CatalogConfig{
			Driver: "json",
			Path:   "data/models-index.json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Schedule: ScheduleConfig{
			Spec: "@every 12h",
		},
	}
}
