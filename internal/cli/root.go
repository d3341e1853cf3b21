package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/fixit3d/internal/logger"
	"github.com/ppiankov/fixit3d/internal/model"
)

const version = "fixit3d v0.3.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fixit3d",
	Short: "fixit3d - catalog of printable spare parts and useful 3D designs",
	Long: `fixit3d ingests design listings from Thingiverse, Printables and
MyMiniFactory, filters out novelty items, sorts the rest into
spare-parts / hobby / automotive / home-improvement and keeps a
deduplicated catalog that grows with every run.

Entries are never rewritten: the first time a design is admitted wins.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.fixit3d/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and FIXIT3D_* environment variables
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".fixit3d"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	setDefaults(viper.GetViper())
	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv maps FIXIT3D_HTTP_TIMEOUT to http.timeout and so on, plus the
// conventional token variables used in .env files
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("FIXIT3D")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("sources.thingiverse.token", "FIXIT3D_SOURCES_THINGIVERSE_TOKEN", "THINGIVERSE_TOKEN")
	_ = v.BindEnv("sources.myminifactory.token", "FIXIT3D_SOURCES_MYMINIFACTORY_TOKEN", "MYMINIFACTORY_TOKEN")
	_ = v.BindEnv("catalog.dsn", "FIXIT3D_CATALOG_DSN", "DATABASE_URL")
}

// setDefaults registers every config key so that environment overrides
// apply even when no config file is present
func setDefaults(v *viper.Viper) {
	d := model.DefaultConfig()

	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)
	v.SetDefault("http.max_model_bytes", d.HTTP.MaxModelBytes)
	v.SetDefault("http.max_retries", d.HTTP.MaxRetries)
	v.SetDefault("http.respect_robots", d.HTTP.RespectRobots)
	v.SetDefault("http.http_proxy", d.HTTP.HTTPProxy)
	v.SetDefault("http.https_proxy", d.HTTP.HTTPSProxy)
	v.SetDefault("http.no_proxy", d.HTTP.NoProxy)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_ttl", d.Cache.MemoryTTL)
	v.SetDefault("cache.disk_ttl", d.Cache.DiskTTL)

	v.SetDefault("rate_limiting.requests_per_second", d.RateLimiting.RequestsPerSecond)
	v.SetDefault("rate_limiting.burst_size", d.RateLimiting.BurstSize)

	v.SetDefault("crawl.strategy", d.Crawl.Strategy)
	v.SetDefault("crawl.full_max_pages", d.Crawl.FullMaxPages)
	v.SetDefault("crawl.require_image", d.Crawl.RequireImage)
	v.SetDefault("crawl.plan_file", d.Crawl.PlanFile)

	v.SetDefault("volume.measure", d.Volume.Measure)
	v.SetDefault("volume.estimate", d.Volume.Estimate)
	v.SetDefault("volume.seed", d.Volume.Seed)
	v.SetDefault("volume.ceiling", d.Volume.Ceiling)

	for name, src := range map[string]model.SourceConfig{
		"thingiverse":   d.Sources.Thingiverse,
		"printables":    d.Sources.Printables,
		"myminifactory": d.Sources.MyMiniFactory,
	} {
		prefix := "sources." + name + "."
		v.SetDefault(prefix+"enabled", src.Enabled)
		v.SetDefault(prefix+"base_url", src.BaseURL)
		v.SetDefault(prefix+"token", src.Token)
		v.SetDefault(prefix+"per_page", src.PerPage)
		v.SetDefault(prefix+"min_popularity", src.MinPopularity)
		v.SetDefault(prefix+"license", src.License)
	}

	v.SetDefault("catalog.driver", d.Catalog.Driver)
	v.SetDefault("catalog.path", d.Catalog.Path)
	v.SetDefault("catalog.dsn", d.Catalog.DSN)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.development", d.Logging.Development)

	v.SetDefault("schedule.spec", d.Schedule.Spec)
}

// loadConfig resolves the effective configuration
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the structured logger; --verbose forces debug level
func newLogger(cfg *model.Config) (logger.Logger, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Config{Level: level, Development: cfg.Logging.Development})
}
