package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
)

// Config holds the full application configuration.
type Config struct {
	Steam    SteamConfig    `yaml:"steam" mapstructure:"steam"`
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	Signal   SignalConfig   `yaml:"signal" mapstructure:"signal"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SteamConfig holds Steam Web API credentials and endpoints.
type SteamConfig struct {
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	APIBaseURL   string `yaml:"api_base_url" mapstructure:"api_base_url"`
	StoreBaseURL string `yaml:"store_base_url" mapstructure:"store_base_url"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
}

// CatalogConfig configures the app list fetch.
type CatalogConfig struct {
	PageSize          int     `yaml:"page_size" mapstructure:"page_size"`
	FullPageThreshold int     `yaml:"full_page_threshold" mapstructure:"full_page_threshold"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Limit             int     `yaml:"limit" mapstructure:"limit"`
}

// SignalConfig configures the player count stage.
type SignalConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	TimeoutSecs   int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MinSignal     int `yaml:"min_signal" mapstructure:"min_signal"`
}

// EnrichConfig configures the store details stage.
type EnrichConfig struct {
	MaxConcurrent      int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	PacingDelayMs      int    `yaml:"pacing_delay_ms" mapstructure:"pacing_delay_ms"`
	RateLimitDelaySecs int    `yaml:"rate_limit_delay_secs" mapstructure:"rate_limit_delay_secs"`
	RateLimitRetries   int    `yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`
	TimeoutSecs        int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Locale             string `yaml:"locale" mapstructure:"locale"`
}

// OutputConfig configures where crawl and analysis files are written.
type OutputConfig struct {
	RawDir       string `yaml:"raw_dir" mapstructure:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir" mapstructure:"processed_dir"`
	Format       string `yaml:"format" mapstructure:"format"`
}

// AnalysisConfig configures the aggregation over past crawls.
type AnalysisConfig struct {
	MinOccurrences int    `yaml:"min_occurrences" mapstructure:"min_occurrences"`
	OutputFile     string `yaml:"output_file" mapstructure:"output_file"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("steam.api_key", "CRAWLER_STEAM_API_KEY", "STEAM_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	// Defaults
	v.SetDefault("steam.api_base_url", "https://api.steampowered.com")
	v.SetDefault("steam.store_base_url", "https://store.steampowered.com")
	v.SetDefault("steam.user_agent", "steam-crawler/1.0")
	v.SetDefault("catalog.page_size", 50000)
	v.SetDefault("catalog.full_page_threshold", 1000)
	v.SetDefault("catalog.requests_per_second", 1.0)
	v.SetDefault("catalog.max_attempts", 3)
	v.SetDefault("catalog.timeout_secs", 10)
	v.SetDefault("catalog.limit", 0)
	v.SetDefault("signal.max_concurrent", 50)
	v.SetDefault("signal.timeout_secs", 10)
	v.SetDefault("signal.min_signal", 0)
	v.SetDefault("enrich.max_concurrent", 3)
	v.SetDefault("enrich.pacing_delay_ms", 1500)
	v.SetDefault("enrich.rate_limit_delay_secs", 10)
	v.SetDefault("enrich.rate_limit_retries", 0)
	v.SetDefault("enrich.timeout_secs", 10)
	v.SetDefault("enrich.locale", "en-US")
	v.SetDefault("output.raw_dir", "data/raw")
	v.SetDefault("output.processed_dir", "data/processed")
	v.SetDefault("output.format", "xlsx")
	v.SetDefault("analysis.min_occurrences", 20)
	v.SetDefault("analysis.output_file", "steam_analysis.xlsx")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/crawler.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	var problems []string

	if c.Signal.MaxConcurrent < 1 {
		problems = append(problems, "signal.max_concurrent must be at least 1")
	}
	if c.Signal.TimeoutSecs < 1 {
		problems = append(problems, "signal.timeout_secs must be at least 1")
	}
	if c.Signal.MinSignal < 0 {
		problems = append(problems, "signal.min_signal must not be negative")
	}
	if c.Enrich.MaxConcurrent < 1 {
		problems = append(problems, "enrich.max_concurrent must be at least 1")
	}
	if c.Enrich.TimeoutSecs < 1 {
		problems = append(problems, "enrich.timeout_secs must be at least 1")
	}
	if c.Enrich.PacingDelayMs < 0 || c.Enrich.RateLimitDelaySecs < 0 {
		problems = append(problems, "enrich delays must not be negative")
	}
	if c.Enrich.RateLimitRetries < 0 {
		problems = append(problems, "enrich.rate_limit_retries must not be negative")
	}
	if _, err := c.Enrich.ParseLocale(); err != nil {
		problems = append(problems, "enrich.locale: "+err.Error())
	}
	switch c.Output.Format {
	case "xlsx", "csv":
	default:
		problems = append(problems, "output.format must be xlsx or csv")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateCrawl additionally checks the settings the crawl command needs.
func (c *Config) ValidateCrawl() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Steam.APIKey == "" {
		return eris.New("config: validation failed: steam.api_key is required (CRAWLER_STEAM_API_KEY or STEAM_API_KEY)")
	}
	if c.Catalog.PageSize < 1 {
		return eris.New("config: validation failed: catalog.page_size must be at least 1")
	}
	return nil
}

// Locale is the country and language pair sent to the store endpoint.
type Locale struct {
	CountryCode string
	Language    string
}

// ParseLocale resolves the configured BCP 47 tag into store query values.
func (c EnrichConfig) ParseLocale() (Locale, error) {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return Locale{}, eris.Wrapf(err, "parse locale %q", c.Locale)
	}
	base, _ := tag.Base()
	region, _ := tag.Region()
	return Locale{
		CountryCode: region.String(),
		Language:    base.String(),
	}, nil
}

// Timeout converts a seconds setting to a duration.
func Timeout(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}

// PacingDelay returns the fixed delay before every store request.
func (c EnrichConfig) PacingDelay() time.Duration {
	return time.Duration(c.PacingDelayMs) * time.Millisecond
}

// RateLimitDelay returns the cool-down after a 429.
func (c EnrichConfig) RateLimitDelay() time.Duration {
	return time.Duration(c.RateLimitDelaySecs) * time.Second
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
