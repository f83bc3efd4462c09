package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the content platform
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Feeds     FeedsConfig     `mapstructure:"feeds"`
	Votes     VotesConfig     `mapstructure:"votes"`
	Search    SearchConfig    `mapstructure:"search"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address        string  `mapstructure:"address"`
	SessionSecret  string  `mapstructure:"session_secret"`
	AdminTokenHash string  `mapstructure:"admin_token_hash"` // bcrypt hash of the admin token
	VoteRateLimit  float64 `mapstructure:"vote_rate_limit"`  // vote requests per second per client
	VoteRateBurst  int     `mapstructure:"vote_rate_burst"`
}

func (s ServerConfig) Validate() error {
	if strings.TrimSpace(s.Address) == "" {
		return fmt.Errorf("server.address required")
	}
	if strings.TrimSpace(s.SessionSecret) == "" {
		return fmt.Errorf("server.session_secret required")
	}
	if s.VoteRateLimit <= 0 {
		return fmt.Errorf("server.vote_rate_limit must be > 0")
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// FeedVariantConfig is one named ratio mix served by the feed endpoint.
type FeedVariantConfig struct {
	ArticleRatio int           `mapstructure:"article_ratio"`
	VideoRatio   int           `mapstructure:"video_ratio"`
	PageSize     int           `mapstructure:"page_size"`
	TTL          time.Duration `mapstructure:"ttl"`
}

func (v FeedVariantConfig) Validate() error {
	if v.ArticleRatio <= 0 || v.VideoRatio <= 0 {
		return fmt.Errorf("feed variant ratios must be > 0, got %d:%d", v.ArticleRatio, v.VideoRatio)
	}
	if v.PageSize <= 0 {
		return fmt.Errorf("feed variant page_size must be > 0")
	}
	if v.TTL <= 0 {
		return fmt.Errorf("feed variant ttl must be > 0")
	}
	return nil
}

// FeedsConfig contains the named feed variants and limits for ad-hoc mixes.
type FeedsConfig struct {
	DefaultVariant string                       `mapstructure:"default_variant"`
	Variants       map[string]FeedVariantConfig `mapstructure:"variants"`
	MaxPageSize    int                          `mapstructure:"max_page_size"`
	MaxRatio       int                          `mapstructure:"max_ratio"`
	CustomTTL      time.Duration                `mapstructure:"custom_ttl"`
}

// Normalize applies defaults for unset feed values.
func (f FeedsConfig) Normalize() FeedsConfig {
	if f.MaxPageSize <= 0 {
		f.MaxPageSize = 50
	}
	if f.MaxRatio <= 0 {
		f.MaxRatio = 10
	}
	if f.CustomTTL <= 0 {
		f.CustomTTL = 30 * time.Second
	}
	if len(f.Variants) == 0 {
		f.Variants = map[string]FeedVariantConfig{
			"home": {ArticleRatio: 2, VideoRatio: 1, PageSize: 20, TTL: time.Minute},
		}
	}
	if strings.TrimSpace(f.DefaultVariant) == "" {
		f.DefaultVariant = "home"
	}
	return f
}

func (f FeedsConfig) Validate() error {
	if _, ok := f.Variants[f.DefaultVariant]; !ok {
		return fmt.Errorf("feeds.default_variant %q has no variant definition", f.DefaultVariant)
	}
	for name, v := range f.Variants {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("feeds.variants.%s: %w", name, err)
		}
		if v.PageSize > f.MaxPageSize {
			return fmt.Errorf("feeds.variants.%s: page_size %d above max_page_size %d", name, v.PageSize, f.MaxPageSize)
		}
	}
	return nil
}

// VotesConfig contains the per-session vote policy.
type VotesConfig struct {
	MaxPerSession    int           `mapstructure:"max_per_session"`
	SessionWindow    time.Duration `mapstructure:"session_window"`
	LeaderboardLimit int           `mapstructure:"leaderboard_limit"`
}

// Normalize applies defaults for unset vote values.
func (v VotesConfig) Normalize() VotesConfig {
	if v.MaxPerSession <= 0 {
		v.MaxPerSession = 10
	}
	if v.SessionWindow <= 0 {
		v.SessionWindow = 24 * time.Hour
	}
	if v.LeaderboardLimit <= 0 {
		v.LeaderboardLimit = 10
	}
	return v
}

func (v VotesConfig) Validate() error {
	if v.MaxPerSession <= 0 {
		return fmt.Errorf("votes.max_per_session must be > 0")
	}
	if v.SessionWindow <= 0 {
		return fmt.Errorf("votes.session_window must be > 0")
	}
	return nil
}

// SearchConfig controls the in-memory catalog index.
type SearchConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	IndexLimit int  `mapstructure:"index_limit"` // items per kind per rebuild
}

// Normalize applies defaults for unset search values.
func (s SearchConfig) Normalize() SearchConfig {
	if s.IndexLimit <= 0 {
		s.IndexLimit = 500
	}
	return s
}

// SchedulerConfig contains background job schedules.
type SchedulerConfig struct {
	RefreshCron  string        `mapstructure:"refresh_cron"`
	SnapshotCron string        `mapstructure:"snapshot_cron"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

// Normalize applies defaults for unset scheduler values.
func (s SchedulerConfig) Normalize() SchedulerConfig {
	if strings.TrimSpace(s.RefreshCron) == "" {
		s.RefreshCron = "@hourly"
	}
	if strings.TrimSpace(s.SnapshotCron) == "" {
		s.SnapshotCron = "*/5 * * * *"
	}
	if s.LockTTL <= 0 {
		s.LockTTL = 2 * time.Minute
	}
	return s
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr renders host:port for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN renders the connection string, preferring an explicit url.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DBName, ssl)
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.vote_rate_limit", 5)
	viper.SetDefault("server.vote_rate_burst", 10)
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("feeds.default_variant", "home")
	viper.SetDefault("feeds.max_page_size", 50)
	viper.SetDefault("feeds.max_ratio", 10)
	viper.SetDefault("feeds.custom_ttl", "30s")
	viper.SetDefault("votes.max_per_session", 10)
	viper.SetDefault("votes.session_window", "24h")
	viper.SetDefault("votes.leaderboard_limit", 10)
	viper.SetDefault("search.enabled", true)
	viper.SetDefault("search.index_limit", 500)
	viper.SetDefault("scheduler.refresh_cron", "@hourly")
	viper.SetDefault("scheduler.snapshot_cron", "*/5 * * * *")
	viper.SetDefault("scheduler.lock_ttl", "2m")

	if path == "" {
		viper.AddConfigPath("./app/config") // path to look for the config file in
		viper.AddConfigPath("./config")     // path to look for the config file in
		viper.AddConfigPath(".")            // optionally look for config in the working directory
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)                                // bin/
		viper.AddConfigPath(filepath.Join(exeDir, ".."))           // repo root
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config")) // repo root/config
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("NEWSBLEND")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (NEWSBLEND_*)

	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {             // Handle errors reading the config file
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	// unmarshal config
	var config Config

	if err = viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.Feeds = config.Feeds.Normalize()
	config.Votes = config.Votes.Normalize()
	config.Search = config.Search.Normalize()
	config.Scheduler = config.Scheduler.Normalize()

	if err := config.Server.Validate(); err != nil {
		panic(err)
	}
	if err := config.Feeds.Validate(); err != nil {
		panic(err)
	}
	if err := config.Votes.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	return &config
}
