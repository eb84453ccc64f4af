package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"ad-anomaly-alerts/internal/anomaly"
	"ad-anomaly-alerts/internal/campaign"
	"ad-anomaly-alerts/internal/logging"
	"ad-anomaly-alerts/internal/rules"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Detection DetectionConfig `mapstructure:"detection"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Cache     CacheConfig     `mapstructure:"cache"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	// Retention bounds how long diagnoses are kept. Zero keeps them forever.
	Retention       time.Duration `mapstructure:"retention"`
}

// SchedulerConfig governs scan cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	ClientWorkers   int           `mapstructure:"client_workers"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
}

// DetectionConfig tunes the statistical anomaly detector.
type DetectionConfig struct {
	Sensitivity  string   `mapstructure:"sensitivity"`
	LookbackDays int      `mapstructure:"lookback_days"`
	TopN         int      `mapstructure:"top_n"`
	Workers      int      `mapstructure:"workers"`
	Metrics      []string `mapstructure:"metrics"`
}

// RulesConfig tunes the threshold alert engine input.
type RulesConfig struct {
	WindowDays int `mapstructure:"window_days"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	MinSeverity string         `mapstructure:"min_severity"`
	Channels    []string       `mapstructure:"channels"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// CacheConfig controls publishing scan reports to Redis.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	RedisURL string        `mapstructure:"redis_url"`
	Password string        `mapstructure:"password"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// HTTPConfig controls the embedded API server started by `run`.
type HTTPConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ADWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "adwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x61647763))
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.client_workers", 4)
	v.SetDefault("scheduler.run_on_start", false)

	v.SetDefault("detection.sensitivity", string(anomaly.SensitivityMedium))
	v.SetDefault("detection.lookback_days", 30)
	v.SetDefault("detection.top_n", anomaly.DefaultTopN)
	v.SetDefault("detection.workers", 4)
	v.SetDefault("detection.metrics", []string{
		string(campaign.Impressions),
		string(campaign.Clicks),
		string(campaign.Cost),
		string(campaign.Conversions),
		string(campaign.CTR),
		string(campaign.CPC),
	})

	v.SetDefault("rules.window_days", rules.DefaultWindowDays)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.min_severity", string(rules.SeverityWarning))
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.ttl", "36h")

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.listen_addr", ":8080")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.shutdown_timeout", "5s")

	v.SetDefault("export.max_data_points", 1000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("database.retention", "2160h")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if _, err := anomaly.ParseSensitivity(c.Detection.Sensitivity); err != nil {
		return fmt.Errorf("detection.sensitivity: %w", err)
	}
	if c.Detection.LookbackDays < anomaly.MinHistory {
		return fmt.Errorf("detection.lookback_days must be at least %d", anomaly.MinHistory)
	}
	if _, err := c.DetectionMetrics(); err != nil {
		return fmt.Errorf("detection.metrics: %w", err)
	}
	if c.Rules.WindowDays < 7 {
		return fmt.Errorf("rules.window_days must be at least 7")
	}
	if rules.Severity(c.Alerting.MinSeverity).Rank() == 0 {
		return fmt.Errorf("alerting.min_severity %q is not one of critical, warning, info", c.Alerting.MinSeverity)
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	if c.Cache.Enabled {
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required when cache is enabled")
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be greater than zero")
		}
	}
	if c.HTTP.Enabled && c.HTTP.ListenAddr == "" {
		return fmt.Errorf("http.listen_addr is required when http is enabled")
	}
	return nil
}

// Sensitivity returns the parsed detector sensitivity. Call after Validate.
func (c *Config) Sensitivity() anomaly.Sensitivity {
	s, err := anomaly.ParseSensitivity(c.Detection.Sensitivity)
	if err != nil {
		return anomaly.SensitivityMedium
	}
	return s
}

// DetectionMetrics parses the configured metric names.
func (c *Config) DetectionMetrics() ([]campaign.Metric, error) {
	if len(c.Detection.Metrics) == 0 {
		return nil, fmt.Errorf("at least one metric is required")
	}
	out := make([]campaign.Metric, 0, len(c.Detection.Metrics))
	for _, name := range c.Detection.Metrics {
		m, err := campaign.ParseMetric(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// HistoryDays is how much history a scan must load to feed both engines.
func (c *Config) HistoryDays() int {
	return max(c.Detection.LookbackDays, c.Rules.WindowDays)
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
