// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Detection DetectionConfig `mapstructure:"detection"`
	Venues    VenuesConfig    `mapstructure:"venues"`
	Fees      FeesConfig      `mapstructure:"fees"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	mu       sync.RWMutex
	onChange []func(*Config)
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // set at runtime, not from config file
}

// DetectionConfig holds the cross/tri detection thresholds and cadences from
// spec.md §6.
type DetectionConfig struct {
	MinSpreadBps      float64  `mapstructure:"min_spread_bps"`
	MinTriGainBps     float64  `mapstructure:"min_tri_gain_bps"`
	MinNotional       float64  `mapstructure:"min_notional"`
	SymbolUniverse    []string `mapstructure:"symbol_universe"`
	TriBases          []string `mapstructure:"tri_bases"`
	TriExcludeQuotes  []string `mapstructure:"tri_exclude_quotes"`
	DepthLevels       int      `mapstructure:"depth_levels"`
	CoalesceMs        int      `mapstructure:"coalesce_ms"`
	CrossScanMs       int      `mapstructure:"cross_scan_ms"`
	TriScanMs         int      `mapstructure:"tri_scan_ms"`
	MaxStalenessMs    int      `mapstructure:"max_staleness_ms"`
	AlertCooldownSec  int      `mapstructure:"alert_cooldown_sec"`
	TriMaxNeighbors   int      `mapstructure:"tri_max_neighbors"`
	GraceShutdownMs   int      `mapstructure:"grace_shutdown_ms"`
}

// MinSpreadBpsDecimal returns the cross-engine threshold as a decimal.
func (c *DetectionConfig) MinSpreadBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinSpreadBps)
}

// MinTriGainBpsDecimal returns the tri-engine threshold as a decimal.
func (c *DetectionConfig) MinTriGainBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinTriGainBps)
}

// MinNotionalDecimal returns the VWAP target notional as a decimal.
func (c *DetectionConfig) MinNotionalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinNotional)
}

// CoalesceInterval returns COALESCE_MS as a time.Duration.
func (c *DetectionConfig) CoalesceInterval() time.Duration {
	return time.Duration(c.CoalesceMs) * time.Millisecond
}

// CrossScanInterval returns CROSS_SCAN_MS as a time.Duration.
func (c *DetectionConfig) CrossScanInterval() time.Duration {
	return time.Duration(c.CrossScanMs) * time.Millisecond
}

// TriScanInterval returns TRI_SCAN_MS as a time.Duration.
func (c *DetectionConfig) TriScanInterval() time.Duration {
	return time.Duration(c.TriScanMs) * time.Millisecond
}

// MaxStaleness returns MAX_STALENESS_MS as a time.Duration.
func (c *DetectionConfig) MaxStaleness() time.Duration {
	return time.Duration(c.MaxStalenessMs) * time.Millisecond
}

// AlertCooldown returns ALERT_COOLDOWN_SEC as a time.Duration.
func (c *DetectionConfig) AlertCooldown() time.Duration {
	return time.Duration(c.AlertCooldownSec) * time.Second
}

// GraceShutdown returns GRACE_SHUTDOWN_MS as a time.Duration.
func (c *DetectionConfig) GraceShutdown() time.Duration {
	return time.Duration(c.GraceShutdownMs) * time.Millisecond
}

// VenuesConfig holds the venue allow/deny lists and per-venue endpoint
// overrides.
type VenuesConfig struct {
	Include []string `mapstructure:"include_exchanges"`
	Exclude []string `mapstructure:"exclude_exchanges"`
}

// Allowed reports whether venue passes the include/exclude lists. An empty
// Include means "all venues", consistent with spec.md §6's "all" default.
func (v *VenuesConfig) Allowed(venue string) bool {
	venue = strings.ToLower(venue)
	if len(v.Include) > 0 {
		found := false
		for _, id := range v.Include {
			if strings.ToLower(id) == venue {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, id := range v.Exclude {
		if strings.ToLower(id) == venue {
			return false
		}
	}
	return true
}

// FeesConfig holds the raw FEE_OVERRIDE_* values read from the environment,
// keyed exactly as supplied (VENUE or VENUE_PAIR), before the Fee Table
// parses them into decimals.
type FeesConfig struct {
	Overrides map[string]string `mapstructure:"overrides"`
}

// NotifierConfig holds the chat notifier credentials (spec.md §6).
type NotifierConfig struct {
	Token string `mapstructure:"token"`
	Chat  string `mapstructure:"chat"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
}

var activeViper *viper.Viper

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	activeViper = v
	return cfg, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Fees.Overrides = feeOverridesFromEnv(v)
	return &cfg, nil
}

// feeOverridesFromEnv collects every fee_override_* key in viper's settings
// tree (FEE_OVERRIDE_<VENUE>[_<PAIR>]_(MAKER|TAKER)), upper-cased. Only keys
// viper already knows are seen: those in the config file or explicitly
// bound. No FEE_OVERRIDE_* environment variable is bound here, so such a
// variable alone is not picked up.
func feeOverridesFromEnv(v *viper.Viper) map[string]string {
	out := make(map[string]string)
	for _, key := range v.AllKeys() {
		if strings.HasPrefix(key, "fee_override_") {
			out[strings.ToUpper(key)] = v.GetString(key)
		}
	}
	return out
}

// WatchFeeOverrides enables Viper's file-watch hot reload and invokes fn
// whenever FEE_OVERRIDE_* values change in the backing config file. Only
// fee overrides are considered live-reloadable; every other setting is
// fixed for the process lifetime.
func (c *Config) WatchFeeOverrides(fn func(map[string]string)) {
	if activeViper == nil {
		return
	}
	activeViper.OnConfigChange(func(_ fsnotify.Event) {
		overrides := feeOverridesFromEnv(activeViper)
		c.mu.Lock()
		c.Fees.Overrides = overrides
		c.mu.Unlock()
		fn(overrides)
	})
	activeViper.WatchConfig()
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("detection.min_spread_bps", "MIN_SPREAD_BPS")
	v.BindEnv("detection.min_tri_gain_bps", "MIN_TRI_GAIN_BPS")
	v.BindEnv("detection.min_notional", "MIN_NOTIONAL")
	v.BindEnv("detection.symbol_universe", "SYMBOL_UNIVERSE")
	v.BindEnv("detection.tri_bases", "TRI_BASES")
	v.BindEnv("detection.tri_exclude_quotes", "TRI_EXCLUDE_QUOTES")
	v.BindEnv("detection.depth_levels", "DEPTH_LEVELS")
	v.BindEnv("detection.coalesce_ms", "COALESCE_MS")
	v.BindEnv("detection.cross_scan_ms", "CROSS_SCAN_MS")
	v.BindEnv("detection.tri_scan_ms", "TRI_SCAN_MS")
	v.BindEnv("detection.max_staleness_ms", "MAX_STALENESS_MS")
	v.BindEnv("detection.alert_cooldown_sec", "ALERT_COOLDOWN_SEC")

	v.BindEnv("venues.include_exchanges", "INCLUDE_EXCHANGES")
	v.BindEnv("venues.exclude_exchanges", "EXCLUDE_EXCHANGES")

	v.BindEnv("notifier.token", "NOTIFIER_TOKEN")
	v.BindEnv("notifier.chat", "NOTIFIER_CHAT")

	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "arbiscan")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("detection.min_spread_bps", 25)
	v.SetDefault("detection.min_tri_gain_bps", 15)
	v.SetDefault("detection.min_notional", 100)
	v.SetDefault("detection.symbol_universe", []string{})
	v.SetDefault("detection.tri_bases", []string{"BTC", "ETH", "USDT"})
	v.SetDefault("detection.tri_exclude_quotes", []string{})
	v.SetDefault("detection.depth_levels", 20)
	v.SetDefault("detection.coalesce_ms", 100)
	v.SetDefault("detection.cross_scan_ms", 1000)
	v.SetDefault("detection.tri_scan_ms", 2000)
	v.SetDefault("detection.max_staleness_ms", 5000)
	v.SetDefault("detection.alert_cooldown_sec", 60)
	v.SetDefault("detection.tri_max_neighbors", 200)
	v.SetDefault("detection.grace_shutdown_ms", 2000)

	v.SetDefault("venues.include_exchanges", []string{})
	v.SetDefault("venues.exclude_exchanges", []string{})

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "arbiscan")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// Validate validates the configuration per spec.md §7's "config fault"
// category: missing or malformed required keys are fatal at startup.
func (c *Config) Validate() error {
	if c.Detection.MinNotional <= 0 {
		return fmt.Errorf("detection.min_notional must be positive")
	}
	if c.Detection.DepthLevels <= 0 {
		return fmt.Errorf("detection.depth_levels must be positive")
	}
	if c.Detection.CrossScanMs <= 0 || c.Detection.TriScanMs <= 0 {
		return fmt.Errorf("detection.cross_scan_ms and detection.tri_scan_ms must be positive")
	}
	if c.Detection.MaxStalenessMs <= 0 {
		return fmt.Errorf("detection.max_staleness_ms must be positive")
	}
	if len(c.Detection.TriBases) == 0 {
		return fmt.Errorf("detection.tri_bases must not be empty")
	}
	return nil
}
