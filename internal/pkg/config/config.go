package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Departure DepartureConfig `mapstructure:"departure"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url"` // empty means same-origin
	Timeout int    `mapstructure:"timeout"`  // seconds
}

// TimeoutDuration returns the request bound as a time.Duration.
func (a APIConfig) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

type DepartureConfig struct {
	// Timezone is the IANA zone naive departure times are read in.
	// Empty means the system's local zone.
	Timezone string `mapstructure:"timezone"`
}

// Location resolves Timezone.
func (d DepartureConfig) Location() (*time.Location, error) {
	if d.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", d.Timezone, err)
	}
	return loc, nil
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
// When path is empty, config.yaml is looked up in . and ./configs and may be
// absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", 60)
	v.SetDefault("departure.timezone", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("telemetry.service_name", "routeweather-cli")
	v.SetDefault("telemetry.otlp_addr", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		_ = v.ReadInConfig() // OK if missing
	}

	// Environment variables: ROUTEWEATHER_API_BASE_URL → api.base_url
	v.SetEnvPrefix("ROUTEWEATHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that configuration fields are sane.
func (c *Config) Validate() error {
	var errs []string

	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("api.base_url is not a URL: %v", err))
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, fmt.Sprintf("api.base_url must be http or https, got %q", c.API.BaseURL))
		case u.Host == "":
			errs = append(errs, fmt.Sprintf("api.base_url has no host: %q", c.API.BaseURL))
		}
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, "api.timeout must be positive")
	}
	if _, err := c.Departure.Location(); err != nil {
		errs = append(errs, "departure.timezone: "+err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPAddr == "" {
		errs = append(errs, "telemetry.otlp_addr is required when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
