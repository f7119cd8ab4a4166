package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port               string        `mapstructure:"port"`
	Environment        string        `mapstructure:"environment"`
	AnalysisServiceURL string        `mapstructure:"analysis_service_url"`
	FetchTimeout       time.Duration `mapstructure:"fetch_timeout"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	FirestoreProject   string        `mapstructure:"firestore_project_id"`
	LogLevel           string        `mapstructure:"log_level"`
	LogFile            string        `mapstructure:"log_file"`
	CORSOrigins        string        `mapstructure:"cors_origins"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	ChartWidth         int           `mapstructure:"chart_width"`
	ChartHeight        int           `mapstructure:"chart_height"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("environment", "production")
	v.SetDefault("analysis_service_url", "http://127.0.0.1:5000")
	v.SetDefault("fetch_timeout", 10*time.Second)
	v.SetDefault("cache_ttl", time.Duration(0))
	v.SetDefault("firestore_project_id", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("rate_limit_per_minute", 100)
	v.SetDefault("chart_width", 1200)
	v.SetDefault("chart_height", 400)
}

// Load reads defaults, an optional config file, .env and the process
// environment, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}

	u, err := url.Parse(c.AnalysisServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("analysis_service_url must be an absolute URL, got %q", c.AnalysisServiceURL)
	}

	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must be non-negative")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate_limit_per_minute must be non-negative")
	}
	if c.ChartWidth <= 0 || c.ChartHeight <= 0 {
		return fmt.Errorf("chart_width and chart_height must be positive")
	}

	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
