// Package config defines AssetLens settings, their defaults and validation.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/lineage"
	"github.com/spf13/viper"
)

// Config is the full AssetLens configuration.
type Config struct {
	Review    ReviewConfig    `mapstructure:"review"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Lineage   LineageConfig   `mapstructure:"lineage"`
}

type ReviewConfig struct {
	// LocalDir holds the local fallback copy of every review.
	LocalDir string `mapstructure:"local_dir"`
	// CanonicalURL is the remote review store; empty keeps reviews local.
	CanonicalURL string `mapstructure:"canonical_url"`
	// Debounce is the quiet period before a canonical write.
	Debounce time.Duration `mapstructure:"debounce"`
	// LoadRetries is how often a failing canonical read is retried.
	LoadRetries  int           `mapstructure:"load_retries"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Profile  string `mapstructure:"profile"`
	Endpoint string `mapstructure:"endpoint"`
}

type TelemetryConfig struct {
	OTelEndpoint string `mapstructure:"otel_endpoint"`
	Disabled     bool   `mapstructure:"disabled"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// LineageConfig adds site-specific CEL checks run when a job is ingested.
type LineageConfig struct {
	ExtraRules []lineage.Rule `mapstructure:"extra_rules"`
}

// Defaults.
const (
	DefaultRegion      = "us-east-1"
	DefaultDebounce    = 350 * time.Millisecond
	DefaultLoadRetries = 2
)

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Review: ReviewConfig{
			LocalDir:     defaultLocalDir(),
			Debounce:     DefaultDebounce,
			LoadRetries:  DefaultLoadRetries,
			WriteTimeout: 10 * time.Second,
		},
		AWS: AWSConfig{Region: DefaultRegion},
		Log: LogConfig{JSON: true, Level: "info"},
	}
}

func defaultLocalDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "assetlens")
	}
	return ".assetlens"
}

// SetDefaults registers every default with v so that config files, env
// and flags only need to name what they change.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("review.local_dir", d.Review.LocalDir)
	v.SetDefault("review.canonical_url", d.Review.CanonicalURL)
	v.SetDefault("review.debounce", d.Review.Debounce)
	v.SetDefault("review.load_retries", d.Review.LoadRetries)
	v.SetDefault("review.write_timeout", d.Review.WriteTimeout)
	v.SetDefault("aws.region", d.AWS.Region)
	v.SetDefault("aws.profile", d.AWS.Profile)
	v.SetDefault("aws.endpoint", d.AWS.Endpoint)
	v.SetDefault("telemetry.otel_endpoint", d.Telemetry.OTelEndpoint)
	v.SetDefault("telemetry.disabled", d.Telemetry.Disabled)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.level", d.Log.Level)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting of cfg.
func Validate(cfg Config) error {
	var errs []error
	if cfg.Review.LocalDir == "" {
		errs = append(errs, errors.New("review.local_dir must be set"))
	}
	if cfg.Review.Debounce < 0 {
		errs = append(errs, fmt.Errorf("review.debounce must not be negative, got %s", cfg.Review.Debounce))
	}
	if cfg.Review.LoadRetries < 0 || cfg.Review.LoadRetries > 10 {
		errs = append(errs, fmt.Errorf("review.load_retries must be in [0, 10], got %d", cfg.Review.LoadRetries))
	}
	if cfg.Review.CanonicalURL != "" {
		if err := validateStoreURL(cfg.Review.CanonicalURL); err != nil {
			errs = append(errs, fmt.Errorf("review.canonical_url: %w", err))
		}
	}
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", cfg.Log.Level))
	}
	seen := map[string]bool{}
	for i, r := range cfg.Lineage.ExtraRules {
		if r.ID == "" || r.Condition == "" {
			errs = append(errs, fmt.Errorf("lineage.extra_rules[%d] needs an id and a condition", i))
		}
		if seen[r.ID] {
			errs = append(errs, fmt.Errorf("lineage.extra_rules[%d]: duplicate id %q", i, r.ID))
		}
		seen[r.ID] = true
	}
	return errors.Join(errs...)
}

func validateStoreURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "s3", "dynamodb":
		if u.Host == "" {
			return fmt.Errorf("%s url needs a bucket or table name", u.Scheme)
		}
	case "http", "https":
		if u.Host == "" {
			return errors.New("http url needs a host")
		}
	case "file":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return nil
}
