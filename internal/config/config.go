package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/config.yaml"

// Config aggregates runtime configuration shared by the server and the CLI.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Geocoder    GeocoderConfig    `yaml:"geocoder"`
	Router      RouterConfig      `yaml:"router"`
	Aggregation AggregationConfig `yaml:"aggregation"`
}

type HTTPConfig struct {
	Port         string        `yaml:"port"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig enables the Redis geocode cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	CacheTTL time.Duration `yaml:"cacheTtl"`
}

type GeocoderConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"baseUrl"`
	UserAgent   string        `yaml:"userAgent"`
	MinInterval time.Duration `yaml:"minInterval"`
	Suggestions int           `yaml:"suggestions"`
}

type RouterConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"baseUrl"`
	Profile  string `yaml:"profile"`
	Workers  int    `yaml:"workers"`
}

// AggregationConfig holds the defaults used when a request does not say otherwise.
type AggregationConfig struct {
	FailurePolicy string        `yaml:"failurePolicy"`
	Sentinel      float64       `yaml:"sentinel"`
	CallTimeout   time.Duration `yaml:"callTimeout"`
	ORSAPIKey     string        `yaml:"orsApiKey"`
}

// Load reads .env, then the YAML file (CONFIG_PATH or configs/config.yaml),
// then environment overrides, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(defaultConfigPath); err == nil {
		if err := hydrateFromFile(cfg, defaultConfigPath); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:         "8080",
			WriteTimeout: 5 * time.Minute,
		},
		Redis: RedisConfig{
			CacheTTL: 30 * 24 * time.Hour,
		},
		Geocoder: GeocoderConfig{
			Provider:    "nominatim",
			UserAgent:   "commute-route-service/1.0",
			MinInterval: time.Second,
			Suggestions: 3,
		},
		Router: RouterConfig{
			Provider: "osrm",
			Workers:  4,
		},
		Aggregation: AggregationConfig{
			FailurePolicy: "fail_fast",
			Sentinel:      9999,
			CallTimeout:   15 * time.Second,
		},
	}
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"PORT":                &cfg.HTTP.Port,
		"DATABASE_URL":        &cfg.Database.URL,
		"REDIS_ADDR":          &cfg.Redis.Addr,
		"GEOCODER":            &cfg.Geocoder.Provider,
		"GEOCODER_BASE_URL":   &cfg.Geocoder.BaseURL,
		"GEOCODER_USER_AGENT": &cfg.Geocoder.UserAgent,
		"ROUTER":              &cfg.Router.Provider,
		"ROUTER_BASE_URL":     &cfg.Router.BaseURL,
		"ROUTER_PROFILE":      &cfg.Router.Profile,
		"FAILURE_POLICY":      &cfg.Aggregation.FailurePolicy,
		"ORS_API_KEY":         &cfg.Aggregation.ORSAPIKey,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"GEOCODER_MIN_INTERVAL": &cfg.Geocoder.MinInterval,
		"CALL_TIMEOUT":          &cfg.Aggregation.CallTimeout,
		"GEOCODE_CACHE_TTL":     &cfg.Redis.CacheTTL,
		"HTTP_WRITE_TIMEOUT":    &cfg.HTTP.WriteTimeout,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int{
		"GEOCODER_SUGGESTIONS": &cfg.Geocoder.Suggestions,
		"ROUTER_WORKERS":       &cfg.Router.Workers,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("SENTINEL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("env SENTINEL: %w", err)
		}
		cfg.Aggregation.Sentinel = f
	}

	return nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTP.Port) == "" {
		errs = append(errs, errors.New("http port is required"))
	}

	switch strings.ToLower(c.Geocoder.Provider) {
	case "nominatim":
		if strings.TrimSpace(c.Geocoder.UserAgent) == "" {
			errs = append(errs, errors.New("geocoder user agent is required for nominatim"))
		}
	case "ors":
		if strings.TrimSpace(c.Aggregation.ORSAPIKey) == "" {
			errs = append(errs, errors.New("ORS_API_KEY is required for the ors geocoder"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown geocoder %q", c.Geocoder.Provider))
	}
	if c.Geocoder.MinInterval < time.Second {
		errs = append(errs, fmt.Errorf("geocoder min interval %s is below 1s", c.Geocoder.MinInterval))
	}
	if c.Geocoder.Suggestions < 0 || c.Geocoder.Suggestions > 10 {
		errs = append(errs, fmt.Errorf("geocoder suggestions must be between 0 and 10, got %d", c.Geocoder.Suggestions))
	}

	switch strings.ToLower(c.Router.Provider) {
	case "osrm":
	case "ors":
		if strings.TrimSpace(c.Aggregation.ORSAPIKey) == "" {
			errs = append(errs, errors.New("ORS_API_KEY is required for the ors router"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown router %q", c.Router.Provider))
	}
	if c.Router.Workers < 1 || c.Router.Workers > 8 {
		errs = append(errs, fmt.Errorf("router workers must be between 1 and 8, got %d", c.Router.Workers))
	}

	switch strings.ToLower(c.Aggregation.FailurePolicy) {
	case "fail_fast", "substitute":
	default:
		errs = append(errs, fmt.Errorf("unknown failure policy %q", c.Aggregation.FailurePolicy))
	}
	if c.Aggregation.Sentinel < 0 {
		errs = append(errs, errors.New("sentinel must not be negative"))
	}
	if c.Aggregation.CallTimeout <= 0 {
		errs = append(errs, errors.New("call timeout must be positive"))
	}

	return errors.Join(errs...)
}
