package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mfridman/interpolate"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "buildnotify.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := expandChannelSettings(&cfg); err != nil {
		return nil, fmt.Errorf("config channels: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "BUILDNOTIFY_PORT")
	setString(&cfg.Server.CORSOrigin, "BUILDNOTIFY_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "BUILDNOTIFY_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "BUILDNOTIFY_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "BUILDNOTIFY_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "BUILDNOTIFY_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "BUILDNOTIFY_PG_HEALTH_CHECK")
	setBool(&cfg.NATS.Enabled, "BUILDNOTIFY_NATS_ENABLED")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "BUILDNOTIFY_LOG_LEVEL")
	setString(&cfg.Logging.Service, "BUILDNOTIFY_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "BUILDNOTIFY_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "BUILDNOTIFY_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "BUILDNOTIFY_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.L1MaxSizeMB, "BUILDNOTIFY_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "BUILDNOTIFY_CACHE_TTL")
	setBool(&cfg.OTel.Enabled, "BUILDNOTIFY_OTEL_ENABLED")
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTel.Insecure, "BUILDNOTIFY_OTEL_INSECURE")

	// Webhook
	setString(&cfg.Webhook.Secret, "BUILDNOTIFY_WEBHOOK_SECRET")
	setString(&cfg.Webhook.Header, "BUILDNOTIFY_WEBHOOK_HEADER")

	// Outbound HTTP
	setDuration(&cfg.HTTPClient.Timeout, "BUILDNOTIFY_HTTP_TIMEOUT")
	setString(&cfg.HTTPClient.Proxy.Host, "BUILDNOTIFY_PROXY_HOST")
	setInt(&cfg.HTTPClient.Proxy.Port, "BUILDNOTIFY_PROXY_PORT")
	setString(&cfg.HTTPClient.Proxy.Username, "BUILDNOTIFY_PROXY_USERNAME")
	setString(&cfg.HTTPClient.Proxy.Password, "BUILDNOTIFY_PROXY_PASSWORD")

	// Composition
	setString(&cfg.Notify.BaseURL, "BUILDNOTIFY_BASE_URL")
}

// osEnv exposes the process environment to interpolate.
type osEnv struct{}

func (osEnv) Get(key string) (string, bool) { return os.LookupEnv(key) }

// expandChannelSettings substitutes ${VAR} references in channel settings
// so credentials can stay out of the YAML file.
func expandChannelSettings(cfg *Config) error {
	for i := range cfg.Channels {
		ch := &cfg.Channels[i]
		for k, v := range ch.Settings {
			out, err := interpolate.Interpolate(osEnv{}, v)
			if err != nil {
				return fmt.Errorf("channel %s setting %s: %w", ch.Name, k, err)
			}
			ch.Settings[k] = out
		}
	}
	return nil
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if p := cfg.HTTPClient.Proxy; p.Host != "" && (p.Port < 1 || p.Port > 65535) {
		return errors.New("http_client.proxy.port must be between 1 and 65535")
	}

	seen := make(map[string]bool, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		if ch.Name == "" {
			return fmt.Errorf("channels[%d].name is required", i)
		}
		if ch.Provider == "" {
			return fmt.Errorf("channels[%d].provider is required", i)
		}
		if seen[ch.Name] {
			return fmt.Errorf("channels[%d].name %q is duplicated", i, ch.Name)
		}
		seen[ch.Name] = true
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
