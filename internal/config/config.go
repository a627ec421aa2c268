package config

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	AllowedOrigins []string

	// Identity provider (GoTrue-compatible).
	AuthURL       string
	AuthAPIKey    string
	AuthJWTSecret string
	AuthTimeout   time.Duration

	DBDriver string
	DBURL    string
	DBLogSQL bool

	RedisEnabled bool
	RedisAddr    string
	RedisDB      int
	RedisPrefix  string

	IPLookupURL      string
	IPLookupTimeout  time.Duration
	IPCacheTTL       time.Duration
	IPSessionWindow  time.Duration
	IPPruneInterval  time.Duration
	IPRetention      time.Duration
	SessionFile      string
	SessionFileKey   []byte
	SessionInitLimit time.Duration
	SessionRetries   int
	SessionRetryWait time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSampleRatio      float64
	LogLevel                  string

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration
}

// Load reads configuration from the environment. Values in envFile (if it
// exists) are applied first without overriding variables already set.
func Load(envFile string) (*Config, error) {
	cfg, err := load(envFile)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	recordConfigLoad(context.Background(), os.Getenv("APP_ENV"), outcome, err)
	return cfg, err
}

func load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Stage: StageEnvFile, Err: fmt.Errorf("load env file %s: %w", envFile, err)}
		}
	}

	p := &parser{}
	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", "127.0.0.1:8080"),

		AuthURL:       strings.TrimRight(getEnv("AUTH_URL", ""), "/"),
		AuthAPIKey:    getEnv("AUTH_API_KEY", ""),
		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		AuthTimeout:   p.duration("AUTH_TIMEOUT", 10*time.Second),

		DBDriver: strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBURL:    getEnv("DATABASE_URL", ""),
		DBLogSQL: p.bool("DB_LOG_SQL", false),

		RedisEnabled: p.bool("REDIS_ENABLED", false),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:      p.int("REDIS_DB", 0),
		RedisPrefix:  getEnv("REDIS_PREFIX", "anivault"),

		IPLookupURL:      getEnv("IP_LOOKUP_URL", "https://api.ipify.org?format=json"),
		IPLookupTimeout:  p.duration("IP_LOOKUP_TIMEOUT", 5*time.Second),
		IPCacheTTL:       p.duration("IP_CACHE_TTL", 5*time.Minute),
		IPSessionWindow:  p.duration("IP_SESSION_WINDOW", time.Hour),
		IPPruneInterval:  p.duration("IP_SESSION_PRUNE_INTERVAL", 30*time.Minute),
		IPRetention:      p.duration("IP_SESSION_RETENTION", 7*24*time.Hour),
		SessionFile:      getEnv("SESSION_FILE", defaultSessionFile()),
		SessionInitLimit: p.duration("SESSION_INIT_TIMEOUT", 15*time.Second),
		SessionRetries:   p.int("SESSION_CONNECT_ATTEMPTS", 3),
		SessionRetryWait: p.duration("SESSION_RETRY_DELAY", 3*time.Second),

		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "anivault"),
		OTELEnvironment:           getEnv("OTEL_ENVIRONMENT", getEnv("APP_ENV", "development")),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  p.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsEnabled:        p.bool("OTEL_METRICS_ENABLED", false),
		OTELTracingEnabled:        p.bool("OTEL_TRACING_ENABLED", false),
		OTELLogsEnabled:           p.bool("OTEL_LOGS_ENABLED", false),
		OTELMetricsExportInterval: p.duration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second),
		OTELTraceSampleRatio:      p.float("OTEL_TRACE_SAMPLE_RATIO", 1.0),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),

		ShutdownTimeout:              p.duration("SHUTDOWN_TIMEOUT", 20*time.Second),
		ShutdownHTTPDrainTimeout:     p.duration("SHUTDOWN_HTTP_DRAIN_TIMEOUT", 10*time.Second),
		ShutdownObservabilityTimeout: p.duration("SHUTDOWN_OBSERVABILITY_TIMEOUT", 5*time.Second),
	}
	cfg.AllowedOrigins = splitList(getEnv("HTTP_ALLOWED_ORIGINS", "http://"+cfg.HTTPAddr))
	if raw := strings.TrimSpace(os.Getenv("SESSION_FILE_KEY")); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("parse SESSION_FILE_KEY: %w", err))
		} else {
			cfg.SessionFileKey = key
		}
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, &LoadError{Stage: StageParse, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Stage: StageValidate, Err: fmt.Errorf("validate config: %w", err)}
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.AuthURL == "" {
		errs = append(errs, errors.New("AUTH_URL is required"))
	} else if u, err := url.Parse(c.AuthURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, errors.New("AUTH_URL must be an absolute URL"))
	}
	if c.AuthAPIKey == "" {
		errs = append(errs, errors.New("AUTH_API_KEY is required"))
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported", c.DBDriver))
	}
	if c.DBURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.IPSessionWindow <= 0 {
		errs = append(errs, errors.New("IP_SESSION_WINDOW must be positive"))
	}
	if c.IPRetention < c.IPSessionWindow {
		errs = append(errs, errors.New("IP_SESSION_RETENTION must not be shorter than IP_SESSION_WINDOW"))
	}
	if c.SessionRetries < 1 {
		errs = append(errs, errors.New("SESSION_CONNECT_ATTEMPTS must be at least 1"))
	}
	if c.SessionInitLimit <= 0 {
		errs = append(errs, errors.New("SESSION_INIT_TIMEOUT must be positive"))
	}
	if len(c.SessionFileKey) != 0 && len(c.SessionFileKey) != 32 {
		errs = append(errs, errors.New("SESSION_FILE_KEY must decode to 32 bytes"))
	}
	if c.IsProduction() && len(c.SessionFileKey) == 0 {
		errs = append(errs, errors.New("SESSION_FILE_KEY is required in production"))
	}
	if c.OTELTraceSampleRatio < 0 || c.OTELTraceSampleRatio > 1 {
		errs = append(errs, errors.New("OTEL_TRACE_SAMPLE_RATIO must be within [0,1]"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	switch normalizeEnvName(c.AppEnv) {
	case "production", "prod":
		return true
	default:
		return false
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".anivault-session.json"
	}
	return filepath.Join(dir, "anivault", "session.json")
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

type parser struct {
	errs []error
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return d
}

func (p *parser) bool(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return b
}

func (p *parser) int(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return f
}
