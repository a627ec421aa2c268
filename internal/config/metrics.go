package config

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	StageEnvFile  = "env_file"
	StageParse    = "parse"
	StageValidate = "validate"
)

// LoadError records which step of Load failed.
type LoadError struct {
	Stage string
	Err   error
}

func (e *LoadError) Error() string { return e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// settingGroups maps variable prefixes to the component they configure.
// Longer prefixes come first so IP_SESSION_ wins over IP_.
var settingGroups = []struct{ prefix, group string }{
	{"IP_SESSION_", "ip_session"},
	{"IP_", "ip_lookup"},
	{"SESSION_", "session"},
	{"AUTH_", "identity"},
	{"DATABASE_", "database"},
	{"DB_", "database"},
	{"REDIS_", "redis"},
	{"HTTP_", "http"},
	{"OTEL_", "observability"},
	{"SHUTDOWN_", "shutdown"},
}

var (
	configMetricsOnce sync.Once
	configCounter     metric.Int64Counter
)

func recordConfigLoad(ctx context.Context, env, outcome string, err error) {
	configMetricsOnce.Do(func() {
		counter, cerr := otel.Meter("anivault").Int64Counter("config.load.events")
		if cerr == nil {
			configCounter = counter
		}
	})
	if configCounter == nil {
		return
	}
	configCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("env", normalizeEnvName(env)),
		attribute.String("outcome", outcome),
		attribute.String("stage", loadStage(err)),
		attribute.String("group", failingGroup(err)),
	))
}

func normalizeEnvName(env string) string {
	v := strings.ToLower(strings.TrimSpace(env))
	if v == "" {
		return "unset"
	}
	return v
}

func loadStage(err error) string {
	if err == nil {
		return "none"
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le.Stage
	}
	return "unknown"
}

// failingGroup names the component behind the first offending variable.
func failingGroup(err error) string {
	if err == nil {
		return "none"
	}
	for _, word := range strings.FieldsFunc(err.Error(), func(r rune) bool {
		return !(r == '_' || (r >= 'A' && r <= 'Z'))
	}) {
		for _, g := range settingGroups {
			if strings.HasPrefix(word, g.prefix) {
				return g.group
			}
		}
	}
	return "other"
}
