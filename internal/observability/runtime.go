package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anivault/anivault/internal/config"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Runtime owns the OpenTelemetry providers of one anivault process.
type Runtime struct {
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
	LoggerProvider *sdklog.LoggerProvider
}

// InitRuntime builds the metric and trace providers. lp comes from
// NewLogger and may be nil when OTLP logs are off. A failed step shuts
// down whatever was already built.
func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*Runtime, error) {
	r := &Runtime{LoggerProvider: lp}
	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	r.MeterProvider = mp
	tp, err := InitTracing(ctx, cfg, logger)
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	r.TracerProvider = tp
	logger.Info("observability runtime ready",
		"otlp_metrics", cfg.OTELMetricsEnabled,
		"otlp_traces", cfg.OTELTracingEnabled,
		"otlp_logs", lp != nil,
	)
	return r, nil
}

// Shutdown flushes metrics and traces before logs, so shutdown log lines
// are still exported.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	type stage struct {
		name string
		stop func(context.Context) error
	}
	var stages []stage
	if r.MeterProvider != nil {
		stages = append(stages, stage{"metrics", r.MeterProvider.Shutdown})
	}
	if r.TracerProvider != nil {
		stages = append(stages, stage{"traces", r.TracerProvider.Shutdown})
	}
	if r.LoggerProvider != nil {
		stages = append(stages, stage{"logs", r.LoggerProvider.Shutdown})
	}
	var errs []error
	for _, s := range stages {
		if err := s.stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
