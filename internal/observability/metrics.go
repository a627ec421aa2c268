package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/anivault/anivault/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type AppMetrics struct {
	authLoginCounter      metric.Int64Counter
	authRegisterCounter   metric.Int64Counter
	authLogoutCounter     metric.Int64Counter
	authEventCounter      metric.Int64Counter
	sessionBootstrap      metric.Int64Counter
	ipSessionCheckCounter metric.Int64Counter
	adminRoleCounter      metric.Int64Counter
	catalogMutation       metric.Int64Counter
	repositoryOperation   metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter("anivault"))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m   AppMetrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
	}{
		{&m.authLoginCounter, "auth.login.attempts"},
		{&m.authRegisterCounter, "auth.register.attempts"},
		{&m.authLogoutCounter, "auth.logout.attempts"},
		{&m.authEventCounter, "auth.state.events"},
		{&m.sessionBootstrap, "session.bootstrap.outcomes"},
		{&m.ipSessionCheckCounter, "ip_session.checks"},
		{&m.adminRoleCounter, "admin.role.mutations"},
		{&m.catalogMutation, "catalog.mutations"},
		{&m.repositoryOperation, "repository.operations"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name)
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}
	return &m, nil
}

func loadMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(ctx context.Context, status string) {
	if m := loadMetrics(); m != nil {
		m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthRegister(ctx context.Context, status string) {
	if m := loadMetrics(); m != nil {
		m.authRegisterCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthLogout(ctx context.Context, status string) {
	if m := loadMetrics(); m != nil {
		m.authLogoutCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthStateEvent(ctx context.Context, kind, outcome string) {
	if m := loadMetrics(); m != nil {
		m.authEventCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordSessionBootstrap(ctx context.Context, outcome string) {
	if m := loadMetrics(); m != nil {
		m.sessionBootstrap.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordIPSessionCheck(ctx context.Context, result string) {
	if m := loadMetrics(); m != nil {
		m.ipSessionCheckCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}

func RecordAdminRoleMutation(ctx context.Context, role string) {
	if m := loadMetrics(); m != nil {
		m.adminRoleCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
	}
}

func RecordCatalogMutation(ctx context.Context, action, outcome string) {
	if m := loadMetrics(); m != nil {
		m.catalogMutation.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordRepositoryOperation(ctx context.Context, repo, op, outcome string) {
	if m := loadMetrics(); m != nil {
		m.repositoryOperation.Add(ctx, 1, metric.WithAttributes(
			attribute.String("repository", repo),
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
		))
	}
}
