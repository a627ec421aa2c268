package observability

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anivault/anivault/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		" DEBUG ": slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestRecordHelpersAreNoopsWithoutMetrics(t *testing.T) {
	ctx := context.Background()
	RecordAuthLogin(ctx, "success")
	RecordSessionBootstrap(ctx, "ready")
	RecordRepositoryOperation(ctx, "profile", "find_by_id", "success")
}

func TestHTTPMetricsHandlerExposesRequests(t *testing.T) {
	m := NewHTTPMetrics()
	m.Observe(http.MethodGet, "/api/v1/catalog", http.StatusOK, 0.01)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `http_requests_total{method="GET",route="/api/v1/catalog",status="200"} 1`) {
		t.Fatalf("expected request counter in output, got %s", rr.Body.String())
	}
}

func TestRuntimeShutdownNil(t *testing.T) {
	var r *Runtime
	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil runtime shutdown: %v", err)
	}
}

func TestInitRuntimeWithExportersOff(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	cfg := &config.Config{OTELServiceName: "anivault-test", OTELTraceSampleRatio: 1}

	rt, err := InitRuntime(context.Background(), cfg, logger, nil)
	if err != nil {
		t.Fatalf("init runtime: %v", err)
	}
	if rt.MeterProvider == nil || rt.TracerProvider == nil || rt.LoggerProvider != nil {
		t.Fatalf("unexpected providers: %+v", rt)
	}
	if !strings.Contains(buf.String(), `"msg":"observability runtime ready"`) || !strings.Contains(buf.String(), `"otlp_logs":false`) {
		t.Fatalf("expected readiness log, got %s", buf.String())
	}
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
