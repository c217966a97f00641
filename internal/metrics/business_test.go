package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBizMetricLine matches a metric line by name, a partial label pattern and value.
// The exporter adds otel_scope labels, hence the regex.
func assertBizMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewBusinessMetrics(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	businessMetrics, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")

	require.NoError(t, err)
	assert.NotNil(t, businessMetrics)
}

func TestNewNoOpBusinessMetrics(t *testing.T) {
	noOpMetrics := NewNoOpBusinessMetrics()

	assert.IsType(t, &NoOpBusinessMetrics{}, noOpMetrics)
	assert.NotPanics(t, func() {
		noOpMetrics.RecordOperation(context.Background(), "device", "boot_announce", "success")
		noOpMetrics.RecordDuration(context.Background(), "device", "file_ingest", time.Second, "error")
		noOpMetrics.RecordPayloadSize(context.Background(), "device", "file_ingest", 1024)
	})
}

func TestBusinessMetrics_Integration(t *testing.T) {
	provider, err := NewProvider("integration_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "integration_test")
	require.NoError(t, err)

	ctx := context.Background()

	bm.RecordOperation(ctx, "device", "boot_announce", "success")
	bm.RecordOperation(ctx, "device", "boot_announce", "success")
	bm.RecordOperation(ctx, "device", "file_ingest", "error")
	bm.RecordOperation(ctx, "device", "directive_fetch", "success")

	bm.RecordDuration(ctx, "device", "boot_announce", 50*time.Millisecond, "success")
	bm.RecordDuration(ctx, "device", "boot_announce", 60*time.Millisecond, "success")
	bm.RecordDuration(ctx, "device", "file_ingest", 100*time.Millisecond, "error")

	bm.RecordPayloadSize(ctx, "device", "file_ingest", 140)
	bm.RecordPayloadSize(ctx, "device", "file_ingest", 4096)

	output := scrape(t, provider)

	assertBizMetricLine(t, output,
		`integration_test_operations_total`,
		`domain="device".*operation="boot_announce".*status="success"`,
		`2`,
	)
	assertBizMetricLine(t, output,
		`integration_test_operations_total`,
		`domain="device".*operation="file_ingest".*status="error"`,
		`1`,
	)
	assertBizMetricLine(t, output,
		`integration_test_operations_total`,
		`domain="device".*operation="directive_fetch".*status="success"`,
		`1`,
	)
	assertBizMetricLine(t, output,
		`integration_test_operation_duration_seconds_count`,
		`domain="device".*operation="boot_announce".*status="success"`,
		`2`,
	)
	assertBizMetricLine(t, output,
		`integration_test_payload_size_bytes_count`,
		`domain="device".*operation="file_ingest"`,
		`2`,
	)
	assertBizMetricLine(t, output,
		`integration_test_payload_size_bytes_sum`,
		`domain="device".*operation="file_ingest"`,
		`4236`,
	)
}
