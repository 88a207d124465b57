package operations_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"complexome/internal/infrastructure"
	"complexome/internal/operations"
	"complexome/internal/shared/testutil"
)

func TestReporterForwardsMessages(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)

	var statuses []string
	var errs []error
	reporter := operations.NewReporter(
		func(msg string) { statuses = append(statuses, msg) },
		func(msg string, err error) { errs = append(errs, err) },
		logger,
	)

	reporter.ReportStatus("Step 1, filtering the table, has started")
	reporter.ReportError("Warning: the organism Homo sapiens is not present", nil)
	reporter.ReportError("batch 2 failed", operations.NewRemoteError("annotate", "batch 2 failed", errors.New("503")))

	assert.Equal(t, []string{"Step 1, filtering the table, has started"}, statuses)
	require.Len(t, errs, 2)
	assert.Nil(t, errs[0])
	assert.Error(t, errs[1])

	nStatus, nErr := reporter.Counts()
	assert.Equal(t, 1, nStatus)
	assert.Equal(t, 2, nErr)

	assert.True(t, handler.ContainsMessage("status_reported"))
	assert.True(t, handler.ContainsMessage("warning_reported"))
	assert.True(t, handler.ContainsMessage("error_reported"))
	assert.True(t, handler.ContainsAttr("error_type", "remote"))
}

func TestReporterNilCallbacks(t *testing.T) {
	reporter := operations.NewReporter(nil, nil, nil)
	assert.NotPanics(t, func() {
		reporter.ReportStatus("status")
		reporter.ReportError("error", errors.New("boom"))
	})
}

func TestReporterCountsErrorsByCategory(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := infrastructure.CreatePipelineMetrics(provider.Meter("test"))
	require.NoError(t, err)

	reporter := operations.NewReporter(nil, nil, nil).WithMetrics(metrics)
	reporter.ReportError("a", operations.NewItemError("cluster", "sample A", nil))
	reporter.ReportError("b", operations.NewItemError("cluster", "sample B", nil))
	reporter.ReportError("c", nil)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "complexome_errors_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				counts[outcome.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"item": 2, "warning": 1}, counts)
}
