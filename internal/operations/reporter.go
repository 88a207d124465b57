package operations

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"complexome/internal/infrastructure"
)

// StatusFunc receives a human readable progress message
type StatusFunc func(message string)

// ErrorFunc receives a human readable error message and its cause, which is
// nil for warnings
type ErrorFunc func(message string, err error)

// Reporter is the single path for status and error messages of a run. Every
// message is logged and handed to the caller's callbacks.
type Reporter struct {
	mu          sync.Mutex
	onStatus    StatusFunc
	onError     ErrorFunc
	logger      *slog.Logger
	errorsTotal metric.Int64Counter
	statuses    int
	errors      int
}

// NewReporter creates a reporter. Nil callbacks discard messages.
func NewReporter(onStatus StatusFunc, onError ErrorFunc, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if onStatus == nil {
		onStatus = func(string) {}
	}
	if onError == nil {
		onError = func(string, error) {}
	}
	return &Reporter{
		onStatus: onStatus,
		onError:  onError,
		logger:   logger.With(slog.String("component", "reporter")),
	}
}

// WithMetrics counts reported errors by category
func (r *Reporter) WithMetrics(metrics *infrastructure.PipelineMetrics) *Reporter {
	if metrics != nil {
		r.errorsTotal = metrics.ErrorsTotal
	}
	return r
}

// ReportStatus forwards a progress message
func (r *Reporter) ReportStatus(message string) {
	r.mu.Lock()
	r.statuses++
	r.mu.Unlock()

	r.logger.Debug("status_reported", slog.String("message", message))
	r.onStatus(message)
}

// ReportError forwards an error message. A nil err reports a warning.
func (r *Reporter) ReportError(message string, err error) {
	r.mu.Lock()
	r.errors++
	r.mu.Unlock()

	if err == nil {
		r.logger.Warn("warning_reported", slog.String("message", message))
		infrastructure.RecordOutcome(context.Background(), r.errorsTotal, "warning")
	} else {
		errType := GetErrorType(err)
		r.logger.Error("error_reported",
			slog.String("message", message),
			slog.String("error_type", string(errType)),
			slog.String("error", err.Error()))
		infrastructure.RecordOutcome(context.Background(), r.errorsTotal, string(errType))
	}
	r.onError(message, err)
}

// Counts returns how many status and error messages were reported
func (r *Reporter) Counts() (statuses, errors int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses, r.errors
}
