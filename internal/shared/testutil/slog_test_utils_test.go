package testutil

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Len(t, handler.GetRecords(), 2)
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
		AssertLogContains(t, handler, slog.LevelWarn, "warn")
	})

	t.Run("carries logger attributes", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "filter")).Info("filter_applied")

		assert.True(t, handler.ContainsAttr("component", "filter"))
		AssertNoErrors(t, handler)
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.With(slog.Int("n", 2)).Info("message 2")
		assert.Equal(t, 2, handler.Count())

		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})
}

func TestRecordingReporter(t *testing.T) {
	r := &RecordingReporter{}
	r.ReportStatus("Step 1 started")
	r.ReportError("batch 1 failed", errors.New("timeout"))

	assert.Equal(t, []string{"Step 1 started"}, r.Statuses())
	assert.True(t, r.HasStatus("Step 1"))
	assert.True(t, r.HasError("batch 1"))
	assert.False(t, r.HasError("batch 2"))
	assert.EqualError(t, r.Errors()[0].Err, "timeout")
}
