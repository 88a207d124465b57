// Package shared holds code used across the pipeline packages that belongs to
// none of them.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - Protein groups table fixtures and column builders
//   - A recording Reporter that captures status and error messages
//   - A buffered slog handler for asserting on structured log events
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, handler := testutil.NewTestLogger(t)
//	    reporter := &testutil.RecordingReporter{}
//	    // run code under test with logger and reporter
//	    assert.True(t, handler.ContainsMessage("stage_complete"))
//	}
//
// testutil must only be imported from _test.go files.
package shared
