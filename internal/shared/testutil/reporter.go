package testutil

import (
	"strings"
	"sync"
)

// ReportedError is one message passed to ReportError
type ReportedError struct {
	Message string
	Err     error
}

// RecordingReporter keeps every status and error message it receives
type RecordingReporter struct {
	mu       sync.Mutex
	statuses []string
	errors   []ReportedError
}

// ReportStatus records a status message
func (r *RecordingReporter) ReportStatus(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, message)
}

// ReportError records an error message
func (r *RecordingReporter) ReportError(message string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, ReportedError{Message: message, Err: err})
}

// Statuses returns the recorded status messages
func (r *RecordingReporter) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

// Errors returns the recorded errors
func (r *RecordingReporter) Errors() []ReportedError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ReportedError(nil), r.errors...)
}

// HasStatus reports whether a status message contains substr
func (r *RecordingReporter) HasStatus(substr string) bool {
	for _, s := range r.Statuses() {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// HasError reports whether an error message contains substr
func (r *RecordingReporter) HasError(substr string) bool {
	for _, e := range r.Errors() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
