package domain

// Reporter receives human readable progress and error messages from the
// pipeline stages
type Reporter interface {
	ReportStatus(message string)
	ReportError(message string, err error)
}

// NopReporter discards every message
type NopReporter struct{}

func (NopReporter) ReportStatus(string)        {}
func (NopReporter) ReportError(string, error) {}
