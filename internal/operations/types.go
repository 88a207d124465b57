package operations

import (
	"time"

	"complexome/internal/config"
)

// Pipeline step identifiers
const (
	StageIDLoad        = "load"
	StageIDFilter      = "filter"
	StageIDIdentifiers = "identifiers"
	StageIDAnnotate    = "annotate"
	StageIDReference   = "reference"
	StageIDCluster     = "cluster"
	StageIDExport      = "export"
)

// Pipeline step names
const (
	StageNameLoad        = "Input Loading"
	StageNameFilter      = "Table Filtering"
	StageNameIdentifiers = "Identifier Extraction"
	StageNameAnnotate    = "Annotation Fetching"
	StageNameReference   = "Reference Matching"
	StageNameCluster     = "Cluster Reordering"
	StageNameExport      = "Workbook Export"
)

// Context keys for step results
const (
	ContextKeyFilterResult  = "filter_result"
	ContextKeySummedColumns = "summed_columns"
	ContextKeyFetchStats    = "fetch_stats"
	ContextKeyMatchResult   = "match_result"
	ContextKeyReorderResult = "reorder_result"
	ContextKeyExportResult  = "export_result"
)

// DefaultStageTimeout bounds steps that have no timeout of their own
const DefaultStageTimeout = config.DefaultStageTimeout

// ExecutionMode defines how steps are executed
type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
)

// OperationRequest describes one pipeline run
type OperationRequest struct {
	ID           string `json:"id"`
	SettingsPath string `json:"settings_path"`
	TablePath    string `json:"table_path"`
}

// OperationResponse represents the outcome of a pipeline run
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Errors   []*OperationError     `json:"errors,omitempty"`
	Error    string                `json:"error,omitempty"`
}
