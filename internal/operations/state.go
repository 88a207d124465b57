package operations

import (
	"sync"
	"time"

	"gopkg.in/guregu/null.v3"

	"complexome/internal/config"
	"complexome/pkg/contracts/domain"
)

// OperationStatusValue represents the overall operation status
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState represents the complete state of one pipeline run. Steps
// read and replace the tables through the accessors; nothing is persisted.
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	// Step states
	Steps map[string]*StepState `json:"steps"`

	// Inputs of the run
	SettingsPath string `json:"settings_path"`
	TablePath    string `json:"table_path"`

	settings    *config.Settings
	table       *domain.ProteinGroupTable
	excluded    *domain.ProteinGroupTable
	identifiers []null.String
	fields      []domain.AnnotationField

	// Context holds step results that later steps or callers may inspect
	Context map[string]interface{} `json:"context"`

	// Errors caught during the run, fatal or not
	Errors ErrorList `json:"errors"`

	// Error is the error that stopped the run
	Error error `json:"error,omitempty"`
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]interface{}),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
	p.Error = err
}

// GetStatus returns the operation status
func (p *OperationState) GetStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStage returns the state of a specific Step
func (p *OperationState) GetStage(stageID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stageID]
}

// SetStage updates the state of a specific Step
func (p *OperationState) SetStage(stageID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stageID] = state
}

// Settings returns the loaded pipeline settings
func (p *OperationState) Settings() *config.Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// SetSettings stores the pipeline settings
func (p *OperationState) SetSettings(s *config.Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = s
}

// Table returns the kept rows
func (p *OperationState) Table() *domain.ProteinGroupTable {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.table
}

// SetTable replaces the kept rows
func (p *OperationState) SetTable(t *domain.ProteinGroupTable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.table = t
}

// Excluded returns the rows removed by the filter, or nil when the filter
// did not run
func (p *OperationState) Excluded() *domain.ProteinGroupTable {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.excluded
}

// SetExcluded replaces the excluded rows
func (p *OperationState) SetExcluded(t *domain.ProteinGroupTable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.excluded = t
}

// Identifiers returns one identifier per kept row
func (p *OperationState) Identifiers() []null.String {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.identifiers
}

// SetIdentifiers stores the extracted identifiers
func (p *OperationState) SetIdentifiers(ids []null.String) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identifiers = ids
}

// HasIdentifiers reports whether at least one identifier is available
func (p *OperationState) HasIdentifiers() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, id := range p.identifiers {
		if id.Valid {
			return true
		}
	}
	return false
}

// AnnotatedFields returns the annotation columns added to the table
func (p *OperationState) AnnotatedFields() []domain.AnnotationField {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fields
}

// SetAnnotatedFields records the annotation columns added to the table
func (p *OperationState) SetAnnotatedFields(fields []domain.AnnotationField) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fields = fields
}

// GetContext retrieves a value from the operation context
func (p *OperationState) GetContext(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Context[key]
	return val, ok
}

// SetContext sets a value in the operation context
func (p *OperationState) SetContext(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Context[key] = value
}

// AddError records a caught error
func (p *OperationState) AddError(err *OperationError) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Errors.Add(err)
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// StagesWithStatus returns the states of the steps in the given status
func (p *OperationState) StagesWithStatus(status StepStatus) []*StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var matched []*StepState
	for _, step := range p.Steps {
		if step.GetStatus() == status {
			matched = append(matched, step)
		}
	}
	return matched
}

// IsComplete returns true if all steps are completed or skipped
func (p *OperationState) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, step := range p.Steps {
		switch step.GetStatus() {
		case StepStatusPending, StepStatusActive:
			return false
		}
	}
	return true
}

// HasFailures returns true if any Step has failed
func (p *OperationState) HasFailures() bool {
	return len(p.StagesWithStatus(StepStatusFailed)) > 0
}
