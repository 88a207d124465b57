package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"complexome/internal/infrastructure"
	"complexome/pkg/contracts/domain"
)

// Manager orchestrates pipeline execution
type Manager struct {
	registry *Registry
	config   *Config
	reporter domain.Reporter
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewManager creates a pipeline manager. Nil collaborators get defaults.
func NewManager(registry *Registry, config *Config, reporter domain.Reporter, tracer *OperationTracer, logger *slog.Logger) (*Manager, error) {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if reporter == nil {
		reporter = domain.NopReporter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		var err error
		if tracer, err = NewOperationTracer(nil); err != nil {
			return nil, err
		}
	}

	return &Manager{
		registry: registry,
		config:   config,
		reporter: reporter,
		tracer:   tracer,
		logger:   logger.With(slog.String("component", "operation_manager")),
	}, nil
}

// RegisterStage registers a Step with the pipeline
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the registry for accessing registered stages
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Execute runs every registered step once. The returned error is non-nil
// when the run was stopped: a fatal error, or any step failure when
// ContinueOnError is off. Errors that were handled are listed in the
// response.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = infrastructure.GetRunID(ctx)
	}
	if req.ID == "" {
		req.ID = infrastructure.NewRunID()
	}
	ctx = infrastructure.WithRunID(ctx, req.ID)

	state := NewOperationState(req.ID)
	state.SettingsPath = req.SettingsPath
	state.TablePath = req.TablePath

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		m.logger.ErrorContext(ctx, "operation_error",
			slog.String("operation_id", req.ID),
			slog.String("error", err.Error()))
		state.Fail(err)
		return m.createResponse(state), fmt.Errorf("failed to get dependency order: %w", err)
	}
	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	ctx, span := m.tracer.TraceOperationExecution(ctx, req.ID, req)
	defer span.End()

	state.Start()
	m.logger.InfoContext(ctx, "operation_start",
		slog.String("operation_id", req.ID),
		slog.String("settings_path", req.SettingsPath),
		slog.String("table_path", req.TablePath),
		slog.Int("step_count", len(steps)))

	err = m.executeSequential(ctx, state, steps)

	switch {
	case err == nil:
		state.Complete()
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	default:
		state.Fail(err)
	}

	m.tracer.RecordOperationCompletion(ctx, span, state.GetStatus(), state.Duration(), len(state.Errors.Errors))
	m.logger.InfoContext(ctx, "operation_complete",
		slog.String("operation_id", req.ID),
		slog.String("status", string(state.GetStatus())),
		slog.Int("errors", len(state.Errors.Errors)),
		slog.Duration("duration", state.Duration()))

	return m.createResponse(state), err
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for i, step := range steps {
		select {
		case <-ctx.Done():
			m.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			cancelErr := NewCancellationError(step.ID(), ctx.Err())
			state.AddError(cancelErr)
			return cancelErr
		default:
		}

		stepState := state.GetStage(step.ID())
		if stepState.GetStatus() == StepStatusSkipped {
			m.logger.InfoContext(ctx, "stage_skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("reason", stepState.GetMessage()))
			continue
		}

		m.logger.InfoContext(ctx, "executing_stage",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("stage_number", i+1),
			slog.Int("total_stages", len(steps)))

		err := m.executeStage(ctx, state, step)
		if err == nil {
			continue
		}

		opErr := WrapError(err, step.ID(), fmt.Sprintf("%s failed", step.Name()))
		state.AddError(opErr)
		m.logger.ErrorContext(ctx, "stage_error",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error_type", string(opErr.Type)),
			slog.String("error", opErr.Error()))
		if opErr.Type != ErrorTypeCancellation {
			m.reporter.ReportError(opErr.Message, opErr)
		}

		m.skipDependentStages(state, step.ID())
		if IsFatal(opErr) || !m.config.ContinueOnError {
			return opErr
		}
	}
	return nil
}

// executeStage runs a single Step inside its own span and timeout
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())
	ctx, span := m.tracer.TraceStageExecution(ctx, state.ID, step.ID())
	defer span.End()

	if reason := step.SkipReason(state); reason != "" {
		m.skip(ctx, state, step, stepState, reason)
		m.tracer.RecordStageCompletion(ctx, span, step.ID(), StepStatusSkipped, 0, reason)
		return nil
	}

	if err := m.checkDependencies(state, step); err != nil {
		reason := fmt.Sprintf("%s will be skipped: %v", step.Name(), err)
		m.skip(ctx, state, step, stepState, reason)
		m.tracer.RecordStageCompletion(ctx, span, step.ID(), StepStatusSkipped, 0, reason)
		return nil
	}

	if err := step.Validate(state); err != nil {
		verr := NewInputError(step.ID(), fmt.Sprintf("%s cannot run", step.Name()), err)
		stepState.Fail(verr)
		m.tracer.RecordStageError(span, step.ID(), verr)
		m.tracer.RecordStageCompletion(ctx, span, step.ID(), StepStatusFailed, 0, verr.Error())
		return verr
	}

	timeout := m.config.GetStageTimeout(step.ID())
	var stageCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		stageCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	stepState.Start()
	start := time.Now()
	err := step.Execute(stageCtx, state)
	duration := time.Since(start)

	if err == nil {
		stepState.Complete()
		m.tracer.RecordStageCompletion(ctx, span, step.ID(), StepStatusCompleted, duration, "")
		m.logger.InfoContext(ctx, "stage_complete",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", duration))
		return nil
	}

	// the step's own deadline fails only this step
	if errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = NewTimeoutError(step.ID(),
			fmt.Sprintf("%s exceeded its timeout of %s", step.Name(), timeout), timeout, err)
	}
	stepState.Fail(err)
	m.tracer.RecordStageError(span, step.ID(), err)
	m.tracer.RecordStageCompletion(ctx, span, step.ID(), StepStatusFailed, duration, err.Error())
	return err
}

func (m *Manager) skip(ctx context.Context, state *OperationState, step Step, stepState *StepState, reason string) {
	stepState.Skip(reason)
	m.reporter.ReportStatus(reason)
	m.logger.InfoContext(ctx, "stage_skipped",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()),
		slog.String("reason", reason))
}

// skipDependentStages marks all steps that depend on the failed Step as skipped
func (m *Manager) skipDependentStages(state *OperationState, failedStageID string) {
	for _, step := range m.registry.GetDependents(failedStageID) {
		stepState := state.GetStage(step.ID())
		if stepState != nil && stepState.GetStatus() == StepStatusPending {
			stepState.Skip(fmt.Sprintf("%s was skipped because %s failed", step.Name(), failedStageID))
			m.skipDependentStages(state, step.ID())
		}
	}
}

// checkDependencies verifies that all dependencies completed
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil {
			return fmt.Errorf("dependency %s not found", dep)
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return fmt.Errorf("dependency %s not completed (status: %s)", dep, status)
		}
	}
	return nil
}

// createResponse creates a response from state
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	resp := &OperationResponse{
		ID:       state.ID,
		Status:   state.GetStatus(),
		Duration: state.Duration(),
		Steps:    state.Steps,
		Errors:   state.Errors.Errors,
	}
	if state.Error != nil {
		resp.Error = state.Error.Error()
	}
	return resp
}
