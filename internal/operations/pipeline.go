package operations

import (
	"context"
	"fmt"
	"log/slog"

	"complexome/internal/annotation"
	"complexome/internal/config"
	"complexome/internal/infrastructure"
	"complexome/pkg/contracts/domain"
)

// Dependencies carries everything a run needs. Nothing is read from package
// level state.
type Dependencies struct {
	Logger    *slog.Logger
	Providers *infrastructure.OTelProviders
	Client    *annotation.Client
	Reporter  domain.Reporter
	Config    *Config
	Sleeper   annotation.Sleeper
}

// NewPipeline builds a manager with the pipeline steps registered
func NewPipeline(deps Dependencies) (*Manager, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer, err := NewOperationTracer(deps.Providers)
	if err != nil {
		return nil, err
	}

	reporter := deps.Reporter
	if reporter == nil {
		reporter = domain.NopReporter{}
	}
	if r, ok := reporter.(*Reporter); ok {
		r.WithMetrics(tracer.Metrics())
	}

	client := deps.Client
	if client == nil {
		client = annotation.NewClient(config.Default().HTTP, logger)
	}

	manager, err := NewManager(NewRegistry(), deps.Config, reporter, tracer, logger)
	if err != nil {
		return nil, err
	}

	options := &StageOptions{
		Reporter: reporter,
		Client:   client,
		Tracer:   tracer,
		Sleeper:  deps.Sleeper,
	}
	for _, step := range StageFactory(logger, options) {
		if err := manager.RegisterStage(step); err != nil {
			return nil, fmt.Errorf("failed to register step %s: %w", step.ID(), err)
		}
	}
	return manager, nil
}

// RunPipeline runs the whole pipeline once. Handled errors have already been
// reported; the returned error is set only when the run was stopped.
func RunPipeline(ctx context.Context, deps Dependencies, settingsPath, tablePath string) error {
	manager, err := NewPipeline(deps)
	if err != nil {
		return err
	}

	_, err = manager.Execute(ctx, OperationRequest{
		ID:           infrastructure.GetRunID(ctx),
		SettingsPath: settingsPath,
		TablePath:    tablePath,
	})
	return err
}
