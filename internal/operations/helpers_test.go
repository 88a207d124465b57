package operations_test

import (
	"context"
	"sync"

	"complexome/internal/operations"
)

// fakeStep is a configurable Step for manager and registry tests
type fakeStep struct {
	id, name  string
	deps      []string
	skip      string
	err       error
	validate  error
	execute   func(ctx context.Context, state *operations.OperationState) error
	mu        sync.Mutex
	execCount int
}

func newFakeStep(id string, deps ...string) *fakeStep {
	return &fakeStep{id: id, name: "Step " + id, deps: deps}
}

func (s *fakeStep) ID() string                { return s.id }
func (s *fakeStep) Name() string              { return s.name }
func (s *fakeStep) GetDependencies() []string { return s.deps }

func (s *fakeStep) Validate(*operations.OperationState) error { return s.validate }

func (s *fakeStep) SkipReason(*operations.OperationState) string { return s.skip }

func (s *fakeStep) Execute(ctx context.Context, state *operations.OperationState) error {
	s.mu.Lock()
	s.execCount++
	s.mu.Unlock()
	if s.execute != nil {
		return s.execute(ctx, state)
	}
	return s.err
}

func (s *fakeStep) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execCount
}

func stepIDs(steps []operations.Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}
