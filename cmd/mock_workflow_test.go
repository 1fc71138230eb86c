package cmd

import (
	"context"

	"github.com/stretchr/testify/mock"

	"nessie.dev/pkg/nessie/internal/domain"
	m "nessie.dev/pkg/nessie/internal/model"
)

type mockWorkflow struct {
	mock.Mock
}

func (w *mockWorkflow) Run(ctx context.Context, args domain.RunArgs) (m.RunReport, error) {
	ret := w.Called(ctx, args)
	report, _ := ret.Get(0).(m.RunReport)

	return report, ret.Error(1)
}

func (w *mockWorkflow) List(ctx context.Context, args domain.ListArgs) error {
	return w.Called(ctx, args).Error(0)
}

func (w *mockWorkflow) View(ctx context.Context, args domain.ViewArgs) error {
	return w.Called(ctx, args).Error(0)
}

func (w *mockWorkflow) Replay(ctx context.Context, args domain.ReplayArgs) ([]m.ReplayResult, error) {
	ret := w.Called(ctx, args)
	results, _ := ret.Get(0).([]m.ReplayResult)

	return results, ret.Error(1)
}

func (w *mockWorkflow) Diff(ctx context.Context, args domain.DiffArgs) (m.TraceDiff, error) {
	ret := w.Called(ctx, args)
	diff, _ := ret.Get(0).(m.TraceDiff)

	return diff, ret.Error(1)
}

// useWorkflow installs wf for the duration of a test.
func useWorkflow(t interface{ Cleanup(func()) }, wf domain.Workflow) {
	original := workflow
	workflow = wf

	t.Cleanup(func() { workflow = original })
}
