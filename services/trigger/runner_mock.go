package trigger

import (
	"context"
	"fmt"
	"time"

	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/engine"
	"donation-nodes/pkg/host"
)

// MockRunner implements Runner for testing.
// All methods panic if the corresponding function is not set,
// ensuring tests explicitly configure the behavior they expect.
type MockRunner struct {
	InstancesFunc func() []host.Instance
	InstanceFunc  func(id string) (host.Instance, bool)
	LastRunFunc   func(id string) (host.RunRecord, bool)
	IsPollingFunc func(inst host.Instance) bool
	StateFunc     func(ctx context.Context, id string) (donation.Cursor, error)
	InvokeFunc    func(ctx context.Context, id string) (host.Result, error)
	PreviewFunc   func(ctx context.Context, id string, since time.Time) ([]engine.Item, error)
}

func (m *MockRunner) Instances() []host.Instance {
	if m.InstancesFunc == nil {
		panic("MockRunner.Instances called but InstancesFunc not set")
	}
	return m.InstancesFunc()
}

func (m *MockRunner) Instance(id string) (host.Instance, bool) {
	if m.InstanceFunc == nil {
		panic(fmt.Sprintf("MockRunner.Instance called but InstanceFunc not set (id: %s)", id))
	}
	return m.InstanceFunc(id)
}

func (m *MockRunner) LastRun(id string) (host.RunRecord, bool) {
	if m.LastRunFunc == nil {
		panic(fmt.Sprintf("MockRunner.LastRun called but LastRunFunc not set (id: %s)", id))
	}
	return m.LastRunFunc(id)
}

func (m *MockRunner) IsPolling(inst host.Instance) bool {
	if m.IsPollingFunc == nil {
		panic(fmt.Sprintf("MockRunner.IsPolling called but IsPollingFunc not set (id: %s)", inst.ID))
	}
	return m.IsPollingFunc(inst)
}

func (m *MockRunner) State(ctx context.Context, id string) (donation.Cursor, error) {
	if m.StateFunc == nil {
		panic(fmt.Sprintf("MockRunner.State called but StateFunc not set (id: %s)", id))
	}
	return m.StateFunc(ctx, id)
}

func (m *MockRunner) Invoke(ctx context.Context, id string) (host.Result, error) {
	if m.InvokeFunc == nil {
		panic(fmt.Sprintf("MockRunner.Invoke called but InvokeFunc not set (id: %s)", id))
	}
	return m.InvokeFunc(ctx, id)
}

func (m *MockRunner) Preview(ctx context.Context, id string, since time.Time) ([]engine.Item, error) {
	if m.PreviewFunc == nil {
		panic(fmt.Sprintf("MockRunner.Preview called but PreviewFunc not set (id: %s)", id))
	}
	return m.PreviewFunc(ctx, id, since)
}
