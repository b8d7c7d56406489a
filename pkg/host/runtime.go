// Package host runs configured node instances: it owns the handler registry,
// the cursor store and credential lookup, and serializes invocations of each
// instance.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"donation-nodes/pkg/credentials"
	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/engine"
	"donation-nodes/pkg/state"
)

var (
	// ErrUnknownInstance is returned for an instance id that was never added.
	ErrUnknownInstance = errors.New("unknown instance")

	// ErrPreviewUnsupported is returned when the instance's handler cannot preview.
	ErrPreviewUnsupported = errors.New("node type does not support preview")
)

// Instance is one configured node inside a workflow.
type Instance struct {
	ID         string         `json:"id" yaml:"id"`
	Workflow   string         `json:"workflow" yaml:"workflow"`
	NodeType   string         `json:"nodeType" yaml:"node"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

func (i Instance) node() *engine.Node {
	return &engine.Node{
		ID:         i.ID,
		Workflow:   i.Workflow,
		Type:       i.NodeType,
		Parameters: i.Parameters,
	}
}

// RunStatus summarizes how an invocation ended.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunNoData    RunStatus = "no_data"
	RunFailed    RunStatus = "failed"
)

// RunRecord describes the last invocation of an instance.
type RunRecord struct {
	ID         uuid.UUID     `json:"id"`
	InstanceID string        `json:"instanceId"`
	NodeType   string        `json:"nodeType"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"durationNs"`
	Status     RunStatus     `json:"status"`
	Items      int           `json:"items"`
	Error      string        `json:"error,omitempty"`
}

// Result is the outcome of Invoke. Items is nil when a polling node reported
// nothing new.
type Result struct {
	Run   RunRecord
	Items []engine.Item
}

// previewer is implemented by handlers that can run a fetch without
// persisting anything.
type previewer interface {
	Preview(ec *engine.ExecutionContext, node *engine.Node, since time.Time) ([]engine.Item, error)
}

// Runtime invokes node instances. At most one invocation per instance runs at
// a time; distinct instances run independently.
type Runtime struct {
	registry    *engine.Registry
	store       state.Store
	credentials credentials.Resolver
	logger      *slog.Logger
	now         func() time.Time

	mu        sync.RWMutex
	instances map[string]Instance
	locks     map[string]*sync.Mutex
	lastRuns  map[string]RunRecord
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

// WithClock overrides the invocation clock.
func WithClock(now func() time.Time) Option {
	return func(r *Runtime) { r.now = now }
}

// NewRuntime creates a Runtime with no instances.
func NewRuntime(registry *engine.Registry, store state.Store, resolver credentials.Resolver, opts ...Option) *Runtime {
	r := &Runtime{
		registry:    registry,
		store:       store,
		credentials: resolver,
		logger:      slog.Default(),
		now:         time.Now,
		instances:   make(map[string]Instance),
		locks:       make(map[string]*sync.Mutex),
		lastRuns:    make(map[string]RunRecord),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the handler registry.
func (r *Runtime) Registry() *engine.Registry { return r.registry }

// Credentials returns the credential resolver.
func (r *Runtime) Credentials() credentials.Resolver { return r.credentials }

// AddInstance registers inst. The node type must be known and the id unused.
func (r *Runtime) AddInstance(inst Instance) error {
	if inst.ID == "" {
		return fmt.Errorf("add instance: empty id")
	}
	if _, ok := r.registry.Get(inst.NodeType); !ok {
		return fmt.Errorf("add instance %s: %w: %s", inst.ID, engine.ErrUnknownNodeType, inst.NodeType)
	}
	if inst.Workflow == "" {
		inst.Workflow = "default"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[inst.ID]; exists {
		return fmt.Errorf("add instance %s: duplicate id", inst.ID)
	}
	r.instances[inst.ID] = inst
	r.locks[inst.ID] = &sync.Mutex{}
	return nil
}

// Instances returns every instance sorted by id.
func (r *Runtime) Instances() []Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Instance looks up one instance by id.
func (r *Runtime) Instance(id string) (Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// LastRun returns the most recent run of an instance, if any.
func (r *Runtime) LastRun(id string) (RunRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.lastRuns[id]
	return run, ok
}

// IsPolling reports whether the instance's node type is a polling trigger.
func (r *Runtime) IsPolling(inst Instance) bool {
	h, ok := r.registry.Get(inst.NodeType)
	return ok && h.Description().Polling
}

// State loads the persisted cursor of an instance.
func (r *Runtime) State(ctx context.Context, id string) (donation.Cursor, error) {
	inst, ok := r.Instance(id)
	if !ok {
		return donation.Cursor{}, fmt.Errorf("load state %s: %w", id, ErrUnknownInstance)
	}
	cur, err := r.store.Load(ctx, inst.node().StateKey())
	if err != nil {
		return donation.Cursor{}, fmt.Errorf("load state %s: %w", id, err)
	}
	return cur, nil
}

// Invoke runs one invocation of the instance and records it as the last run.
func (r *Runtime) Invoke(ctx context.Context, id string) (Result, error) {
	inst, handler, lock, err := r.resolve(id)
	if err != nil {
		return Result{}, err
	}

	lock.Lock()
	defer lock.Unlock()

	logger := r.logger.With("instance", inst.ID, "workflow", inst.Workflow)
	ec := r.executionContext(ctx, logger)

	run := RunRecord{
		ID:         uuid.New(),
		InstanceID: inst.ID,
		NodeType:   inst.NodeType,
		StartedAt:  ec.Time(),
	}

	items, execErr := handler.Execute(ec, inst.node())
	run.Duration = r.now().Sub(run.StartedAt)
	run.Items = len(items)
	switch {
	case execErr != nil:
		run.Status = RunFailed
		run.Error = execErr.Error()
	case items == nil:
		run.Status = RunNoData
	default:
		run.Status = RunCompleted
	}

	r.mu.Lock()
	r.lastRuns[inst.ID] = run
	r.mu.Unlock()

	logger.Debug("invocation finished", "run", run.ID, "status", run.Status, "items", run.Items)

	if execErr != nil {
		return Result{Run: run}, fmt.Errorf("invoke %s: %w", inst.ID, execErr)
	}
	return Result{Run: run, Items: items}, nil
}

// Preview runs the instance's fetch from since without touching its state.
func (r *Runtime) Preview(ctx context.Context, id string, since time.Time) ([]engine.Item, error) {
	inst, handler, _, err := r.resolve(id)
	if err != nil {
		return nil, err
	}
	p, ok := handler.(previewer)
	if !ok {
		return nil, fmt.Errorf("preview %s: %w", id, ErrPreviewUnsupported)
	}

	ec := r.executionContext(ctx, r.logger.With("instance", inst.ID))
	items, err := p.Preview(ec, inst.node(), since)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", id, err)
	}
	return items, nil
}

func (r *Runtime) resolve(id string) (Instance, engine.NodeHandler, *sync.Mutex, error) {
	r.mu.RLock()
	inst, ok := r.instances[id]
	lock := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return Instance{}, nil, nil, fmt.Errorf("resolve instance %s: %w", id, ErrUnknownInstance)
	}

	handler, ok := r.registry.Get(inst.NodeType)
	if !ok {
		return Instance{}, nil, nil, fmt.Errorf("resolve instance %s: %w: %s", id, engine.ErrUnknownNodeType, inst.NodeType)
	}
	return inst, handler, lock, nil
}

func (r *Runtime) executionContext(ctx context.Context, logger *slog.Logger) *engine.ExecutionContext {
	ec := engine.NewExecutionContext(ctx, r.store, r.credentials)
	ec.Now = r.now
	ec.Logger = logger
	return ec
}
