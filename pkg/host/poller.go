package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"donation-nodes/pkg/engine"
)

// DefaultTick is how often the poller offers each polling instance a turn.
// The per-node gate decides whether a fetch actually happens.
const DefaultTick = 10 * time.Second

// Sink receives the items produced by a polling invocation.
type Sink interface {
	Emit(ctx context.Context, inst Instance, items []engine.Item) error
}

// LogSink logs emitted items.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(_ context.Context, inst Instance, items []engine.Item) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, item := range items {
		logger.Info("item emitted", "instance", inst.ID, "nodeType", inst.NodeType, "id", item.JSON["id"])
	}
	return nil
}

// WriterSink writes one JSON line per item.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

type emittedLine struct {
	Instance string         `json:"instance"`
	NodeType string         `json:"nodeType"`
	JSON     map[string]any `json:"json"`
}

func (s *WriterSink) Emit(_ context.Context, inst Instance, items []engine.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(s.w)
	for _, item := range items {
		line := emittedLine{Instance: inst.ID, NodeType: inst.NodeType, JSON: item.JSON}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("write item for %s: %w", inst.ID, err)
		}
	}
	return nil
}

// Poller drives polling instances on a fixed tick.
type Poller struct {
	runtime *Runtime
	sink    Sink
	tick    time.Duration
	logger  *slog.Logger
}

// NewPoller creates a Poller. A non-positive tick uses DefaultTick.
func NewPoller(runtime *Runtime, sink Sink, tick time.Duration, logger *slog.Logger) *Poller {
	if tick <= 0 {
		tick = DefaultTick
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		runtime: runtime,
		sink:    sink,
		tick:    tick,
		logger:  logger.With("component", "poller"),
	}
}

// Run polls immediately and then on every tick until ctx is cancelled.
// Invocation errors are logged and never stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", "tick", p.tick)

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		if err := p.PollOnce(ctx); err != nil {
			p.logger.Warn("poll round had failures", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce invokes every polling instance once, in id order, and returns the
// joined errors of the round.
func (p *Poller) PollOnce(ctx context.Context) error {
	var errs []error
	for _, inst := range p.runtime.Instances() {
		if ctx.Err() != nil {
			break
		}
		if !p.runtime.IsPolling(inst) {
			continue
		}

		res, err := p.runtime.Invoke(ctx, inst.ID)
		if err != nil {
			var opErr *engine.OperationError
			if errors.As(err, &opErr) {
				p.logger.Warn("node operation failed", "instance", inst.ID, "error", err)
			} else {
				p.logger.Error("invocation failed", "instance", inst.ID, "error", err)
			}
			errs = append(errs, err)
			continue
		}
		if res.Items == nil {
			continue
		}

		if err := p.sink.Emit(ctx, inst, res.Items); err != nil {
			p.logger.Error("failed to emit items", "instance", inst.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
