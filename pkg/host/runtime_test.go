package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-nodes/pkg/clients/charityspurse"
	"donation-nodes/pkg/credentials"
	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/engine"
	"donation-nodes/pkg/engine/handlers"
	"donation-nodes/pkg/state"
)

var fixedNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newRuntime(t *testing.T, client charityspurse.Client) (*Runtime, *state.MemoryStore) {
	t.Helper()
	store := state.NewMemoryStore()
	resolver := credentials.NewStaticResolver(map[string]credentials.APIKey{
		credentials.CharitysPurseName: {Key: "k"},
	})
	rt := NewRuntime(
		handlers.NewRegistry(client, donation.DefaultGate()),
		store,
		resolver,
		WithClock(func() time.Time { return fixedNow }),
	)
	return rt, store
}

func TestRuntime_AddInstance(t *testing.T) {
	t.Parallel()
	rt, _ := newRuntime(t, &charityspurse.MockClient{})

	require.NoError(t, rt.AddInstance(Instance{ID: "a", NodeType: handlers.TypeDonationAbandoned}))

	err := rt.AddInstance(Instance{ID: "a", NodeType: handlers.TypeDonationAbandoned})
	assert.ErrorContains(t, err, "duplicate id")

	err = rt.AddInstance(Instance{ID: "b", NodeType: "nope"})
	assert.ErrorIs(t, err, engine.ErrUnknownNodeType)

	err = rt.AddInstance(Instance{NodeType: handlers.TypeHelloPollTrigger})
	assert.Error(t, err)

	inst, ok := rt.Instance("a")
	require.True(t, ok)
	assert.Equal(t, "default", inst.Workflow)
}

func TestRuntime_Invoke(t *testing.T) {
	t.Parallel()
	client := &charityspurse.MockClient{
		ListDonationsFunc: func(context.Context, charityspurse.ListRequest) ([]byte, error) {
			return []byte(`{"data":[{"_id":"d1","status":"confirmed"}]}`), nil
		},
	}
	rt, _ := newRuntime(t, client)
	require.NoError(t, rt.AddInstance(Instance{ID: "conf", Workflow: "wf", NodeType: handlers.TypeDonationConfirmed}))

	res, err := rt.Invoke(context.Background(), "conf")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "d1", res.Items[0].JSON["id"])
	assert.Equal(t, RunCompleted, res.Run.Status)
	assert.Equal(t, 1, res.Run.Items)
	assert.Equal(t, fixedNow, res.Run.StartedAt)

	last, ok := rt.LastRun("conf")
	require.True(t, ok)
	assert.Equal(t, res.Run.ID, last.ID)

	cur, err := rt.State(context.Background(), "conf")
	require.NoError(t, err)
	assert.True(t, cur.Seen("d1"))

	res, err = rt.Invoke(context.Background(), "conf")
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.Equal(t, RunCompleted, res.Run.Status)
}

func TestRuntime_InvokeErrors(t *testing.T) {
	t.Parallel()
	client := &charityspurse.MockClient{
		ListDonationsFunc: func(context.Context, charityspurse.ListRequest) ([]byte, error) {
			return nil, errors.New("boom")
		},
	}
	rt, _ := newRuntime(t, client)
	require.NoError(t, rt.AddInstance(Instance{ID: "init", NodeType: handlers.TypeDonationInitiated}))

	_, err := rt.Invoke(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownInstance)

	res, err := rt.Invoke(context.Background(), "init")
	var opErr *engine.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, RunFailed, res.Run.Status)
	assert.Contains(t, res.Run.Error, "boom")

	_, err = rt.State(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownInstance)
}

func TestRuntime_Preview(t *testing.T) {
	t.Parallel()
	client := &charityspurse.MockClient{
		ListDonationsFunc: func(context.Context, charityspurse.ListRequest) ([]byte, error) {
			return []byte(`[{"_id":"x","status":"abandoned"}]`), nil
		},
	}
	rt, _ := newRuntime(t, client)
	require.NoError(t, rt.AddInstance(Instance{ID: "ab", NodeType: handlers.TypeDonationAbandoned}))
	require.NoError(t, rt.AddInstance(Instance{ID: "hello", NodeType: handlers.TypeHelloPollTrigger}))

	since := fixedNow.Add(-24 * time.Hour)
	items, err := rt.Preview(context.Background(), "ab", since)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, donation.FormatSince(since), client.Requests()[0].Since)

	cur, err := rt.State(context.Background(), "ab")
	require.NoError(t, err)
	assert.Empty(t, cur.ProcessedIDs)

	_, err = rt.Preview(context.Background(), "hello", since)
	assert.ErrorIs(t, err, ErrPreviewUnsupported)
}

type slowHandler struct {
	active  atomic.Int32
	overlap atomic.Bool
}

func (h *slowHandler) NodeType() string { return "slow" }
func (h *slowHandler) Description() engine.NodeDescription {
	return engine.NodeDescription{Name: "slow", Polling: true}
}
func (h *slowHandler) Execute(ec *engine.ExecutionContext, node *engine.Node) ([]engine.Item, error) {
	if h.active.Add(1) > 1 {
		h.overlap.Store(true)
	}
	time.Sleep(5 * time.Millisecond)
	h.active.Add(-1)
	return nil, nil
}

func TestRuntime_InvokeSerializedPerInstance(t *testing.T) {
	t.Parallel()
	registry := engine.NewRegistry()
	h := &slowHandler{}
	registry.Register(h)
	rt := NewRuntime(registry, state.NewMemoryStore(), nil)
	require.NoError(t, rt.AddInstance(Instance{ID: "s", NodeType: "slow"}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = rt.Invoke(context.Background(), "s")
		}()
	}
	wg.Wait()

	assert.False(t, h.overlap.Load(), "invocations of one instance overlapped")
	last, ok := rt.LastRun("s")
	require.True(t, ok)
	assert.Equal(t, RunNoData, last.Status)
}

func TestPoller_PollOnce(t *testing.T) {
	t.Parallel()
	client := &charityspurse.MockClient{
		ListDonationsFunc: func(context.Context, charityspurse.ListRequest) ([]byte, error) {
			return []byte(`[{"_id":"a1","status":"abandoned"}]`), nil
		},
	}
	rt, _ := newRuntime(t, client)
	require.NoError(t, rt.AddInstance(Instance{ID: "ab", NodeType: handlers.TypeDonationAbandoned}))
	require.NoError(t, rt.AddInstance(Instance{ID: "conf", NodeType: handlers.TypeDonationConfirmed}))
	require.NoError(t, rt.AddInstance(Instance{ID: "hello", NodeType: handlers.TypeHelloPollTrigger}))

	var buf bytes.Buffer
	p := NewPoller(rt, NewWriterSink(&buf), time.Second, nil)
	require.NoError(t, p.PollOnce(context.Background()))

	// Pipeline instances are not polled.
	assert.Len(t, client.Requests(), 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first emittedLine
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "ab", first.Instance)
	assert.Equal(t, "a1", first.JSON["id"])

	var second emittedLine
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "hello", second.Instance)
	assert.Equal(t, true, second.JSON["ok"])

	// Second round: the abandoned node is gated, heartbeat still fires.
	buf.Reset()
	require.NoError(t, p.PollOnce(context.Background()))
	assert.Len(t, client.Requests(), 1)
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	rt, _ := newRuntime(t, &charityspurse.MockClient{})
	require.NoError(t, rt.AddInstance(Instance{ID: "hello", NodeType: handlers.TypeHelloPollTrigger}))

	var buf bytes.Buffer
	p := NewPoller(rt, NewWriterSink(&buf), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}
