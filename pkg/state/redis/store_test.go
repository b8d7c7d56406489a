package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/state"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), mr
}

func TestStore_LoadMissing(t *testing.T) {
	store, _ := newTestStore(t)

	cur, err := store.Load(context.Background(), state.Key{Workflow: "wf", Node: "n"})
	require.NoError(t, err)
	assert.True(t, cur.LastPollTime.IsZero())
	assert.True(t, cur.NextPollAt.IsZero())
	assert.Empty(t, cur.ProcessedIDs)
}

func TestStore_RoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	key := state.Key{Workflow: "wf", Node: "n"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)

	in := donation.Cursor{
		LastPollTime: now,
		NextPollAt:   now.Add(time.Minute),
		ProcessedIDs: map[string]bool{"a": true, "b": true},
	}
	require.NoError(t, store.Save(ctx, key, in))

	out, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.True(t, out.LastPollTime.Equal(in.LastPollTime))
	assert.True(t, out.NextPollAt.Equal(in.NextPollAt))
	assert.Equal(t, in.ProcessedIDs, out.ProcessedIDs)

	members, err := mr.Members("donation-nodes:processed:wf:n")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)
}

func TestStore_ProcessedIDsOnlyGrow(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := state.Key{Workflow: "wf", Node: "n"}

	require.NoError(t, store.Save(ctx, key, donation.Cursor{ProcessedIDs: map[string]bool{"a": true}}))
	require.NoError(t, store.Save(ctx, key, donation.Cursor{ProcessedIDs: map[string]bool{"b": true}}))

	cur, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.True(t, cur.Seen("a"))
	assert.True(t, cur.Seen("b"))
}

func TestStore_KeysWithColonsDoNotCollide(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	first := state.Key{Workflow: "a:b", Node: "c"}
	second := state.Key{Workflow: "a", Node: "b:c"}

	require.NoError(t, store.Save(ctx, first, donation.Cursor{ProcessedIDs: map[string]bool{"x": true}}))
	require.NoError(t, store.Save(ctx, second, donation.Cursor{ProcessedIDs: map[string]bool{"y": true}}))

	cur, err := store.Load(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"x": true}, cur.ProcessedIDs)

	cur, err = store.Load(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"y": true}, cur.ProcessedIDs)

	assert.True(t, mr.Exists("donation-nodes:processed:a%3Ab:c"))
	assert.True(t, mr.Exists("donation-nodes:processed:a:b%3Ac"))
}

func TestStore_CorruptTimestamp(t *testing.T) {
	store, mr := newTestStore(t)
	mr.HSet("donation-nodes:cursor:wf:n", "last_poll_time", "yesterday")

	_, err := store.Load(context.Background(), state.Key{Workflow: "wf", Node: "n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse last_poll_time")
}

func TestStore_ServerDown(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	err := store.Save(context.Background(), state.Key{Workflow: "wf", Node: "n"}, donation.Cursor{})
	require.Error(t, err)
}
