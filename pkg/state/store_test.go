package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-nodes/pkg/donation"
)

func TestMemoryStore_LoadMissing(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	cur, err := s.Load(context.Background(), Key{Workflow: "wf", Node: "n"})
	require.NoError(t, err)
	assert.True(t, cur.LastPollTime.IsZero())
	assert.NotNil(t, cur.ProcessedIDs)
	assert.Empty(t, cur.ProcessedIDs)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	key := Key{Workflow: "wf", Node: "n"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	in := donation.Cursor{
		LastPollTime: now,
		NextPollAt:   now.Add(time.Minute),
		ProcessedIDs: map[string]bool{"a": true},
	}
	require.NoError(t, s.Save(ctx, key, in))

	out, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// Mutating the loaded copy must not leak into the store.
	out.ProcessedIDs["b"] = true
	again, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, again.Seen("b"))
}

func TestMemoryStore_ProcessedIDsOnlyGrow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	key := Key{Workflow: "wf", Node: "n"}

	require.NoError(t, s.Save(ctx, key, donation.Cursor{ProcessedIDs: map[string]bool{"a": true}}))
	require.NoError(t, s.Save(ctx, key, donation.Cursor{ProcessedIDs: map[string]bool{"b": true}}))

	cur, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.True(t, cur.Seen("a"))
	assert.True(t, cur.Seen("b"))
}

func TestMemoryStore_KeysAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Save(ctx, Key{Workflow: "wf", Node: "one"}, donation.Cursor{ProcessedIDs: map[string]bool{"a": true}}))

	cur, err := s.Load(ctx, Key{Workflow: "wf", Node: "two"})
	require.NoError(t, err)
	assert.False(t, cur.Seen("a"))
}
