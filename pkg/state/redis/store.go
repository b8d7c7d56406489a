// Package redis stores donation cursors in Redis.
//
// Each node instance uses a Hash for the timestamps and a Set for the
// processed ids:
//
//	donation-nodes:cursor:{workflow}:{node}     HASH  last_poll_time, next_poll_at
//	donation-nodes:processed:{workflow}:{node}  SET   record ids
//
// Both segments are query-escaped, so a ':' inside an id becomes %3A.
package redis

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/state"
)

var _ state.Store = (*Store)(nil)

const keyPrefix = "donation-nodes:"

// cursorKey returns the Hash key holding a cursor's timestamps.
func cursorKey(k state.Key) string { return keyPrefix + "cursor:" + keySuffix(k) }

// processedKey returns the Set key holding a cursor's processed ids.
func processedKey(k state.Key) string { return keyPrefix + "processed:" + keySuffix(k) }

// keySuffix escapes both segments so ids containing ':' cannot collide.
func keySuffix(k state.Key) string {
	return url.QueryEscape(k.Workflow) + ":" + url.QueryEscape(k.Node)
}

const (
	fieldLastPollTime = "last_poll_time"
	fieldNextPollAt   = "next_poll_at"
)

// Store implements state.Store backed by Redis.
type Store struct {
	client redis.Cmdable
}

// New creates a Redis-backed store. The caller owns the client lifecycle.
func New(client redis.Cmdable) *Store {
	return &Store{client: client}
}

// Open parses a redis:// URL and pings the server.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *Store) Load(ctx context.Context, key state.Key) (donation.Cursor, error) {
	cur := donation.Cursor{ProcessedIDs: map[string]bool{}}

	fields, err := s.client.HGetAll(ctx, cursorKey(key)).Result()
	if err != nil {
		return cur, fmt.Errorf("load cursor %s: %w", key, err)
	}
	if cur.LastPollTime, err = parseTime(fields[fieldLastPollTime]); err != nil {
		return cur, fmt.Errorf("parse %s for %s: %w", fieldLastPollTime, key, err)
	}
	if cur.NextPollAt, err = parseTime(fields[fieldNextPollAt]); err != nil {
		return cur, fmt.Errorf("parse %s for %s: %w", fieldNextPollAt, key, err)
	}

	ids, err := s.client.SMembers(ctx, processedKey(key)).Result()
	if err != nil {
		return cur, fmt.Errorf("load processed ids %s: %w", key, err)
	}
	for _, id := range ids {
		cur.ProcessedIDs[id] = true
	}
	return cur, nil
}

func (s *Store) Save(ctx context.Context, key state.Key, cur donation.Cursor) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, cursorKey(key),
			fieldLastPollTime, formatTime(cur.LastPollTime),
			fieldNextPollAt, formatTime(cur.NextPollAt),
		)
		if len(cur.ProcessedIDs) > 0 {
			members := make([]any, 0, len(cur.ProcessedIDs))
			for id := range cur.ProcessedIDs {
				members = append(members, id)
			}
			pipe.SAdd(ctx, processedKey(key), members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save cursor %s: %w", key, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
