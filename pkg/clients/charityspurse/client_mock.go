package charityspurse

import (
	"context"
	"sync"
)

// MockClient implements Client for testing.
// ListDonations panics if ListDonationsFunc is not set, so tests must
// configure the behavior they expect.
type MockClient struct {
	ListDonationsFunc func(ctx context.Context, req ListRequest) ([]byte, error)

	mu       sync.Mutex
	requests []ListRequest
}

func (m *MockClient) ListDonations(ctx context.Context, req ListRequest) ([]byte, error) {
	if m.ListDonationsFunc == nil {
		panic("MockClient.ListDonations called but ListDonationsFunc not set (since: " + req.Since + ")")
	}
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.ListDonationsFunc(ctx, req)
}

// Requests returns every request received so far.
func (m *MockClient) Requests() []ListRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ListRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
