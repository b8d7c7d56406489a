package credentials

import (
	"context"
	"fmt"

	"donation-nodes/pkg/clients/charityspurse"
)

// testSince pins the smoke-test window to the Unix epoch.
const testSince = "1970-01-01T00:00:00.000Z"

// Test issues the descriptor's smoke-test request with the given credentials.
// A nil error means the platform accepted the key.
func Test(ctx context.Context, client charityspurse.Client, key *APIKey) error {
	if key == nil || key.Key == "" {
		return fmt.Errorf("test credentials: %w", ErrNotFound)
	}

	_, err := client.ListDonations(ctx, charityspurse.ListRequest{
		BaseURL:    key.BaseURLOrDefault(),
		Since:      testSince,
		APIKey:     key.Key,
		AuthScheme: charityspurse.AuthHeader,
	})
	if err != nil {
		return fmt.Errorf("test credentials: %w", err)
	}
	return nil
}

// TestByName resolves name and tests the resulting credentials.
func TestByName(ctx context.Context, resolver Resolver, client charityspurse.Client, name string) error {
	if _, ok := Lookup(name); !ok {
		return fmt.Errorf("unknown credential type %q", name)
	}
	key, err := resolver.Resolve(ctx, name)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", name, err)
	}
	return Test(ctx, client, key)
}
