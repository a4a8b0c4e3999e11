package auth

import (
	"context"
	"sync"
	"time"
)

// Session tokens are stateless; a role downgrade normally waits out the
// token TTL. A Revoker narrows that window for admin tokens specifically,
// trading a store lookup per admin request for faster revocation. This is
// an optional component; the guard treats a nil Revoker as "nothing
// revoked".

// MemoryRevoker is a process-local revocation list, suitable for a single
// instance deployment or tests.
type MemoryRevoker struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewMemoryRevoker creates an in-process revocation list.
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{
		revoked: map[string]time.Time{},
	}
}

// Revoke marks a token ID as revoked until its natural expiry.
func (m *MemoryRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = until
	return nil
}

// IsRevoked reports whether a token ID is on the list. Entries past their
// expiry are pruned lazily; the token is unusable then anyway.
func (m *MemoryRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.revoked[tokenID]
	if !ok {
		return false, nil
	}

	if time.Now().After(until) {
		delete(m.revoked, tokenID)
		return false, nil
	}

	return true, nil
}

var _ Revoker = (*MemoryRevoker)(nil)
