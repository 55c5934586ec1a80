package revocation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// InMemoryTRL keeps revoked token ids in process memory. Revocations do not
// cross process boundaries, so the server only consults Redis; this list
// backs single-process embedding and tests.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewInMemoryTRL() *InMemoryTRL {
	return &InMemoryTRL{revoked: make(map[string]time.Time), now: time.Now}
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[jti] = t.now().Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	expiresAt, ok := t.revoked[jti]
	return ok && t.now().Before(expiresAt), nil
}

// Revoker adds token ids to a revocation list.
type Revoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// RevokeUntil revokes jti for the token's remaining lifetime. A token that has
// already expired is rejected by signature checks and needs no entry.
func RevokeUntil(ctx context.Context, r Revoker, jti string, expiresAt, now time.Time) error {
	if jti == "" {
		return errors.New("token has no id to revoke")
	}
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}
	return r.RevokeToken(ctx, jti, ttl)
}
