package cache

import (
	"context"
	"sync"
	"time"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
)

type lease struct {
	token     uint64
	expiresAt time.Time
}

// InMemoryLocker implements appfinance.Locker inside one process.
// It is meant for single-instance deployments and tests.
type InMemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	next   uint64
	now    func() time.Time
}

// NewInMemoryLocker creates an empty locker
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// Acquire claims key for ttl or returns appfinance.ErrLockHeld.
// An expired lease is taken over.
func (l *InMemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[key]; ok && now.Before(held.expiresAt) {
		return nil, appfinance.ErrLockHeld
	}

	l.next++
	token := l.next
	l.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[key]; ok && held.token == token {
			delete(l.leases, key)
		}
		return nil
	}, nil
}

// Held reports whether key is currently leased
func (l *InMemoryLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	held, ok := l.leases[key]
	return ok && l.now().Before(held.expiresAt)
}

var _ appfinance.Locker = (*InMemoryLocker)(nil)
