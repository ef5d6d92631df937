// Package guard provides the per-session pending-request lock: at most one
// grading or finalization call may be in flight for a session.
package guard

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHeld is returned by Acquire when another request holds the key.
var ErrHeld = errors.New("guard held")

// Guard hands out exclusive, expiring holds on string keys.
type Guard interface {
	// Acquire takes the key for at most ttl. It returns ErrHeld without
	// waiting when the key is taken. release is safe to call more than
	// once and never releases a hold that has since passed to someone
	// else.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Memory is an in-process Guard for single-replica deployments and tests.
type Memory struct {
	mu    sync.Mutex
	holds map[string]hold
	now   func() time.Time
}

type hold struct {
	token   uint64
	expires time.Time
}

var _ Guard = (*Memory)(nil)

// NewMemory creates an empty in-process guard.
func NewMemory() *Memory {
	return &Memory{holds: make(map[string]hold), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if h, ok := m.holds[key]; ok && now.Before(h.expires) {
		return nil, ErrHeld
	}
	token := nextToken()
	m.holds[key] = hold{token: token, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if h, ok := m.holds[key]; ok && h.token == token {
				delete(m.holds, key)
			}
		})
	}, nil
}

var (
	tokenMu  sync.Mutex
	tokenSeq uint64
)

func nextToken() uint64 {
	tokenMu.Lock()
	defer tokenMu.Unlock()
	tokenSeq++
	return tokenSeq
}
