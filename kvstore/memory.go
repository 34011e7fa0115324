package kvstore

import (
	"context"
	"sync"
	"time"
)

// TTLReader is implemented by stores that can report a key's remaining lifetime.
type TTLReader interface {
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process [KeyedTTLStore]. Expired entries are dropped lazily on
// access.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time

	// failErr, when set, is returned wrapped in ErrUnavailable by every call.
	failErr error
}

// NewMemory returns an empty store using the wall clock.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// WithClock replaces the store clock. Intended for tests that simulate TTL expiry.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now != nil {
		m.now = now
	}
	return m
}

// FailWith makes every subsequent call fail with err wrapped in [ErrUnavailable].
// Passing nil restores normal behavior.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return "", false, wrapUnavailable(m.failErr)
	}

	entry, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return "", false, nil
	}

	return entry.value, true, nil
}

func (m *Memory) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return wrapUnavailable(m.failErr)
	}

	m.entries[key] = memoryEntry{
		value:     value,
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return wrapUnavailable(m.failErr)
	}

	delete(m.entries, key)
	return nil
}

func (m *Memory) TTL(ctx context.Context, key string) (time.Duration, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return 0, wrapUnavailable(m.failErr)
	}

	entry, ok := m.entries[key]
	if !ok {
		return 0, nil
	}
	remaining := entry.expiresAt.Sub(m.now())
	if remaining <= 0 {
		delete(m.entries, key)
		return 0, nil
	}
	return remaining, nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, key)
			continue
		}
		n++
	}
	return n
}
