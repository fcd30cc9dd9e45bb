package session

import (
	"context"
	"sync"
	"time"
)

type memorySlot struct {
	slot
	expires time.Time
}

// Memory is a per-process Store; slots live for ttl after the last Put.
type Memory struct {
	mu        sync.Mutex
	slots     map[string]*memorySlot
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		slots: make(map[string]*memorySlot),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (m *Memory) Put(_ context.Context, sid, linkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	m.slots[sid] = &memorySlot{
		slot:    slot{LinkID: linkID},
		expires: now.Add(m.ttl),
	}
	return nil
}

func (m *Memory) Arm(_ context.Context, sid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[sid]
	if !ok || m.now().After(s.expires) {
		delete(m.slots, sid)
		return "", ErrNoSlot
	}
	state, err := NewState()
	if err != nil {
		return "", err
	}
	s.State = state
	return state, nil
}

func (m *Memory) Take(_ context.Context, sid, state string) (Pass, error) {
	m.mu.Lock()
	s, ok := m.slots[sid]
	delete(m.slots, sid)
	m.mu.Unlock()

	if !ok || m.now().After(s.expires) {
		return Pass{}, ErrNoSlot
	}
	return redeem(s.slot, state)
}

// Len reports the number of live slots.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now
	for sid, s := range m.slots {
		if now.After(s.expires) {
			delete(m.slots, sid)
		}
	}
}
