package tracker

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pixperk/pixtracker/compact"
)

// MemoryPresence keeps presence deadlines in process. Expired entries read as
// absent right away and are dropped for good by Cleanup.
type MemoryPresence struct {
	mu        sync.RWMutex
	deadlines map[compact.Peer]time.Time
	now       func() time.Time
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{
		deadlines: make(map[compact.Peer]time.Time),
		now:       time.Now,
	}
}

func (m *MemoryPresence) Close() error {
	return nil
}

func (m *MemoryPresence) alive(p compact.Peer, now time.Time) bool {
	deadline, ok := m.deadlines[p]
	return ok && now.Before(deadline)
}

func (m *MemoryPresence) Exists(_ context.Context, peer compact.Peer) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.alive(peer, m.now()), nil
}

func (m *MemoryPresence) Put(_ context.Context, peer compact.Peer, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deadlines[peer] = m.now().Add(ttl)
	return nil
}

func (m *MemoryPresence) Delete(_ context.Context, peer compact.Peer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.deadlines, peer)
	return nil
}

func (m *MemoryPresence) ExistsMulti(_ context.Context, peers []compact.Peer) (map[compact.Peer]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	present := make(map[compact.Peer]struct{}, len(peers))
	for _, p := range peers {
		if m.alive(p, now) {
			present[p] = struct{}{}
		}
	}
	return present, nil
}

// Cleanup drops expired entries and reports how many were removed.
func (m *MemoryPresence) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for p := range m.deadlines {
		if !m.alive(p, now) {
			delete(m.deadlines, p)
			removed++
		}
	}
	return removed
}

func (m *MemoryPresence) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.deadlines)
}

type counterID struct {
	swarm string
	kind  CounterKind
}

// MemorySwarms holds peer lists and counters in bounded LRU caches, so
// swarms nobody announces to are eventually evicted.
type MemorySwarms struct {
	// guards read-modify-write on counters
	mu       sync.Mutex
	lists    *lru.Cache[string, []byte]
	counters *lru.Cache[counterID, int64]
}

const DefaultMemorySwarms = 65536

func NewMemorySwarms(size int) (*MemorySwarms, error) {
	if size <= 0 {
		size = DefaultMemorySwarms
	}
	lists, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	counters, err := lru.New[counterID, int64](size * 2)
	if err != nil {
		return nil, err
	}
	return &MemorySwarms{
		lists:    lists,
		counters: counters,
	}, nil
}

func (m *MemorySwarms) Close() error {
	m.lists.Purge()
	m.counters.Purge()
	return nil
}

func (m *MemorySwarms) PeerList(_ context.Context, swarm string) ([]byte, bool, error) {
	blob, ok := m.lists.Get(swarm)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), blob...), true, nil
}

func (m *MemorySwarms) SetPeerList(_ context.Context, swarm string, blob []byte) error {
	m.lists.Add(swarm, append([]byte(nil), blob...))
	return nil
}

func (m *MemorySwarms) Counter(_ context.Context, swarm string, kind CounterKind) (int64, bool, error) {
	n, ok := m.counters.Get(counterID{swarm, kind})
	return n, ok, nil
}

func (m *MemorySwarms) SetCounter(_ context.Context, swarm string, kind CounterKind, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters.Add(counterID{swarm, kind}, value)
	return nil
}

func (m *MemorySwarms) IncrCounter(_ context.Context, swarm string, kind CounterKind, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := counterID{swarm, kind}
	n, _ := m.counters.Get(id)
	m.counters.Add(id, n+delta)
	return nil
}

func (m *MemorySwarms) DecrCounter(ctx context.Context, swarm string, kind CounterKind, delta int64) error {
	return m.IncrCounter(ctx, swarm, kind, -delta)
}

func (m *MemorySwarms) Len() int {
	return m.lists.Len()
}
