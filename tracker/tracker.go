package tracker

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/pixperk/pixtracker/compact"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type CounterKind int

const (
	Complete CounterKind = iota
	Incomplete
)

func (k CounterKind) String() string {
	if k == Complete {
		return "complete"
	}
	return "incomplete"
}

// PresenceStore is an expiring existence oracle keyed by compact peer record.
// A missing entry is the only signal that a peer went stale.
type PresenceStore interface {
	Exists(ctx context.Context, peer compact.Peer) (bool, error)
	Put(ctx context.Context, peer compact.Peer, ttl time.Duration) error
	Delete(ctx context.Context, peer compact.Peer) error
	// ExistsMulti returns the subset of peers that are currently present.
	ExistsMulti(ctx context.Context, peers []compact.Peer) (map[compact.Peer]struct{}, error)
	Close() error
}

// SwarmStore keeps one peer list blob and two counters per swarm. Counter
// updates are atomic per key, nothing spans keys.
type SwarmStore interface {
	PeerList(ctx context.Context, swarm string) ([]byte, bool, error)
	SetPeerList(ctx context.Context, swarm string, blob []byte) error
	Counter(ctx context.Context, swarm string, kind CounterKind) (int64, bool, error)
	SetCounter(ctx context.Context, swarm string, kind CounterKind, value int64) error
	IncrCounter(ctx context.Context, swarm string, kind CounterKind, delta int64) error
	DecrCounter(ctx context.Context, swarm string, kind CounterKind, delta int64) error
	Close() error
}

// Tracker is the announce engine. It holds no per-swarm state; everything
// shared between requests lives in the two stores.
type Tracker struct {
	cfg      Config
	presence PresenceStore
	swarms   SwarmStore
	log      *zap.Logger

	intn func(n int) int
}

func New(cfg Config, presence PresenceStore, swarms SwarmStore, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		cfg:      cfg,
		presence: presence,
		swarms:   swarms,
		log:      log,
		intn:     rand.IntN,
	}
}

func (t *Tracker) Config() Config {
	return t.cfg
}

func (t *Tracker) Close() error {
	return multierr.Append(t.presence.Close(), t.swarms.Close())
}
