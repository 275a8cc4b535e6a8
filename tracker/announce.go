package tracker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/pixperk/pixtracker/compact"
	"github.com/pixperk/pixtracker/meta"
	"go.uber.org/zap"
)

const (
	EventStarted   = "started"
	EventStopped   = "stopped"
	EventCompleted = "completed"
)

// ValidationError is a bad announce or scrape request. Its message is what
// the client sees as the failure reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

type Request struct {
	InfoHash string
	Port     int
	// Left is passed through verbatim, only "0" has a meaning.
	Left  string
	Event string
}

func (r Request) Seeding() bool {
	return r.Left == "0"
}

func (r Request) counterKind() CounterKind {
	if r.Seeding() {
		return Complete
	}
	return Incomplete
}

func Validate(params url.Values) (Request, error) {
	for _, name := range []string{"info_hash", "port"} {
		if len(params[name]) != 1 {
			return Request{}, &ValidationError{Reason: fmt.Sprintf("You must provide %s!", name)}
		}
	}

	req := Request{
		InfoHash: params.Get("info_hash"),
		Left:     params.Get("left"),
		Event:    params.Get("event"),
	}
	if len(req.InfoHash) > MaxInfoHashLen {
		return Request{}, &ValidationError{Reason: "Insanely long key!"}
	}

	port, err := strconv.Atoi(params.Get("port"))
	if err != nil || port < 1 || port > 65535 {
		return Request{}, &ValidationError{Reason: "Invalid port number!"}
	}
	req.Port = port

	return req, nil
}

// Announce handles one announce from the peer at ip. The returned body is
// nil when nothing must be written back: a stopped event, or a bad request
// while error reporting is off.
func (t *Tracker) Announce(ctx context.Context, params url.Values, ip net.IP) ([]byte, error) {
	req, err := Validate(params)
	if err != nil {
		return t.failure(err)
	}

	self, err := compact.EncodePeer(ip, req.Port)
	if err != nil {
		return nil, err
	}

	switch req.Event {
	case EventStopped:
		return nil, t.stopped(ctx, req, self)
	case EventCompleted:
		if t.cfg.Stats {
			if err := t.swarms.DecrCounter(ctx, req.InfoHash, Incomplete, 1); err != nil {
				return nil, err
			}
			if err := t.swarms.IncrCounter(ctx, req.InfoHash, Complete, 1); err != nil {
				return nil, err
			}
		}
	}

	peers, err := t.updateMembership(ctx, req, self)
	if err != nil {
		return nil, err
	}

	resp := meta.BDict{
		"interval": meta.BInt(t.cfg.Interval / time.Second),
		"peers":    meta.BString(compact.EncodePeers(peers)),
	}
	if t.cfg.Stats {
		if err := t.addCounters(ctx, req.InfoHash, resp); err != nil {
			return nil, err
		}
	}
	return meta.Marshal(resp)
}

// stopped forgets the peer's presence. Its record stays in the blob until an
// announce samples it and finds it gone.
func (t *Tracker) stopped(ctx context.Context, req Request, self compact.Peer) error {
	if err := t.presence.Delete(ctx, self); err != nil {
		return err
	}
	if !t.cfg.Stats {
		return nil
	}
	// may underflow, counts are approximate
	return t.swarms.DecrCounter(ctx, req.InfoHash, req.counterKind(), 1)
}

// updateMembership prunes lost peers from the sampled window, adds the
// requester when it is new and returns the peers to hand out.
func (t *Tracker) updateMembership(ctx context.Context, req Request, self compact.Peer) ([]compact.Peer, error) {
	swarm := req.InfoHash

	blob, ok, err := t.swarms.PeerList(ctx, swarm)
	if err != nil {
		return nil, err
	}

	var all, window []compact.Peer
	dirty := false

	if !ok {
		if t.cfg.Stats {
			if err := t.swarms.SetCounter(ctx, swarm, Complete, 0); err != nil {
				return nil, err
			}
			if err := t.swarms.SetCounter(ctx, swarm, Incomplete, 0); err != nil {
				return nil, err
			}
		}
	} else {
		all, err = compact.DecodePeers(blob)
		if err != nil {
			return nil, fmt.Errorf("swarm %x: %w", swarm, err)
		}

		sampled := t.sample(all)
		present, err := t.presence.ExistsMulti(ctx, sampled)
		if err != nil {
			return nil, err
		}

		lost := make(map[compact.Peer]struct{})
		for _, p := range sampled {
			if _, ok := present[p]; ok {
				window = append(window, p)
			} else {
				lost[p] = struct{}{}
			}
		}

		if len(lost) > 0 {
			all = slices.DeleteFunc(slices.Clone(all), func(p compact.Peer) bool {
				_, gone := lost[p]
				return gone
			})
			dirty = true

			t.log.Debug("evicting lost peers",
				zap.String("swarm", fmt.Sprintf("%x", swarm)),
				zap.Int("lost", len(lost)),
				zap.Int("remaining", len(all)))

			if t.cfg.Stats {
				// lost seeders are counted as leechers too
				if err := t.swarms.DecrCounter(ctx, swarm, Incomplete, int64(len(lost))); err != nil {
					return nil, err
				}
			}
		}
	}

	if !slices.Contains(all, self) {
		if err := t.presence.Put(ctx, self, t.cfg.PeerTTL); err != nil {
			return nil, err
		}
		all = append(all, self)
		dirty = true

		if t.cfg.Stats {
			if err := t.swarms.IncrCounter(ctx, swarm, req.counterKind(), 1); err != nil {
				return nil, err
			}
		}
	} else if t.cfg.RefreshPresence {
		if err := t.presence.Put(ctx, self, t.cfg.PeerTTL); err != nil {
			return nil, err
		}
	}

	if dirty {
		if err := t.swarms.SetPeerList(ctx, swarm, compact.EncodePeers(all)); err != nil {
			return nil, err
		}
	}
	return window, nil
}

// sample picks a contiguous window of at most MaxPeers records at a random
// offset. The window aliases all.
func (t *Tracker) sample(all []compact.Peer) []compact.Peer {
	if len(all) <= t.cfg.MaxPeers {
		return all
	}
	start := t.intn(len(all) - t.cfg.MaxPeers + 1)
	return all[start : start+t.cfg.MaxPeers]
}

func (t *Tracker) addCounters(ctx context.Context, swarm string, d meta.BDict) error {
	for _, kind := range []CounterKind{Complete, Incomplete} {
		n, _, err := t.swarms.Counter(ctx, swarm, kind)
		if err != nil {
			return err
		}
		d[kind.String()] = meta.BInt(n)
	}
	return nil
}

// Scrape reports the counters of every requested swarm.
func (t *Tracker) Scrape(ctx context.Context, params url.Values) ([]byte, error) {
	if !t.cfg.Stats {
		return t.failure(&ValidationError{Reason: "Scrape is disabled!"})
	}

	hashes := params["info_hash"]
	if len(hashes) == 0 {
		return t.failure(&ValidationError{Reason: "You must provide info_hash!"})
	}

	files := meta.BDict{}
	for _, h := range hashes {
		if len(h) > MaxInfoHashLen {
			return t.failure(&ValidationError{Reason: "Insanely long key!"})
		}
		stats := meta.BDict{}
		if err := t.addCounters(ctx, h, stats); err != nil {
			return nil, err
		}
		files[h] = stats
	}

	return meta.Marshal(meta.BDict{"files": files})
}

func (t *Tracker) failure(err error) ([]byte, error) {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return nil, err
	}

	t.log.Debug("rejected request", zap.String("reason", verr.Reason))
	if !t.cfg.Errors {
		return nil, nil
	}
	return FailureResponse(verr.Reason)
}

func FailureResponse(reason string) ([]byte, error) {
	return meta.Marshal(meta.BDict{"failure reason": meta.BString(reason)})
}
