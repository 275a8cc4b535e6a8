package tracker

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultInterval = 3 * time.Hour
	DefaultPeerTTL  = 48 * time.Hour
	DefaultMaxPeers = 32

	// MaxInfoHashLen bounds the swarm key accepted from clients.
	MaxInfoHashLen = 128
)

type Config struct {
	// Stats keeps and reports the complete/incomplete counters.
	Stats bool
	// Errors sends failure reasons to clients; when off, bad requests get
	// no body at all.
	Errors bool

	Interval time.Duration
	PeerTTL  time.Duration
	MaxPeers int

	// RefreshPresence renews the presence entry of peers that are already
	// in the swarm instead of only writing it for new ones.
	RefreshPresence bool
	// TrustProxy takes the peer address from X-Real-IP / X-Forwarded-For.
	TrustProxy bool
}

func DefaultConfig() Config {
	return Config{
		Stats:    true,
		Errors:   true,
		Interval: DefaultInterval,
		PeerTTL:  DefaultPeerTTL,
		MaxPeers: DefaultMaxPeers,
	}
}

func (c Config) Validate() error {
	if c.Interval < time.Second {
		return fmt.Errorf("interval must be at least one second, got %s", c.Interval)
	}
	if c.PeerTTL < time.Second {
		return fmt.Errorf("peer ttl must be at least one second, got %s", c.PeerTTL)
	}
	if c.MaxPeers < 1 {
		return fmt.Errorf("max peers must be positive, got %d", c.MaxPeers)
	}
	return nil
}

// LoadConfig overlays the STATS, ERRORS, INTERVAL, PEER_TTL, MAX_PEERS,
// REFRESH_PRESENCE and TRUST_PROXY variables on the defaults. Durations are
// given in seconds. A nil lookup reads the process environment.
func LoadConfig(lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := DefaultConfig()

	bools := map[string]*bool{
		"STATS":            &cfg.Stats,
		"ERRORS":           &cfg.Errors,
		"REFRESH_PRESENCE": &cfg.RefreshPresence,
		"TRUST_PROXY":      &cfg.TrustProxy,
	}
	for key, dst := range bools {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}

	seconds := map[string]*time.Duration{
		"INTERVAL": &cfg.Interval,
		"PEER_TTL": &cfg.PeerTTL,
	}
	for key, dst := range seconds {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", key, err)
		}
		*dst = time.Duration(n) * time.Second
	}

	if v, ok := lookup("MAX_PEERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("MAX_PEERS: %w", err)
		}
		cfg.MaxPeers = n
	}

	return cfg, cfg.Validate()
}
