package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/pixperk/pixtracker/compact"
	"github.com/redis/go-redis/v9"
)

// Key namespaces. The peer list is read from and written to the same one.
const (
	presencePrefix = "P:"
	peerListPrefix = "T:"
	counterPrefix  = "S:"
)

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

type RedisPresence struct {
	client *redis.Client
}

func NewRedisPresence(client *redis.Client) *RedisPresence {
	return &RedisPresence{client: client}
}

func presenceKey(p compact.Peer) string {
	return presencePrefix + string(p[:])
}

func (r *RedisPresence) Close() error {
	return r.client.Close()
}

func (r *RedisPresence) Exists(ctx context.Context, peer compact.Peer) (bool, error) {
	n, err := r.client.Exists(ctx, presenceKey(peer)).Result()
	return n > 0, err
}

func (r *RedisPresence) Put(ctx context.Context, peer compact.Peer, ttl time.Duration) error {
	return r.client.Set(ctx, presenceKey(peer), 1, ttl).Err()
}

func (r *RedisPresence) Delete(ctx context.Context, peer compact.Peer) error {
	return r.client.Del(ctx, presenceKey(peer)).Err()
}

func (r *RedisPresence) ExistsMulti(ctx context.Context, peers []compact.Peer) (map[compact.Peer]struct{}, error) {
	present := make(map[compact.Peer]struct{}, len(peers))
	if len(peers) == 0 {
		return present, nil
	}

	keys := make([]string, len(peers))
	for i, p := range peers {
		keys[i] = presenceKey(p)
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if v != nil {
			present[peers[i]] = struct{}{}
		}
	}
	return present, nil
}

type RedisSwarms struct {
	client *redis.Client
}

func NewRedisSwarms(client *redis.Client) *RedisSwarms {
	return &RedisSwarms{client: client}
}

func counterKey(swarm string, kind CounterKind) string {
	return counterPrefix + swarm + "!" + kind.String()
}

func (r *RedisSwarms) Close() error {
	return r.client.Close()
}

func (r *RedisSwarms) PeerList(ctx context.Context, swarm string) ([]byte, bool, error) {
	blob, err := r.client.Get(ctx, peerListPrefix+swarm).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

func (r *RedisSwarms) SetPeerList(ctx context.Context, swarm string, blob []byte) error {
	return r.client.Set(ctx, peerListPrefix+swarm, blob, 0).Err()
}

func (r *RedisSwarms) Counter(ctx context.Context, swarm string, kind CounterKind) (int64, bool, error) {
	n, err := r.client.Get(ctx, counterKey(swarm, kind)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (r *RedisSwarms) SetCounter(ctx context.Context, swarm string, kind CounterKind, value int64) error {
	return r.client.Set(ctx, counterKey(swarm, kind), value, 0).Err()
}

func (r *RedisSwarms) IncrCounter(ctx context.Context, swarm string, kind CounterKind, delta int64) error {
	return r.client.IncrBy(ctx, counterKey(swarm, kind), delta).Err()
}

func (r *RedisSwarms) DecrCounter(ctx context.Context, swarm string, kind CounterKind, delta int64) error {
	return r.client.DecrBy(ctx, counterKey(swarm, kind), delta).Err()
}
