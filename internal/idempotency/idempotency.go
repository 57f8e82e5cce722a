// Package idempotency deduplicates client retries of reservation
// requests.  A caller-supplied key is claimed before the reservation runs
// and completed with the committed reservation afterwards, so a retry
// after a lost acknowledgement replays the original result instead of
// reserving a second bay.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
)

// State describes the outcome of a claim.
type State int

const (
	// Acquired means the caller owns the key and must Complete or Release it.
	Acquired State = iota
	// Pending means another request holds the key and has not finished.
	Pending
	// Completed means a previous request finished; Reservation holds its result.
	Completed
)

// Claim is the result of claiming a key.
type Claim struct {
	State       State
	Reservation model.Reservation
}

const pendingMarker = "pending"

// releaseScript deletes the key only while it still holds the pending
// marker, so a late release never drops a completed result.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisStore keeps claims in Redis under <prefix>:<account>:<key>.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a RedisStore.  Claims and results expire after ttl.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "idem"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Key renders the Redis key of an account's idempotency key.
func (s *RedisStore) Key(accountID, key string) string {
	return s.prefix + ":" + accountID + ":" + key
}

// Claim tries to take ownership of key.
func (s *RedisStore) Claim(ctx context.Context, accountID, key string) (Claim, error) {
	k := s.Key(accountID, key)
	// The stored value can expire between SETNX and GET; one more round
	// settles it.
	for i := 0; i < 2; i++ {
		ok, err := s.rdb.SetNX(ctx, k, pendingMarker, s.ttl).Result()
		if err != nil {
			return Claim{}, err
		}
		if ok {
			return Claim{State: Acquired}, nil
		}
		val, err := s.rdb.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Claim{}, err
		}
		return decode(val)
	}
	return Claim{State: Pending}, nil
}

// Complete stores the committed reservation as the key's result.
func (s *RedisStore) Complete(ctx context.Context, accountID, key string, r model.Reservation) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.Key(accountID, key), body, s.ttl).Err()
}

// Release gives up a pending claim after a failed request so the client
// can retry with the same key.
func (s *RedisStore) Release(ctx context.Context, accountID, key string) error {
	return releaseScript.Run(ctx, s.rdb, []string{s.Key(accountID, key)}, pendingMarker).Err()
}

func decode(val string) (Claim, error) {
	if val == pendingMarker {
		return Claim{State: Pending}, nil
	}
	var r model.Reservation
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return Claim{}, err
	}
	return Claim{State: Completed, Reservation: r}, nil
}
