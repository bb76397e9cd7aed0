// Package redislock keeps device locks in Redis. Each lock is a hash whose
// key expires at the lock's expiry, so sweeping is left to Redis.
package redislock

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/hunt"
)

const keyPrefix = "huntgate:lock:"

// acquire writes the lock unless an unexpired one is held. It returns
// {written, team, issued_ms, expires_ms} for the lock that holds afterwards.
var acquire = redis.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'team', 'issued', 'expires')
if cur[1] and cur[3] and tonumber(cur[3]) > tonumber(ARGV[4]) then
	return {0, cur[1], cur[2], cur[3]}
end
redis.call('HSET', KEYS[1], 'team', ARGV[1], 'issued', ARGV[2], 'expires', ARGV[3])
redis.call('PEXPIREAT', KEYS[1], ARGV[3])
return {1, ARGV[1], ARGV[2], ARGV[3]}
`)

type Store struct {
	rdb *redis.Client
}

var _ gate.LockStore = (*Store)(nil)

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) AcquireLock(ctx context.Context, lock hunt.DeviceLock, now time.Time) (hunt.DeviceLock, bool, error) {
	reply, err := acquire.Run(ctx, s.rdb, []string{keyPrefix + lock.Fingerprint},
		lock.TeamID,
		lock.IssuedAt.UnixMilli(),
		lock.ExpiresAt.UnixMilli(),
		now.UnixMilli(),
	).Slice()
	if err != nil {
		return hunt.DeviceLock{}, false, fmt.Errorf("running lock script: %w", err)
	}
	held, created, err := parseReply(lock.Fingerprint, reply)
	if err != nil {
		return hunt.DeviceLock{}, false, err
	}
	return held, created, nil
}

// SweepLocks is a no-op: keys carry their own expiry.
func (s *Store) SweepLocks(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// Ping reports whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func parseReply(fingerprint string, reply []any) (hunt.DeviceLock, bool, error) {
	if len(reply) != 4 {
		return hunt.DeviceLock{}, false, fmt.Errorf("lock script returned %d values", len(reply))
	}
	written, ok := reply[0].(int64)
	if !ok {
		return hunt.DeviceLock{}, false, fmt.Errorf("lock script flag has type %T", reply[0])
	}
	team, ok := reply[1].(string)
	if !ok {
		return hunt.DeviceLock{}, false, fmt.Errorf("lock script team has type %T", reply[1])
	}
	issued, err := millis(reply[2])
	if err != nil {
		return hunt.DeviceLock{}, false, fmt.Errorf("lock issued at: %w", err)
	}
	expires, err := millis(reply[3])
	if err != nil {
		return hunt.DeviceLock{}, false, fmt.Errorf("lock expires at: %w", err)
	}
	return hunt.DeviceLock{
		Fingerprint: fingerprint,
		TeamID:      team,
		IssuedAt:    issued,
		ExpiresAt:   expires,
	}, written == 1, nil
}

func millis(v any) (time.Time, error) {
	var ms int64
	switch v := v.(type) {
	case int64:
		ms = v
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		ms = n
	default:
		return time.Time{}, fmt.Errorf("unexpected type %T", v)
	}
	return time.UnixMilli(ms).UTC(), nil
}
