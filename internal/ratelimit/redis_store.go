package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// 上限に達していなければINCRし、初回だけPEXPIREする。拒否した分は数えない。
// 1つのスクリプトで行うので複数プロセスから同時に来ても数え漏れない
var incrWindow = redis.NewScript(`
local c = tonumber(redis.call('GET', KEYS[1]) or '0')
if c >= tonumber(ARGV[2]) then
  return 0
end
c = redis.call('INCR', KEYS[1])
if c == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return 1
`)

// RedisStoreは複数プロセスで共有する固定ウィンドウのカウンタ
type RedisStore struct {
	rdb     *redis.Client
	limits  Limits
	prefix  string
	timeout time.Duration
}

func NewRedisStore(rdb *redis.Client, limits Limits) *RedisStore {
	return &RedisStore{
		rdb:     rdb,
		limits:  limits,
		prefix:  "ratelimit:",
		timeout: 500 * time.Millisecond,
	}
}

func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	ok, err := incrWindow.Run(ctx, s.rdb, []string{s.prefix + identifier},
		s.limits.Window.Milliseconds(), s.limits.limitFor(identifier)).Int64()
	if err != nil {
		return false, err
	}
	return ok == 1, nil
}
