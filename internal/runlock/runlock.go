// Package runlock serializes import runs per (platform, username) across
// processes with a redis SETNX lease.
package runlock

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/chessvault/internal/domain"
)

const defaultTTL = 10 * time.Minute

type Lock struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(redisURL string) (*Lock, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required for the run lock")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Lock{rdb: rdb, ttl: defaultTTL}, nil
}

func (l *Lock) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}

// Acquire takes the lease for one (platform, username) pair. ok=false means
// another run holds it. The release func is safe to call once; the TTL caps
// how long a crashed holder can block others.
func (l *Lock) Acquire(ctx context.Context, p domain.Platform, username string) (func(), bool, error) {
	if l == nil || l.rdb == nil {
		return func() {}, true, nil
	}
	key := lockKey(p, username)
	ok, err := l.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		// Best effort: an expired lease releases itself.
		_ = l.rdb.Del(context.Background(), key).Err()
	}
	return release, true, nil
}

func lockKey(p domain.Platform, username string) string {
	return "import:lock:" + string(p) + ":" + strings.ToLower(strings.TrimSpace(username))
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
