package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fairshare/internal/config"
	"github.com/smallbiznis/fairshare/internal/ratelimit"
	"go.uber.org/zap"
)

// ResourceLocker serializes decisions per resource. The returned func releases the lock.
type ResourceLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

func lockKey(tenantID, resourceID snowflake.ID) string {
	return fmt.Sprintf("allocation:lock:%s:%s", tenantID.String(), resourceID.String())
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// localLocker is an in-process keyed mutex. Entries are dropped once unused.
type localLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

func NewLocalLocker() ResourceLocker {
	return &localLocker{entries: make(map[string]*localEntry)}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.release(key, entry)
		})
	}, nil
}

func (l *localLocker) release(key string, entry *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

type redisLocker struct {
	locker *ratelimit.Locker
	ttl    time.Duration
	wait   time.Duration
	log    *zap.Logger
}

func (r *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := r.locker.Acquire(ctx, key, r.ttl, r.wait)
	if err != nil {
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := r.locker.Release(ctx, key, token); err != nil {
			r.log.Warn("release resource lock failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// NewResourceLocker picks the lock backend from config.
func NewResourceLocker(cfg config.Config, locker *ratelimit.Locker, log *zap.Logger) (ResourceLocker, error) {
	switch cfg.Allocation.LockBackend {
	case "", config.LockBackendLocal:
		return NewLocalLocker(), nil
	case config.LockBackendRedis:
		if locker == nil {
			return nil, errors.New("redis lock backend requires REDIS_ADDR")
		}
		ttl := time.Duration(cfg.Allocation.LockTTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = 10 * time.Second
		}
		wait := time.Duration(cfg.Allocation.LockWaitSeconds) * time.Second
		if wait <= 0 {
			wait = 5 * time.Second
		}
		return &redisLocker{
			locker: locker,
			ttl:    ttl,
			wait:   wait,
			log:    log.Named("allocation.lock"),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported lock backend %q", cfg.Allocation.LockBackend)
	}
}
