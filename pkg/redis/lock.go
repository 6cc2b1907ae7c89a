package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockHeld is returned when another holder owns the key.
var ErrLockHeld = errors.New("operation already in progress")

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// refreshScript extends the TTL only if the key still carries our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// Locker hands out short-lived exclusive locks keyed by name.
// A nil client disables locking: Acquire always succeeds.
type Locker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewLocker creates a Locker. Keys are stored as prefix+name.
func NewLocker(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Locker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Locker{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Acquire takes the lock for name and returns a release func. The TTL is
// renewed every third of its length until release, so a long holder keeps
// the lock while a crashed one loses it after one TTL.
func (l *Locker) Acquire(ctx context.Context, name string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	key := l.prefix + name
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			l.release(key, token)
		})
	}, nil
}

func (l *Locker) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			n, err := refreshScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				l.logger.Warn("refresh lock failed", zap.String("key", key), zap.Error(err))
				continue
			}
			if n == 0 {
				l.logger.Warn("lock lost", zap.String("key", key))
				return
			}
		}
	}
}

func (l *Locker) release(key, token string) {
	// fresh context: the request context may already be done
	rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil {
		l.logger.Warn("release lock failed", zap.String("key", key), zap.Error(err))
	}
}
