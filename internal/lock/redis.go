package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker shares locks between replicas. Held keys are renewed until
// unlock; a lock whose holder dies expires after ttl.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

func NewRedisLocker(addr string, password string, db int, ttl time.Duration) *RedisLocker {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	return &RedisLocker{client: client, ttl: ttl, retry: 25 * time.Millisecond, prefix: "kasirbutik:lock:"}
}

func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

type heldKey struct {
	key   string
	token string
}

func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	held := make([]heldKey, 0, len(keys))
	for _, key := range normalize(keys) {
		token, err := l.acquire(ctx, l.prefix+key)
		if err != nil {
			l.release(held)
			return nil, err
		}
		held = append(held, heldKey{key: l.prefix + key, token: token})
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go l.keepAlive(held, stop, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			l.release(held)
		})
	}, nil
}

// keepAlive pushes the expiry of every held key forward each third of
// the ttl until stop is closed.
func (l *RedisLocker) keepAlive(held []heldKey, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	interval := l.ttl / 3
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			for _, h := range held {
				_ = extendScript.Run(ctx, l.client, []string{h.key}, h.token, l.ttl.Milliseconds()).Err()
			}
			cancel()
		}
	}
}

func (l *RedisLocker) acquire(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// release runs detached from the caller's context so a cancelled request
// still frees its keys.
func (l *RedisLocker) release(held []heldKey) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, h := range held {
		_ = releaseScript.Run(ctx, l.client, []string{h.key}, h.token).Err()
	}
}
