// Package locks provides the keyed try-locks that serialize OTP issuance per phone and purpose.
package locks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/you/dispatchsvc/domain"
)

// releaseScript deletes the key only when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker implements domain.KeyedLocker with SET NX PX
type RedisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, prefix: "lock:"}
}

// TryLock implements domain.KeyedLocker
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	full := l.prefix + key

	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func() {
		// Lock may already have expired; nothing to do then.
		_ = releaseScript.Run(context.Background(), l.client, []string{full}, token).Err()
	}
	return unlock, true, nil
}

// LocalLocker implements domain.KeyedLocker within one process
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), now: time.Now}
}

// TryLock implements domain.KeyedLocker. Held keys expire after ttl like their Redis counterparts.
func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return nil, false, nil
	}
	deadline := now.Add(ttl)
	l.held[key] = deadline

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[key].Equal(deadline) {
				delete(l.held, key)
			}
		})
	}
	return unlock, true, nil
}

var (
	_ domain.KeyedLocker = (*RedisLocker)(nil)
	_ domain.KeyedLocker = (*LocalLocker)(nil)
)
