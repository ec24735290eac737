package locker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const redisKeyPrefix = "scheduling:lock:"

// Освобождаем ключ, только если он всё ещё принадлежит нам
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Logger получатель ошибок освобождения ключей
type Logger interface {
	Warn(format string, v ...interface{})
}

// RedisOptions параметры распределённой блокировки
type RedisOptions struct {
	// TTL время жизни ключа; страхует от процесса, упавшего с захваченной блокировкой
	TTL time.Duration
	// RetryInterval пауза между попытками SET NX
	RetryInterval time.Duration
	// AcquireTimeout максимальное ожидание одного ключа
	AcquireTimeout time.Duration
	// Logger необязателен; без него ошибки освобождения не пишутся
	Logger Logger
}

// RedisLocker блокировки между несколькими экземплярами сервиса (SET NX PX)
type RedisLocker struct {
	client *redis.Client
	opts   RedisOptions
}

func NewRedisLocker(client *redis.Client, opts RedisOptions) *RedisLocker {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 25 * time.Millisecond
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = 5 * time.Second
	}
	return &RedisLocker{client: client, opts: opts}
}

func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	token := uuid.NewString()
	acquired := make([]string, 0, len(keys))

	release := func() { l.releaseAll(acquired, token) }

	for _, key := range keys {
		if err := l.acquire(ctx, redisKeyPrefix+key, token); err != nil {
			release()
			return nil, err
		}
		acquired = append(acquired, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// releaseAll освобождает ключи в обратном порядке.
// Ключ, который не удалось удалить, живёт до истечения TTL.
func (l *RedisLocker) releaseAll(keys []string, token string) int {
	// Освобождение не должно зависеть от отменённого контекста запроса
	ctx, cancel := context.WithTimeout(context.Background(), l.opts.AcquireTimeout)
	defer cancel()

	failed := 0
	for i := len(keys) - 1; i >= 0; i-- {
		err := releaseScript.Run(ctx, l.client, []string{redisKeyPrefix + keys[i]}, token).Err()
		if err == nil {
			continue
		}
		failed++
		if l.opts.Logger != nil {
			l.opts.Logger.Warn("locker: failed to release key=%s, it expires in %s: %v", keys[i], l.opts.TTL, err)
		}
	}
	return failed
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	ctx, cancel := context.WithTimeout(ctx, l.opts.AcquireTimeout)
	defer cancel()

	ticker := time.NewTicker(l.opts.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: key=%s: %v", ErrLockTimeout, key, ctx.Err())
			}
			return fmt.Errorf("%w: SetNX key=%s: %v", ErrLockBackend, key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("%w: key=%s: %v", ErrLockTimeout, key, ctx.Err())
		}
	}
}

// NewRedisClient создаёт клиента и проверяет соединение
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrLockBackend, addr, err)
	}
	return client, nil
}
