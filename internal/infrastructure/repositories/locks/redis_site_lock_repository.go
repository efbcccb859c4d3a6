package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

const (
	lockKeyPrefix    = "seoremedy:lock:"
	lockPollInterval = 100 * time.Millisecond
	releaseTimeout   = 5 * time.Second
	renewalsPerTTL   = 3
	fallbackLockTTL  = 2 * time.Minute
)

// renewScript extends the key only while it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisSiteLockRepository holds site locks in Redis so several processes working on the
// same sites directory exclude each other. A held lock is renewed every third of its TTL
// until released, so it only expires when its holder dies.
type RedisSiteLockRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ repositories.SiteLockRepository = (*RedisSiteLockRepository)(nil)

// NewRedisSiteLockRepository creates a new RedisSiteLockRepository.
func NewRedisSiteLockRepository(client redis.UniversalClient, settings entities.LockSettings) *RedisSiteLockRepository {
	ttl := settings.TTL
	if ttl <= 0 {
		ttl = fallbackLockTTL
	}
	return &RedisSiteLockRepository{client: client, ttl: ttl}
}

// NewRedisClient builds the client used by RedisSiteLockRepository.
func NewRedisClient(settings entities.LockSettings) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     settings.RedisAddr,
		Password: settings.RedisPassword,
		DB:       settings.RedisDB,
	})
}

func (it *RedisSiteLockRepository) Lock(ctx context.Context, siteID string) (func(), error) {
	key := lockKeyPrefix + siteID
	token := uuid.NewString()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		acquired, err := it.client.SetNX(ctx, key, token, it.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to acquire lock for site %q: %w", siteID, err)
		}
		if acquired {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go it.renew(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			it.release(key, token)
		})
	}, nil
}

// renew extends the lock until stop is closed or the lock is lost.
func (it *RedisSiteLockRepository) renew(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(it.ttl / renewalsPerTTL)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), it.ttl/renewalsPerTTL)
		renewed, err := renewScript.Run(ctx, it.client, []string{key}, token, it.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil && !errors.Is(err, redis.Nil):
			logger.Warnf("Failed to renew lock %q: %v", key, err)
		case renewed == 0:
			logger.Errorf("Lock %q was lost before it was released", key)
			return
		}
	}
}

func (it *RedisSiteLockRepository) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	deleted, err := releaseScript.Run(ctx, it.client, []string{key}, token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Warnf("Failed to release lock %q: %v", key, err)
		return
	}
	if deleted == 0 {
		logger.Warnf("Lock %q expired before it was released", key)
	}
}
