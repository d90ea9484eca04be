package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// ErrReconciliationInProgress is returned when a pass is already running
var ErrReconciliationInProgress = errors.New("reconciliation already in progress")

// Guard admits at most one reconciliation pass at a time.
// Acquire returns ErrReconciliationInProgress when the guard is held.
type Guard interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// LocalGuard is an in-process single-flight guard
type LocalGuard struct {
	running atomic.Bool
}

// NewLocalGuard creates an in-process guard
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{}
}

func (g *LocalGuard) Acquire(ctx context.Context) (func(), error) {
	if !g.running.CompareAndSwap(false, true) {
		return nil, ErrReconciliationInProgress
	}
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			g.running.Store(false)
		}
	}, nil
}

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard extends the local guard across processes with a Redis lock.
// The lock expires after ttl so a crashed holder cannot block passes forever.
type RedisGuard struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	local  *LocalGuard
	logger *logrus.Entry
}

// NewRedisGuard connects to Redis and returns a guard on cfg.LockKey
func NewRedisGuard(ctx context.Context, cfg *config.RedisConfig) (*RedisGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, utils.WrapError(utils.ErrCodeConnection,
			fmt.Sprintf("Failed to connect to Redis at %s", cfg.Addr), err)
	}

	return NewRedisGuardWithClient(client, cfg.LockKey, cfg.LockTTL), nil
}

// NewRedisGuardWithClient builds a guard on an existing client
func NewRedisGuardWithClient(client redis.UniversalClient, key string, ttl time.Duration) *RedisGuard {
	return &RedisGuard{
		client: client,
		key:    key,
		ttl:    ttl,
		local:  NewLocalGuard(),
		logger: utils.ComponentLogger("run-guard"),
	}
}

func (g *RedisGuard) Acquire(ctx context.Context) (func(), error) {
	releaseLocal, err := g.local.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.key, token, g.ttl).Result()
	if err != nil {
		releaseLocal()
		return nil, utils.WrapError(utils.ErrCodeConnection, "Failed to acquire reconciliation lock", err)
	}
	if !ok {
		releaseLocal()
		return nil, ErrReconciliationInProgress
	}

	return func() {
		defer releaseLocal()

		// the pass context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, g.client, []string{g.key}, token).Err(); err != nil {
			g.logger.WithError(err).WithField("key", g.key).Warn("Failed to release reconciliation lock")
		}
	}, nil
}

// Close closes the Redis client
func (g *RedisGuard) Close() error {
	return g.client.Close()
}
