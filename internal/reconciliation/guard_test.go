package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGuard(t *testing.T) {
	ctx := context.Background()
	guard := NewLocalGuard()

	release, err := guard.Acquire(ctx)
	require.NoError(t, err)

	_, err = guard.Acquire(ctx)
	assert.ErrorIs(t, err, ErrReconciliationInProgress)

	release()
	release()

	again, err := guard.Acquire(ctx)
	require.NoError(t, err)
	again()
}

func TestRedisGuardUnreachable(t *testing.T) {
	utils.InitLogger("error", "text", "stdout", "")
	ctx := context.Background()

	_, err := NewRedisGuard(ctx, &config.RedisConfig{Addr: "127.0.0.1:1", LockKey: "test-lock", LockTTL: time.Minute})
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeConnection, utils.ErrorCode(err))

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	guard := NewRedisGuardWithClient(client, "test-lock", time.Minute)
	defer guard.Close()

	_, err = guard.Acquire(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReconciliationInProgress)

	// a failed lock attempt does not leave the local guard held
	release, err := guard.local.Acquire(ctx)
	require.NoError(t, err)
	release()
}
