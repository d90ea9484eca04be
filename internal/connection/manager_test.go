package connection

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingService struct{}

func (pingService) Ping(ctx context.Context) string { return "pong" }

func (pingService) Fail(ctx context.Context) (string, error) { return "", errors.New("boom") }

func newRPCServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("test", pingService{}))
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		ts.Close()
		server.Stop()
	})
	return ts
}

func testConfig(url string, backups ...string) *config.BlockchainConfig {
	return &config.BlockchainConfig{
		RPCURL:         url,
		BackupURLs:     backups,
		RequestTimeout: 5 * time.Second,
		RetryAttempts:  1,
		RetryDelay:     10 * time.Millisecond,
	}
}

func TestConnectionManagerCall(t *testing.T) {
	ts := newRPCServer(t)
	manager := NewConnectionManager(testConfig(ts.URL))
	defer manager.Close()

	metricsManager := metrics.NewManager()
	manager.SetMetricsManager(metricsManager)

	var result string
	require.NoError(t, manager.Call(context.Background(), &result, "test_ping"))
	assert.Equal(t, "pong", result)
	assert.True(t, manager.IsConnected())

	stats := manager.Stats()
	assert.Equal(t, uint64(1), stats.TotalRequests)
	assert.Equal(t, ts.URL, stats.CurrentURL)

	pm := metricsManager.GetPrometheusMetrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.RPCRequestsTotal.WithLabelValues(ts.URL, "test_ping", "success")))
}

func TestConnectionManagerKeepsClientOnRPCError(t *testing.T) {
	ts := newRPCServer(t)
	manager := NewConnectionManager(testConfig(ts.URL))
	defer manager.Close()

	var result string
	err := manager.Call(context.Background(), &result, "test_fail")
	require.Error(t, err)

	var rpcErr rpc.Error
	assert.True(t, errors.As(err, &rpcErr))
	assert.True(t, manager.IsConnected(), "a JSON-RPC error is not a transport failure")
	assert.Equal(t, uint64(0), manager.Stats().Reconnects)
}

func TestConnectionManagerFailsOver(t *testing.T) {
	dead := httptest.NewServer(nil)
	deadURL := dead.URL
	dead.Close()

	ts := newRPCServer(t)
	manager := NewConnectionManager(testConfig(deadURL, ts.URL))
	defer manager.Close()

	var result string
	err := manager.Call(context.Background(), &result, "test_ping")
	require.Error(t, err, "first call goes to the dead primary")
	assert.False(t, manager.IsConnected())

	require.NoError(t, manager.Call(context.Background(), &result, "test_ping"))
	assert.Equal(t, "pong", result)

	stats := manager.Stats()
	assert.Equal(t, ts.URL, stats.CurrentURL)
	assert.Equal(t, uint64(1), stats.Reconnects)
	assert.Equal(t, uint64(1), stats.FailedRequests)
}

func TestConnectionManagerHealthCheck(t *testing.T) {
	ts := newRPCServer(t)
	cfg := testConfig(ts.URL)
	cfg.HealthMethod = "test_ping"

	manager := NewConnectionManager(cfg)
	defer manager.Close()

	require.NoError(t, manager.HealthCheck())
	assert.True(t, manager.Stats().IsHealthy)

	cfg.HealthMethod = "test_missing"
	assert.Error(t, manager.HealthCheck())
	assert.False(t, manager.IsConnected())
}

func TestConnectionManagerRespectsCancelledContext(t *testing.T) {
	ts := newRPCServer(t)
	cfg := testConfig(ts.URL)
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1

	manager := NewConnectionManager(cfg)
	defer manager.Close()

	var result string
	require.NoError(t, manager.Call(context.Background(), &result, "test_ping"), "burst allows the first call")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, manager.Call(ctx, &result, "test_ping"), "limiter wait exceeds the deadline")
}
