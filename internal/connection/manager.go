package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/internal/metrics"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
	"golang.org/x/time/rate"
)

// ConnectionManager dials JSON-RPC endpoints and fails over between them
type ConnectionManager struct {
	config          *config.BlockchainConfig
	primaryURL      string
	backupURLs      []string
	currentIndex    int
	client          *rpc.Client
	limiter         *rate.Limiter
	mu              sync.RWMutex
	logger          *logrus.Entry
	stats           ConnectionStats
	lastHealthCheck time.Time
	isHealthy       bool
	metricsManager  *metrics.Manager
}

// ConnectionStats holds connection statistics
type ConnectionStats struct {
	TotalRequests   uint64    `json:"total_requests"`
	FailedRequests  uint64    `json:"failed_requests"`
	Reconnects      uint64    `json:"reconnects"`
	CurrentURL      string    `json:"current_url"`
	LastConnectedAt time.Time `json:"last_connected_at"`
	LastHealthCheck time.Time `json:"last_health_check"`
	IsHealthy       bool      `json:"is_healthy"`
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(cfg *config.BlockchainConfig) *ConnectionManager {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &ConnectionManager{
		config:     cfg,
		primaryURL: cfg.RPCURL,
		backupURLs: cfg.BackupURLs,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     utils.ComponentLogger("connection"),
		stats: ConnectionStats{
			CurrentURL: cfg.RPCURL,
		},
	}
}

// SetMetricsManager enables RPC metrics
func (cm *ConnectionManager) SetMetricsManager(m *metrics.Manager) {
	cm.metricsManager = m
}

// getClient returns the current client, dialing if needed
func (cm *ConnectionManager) getClient(ctx context.Context) (*rpc.Client, error) {
	cm.mu.RLock()
	client := cm.client
	cm.mu.RUnlock()

	if client != nil {
		return client, nil
	}
	return cm.connect(ctx)
}

// connect dials every endpoint in turn until one passes the health probe
func (cm *ConnectionManager) connect(ctx context.Context) (*rpc.Client, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.client != nil {
		return cm.client, nil
	}

	urls := cm.getAllURLs()
	attempts := cm.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		for _, url := range urls {
			log := cm.logger.WithFields(logrus.Fields{"url": url, "attempt": attempt + 1})
			log.Debug("Attempting connection")

			client, err := cm.dialWithTimeout(ctx, url)
			if err != nil {
				log.WithError(err).Warn("Connection failed")
				cm.stats.FailedRequests++
				cm.recordConnectionError(url, "dial_failed")
				continue
			}

			if err := cm.probe(ctx, client); err != nil {
				client.Close()
				log.WithError(err).Warn("Health check failed after connection")
				cm.recordConnectionError(url, "health_check_failed")
				continue
			}

			cm.client = client
			cm.currentIndex = cm.indexOf(url)
			cm.stats.CurrentURL = url
			cm.stats.LastConnectedAt = time.Now()
			cm.stats.IsHealthy = true
			cm.isHealthy = true
			cm.lastHealthCheck = time.Now()

			log.Info("Connected to RPC endpoint")
			return client, nil
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, utils.WrapError(utils.ErrCodeConnection, "Connection attempt cancelled", ctx.Err())
			case <-time.After(cm.config.RetryDelay):
			}
		}
	}

	return nil, utils.NewAppError(utils.ErrCodeConnection, "Failed to connect to any RPC endpoint",
		"All connection attempts exhausted")
}

// dropClient forgets the current client so the next call fails over
func (cm *ConnectionManager) dropClient(client *rpc.Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.client != client {
		return
	}
	cm.client.Close()
	cm.client = nil
	cm.isHealthy = false
	cm.stats.IsHealthy = false
	cm.stats.Reconnects++
	// start the next dial from the following endpoint
	cm.currentIndex = (cm.currentIndex + 1) % (len(cm.backupURLs) + 1)
}

func (cm *ConnectionManager) dialWithTimeout(ctx context.Context, url string) (*rpc.Client, error) {
	timeout := cm.config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return rpc.DialContext(dialCtx, url)
}

// probe calls the configured health method; an empty method skips the check
func (cm *ConnectionManager) probe(ctx context.Context, client *rpc.Client) error {
	if cm.config.HealthMethod == "" {
		return nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var result interface{}
	return client.CallContext(checkCtx, &result, cm.config.HealthMethod)
}

// HealthCheck performs a health check with a default timeout
func (cm *ConnectionManager) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return cm.HealthCheckWithContext(ctx)
}

// HealthCheckWithContext probes the current endpoint
func (cm *ConnectionManager) HealthCheckWithContext(ctx context.Context) error {
	client, err := cm.getClient(ctx)
	if err != nil {
		cm.setHealthy(false)
		return err
	}

	if err := cm.probe(ctx, client); err != nil {
		cm.dropClient(client)
		return utils.WrapError(utils.ErrCodeConnection, "RPC health check failed", err)
	}

	cm.setHealthy(true)
	cm.logger.WithField("url", cm.Stats().CurrentURL).Debug("Health check passed")
	return nil
}

func (cm *ConnectionManager) setHealthy(healthy bool) {
	cm.mu.Lock()
	cm.isHealthy = healthy
	cm.stats.IsHealthy = healthy
	cm.lastHealthCheck = time.Now()
	cm.stats.LastHealthCheck = cm.lastHealthCheck
	cm.mu.Unlock()

	if cm.metricsManager != nil {
		cm.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("rpc", healthy)
	}
}

// Call invokes a JSON-RPC method on the current endpoint.
// Transport failures drop the client so the next call fails over; JSON-RPC
// errors returned by the node keep it.
func (cm *ConnectionManager) Call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	start := time.Now()

	if err := cm.limiter.Wait(ctx); err != nil {
		cm.recordRequest(cm.Stats().CurrentURL, method, "rate_limited", start)
		return utils.WrapError(utils.ErrCodeConnection, "RPC rate limiter wait failed", err)
	}

	client, err := cm.getClient(ctx)
	if err != nil {
		cm.recordRequest(cm.Stats().CurrentURL, method, "error", start)
		return err
	}
	endpoint := cm.Stats().CurrentURL

	cm.mu.Lock()
	cm.stats.TotalRequests++
	cm.mu.Unlock()

	callErr := client.CallContext(ctx, result, method, args...)
	if callErr == nil {
		cm.recordRequest(endpoint, method, "success", start)
		return nil
	}

	cm.mu.Lock()
	cm.stats.FailedRequests++
	cm.mu.Unlock()
	cm.recordRequest(endpoint, method, "error", start)

	var rpcErr rpc.Error
	if !errors.As(callErr, &rpcErr) && ctx.Err() == nil {
		cm.recordConnectionError(endpoint, "rpc_call_failed")
		cm.dropClient(client)
	}
	return callErr
}

func (cm *ConnectionManager) recordRequest(endpoint, method, status string, start time.Time) {
	if cm.metricsManager != nil {
		cm.metricsManager.GetPrometheusMetrics().RecordRPCRequest(endpoint, method, status, time.Since(start))
	}
}

func (cm *ConnectionManager) recordConnectionError(endpoint, errorType string) {
	if cm.metricsManager != nil {
		cm.metricsManager.GetPrometheusMetrics().RecordConnectionError(endpoint, errorType)
	}
}

// IsConnected returns whether the manager is connected
func (cm *ConnectionManager) IsConnected() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.client != nil && cm.isHealthy
}

// Close closes the connection
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.client != nil {
		cm.client.Close()
		cm.client = nil
	}

	cm.isHealthy = false
	cm.logger.Info("Connection manager closed")
	return nil
}

// Stats returns connection statistics
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.stats
}

// getAllURLs returns all available URLs starting from current index
func (cm *ConnectionManager) getAllURLs() []string {
	urls := []string{cm.primaryURL}
	urls = append(urls, cm.backupURLs...)

	if cm.currentIndex > 0 && cm.currentIndex < len(urls) {
		rotated := make([]string, len(urls))
		copy(rotated, urls[cm.currentIndex:])
		copy(rotated[len(urls)-cm.currentIndex:], urls[:cm.currentIndex])
		return rotated
	}

	return urls
}

func (cm *ConnectionManager) indexOf(url string) int {
	if url == cm.primaryURL {
		return 0
	}
	for i, u := range cm.backupURLs {
		if u == url {
			return i + 1
		}
	}
	return 0
}
