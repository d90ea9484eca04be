package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/internal/metrics"
	"github.com/smartdevs17/dao-reconciler/internal/models"
	"github.com/smartdevs17/dao-reconciler/internal/reconciliation"
	"github.com/smartdevs17/dao-reconciler/internal/storage"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// Reconciler is the reconciliation surface exposed over HTTP
type Reconciler interface {
	ForceReconciliation(ctx context.Context) (*reconciliation.Result, error)
	GetReconciliationStats() reconciliation.Stats
	GetConflictSummary(ctx context.Context) (*reconciliation.ConflictSummary, error)
	DetectConflicts(ctx context.Context, t reconciliation.EntityType) ([]*reconciliation.Conflict, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheckWithContext(ctx context.Context) error
}

// HTTPServer serves the admin API
type HTTPServer struct {
	config         *config.ServerConfig
	version        string
	server         *http.Server
	router         *mux.Router
	storage        storage.Store
	reconciler     Reconciler
	chain          HealthChecker
	metricsManager *metrics.Manager
	logger         *logrus.Entry
	startTime      time.Time
	stop           chan struct{}
}

// NewHTTPServer creates a new HTTP server. chain and metricsManager may be nil.
func NewHTTPServer(
	cfg *config.ServerConfig,
	version string,
	store storage.Store,
	reconciler Reconciler,
	chain HealthChecker,
	metricsManager *metrics.Manager,
) *HTTPServer {
	s := &HTTPServer{
		config:         cfg,
		version:        version,
		storage:        store,
		reconciler:     reconciler,
		chain:          chain,
		metricsManager: metricsManager,
		logger:         utils.ComponentLogger("http"),
		startTime:      time.Now(),
		stop:           make(chan struct{}),
	}

	s.setupRouter()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// subrouters answer 404 on a method mismatch unless told otherwise
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowedHandler)
	api.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowedHandler)

	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
		api.HandleFunc("/health/detailed", s.detailedHealthHandler).Methods("GET")
	}

	if s.config.EnableMetrics && s.metricsManager != nil {
		s.router.Handle("/metrics", s.metricsManager.Handler())
	}

	api.HandleFunc("/reconciliation/stats", s.statsHandler).Methods("GET")
	api.HandleFunc("/reconciliation/conflicts", s.conflictSummaryHandler).Methods("GET")
	api.HandleFunc("/reconciliation/conflicts/{type}", s.conflictsByTypeHandler).Methods("GET")
	api.HandleFunc("/reconciliation/run", s.runHandler).Methods("POST")

	api.HandleFunc("/audit/events", s.auditEventsHandler).Methods("GET")
}

// Handler returns the routed handler
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	if s.metricsManager != nil {
		s.updateComponentMetrics()
		go s.systemMetricsUpdater()
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// catch immediate binding errors
	select {
	case err := <-errChan:
		return utils.WrapError(utils.ErrCodeConnection, "Failed to start HTTP server", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// systemMetricsUpdater updates system metrics periodically
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateComponentMetrics()
		case <-s.stop:
			return
		}
	}
}

func (s *HTTPServer) updateComponentMetrics() {
	s.metricsManager.UpdateSystemMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pm := s.metricsManager.GetPrometheusMetrics()
	pm.UpdateApplicationUptime(s.startTime)
	for name, err := range s.componentHealth(ctx) {
		pm.UpdateComponentHealth(name, err == nil)
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")
	close(s.stop)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// componentHealth probes every dependency; nil means healthy
func (s *HTTPServer) componentHealth(ctx context.Context) map[string]error {
	health := map[string]error{"storage": s.storage.Ping()}
	if s.chain != nil {
		health["blockchain"] = s.chain.HealthCheckWithContext(ctx)
	}
	return health
}

// Health Handlers

func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339Nano),
		"version":         s.version,
		"metrics_enabled": s.config.EnableMetrics,
	})
}

func (s *HTTPServer) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	components := make(map[string]interface{})

	for name, err := range s.componentHealth(r.Context()) {
		component := map[string]interface{}{"healthy": err == nil}
		if err != nil {
			component["error"] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		components[name] = component
	}

	stats := s.reconciler.GetReconciliationStats()
	s.writeJSON(w, code, map[string]interface{}{
		"status":     status,
		"timestamp":  time.Now().UTC(),
		"version":    s.version,
		"uptime":     time.Since(s.startTime).String(),
		"components": components,
		"reconciliation": map[string]interface{}{
			"last_run_at":     stats.LastRunAt,
			"last_success_at": stats.LastSuccessAt,
			"last_error":      stats.LastError,
		},
	})
}

// Reconciliation Handlers

func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"timestamp":      time.Now().UTC(),
		"reconciliation": s.reconciler.GetReconciliationStats(),
	}

	storageStats, err := s.storage.GetStorageStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve storage stats", err)
		return
	}
	response["storage"] = storageStats

	s.writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) conflictSummaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.reconciler.GetConflictSummary(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), "Failed to detect conflicts", err)
		return
	}

	if details, _ := strconv.ParseBool(r.URL.Query().Get("details")); !details {
		summary.Conflicts = nil
	} else if summary.Conflicts == nil {
		summary.Conflicts = []*reconciliation.Conflict{}
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *HTTPServer) conflictsByTypeHandler(w http.ResponseWriter, r *http.Request) {
	entityType, err := reconciliation.ParseEntityType(mux.Vars(r)["type"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Unknown entity type", err)
		return
	}

	conflicts, err := s.reconciler.DetectConflicts(r.Context(), entityType)
	if err != nil {
		s.writeError(w, statusFor(err), "Failed to detect conflicts", err)
		return
	}
	if conflicts == nil {
		conflicts = []*reconciliation.Conflict{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":      entityType,
		"total":     len(conflicts),
		"conflicts": conflicts,
	})
}

func (s *HTTPServer) runHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.reconciler.ForceReconciliation(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), "Reconciliation failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"result": result,
		"stats":  s.reconciler.GetReconciliationStats(),
	})
}

// Audit Handlers

func (s *HTTPServer) auditEventsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.AuditFilter{Limit: 50}

	if v := query.Get("event"); v != "" {
		filter.Event = &v
	}
	if v := query.Get("category"); v != "" {
		v = strings.ToUpper(v)
		filter.Category = &v
	}
	if v := query.Get("level"); v != "" {
		v = strings.ToUpper(v)
		filter.Level = &v
	}
	if v := query.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid since, expected RFC3339", err)
			return
		}
		filter.Since = &since
	}
	if v := query.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 1000 {
			filter.Limit = l
		}
	}
	if v := query.Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	events, err := s.storage.GetAuditEvents(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve audit events", err)
		return
	}
	if events == nil {
		events = []*models.AuditEvent{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"limit":  filter.Limit,
		"offset": filter.Offset,
		"total":  len(events),
	})
}

// statusFor maps an error to the response status
func statusFor(err error) int {
	if errors.Is(err, reconciliation.ErrReconciliationInProgress) {
		return http.StatusConflict
	}
	switch utils.ErrorCode(err) {
	case utils.ErrCodeValidation:
		return http.StatusBadRequest
	case utils.ErrCodeNotFound:
		return http.StatusNotFound
	case utils.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case utils.ErrCodeBlockchain, utils.ErrCodeConnection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Utility functions

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

func (s *HTTPServer) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now().UTC(),
	}

	if err != nil {
		errorResponse["details"] = err.Error()
		if code := utils.ErrorCode(err); code != "" {
			errorResponse["code"] = code
		}
		entry := s.logger.WithError(err).WithFields(logrus.Fields{"status": status, "message": message})
		if status >= http.StatusInternalServerError {
			entry.Error("HTTP error")
		} else {
			entry.Warn("HTTP error")
		}
	}

	s.writeJSON(w, status, errorResponse)
}
