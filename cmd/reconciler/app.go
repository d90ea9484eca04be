package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/dao-reconciler/internal/audit"
	"github.com/smartdevs17/dao-reconciler/internal/blockchain"
	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/internal/connection"
	"github.com/smartdevs17/dao-reconciler/internal/metrics"
	"github.com/smartdevs17/dao-reconciler/internal/reconciliation"
	"github.com/smartdevs17/dao-reconciler/internal/scheduler"
	"github.com/smartdevs17/dao-reconciler/internal/server"
	"github.com/smartdevs17/dao-reconciler/internal/storage"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// Application wires the reconciler and its collaborators
type Application struct {
	config     *config.Config
	logger     *logrus.Entry
	metrics    *metrics.Manager
	connection *connection.ConnectionManager
	storage    storage.Store
	guard      *reconciliation.RedisGuard
	reconciler *reconciliation.Reconciler
	scheduler  *scheduler.Scheduler
	server     *server.HTTPServer
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewApplication creates the core components. The scheduler and HTTP server
// are created by Start.
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config:  cfg,
		metrics: metrics.NewManager(),
		ctx:     ctx,
		cancel:  cancel,
	}

	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		app.Stop()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging
	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return err
	}

	app.logger = utils.ComponentLogger("app")
	app.logger.WithFields(logrus.Fields{
		"level":  logCfg.Level,
		"format": logCfg.Format,
		"output": logCfg.Output,
	}).Debug("Logger initialized")
	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.connection = connection.NewConnectionManager(&app.config.Blockchain)
	app.connection.SetMetricsManager(app.metrics)
	chain := blockchain.NewRPCService(app.connection, app.config.Blockchain.Namespace, app.config.Blockchain.Commitment)

	auditLogger := audit.NewMulti(app.metrics).Add("store", audit.NewStoreLogger(app.storage))
	if app.config.Audit.WebhookURL != "" {
		auditLogger.Add("webhook", audit.NewWebhookForwarder(&app.config.Audit, app.config.App.Name))
	}

	opts := reconciliation.Options{
		CallTimeout:  app.config.Reconciliation.CallTimeout,
		AuditRepairs: app.config.Reconciliation.AuditRepairs,
		Metrics:      app.metrics,
	}
	if app.config.Redis.Addr != "" {
		guard, err := reconciliation.NewRedisGuard(app.ctx, &app.config.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize run lock: %w", err)
		}
		app.guard = guard
		opts.Guard = guard
	}

	app.reconciler = reconciliation.NewReconciler(app.storage, chain, auditLogger, opts)
	app.logger.Info("All components initialized successfully")
	return nil
}

// initializeStorage connects and migrates the database
func (app *Application) initializeStorage() error {
	store, err := storage.NewStorage(&app.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	// assigned first so Stop closes a half-opened store
	app.storage = storage.NewStorageWithMetrics(store, app.metrics)
	if err := store.Connect(); err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	if err := app.storage.Migrate(); err != nil {
		return fmt.Errorf("failed to run storage migrations: %w", err)
	}
	return nil
}

// Start runs the scheduler and HTTP server as configured
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
	}).Info("Starting DAO reconciler")

	if app.config.Server.Enabled {
		app.server = server.NewHTTPServer(&app.config.Server, AppVersion, app.storage, app.reconciler, app.connection, app.metrics)
		if err := app.server.Start(); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	if app.config.Reconciliation.Enabled {
		s, err := scheduler.New(&app.config.Reconciliation, app.reconciler)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		app.scheduler = s
		app.scheduler.Start(app.ctx)
	}

	app.logger.WithFields(logrus.Fields{
		"server_address": fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		"rpc_url":        app.config.Blockchain.RPCURL,
		"schedule":       app.config.Reconciliation.Schedule,
	}).Info("DAO reconciler started successfully")
	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() {
	app.cancel()

	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}
	if app.guard != nil {
		if err := app.guard.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close Redis client")
		}
	}
	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close storage")
		}
	}
	if app.connection != nil {
		if err := app.connection.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close connection")
		}
	}

	app.logger.Info("DAO reconciler stopped")
}
