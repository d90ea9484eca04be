package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Blockchain     BlockchainConfig     `mapstructure:"blockchain"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Audit          AuditConfig          `mapstructure:"audit"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// BlockchainConfig contains the RPC endpoints of the cluster and program gateway
type BlockchainConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	BackupURLs     []string      `mapstructure:"backup_urls"`
	Namespace      string        `mapstructure:"namespace"`
	Commitment     string        `mapstructure:"commitment"`
	HealthMethod   string        `mapstructure:"health_method"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
}

// StorageConfig contains database configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"` // sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
}

// ReconciliationConfig controls scheduled passes
type ReconciliationConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Schedule     string        `mapstructure:"schedule"`
	RunOnStart   bool          `mapstructure:"run_on_start"`
	CallTimeout  time.Duration `mapstructure:"call_timeout"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`
	AuditRepairs bool          `mapstructure:"audit_repairs"`
}

// AuditConfig contains audit forwarding configuration
type AuditConfig struct {
	WebhookURL     string            `mapstructure:"webhook_url"`
	WebhookHeaders map[string]string `mapstructure:"webhook_headers"`
	WebhookTimeout time.Duration     `mapstructure:"webhook_timeout"`
	RetryAttempts  int               `mapstructure:"retry_attempts"`
	MinLevel       string            `mapstructure:"min_level"`
}

// RedisConfig enables the cross-process run lock when Addr is set
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockKey  string        `mapstructure:"lock_key"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("DAO_RECONCILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if present
	if rpcURL := os.Getenv("SOLANA_RPC_URL"); rpcURL != "" {
		config.Blockchain.RPCURL = rpcURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Storage.ConnectionString = dbURL
		if strings.HasPrefix(dbURL, "postgres://") || strings.HasPrefix(dbURL, "postgresql://") {
			config.Storage.Type = "postgres"
		}
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dao-reconciler")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	v.SetDefault("blockchain.rpc_url", "https://api.devnet.solana.com")
	v.SetDefault("blockchain.namespace", "dao")
	v.SetDefault("blockchain.commitment", "confirmed")
	v.SetDefault("blockchain.health_method", "getHealth")
	v.SetDefault("blockchain.request_timeout", "30s")
	v.SetDefault("blockchain.retry_attempts", 3)
	v.SetDefault("blockchain.retry_delay", "2s")
	v.SetDefault("blockchain.rate_limit", 20)
	v.SetDefault("blockchain.rate_burst", 5)

	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.connection_string", "./data/dao.db")
	v.SetDefault("storage.max_connections", 25)
	v.SetDefault("storage.max_idle_time", "15m")

	// Every five minutes, seconds field first
	v.SetDefault("reconciliation.enabled", true)
	v.SetDefault("reconciliation.schedule", "0 */5 * * * *")
	v.SetDefault("reconciliation.run_on_start", false)
	v.SetDefault("reconciliation.call_timeout", "15s")
	v.SetDefault("reconciliation.run_timeout", "10m")
	v.SetDefault("reconciliation.audit_repairs", true)

	v.SetDefault("audit.webhook_timeout", "10s")
	v.SetDefault("audit.retry_attempts", 3)
	v.SetDefault("audit.min_level", "INFO")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_key", "dao-reconciler:run-lock")
	v.SetDefault("redis.lock_ttl", "15m")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("server.enable_health", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Blockchain.RPCURL == "" {
		return fmt.Errorf("blockchain RPC URL is required")
	}
	if c.Blockchain.Namespace == "" {
		return fmt.Errorf("blockchain namespace is required")
	}
	if c.Storage.Type != "sqlite" && c.Storage.Type != "postgres" {
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.ConnectionString == "" {
		return fmt.Errorf("storage connection string is required")
	}
	if c.Reconciliation.CallTimeout <= 0 {
		return fmt.Errorf("reconciliation call timeout must be positive")
	}
	if c.Reconciliation.Enabled && c.Reconciliation.Schedule == "" {
		return fmt.Errorf("reconciliation schedule is required when scheduling is enabled")
	}
	if c.Redis.Addr != "" && c.Redis.LockTTL <= 0 {
		return fmt.Errorf("redis lock TTL must be positive")
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	return nil
}
