package models

import "time"

// Config represents the application configuration
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Database   DatabaseConfig
	Postgres   PostgresConfig
	Exchange   ExchangeConfig
	Signature  SignatureConfig
	Agent      AgentConfig
	Reconciler ReconcilerConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// StoreConfig selects the plan-store backend.
// "sqlite" is the prototyping backend, "postgres" the durable one.
type StoreConfig struct {
	Backend string
}

// DatabaseConfig holds SQLite connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	CreateDemoUsers bool
}

// PostgresConfig holds hosted Postgres settings
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// ExchangeConfig holds exchange API settings. An empty BaseURL puts the
// client in offline mode backed by the static assets file.
type ExchangeConfig struct {
	BaseURL     string
	Timeout     time.Duration
	AssetsFile  string
	UniverseTTL time.Duration
}

// SignatureConfig holds the signed-request freshness parameters.
// Defaults: 60s window, 5s forward skew.
type SignatureConfig struct {
	FreshnessWindow time.Duration
	MaxClockSkew    time.Duration
}

// AgentConfig holds agent-wallet provisioning settings
type AgentConfig struct {
	MasterKey        string // base64-encoded 32-byte AES key
	AgentLabel       string // human-readable label sent with approvals
	MaxRetryAttempts int
}

// ReconcilerConfig holds the approval reconciliation sweep settings
type ReconcilerConfig struct {
	Interval time.Duration
}
