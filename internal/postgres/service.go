package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/store"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.PlanStore.
var _ store.PlanStore = (*Service)(nil)

// Service implements store.PlanStore backed by a hosted Postgres database.
// It speaks the same contract as the SQLite backend; deployments pick one
// via STORE_BACKEND.
type Service struct {
	db *sql.DB
}

// NewService connects to Postgres, applies the schema, and returns a ready
// store. The connection string is a standard lib/pq URL or DSN.
func NewService(ctx context.Context, cfg models.PostgresConfig) (*Service, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres config requires a connection URL")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Connecting to Postgres")
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		err := db.Close()
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unable to ping postgres: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(ctx); err != nil {
		err := db.Close()
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Postgres service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close postgres connection", zap.Error(err))
	}
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		wallet_address TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_users_wallet_address ON users(wallet_address);

	CREATE TABLE IF NOT EXISTS agent_wallets (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		agent_address TEXT NOT NULL,
		enc_private_key BYTEA NOT NULL,
		approved BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS sips (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		asset_name TEXT NOT NULL,
		asset_index INTEGER NOT NULL,
		monthly_amount_usdc NUMERIC(20, 6) NOT NULL CHECK (monthly_amount_usdc >= 1000),
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'paused', 'cancelled')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_sips_user_id ON sips(user_id);
	CREATE INDEX IF NOT EXISTS idx_sips_status ON sips(status);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}
