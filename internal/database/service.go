/**
 * Copyright 2025-present EzDawg Labs
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"

	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.PlanStore.
var _ store.PlanStore = (*Service)(nil)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		err := db.Close()
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(cfg.CreateDemoUsers); err != nil {
		err := db.Close()
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(createDemoUsers bool) error {
	schema := `
	-- Create users table keyed by EVM wallet address
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		wallet_address TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Create index on wallet_address for principal lookups
	CREATE INDEX IF NOT EXISTS idx_users_wallet_address ON users(wallet_address);

	-- Create agent_wallets table: one exchange agent key per user,
	-- private key stored AES-256-GCM encrypted
	CREATE TABLE IF NOT EXISTS agent_wallets (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		agent_address TEXT NOT NULL,
		enc_private_key BLOB NOT NULL,
		approved BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Create sips table holding the investment plans
	CREATE TABLE IF NOT EXISTS sips (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		asset_name TEXT NOT NULL,
		asset_index INTEGER NOT NULL,
		monthly_amount_usdc NUMERIC NOT NULL CHECK (monthly_amount_usdc >= 1000),
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'paused', 'cancelled')),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Create index for per-user plan listings
	CREATE INDEX IF NOT EXISTS idx_sips_user_id ON sips(user_id);
	-- Create index for status scans (e.g. all active plans)
	CREATE INDEX IF NOT EXISTS idx_sips_status ON sips(status);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return err
	}

	// Insert 3 demo users for local testing if configured to do so.
	// These are the well-known local devnet (anvil) default accounts, so
	// the CLIs can sign for them with the published devnet keys.
	if createDemoUsers {
		wallets := []string{
			"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
			"0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
			"0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc",
		}

		for _, wallet := range wallets {
			id := uuid.New().String()
			_, err := s.db.Exec(queryInsertUser, id, wallet)
			if err != nil {
				zap.L().Error("Failed to insert demo user", zap.String("wallet", wallet), zap.Error(err))
			} else {
				zap.L().Info("Demo user created", zap.String("id", id), zap.String("wallet", wallet))
			}
		}
	} else {
		zap.L().Info("Skipping demo user creation (CREATE_DEMO_USERS=false)")
	}

	return nil
}
