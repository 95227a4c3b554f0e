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
	"errors"
	"fmt"
	"strings"

	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	wallet := strings.ToLower(walletAddress)
	zap.L().Debug("Querying user by wallet", zap.String("wallet", wallet))

	var user models.User
	err := s.db.QueryRowContext(ctx, queryGetUserByWallet, wallet).Scan(
		&user.Id, &user.WalletAddress, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		zap.L().Error("Failed to query user by wallet", zap.String("wallet", wallet), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by wallet: %w", err)
	}

	return &user, nil
}

// UpsertUserByWallet returns the user row for the wallet, creating it on
// first sight. Wallet addresses are stored lowercase so lookups are
// case-insensitive regardless of the checksum casing clients send.
func (s *Service) UpsertUserByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	wallet := strings.ToLower(walletAddress)

	result, err := s.db.ExecContext(ctx, queryInsertUser, uuid.New().String(), wallet)
	if err != nil {
		zap.L().Error("Failed to insert user", zap.String("wallet", wallet), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		zap.L().Error("Failed to get rows affected", zap.Error(err))
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		zap.L().Info("User created", zap.String("wallet", wallet))
	}

	// Re-read so concurrent upserts all observe the winning row.
	return s.GetUserByWallet(ctx, wallet)
}
