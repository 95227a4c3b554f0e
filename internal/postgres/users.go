package postgres

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

// UpsertUserByWallet inserts the wallet on first sight and returns the row,
// stored lowercase so lookups ignore checksum casing. ON CONFLICT keeps the
// first id when two requests race.
func (s *Service) UpsertUserByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	wallet := strings.ToLower(walletAddress)

	result, err := s.db.ExecContext(ctx, queryInsertUser, uuid.New().String(), wallet)
	if err != nil {
		zap.L().Error("Failed to insert user", zap.String("wallet", wallet), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		zap.L().Info("User created", zap.String("wallet", wallet))
	}

	return s.GetUserByWallet(ctx, wallet)
}
