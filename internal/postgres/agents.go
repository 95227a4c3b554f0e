package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) GetAgentWallet(ctx context.Context, userId string) (*models.AgentWallet, error) {
	var agent models.AgentWallet
	err := s.db.QueryRowContext(ctx, queryGetAgentWallet, userId).Scan(
		&agent.UserId, &agent.AgentAddress, &agent.EncPrivateKey, &agent.Approved,
		&agent.CreatedAt, &agent.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAgentWalletNotFound
		}
		zap.L().Error("Failed to query agent wallet", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query agent wallet: %w", err)
	}

	return &agent, nil
}

// CreateAgentWallet inserts unless the user already has a key and returns
// whichever row won, so racing provisioners converge on one agent key.
func (s *Service) CreateAgentWallet(ctx context.Context, params store.CreateAgentWalletParams) (*models.AgentWallet, error) {
	_, err := s.db.ExecContext(ctx, queryInsertAgentWallet,
		params.UserId, params.AgentAddress, params.EncPrivateKey)
	if err != nil {
		zap.L().Error("Failed to insert agent wallet",
			zap.String("user_id", params.UserId),
			zap.Error(err))
		return nil, fmt.Errorf("unable to insert agent wallet: %w", err)
	}

	return s.GetAgentWallet(ctx, params.UserId)
}

func (s *Service) SetAgentApproved(ctx context.Context, userId string, approved bool) error {
	result, err := s.db.ExecContext(ctx, querySetAgentApproved, approved, userId)
	if err != nil {
		zap.L().Error("Failed to update agent approval",
			zap.String("user_id", userId),
			zap.Error(err))
		return fmt.Errorf("unable to update agent approval: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrAgentWalletNotFound
	}

	zap.L().Info("Agent approval updated",
		zap.String("user_id", userId),
		zap.Bool("approved", approved))
	return nil
}

func (s *Service) ListPendingAgents(ctx context.Context) ([]models.PendingAgent, error) {
	rows, err := s.db.QueryContext(ctx, queryListPendingAgents)
	if err != nil {
		zap.L().Error("Failed to query pending agents", zap.Error(err))
		return nil, fmt.Errorf("unable to query pending agents: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	pending := []models.PendingAgent{}
	for rows.Next() {
		var p models.PendingAgent
		if err := rows.Scan(&p.UserId, &p.WalletAddress, &p.AgentAddress); err != nil {
			return nil, fmt.Errorf("unable to scan pending agent row: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending agent rows: %w", err)
	}

	return pending, nil
}
