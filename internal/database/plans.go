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

func (s *Service) InsertPlan(ctx context.Context, params store.CreatePlanParams) (*models.InvestmentPlan, error) {
	planId := uuid.New().String()

	zap.L().Info("Inserting plan",
		zap.String("id", planId),
		zap.String("user_id", params.UserId),
		zap.String("asset", params.AssetName),
		zap.String("monthly_amount_usdc", params.MonthlyAmountUsdc.String()))

	var plan models.InvestmentPlan
	err := s.db.QueryRowContext(ctx, queryInsertPlan,
		planId, params.UserId, params.AssetName, params.AssetIndex,
		params.MonthlyAmountUsdc, models.PlanStatusActive).Scan(
		&plan.Id, &plan.UserId, &plan.AssetName, &plan.AssetIndex,
		&plan.MonthlyAmountUsdc, &plan.Status, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		zap.L().Error("Failed to insert plan",
			zap.String("user_id", params.UserId),
			zap.String("asset", params.AssetName),
			zap.Error(err))
		return nil, fmt.Errorf("unable to insert plan: %w", err)
	}

	return &plan, nil
}

func (s *Service) GetPlan(ctx context.Context, planId string) (*models.InvestmentPlan, error) {
	zap.L().Debug("Querying plan", zap.String("plan_id", planId))

	var plan models.InvestmentPlan
	err := s.db.QueryRowContext(ctx, queryGetPlan, planId).Scan(
		&plan.Id, &plan.UserId, &plan.AssetName, &plan.AssetIndex,
		&plan.MonthlyAmountUsdc, &plan.Status, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPlanNotFound
		}
		zap.L().Error("Failed to query plan", zap.String("plan_id", planId), zap.Error(err))
		return nil, fmt.Errorf("unable to query plan: %w", err)
	}

	return &plan, nil
}

func (s *Service) GetPlanOwnerWallet(ctx context.Context, planId string) (string, error) {
	var wallet string
	err := s.db.QueryRowContext(ctx, queryGetPlanOwnerWallet, planId).Scan(&wallet)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrPlanNotFound
		}
		zap.L().Error("Failed to query plan owner", zap.String("plan_id", planId), zap.Error(err))
		return "", fmt.Errorf("unable to query plan owner: %w", err)
	}

	return wallet, nil
}

func (s *Service) ListPlansByUser(ctx context.Context, walletAddress string) ([]models.InvestmentPlan, error) {
	wallet := strings.ToLower(walletAddress)
	zap.L().Debug("Querying plans for wallet", zap.String("wallet", wallet))

	rows, err := s.db.QueryContext(ctx, queryListPlansByUser, wallet)
	if err != nil {
		zap.L().Error("Failed to query plans", zap.String("wallet", wallet), zap.Error(err))
		return nil, fmt.Errorf("unable to query plans: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	plans := []models.InvestmentPlan{}
	for rows.Next() {
		var plan models.InvestmentPlan
		err := rows.Scan(&plan.Id, &plan.UserId, &plan.AssetName, &plan.AssetIndex,
			&plan.MonthlyAmountUsdc, &plan.Status, &plan.CreatedAt, &plan.UpdatedAt)
		if err != nil {
			zap.L().Error("Failed to scan plan row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan plan row: %w", err)
		}
		plans = append(plans, plan)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during plan row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating plan rows: %w", err)
	}

	zap.L().Debug("Retrieved plans", zap.String("wallet", wallet), zap.Int("count", len(plans)))
	return plans, nil
}

func (s *Service) UpdatePlanStatus(ctx context.Context, planId string, status models.PlanStatus) (*models.InvestmentPlan, error) {
	zap.L().Info("Updating plan status",
		zap.String("plan_id", planId),
		zap.String("status", string(status)))

	var plan models.InvestmentPlan
	err := s.db.QueryRowContext(ctx, queryUpdatePlanStatus, status, planId).Scan(
		&plan.Id, &plan.UserId, &plan.AssetName, &plan.AssetIndex,
		&plan.MonthlyAmountUsdc, &plan.Status, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The guarded update matched nothing: either the plan does not
			// exist or it is already cancelled.
			if _, getErr := s.GetPlan(ctx, planId); getErr != nil {
				return nil, getErr
			}
			return nil, store.ErrPlanCancelled
		}
		zap.L().Error("Failed to update plan status",
			zap.String("plan_id", planId),
			zap.String("status", string(status)),
			zap.Error(err))
		return nil, fmt.Errorf("unable to update plan status: %w", err)
	}

	return &plan, nil
}
