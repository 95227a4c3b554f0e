// Package sip implements the investment plan lifecycle: creation with the
// minimum-amount rule, per-wallet listing, and status transitions with
// ownership and terminal-state checks. Authentication happens before this
// layer; callers pass the already-verified principal wallet.
package sip

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrBelowMinimum rejects plans under the minimum monthly amount.
	ErrBelowMinimum = errors.New("monthly amount below minimum")

	// ErrInvalidStatus rejects status values outside the plan enum.
	ErrInvalidStatus = errors.New("invalid plan status")

	// ErrNotPlanOwner rejects transitions requested by a wallet that does
	// not own the plan.
	ErrNotPlanOwner = errors.New("plan belongs to another wallet")

	// ErrUserResolution wraps store failures while resolving or creating
	// the user row.
	ErrUserResolution = errors.New("unable to resolve user")

	// ErrPersistence wraps store failures while reading or writing plans.
	ErrPersistence = errors.New("unable to persist plan")
)

// MinimumMonthlyUsdc is the default floor for a plan's monthly amount.
var MinimumMonthlyUsdc = decimal.NewFromInt(1000)

type Service struct {
	store      store.PlanStore
	minMonthly decimal.Decimal
}

// NewService wires the plan service to a backing store. A non-positive
// minimum falls back to MinimumMonthlyUsdc.
func NewService(st store.PlanStore, minMonthly decimal.Decimal) *Service {
	if minMonthly.LessThanOrEqual(decimal.Zero) {
		minMonthly = MinimumMonthlyUsdc
	}
	return &Service{store: st, minMonthly: minMonthly}
}

// CreatePlan validates the amount, resolves (or implicitly creates) the user
// for the wallet, and inserts an active plan.
func (s *Service) CreatePlan(ctx context.Context, walletAddress, assetName string, assetIndex int, monthly decimal.Decimal) (*models.InvestmentPlan, error) {
	if monthly.LessThan(s.minMonthly) {
		return nil, fmt.Errorf("%w: %s < %s", ErrBelowMinimum, monthly.String(), s.minMonthly.String())
	}

	wallet := strings.ToLower(walletAddress)
	user, err := s.store.UpsertUserByWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserResolution, err)
	}

	plan, err := s.store.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            user.Id,
		AssetName:         assetName,
		AssetIndex:        assetIndex,
		MonthlyAmountUsdc: monthly,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	zap.L().Info("Investment plan created",
		zap.String("plan_id", plan.Id),
		zap.String("wallet", wallet),
		zap.String("asset", assetName),
		zap.Int("asset_index", assetIndex),
		zap.String("monthly_usdc", monthly.String()))

	return plan, nil
}

// ListPlans returns the wallet's plans newest-first. An unknown wallet is an
// empty result, not an error.
func (s *Service) ListPlans(ctx context.Context, walletAddress string) ([]models.InvestmentPlan, error) {
	plans, err := s.store.ListPlansByUser(ctx, strings.ToLower(walletAddress))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return plans, nil
}

// TransitionStatus moves a plan to a new status on behalf of the
// authenticated principal. The plan must exist, belong to the principal, and
// not be cancelled; cancelled is terminal with no way back.
func (s *Service) TransitionStatus(ctx context.Context, principalWallet, planId, newStatus string) (*models.InvestmentPlan, error) {
	status, err := models.ParsePlanStatus(newStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	owner, err := s.store.GetPlanOwnerWallet(ctx, planId)
	if err != nil {
		if errors.Is(err, store.ErrPlanNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !strings.EqualFold(owner, principalWallet) {
		zap.L().Warn("Plan transition rejected: wrong owner",
			zap.String("plan_id", planId),
			zap.String("principal", strings.ToLower(principalWallet)))
		return nil, ErrNotPlanOwner
	}

	// The store enforces the terminal-cancelled rule inside the update
	// statement, so a concurrent cancel cannot be overwritten here.
	plan, err := s.store.UpdatePlanStatus(ctx, planId, status)
	if err != nil {
		if errors.Is(err, store.ErrPlanNotFound) || errors.Is(err, store.ErrPlanCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	zap.L().Info("Investment plan status updated",
		zap.String("plan_id", planId),
		zap.String("status", string(status)))

	return plan, nil
}
