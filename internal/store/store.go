package store

import (
	"context"
	"errors"

	"ezdawg-sip-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrUserNotFound        = errors.New("no user found for wallet address")
	ErrPlanNotFound        = errors.New("no plan found for id")
	ErrPlanCancelled       = errors.New("plan is cancelled and cannot transition")
	ErrAgentWalletNotFound = errors.New("no agent wallet found for user")
)

// CreatePlanParams contains the parameters for inserting an investment plan.
type CreatePlanParams struct {
	UserId            string
	AssetName         string
	AssetIndex        int
	MonthlyAmountUsdc decimal.Decimal
}

// CreateAgentWalletParams contains the parameters for persisting a freshly
// generated agent key. EncPrivateKey is already encrypted by the caller; the
// store never sees plaintext key material.
type CreateAgentWalletParams struct {
	UserId        string
	AgentAddress  string
	EncPrivateKey []byte
}

// PlanStore defines the contract that every backend (SQLite, Postgres) must
// satisfy. Wallet addresses are normalized to lowercase before they reach
// the store.
type PlanStore interface {
	// --- Users ---
	GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error)
	// UpsertUserByWallet resolves or implicitly creates the user owning a
	// wallet address. The returned id is stable across calls.
	UpsertUserByWallet(ctx context.Context, walletAddress string) (*models.User, error)

	// --- Agent wallets ---
	GetAgentWallet(ctx context.Context, userId string) (*models.AgentWallet, error)
	// CreateAgentWallet inserts the agent key if the user has none yet and
	// returns the persisted row either way. Concurrent callers converge on
	// one winning key; losers' key material is discarded.
	CreateAgentWallet(ctx context.Context, params CreateAgentWalletParams) (*models.AgentWallet, error)
	SetAgentApproved(ctx context.Context, userId string, approved bool) error

	// --- Plans ---
	InsertPlan(ctx context.Context, params CreatePlanParams) (*models.InvestmentPlan, error)
	GetPlan(ctx context.Context, planId string) (*models.InvestmentPlan, error)
	// GetPlanOwnerWallet returns the wallet address owning a plan, for
	// ownership checks on status transitions.
	GetPlanOwnerWallet(ctx context.Context, planId string) (string, error)
	// ListPlansByUser returns the user's plans newest-first. An unknown user
	// yields an empty slice, not an error.
	ListPlansByUser(ctx context.Context, walletAddress string) ([]models.InvestmentPlan, error)
	// UpdatePlanStatus overwrites the status and bumps updated_at. Cancelled
	// is terminal: updating a cancelled plan fails with ErrPlanCancelled,
	// enforced in the update statement itself so concurrent transitions
	// cannot slip past the guard.
	UpdatePlanStatus(ctx context.Context, planId string, status models.PlanStatus) (*models.InvestmentPlan, error)
	// ListPendingAgents returns wallet/agent pairs whose approval flag is
	// still false, for reconciliation sweeps against the venue.
	ListPendingAgents(ctx context.Context) ([]models.PendingAgent, error)

	// --- Lifecycle ---
	Close()
}
