package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PlanStatus is the lifecycle state of an investment plan.
// Cancelled is terminal: once set, no further transition is permitted.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusPaused    PlanStatus = "paused"
	PlanStatusCancelled PlanStatus = "cancelled"
)

// ParsePlanStatus validates a caller-supplied status string.
func ParsePlanStatus(s string) (PlanStatus, error) {
	switch PlanStatus(s) {
	case PlanStatusActive, PlanStatusPaused, PlanStatusCancelled:
		return PlanStatus(s), nil
	default:
		return "", fmt.Errorf("unknown plan status: %q", s)
	}
}

// User represents a user in the system, identified solely by a wallet
// address. Users are created implicitly on first interaction; there is no
// password or stored credential.
type User struct {
	Id            string    `db:"id"`
	WalletAddress string    `db:"wallet_address"` // stored lowercase
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// AgentWallet is the secondary signing identity for a user, one-to-one with
// User. The private key is persisted encrypted at rest; Approved reflects
// whether the exchange currently authorizes the agent to act for the user.
type AgentWallet struct {
	UserId        string    `db:"user_id"`
	AgentAddress  string    `db:"agent_address"`
	EncPrivateKey []byte    `db:"enc_private_key"` // AES-GCM, nonce || ciphertext
	Approved      bool      `db:"approved"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// PendingAgent pairs a user's wallet with their not-yet-approved agent
// address, for approval reconciliation sweeps.
type PendingAgent struct {
	UserId        string `db:"user_id"`
	WalletAddress string `db:"wallet_address"`
	AgentAddress  string `db:"agent_address"`
}

// InvestmentPlan represents a recurring USDC purchase instruction (a SIP).
// Plans are never physically deleted; cancellation is a soft state.
type InvestmentPlan struct {
	Id                string          `db:"id"`
	UserId            string          `db:"user_id"`
	AssetName         string          `db:"asset_name"`
	AssetIndex        int             `db:"asset_index"`
	MonthlyAmountUsdc decimal.Decimal `db:"monthly_amount_usdc"`
	Status            PlanStatus      `db:"status"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}
