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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateSipRequest is the body of POST /api/sip. The message/signature pair
// authenticates the caller; the remaining fields describe the plan.
type CreateSipRequest struct {
	AssetName         string          `json:"assetName"`
	AssetIndex        *int            `json:"assetIndex"`
	MonthlyAmountUsdc decimal.Decimal `json:"monthlyAmountUsdc"`
	Message           string          `json:"message"`
	Signature         string          `json:"signature"`
}

// UpdateSipRequest is the body of PATCH /api/sip.
type UpdateSipRequest struct {
	SipId     string `json:"sipId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// AgentRequest is the body of POST /api/agent. Only authentication fields:
// the principal is recovered from the signature.
type AgentRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// Sip is the wire representation of an investment plan.
type Sip struct {
	Id                string          `json:"id"`
	WalletAddress     string          `json:"walletAddress"`
	AssetName         string          `json:"assetName"`
	AssetIndex        int             `json:"assetIndex"`
	MonthlyAmountUsdc decimal.Decimal `json:"monthlyAmountUsdc"`
	Status            PlanStatus      `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// SipResponse is returned by POST and PATCH /api/sip.
type SipResponse struct {
	Success bool `json:"success"`
	Sip     *Sip `json:"sip,omitempty"`
}

// SipsResponse is returned by GET /api/sip.
type SipsResponse struct {
	Sips []Sip `json:"sips"`
}

// AgentResponse reports the agent identity for the authenticated principal.
// The agent private key never appears on the wire.
type AgentResponse struct {
	Success      bool   `json:"success"`
	AgentAddress string `json:"agentAddress"`
	Approved     bool   `json:"approved"`
}

// AssetsResponse lists the exchange's spot asset universe.
type AssetsResponse struct {
	Assets []SpotAsset `json:"assets"`
}

// APIError is the error envelope shared by all endpoints.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}
