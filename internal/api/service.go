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

// Package api is the HTTP boundary. It authenticates requests through the
// signature codec, maps service errors onto status codes, and keeps all
// business rules in the services it delegates to.
package api

import (
	"context"
	"errors"
	"net/http"

	"ezdawg-sip-go/internal/agent"
	"ezdawg-sip-go/internal/exchange"
	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/signature"
	"ezdawg-sip-go/internal/sip"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// PlanService is the slice of the plan service the handlers need.
type PlanService interface {
	CreatePlan(ctx context.Context, walletAddress, assetName string, assetIndex int, monthly decimal.Decimal) (*models.InvestmentPlan, error)
	ListPlans(ctx context.Context, walletAddress string) ([]models.InvestmentPlan, error)
	TransitionStatus(ctx context.Context, principalWallet, planId, newStatus string) (*models.InvestmentPlan, error)
}

// AgentProvisioner resolves the agent identity for an authenticated wallet.
type AgentProvisioner interface {
	EnsureAgent(ctx context.Context, userAddress string) (string, bool, error)
}

// UniverseProvider serves the tradeable asset universe.
type UniverseProvider interface {
	Universe(ctx context.Context) ([]models.SpotAsset, error)
}

// Compile-time checks: the concrete services satisfy the handler contracts.
var (
	_ PlanService      = (*sip.Service)(nil)
	_ AgentProvisioner = (*agent.Provisioner)(nil)
	_ UniverseProvider = (*exchange.Client)(nil)
)

type Handler struct {
	plans    PlanService
	verifier *signature.Verifier
	agents   AgentProvisioner
	universe UniverseProvider
}

func NewHandler(plans PlanService, verifier *signature.Verifier, agents AgentProvisioner, universe UniverseProvider) *Handler {
	return &Handler{
		plans:    plans,
		verifier: verifier,
		agents:   agents,
		universe: universe,
	}
}

// Routes builds the router for the whole HTTP surface.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Post("/sip", h.handleCreateSip)
		api.Get("/sip", h.handleListSips)
		api.Patch("/sip", h.handleUpdateSip)
		api.Post("/agent", h.handleEnsureAgent)
		api.Get("/assets", h.handleListAssets)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// authenticate verifies a signed request and returns the principal wallet.
// On failure it writes the 401 response itself and returns ok=false.
func (h *Handler) authenticate(w http.ResponseWriter, message, hexSignature string) (string, bool) {
	sig, err := signature.DecodeSignature(hexSignature)
	if err != nil {
		writeError(w, http.StatusUnauthorized, authCode(err), err.Error())
		return "", false
	}

	principal, err := h.verifier.Verify(message, sig)
	if err != nil {
		writeError(w, http.StatusUnauthorized, authCode(err), err.Error())
		return "", false
	}
	return principal, true
}

// authCode maps a codec sentinel onto a stable wire code so clients can tell
// a stale nonce (re-sign and retry) from a genuinely bad signature.
func authCode(err error) string {
	switch {
	case errors.Is(err, signature.ErrSignatureExpired):
		return "SIGNATURE_EXPIRED"
	case errors.Is(err, signature.ErrFutureNonce):
		return "FUTURE_NONCE"
	case errors.Is(err, signature.ErrMissingNonce):
		return "MISSING_NONCE"
	default:
		return "BAD_SIGNATURE"
	}
}
