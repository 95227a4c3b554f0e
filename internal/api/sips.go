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

package api

import (
	"errors"
	"net/http"
	"strings"

	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/sip"
	"ezdawg-sip-go/internal/store"

	"go.uber.org/zap"
)

func toSip(plan *models.InvestmentPlan, wallet string) models.Sip {
	return models.Sip{
		Id:                plan.Id,
		WalletAddress:     strings.ToLower(wallet),
		AssetName:         plan.AssetName,
		AssetIndex:        plan.AssetIndex,
		MonthlyAmountUsdc: plan.MonthlyAmountUsdc,
		Status:            plan.Status,
		CreatedAt:         plan.CreatedAt,
		UpdatedAt:         plan.UpdatedAt,
	}
}

// handleCreateSip creates an investment plan for the signer of the request.
func (h *Handler) handleCreateSip(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSipRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_BODY", err.Error())
		return
	}

	if req.AssetName == "" || req.AssetIndex == nil || req.Message == "" || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "assetName, assetIndex, message and signature are required")
		return
	}

	principal, ok := h.authenticate(w, req.Message, req.Signature)
	if !ok {
		return
	}

	plan, err := h.plans.CreatePlan(r.Context(), principal, req.AssetName, *req.AssetIndex, req.MonthlyAmountUsdc)
	if err != nil {
		if errors.Is(err, sip.ErrBelowMinimum) {
			writeError(w, http.StatusBadRequest, "BELOW_MINIMUM", err.Error())
			return
		}
		zap.L().Error("Plan creation failed",
			zap.String("wallet", principal),
			zap.String("asset", req.AssetName),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "DB_ERROR", "unable to create plan")
		return
	}

	view := toSip(plan, principal)
	writeJSON(w, http.StatusCreated, models.SipResponse{Success: true, Sip: &view})
}

// handleListSips is the unauthenticated read: plan data is not secret, and
// anyone could derive it from on-chain activity anyway.
func (h *Handler) handleListSips(w http.ResponseWriter, r *http.Request) {
	wallet := strings.TrimSpace(r.URL.Query().Get("walletAddress"))
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "walletAddress query parameter is required")
		return
	}

	plans, err := h.plans.ListPlans(r.Context(), wallet)
	if err != nil {
		zap.L().Error("Plan listing failed", zap.String("wallet", wallet), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "DB_ERROR", "unable to list plans")
		return
	}

	sips := make([]models.Sip, len(plans))
	for i, plan := range plans {
		sips[i] = toSip(&plan, wallet)
	}
	writeJSON(w, http.StatusOK, models.SipsResponse{Sips: sips})
}

// handleUpdateSip transitions a plan's status on behalf of its owner.
func (h *Handler) handleUpdateSip(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSipRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_BODY", err.Error())
		return
	}

	if req.SipId == "" || req.Status == "" || req.Message == "" || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "sipId, status, message and signature are required")
		return
	}

	principal, ok := h.authenticate(w, req.Message, req.Signature)
	if !ok {
		return
	}

	plan, err := h.plans.TransitionStatus(r.Context(), principal, req.SipId, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, sip.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "INVALID_STATUS", err.Error())
		case errors.Is(err, store.ErrPlanNotFound):
			writeError(w, http.StatusNotFound, "SIP_NOT_FOUND", "no plan found for id")
		case errors.Is(err, sip.ErrNotPlanOwner):
			writeError(w, http.StatusForbidden, "NOT_PLAN_OWNER", "plan belongs to another wallet")
		case errors.Is(err, store.ErrPlanCancelled):
			writeError(w, http.StatusConflict, "SIP_CANCELLED", "cancelled plans cannot change status")
		default:
			zap.L().Error("Plan transition failed",
				zap.String("plan_id", req.SipId),
				zap.String("status", req.Status),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, "DB_ERROR", "unable to update plan")
		}
		return
	}

	view := toSip(plan, principal)
	writeJSON(w, http.StatusOK, models.SipResponse{Success: true, Sip: &view})
}
