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

	"ezdawg-sip-go/internal/exchange"
	"ezdawg-sip-go/internal/models"

	"go.uber.org/zap"
)

// handleListAssets serves the tradeable asset universe so clients can keep
// assetName/assetIndex pairs consistent when creating plans.
func (h *Handler) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.universe.Universe(r.Context())
	if err != nil {
		if errors.Is(err, exchange.ErrUniverseUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "UNIVERSE_UNAVAILABLE", "asset universe is temporarily unavailable")
			return
		}
		zap.L().Error("Asset universe lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "EXCHANGE_ERROR", "unable to load asset universe")
		return
	}

	writeJSON(w, http.StatusOK, models.AssetsResponse{Assets: assets})
}
