package api

import (
	"net/http"

	"ezdawg-sip-go/internal/models"

	"go.uber.org/zap"
)

// handleEnsureAgent resolves (creating on first call) the agent wallet for
// the authenticated principal and reports its approval state. Only the agent
// address crosses the wire; the key stays encrypted server-side.
func (h *Handler) handleEnsureAgent(w http.ResponseWriter, r *http.Request) {
	var req models.AgentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_BODY", err.Error())
		return
	}

	if req.Message == "" || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "message and signature are required")
		return
	}

	principal, ok := h.authenticate(w, req.Message, req.Signature)
	if !ok {
		return
	}

	agentAddress, approved, err := h.agents.EnsureAgent(r.Context(), principal)
	if err != nil {
		zap.L().Error("Agent provisioning failed", zap.String("wallet", principal), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "AGENT_ERROR", "unable to provision agent wallet")
		return
	}

	writeJSON(w, http.StatusOK, models.AgentResponse{
		Success:      true,
		AgentAddress: agentAddress,
		Approved:     approved,
	})
}
