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

// Package reconciler closes the gap between agent approvals submitted
// client-side and the approved flag stored server-side. The server never
// holds primary wallet keys, so it cannot submit approvals itself; it can
// only observe them. The reconciler periodically sweeps users whose agent
// is still marked pending and asks the venue whether the approval has
// landed.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"ezdawg-sip-go/internal/agent"
	"ezdawg-sip-go/internal/store"

	"go.uber.org/zap"
)

// ApprovalReconcilerConfig contains configuration for ApprovalReconciler
type ApprovalReconcilerConfig struct {
	DbService   store.PlanStore
	Provisioner *agent.Provisioner
	Interval    time.Duration
}

// ApprovalReconciler polls the venue for agent approvals that were submitted
// out of band and persists them once observed.
type ApprovalReconciler struct {
	dbService   store.PlanStore
	provisioner *agent.Provisioner
	interval    time.Duration

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewApprovalReconciler creates a new approval reconciler
func NewApprovalReconciler(cfg ApprovalReconcilerConfig) *ApprovalReconciler {
	return &ApprovalReconciler{
		dbService:   cfg.DbService,
		provisioner: cfg.Provisioner,
		interval:    cfg.Interval,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (r *ApprovalReconciler) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %s", r.interval)
	}

	zap.L().Info("Starting approval reconciler",
		zap.Duration("interval", r.interval))

	go r.pollLoop(ctx)

	return nil
}

// Stop gracefully stops the reconciler
func (r *ApprovalReconciler) Stop() {
	zap.L().Info("Stopping approval reconciler")
	close(r.stopChan)
	<-r.doneChan
	zap.L().Info("Approval reconciler stopped")
}

// pollLoop runs the main reconciliation loop
func (r *ApprovalReconciler) pollLoop(ctx context.Context) {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one reconciliation pass and returns how many agents were marked
// approved. Per-agent failures are logged and skipped; the agent stays
// pending and the next sweep retries it.
func (r *ApprovalReconciler) Sweep(ctx context.Context) (int, error) {
	pending, err := r.dbService.ListPendingAgents(ctx)
	if err != nil {
		zap.L().Error("Failed to list pending agents", zap.Error(err))
		return 0, fmt.Errorf("unable to list pending agents: %w", err)
	}

	if len(pending) == 0 {
		return 0, nil
	}

	zap.L().Debug("Reconciling pending agent approvals",
		zap.Int("pending", len(pending)))

	approved := 0
	for _, p := range pending {
		if !r.provisioner.CheckApproval(ctx, p.WalletAddress, p.AgentAddress) {
			continue
		}

		if err := r.dbService.SetAgentApproved(ctx, p.UserId, true); err != nil {
			zap.L().Error("Failed to persist agent approval",
				zap.String("wallet", p.WalletAddress),
				zap.String("agent_address", p.AgentAddress),
				zap.Error(err))
			continue
		}

		approved++
		zap.L().Info("Agent approval observed on venue",
			zap.String("wallet", p.WalletAddress),
			zap.String("agent_address", p.AgentAddress))
	}

	return approved, nil
}
