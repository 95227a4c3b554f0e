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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ezdawg-sip-go/internal/common"
	"ezdawg-sip-go/internal/config"
	"ezdawg-sip-go/internal/reconciler"

	"go.uber.org/zap"
)

func main() {
	onceFlag := flag.Bool("once", false, "Run a single reconciliation sweep and exit")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	zap.L().Info("Starting standalone approval reconciler")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	approvals := reconciler.NewApprovalReconciler(reconciler.ApprovalReconcilerConfig{
		DbService:   services.Store,
		Provisioner: services.Provisioner,
		Interval:    cfg.Reconciler.Interval,
	})

	if *onceFlag {
		approved, err := approvals.Sweep(ctx)
		if err != nil {
			zap.L().Fatal("Sweep failed", zap.Error(err))
		}
		zap.L().Info("Sweep complete", zap.Int("approved", approved))
		return
	}

	if err := approvals.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start reconciler", zap.Error(err))
	}

	zap.L().Info("Reconciler running", zap.Duration("interval", cfg.Reconciler.Interval))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping reconciler...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		approvals.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Reconciler stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
