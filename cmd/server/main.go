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
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ezdawg-sip-go/internal/api"
	"ezdawg-sip-go/internal/common"
	"ezdawg-sip-go/internal/config"
	"ezdawg-sip-go/internal/reconciler"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	zap.L().Info("Starting SIP API server")

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
	if err := approvals.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start approval reconciler", zap.Error(err))
	}

	handler := api.NewHandler(services.Plans, services.Verifier, services.Provisioner, services.Exchange)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		serverErr <- srv.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zap.L().Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced HTTP shutdown after timeout", zap.Error(err))
	}

	approvals.Stop()

	zap.L().Info("Server stopped gracefully")
}
