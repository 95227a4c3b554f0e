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
	"fmt"
	"regexp"

	"ezdawg-sip-go/internal/common"
	"ezdawg-sip-go/internal/config"
	"ezdawg-sip-go/internal/models"

	"go.uber.org/zap"
)

var walletRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func validateWallet(wallet string) error {
	if wallet == "" {
		return fmt.Errorf("wallet address cannot be empty")
	}
	if !walletRegex.MatchString(wallet) {
		return fmt.Errorf("invalid wallet address format: %s", wallet)
	}
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	walletFlag := flag.String("wallet", "", "Wallet to provision (default: the wallet PRIMARY_WALLET_KEY controls)")
	retryFlag := flag.Bool("retry", false, "Retry bootstrap with exponential backoff on transient failures")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	// Bootstrap needs the primary wallet key to sign the approval, so the
	// key's own wallet is the natural default target.
	wallet := *walletFlag
	if wallet == "" {
		signer, err := common.LoadPrimarySigner()
		if err != nil {
			zap.L().Fatal("No --wallet given and no PRIMARY_WALLET_KEY set", zap.Error(err))
		}
		wallet = signer.Address()
	}
	if err := validateWallet(wallet); err != nil {
		zap.L().Fatal("Invalid wallet", zap.Error(err))
	}

	zap.L().Info("Provisioning agent",
		zap.String("wallet", wallet),
		zap.Bool("retry", *retryFlag))

	var result models.AgentInitResult
	if *retryFlag {
		result, err = services.Provisioner.BootstrapWithRetry(ctx, wallet)
	} else {
		result, err = services.Provisioner.Bootstrap(ctx, wallet)
	}
	if err != nil {
		zap.L().Fatal("Agent bootstrap failed", zap.Error(err))
	}

	// Read back the persisted row for the summary.
	user, err := services.Store.GetUserByWallet(ctx, wallet)
	if err != nil {
		zap.L().Fatal("Failed to read provisioned user", zap.Error(err))
	}
	row, err := services.Store.GetAgentWallet(ctx, user.Id)
	if err != nil {
		zap.L().Fatal("Failed to read agent wallet", zap.Error(err))
	}

	common.PrintHeader("AGENT PROVISIONED", common.DefaultWidth)
	fmt.Printf("Wallet:   %s\n", user.WalletAddress)
	fmt.Printf("Agent:    %s\n", result.AgentAddress)
	fmt.Printf("Approved: %t\n", row.Approved)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("Agent provisioning complete",
		zap.String("wallet", user.WalletAddress),
		zap.String("agent_address", result.AgentAddress),
		zap.Bool("approved", row.Approved))
}
