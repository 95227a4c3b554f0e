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

	"ezdawg-sip-go/internal/common"
	"ezdawg-sip-go/internal/config"
	"ezdawg-sip-go/internal/exchange"
	"ezdawg-sip-go/internal/models"

	"go.uber.org/zap"
)

func printAssets(assets []models.SpotAsset) {
	for i, a := range assets {
		isLast := i == len(assets)-1
		fmt.Printf("%s %-8s index %d\n", common.BoxPrefix(isLast), a.Name, a.Index)
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	fileFlag := flag.String("file", "", "Override the static assets file")
	flag.Parse()

	logger.Info("Starting asset universe query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if *fileFlag != "" {
		cfg.Exchange.AssetsFile = *fileFlag
	}

	// The exchange client alone is enough here; no store or signing stack.
	client, err := exchange.NewClient(cfg.Exchange)
	if err != nil {
		logger.Fatal("Failed to initialize exchange client", zap.Error(err))
	}

	assets, err := client.Universe(ctx)
	if err != nil {
		logger.Fatal("Failed to fetch asset universe", zap.Error(err))
	}

	common.PrintHeader("TRADEABLE ASSETS", common.DefaultWidth)

	source := "venue " + cfg.Exchange.BaseURL
	if cfg.Exchange.BaseURL == "" {
		source = "static file " + cfg.Exchange.AssetsFile
	}
	fmt.Printf("\n┌─ Source: %s\n", source)
	fmt.Printf("│  Assets: %d\n", len(assets))
	common.PrintBoxSeparator(common.DefaultWidth - 2)
	printAssets(assets)

	common.PrintFooter(fmt.Sprintf("TOTAL: %d asset(s)", len(assets)), common.DefaultWidth)

	logger.Info("Asset universe query completed", zap.Int("assets", len(assets)))
}
