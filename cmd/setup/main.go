package main

import (
	"context"
	"flag"
	"fmt"

	"ezdawg-sip-go/internal/common"
	"ezdawg-sip-go/internal/config"

	"go.uber.org/zap"
)

// Well-known local devnet (anvil) accounts. Their private keys are public,
// so demo flows can sign for these wallets without any key management.
var demoWallets = []string{
	"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
	"0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
	"0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc",
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	demoFlag := flag.Bool("demo", false, "Seed the well-known devnet demo users")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Initializing store schema", zap.String("backend", cfg.Store.Backend))

	// Opening the store applies the schema for whichever backend is
	// configured.
	st, err := common.InitializeStoreOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize store", zap.Error(err))
	}
	defer st.Close()

	if !*demoFlag {
		zap.L().Info("Store schema ready")
		return
	}

	// Seeding goes through the store contract so it works for both backends.
	common.PrintHeader("DEMO USERS", common.DefaultWidth)
	seeded := 0
	for _, wallet := range demoWallets {
		user, err := st.UpsertUserByWallet(ctx, wallet)
		if err != nil {
			zap.L().Error("Failed to seed demo user", zap.String("wallet", wallet), zap.Error(err))
			fmt.Printf("✗ %s\n", wallet)
			continue
		}
		fmt.Printf("✓ %s → user %s\n", wallet, user.Id)
		seeded++
	}
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("Store schema ready", zap.Int("demo_users", seeded))
}
