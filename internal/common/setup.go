package common

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"ezdawg-sip-go/internal/agent"
	"ezdawg-sip-go/internal/database"
	"ezdawg-sip-go/internal/exchange"
	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/postgres"
	"ezdawg-sip-go/internal/signature"
	"ezdawg-sip-go/internal/sip"
	"ezdawg-sip-go/internal/store"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		// Only log if the file exists but couldn't be read
		// (godotenv returns an error if .env doesn't exist)
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services bundles the wired application graph: one store, one exchange
// client, and the domain services built on top of them.
type Services struct {
	Store       store.PlanStore
	Exchange    *exchange.Client
	Keystore    *agent.Keystore
	Provisioner *agent.Provisioner
	Plans       *sip.Service
	Verifier    *signature.Verifier
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	st, err := InitializeStoreOnly(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exchangeClient, err := exchange.NewClient(cfg.Exchange)
	if err != nil {
		st.Close()
		return nil, err
	}

	if cfg.Agent.MasterKey == "" {
		st.Close()
		return nil, fmt.Errorf("missing required credential: AGENT_MASTER_KEY (base64-encoded 32-byte AES key)")
	}
	keystore, err := agent.NewKeystore(st, cfg.Agent.MasterKey)
	if err != nil {
		st.Close()
		return nil, err
	}

	provisioner := agent.NewProvisioner(agent.ProvisionerConfig{
		Keystore:   keystore,
		Store:      st,
		Venue:      exchangeClient,
		Signers:    primarySignerFactory(),
		AgentLabel: cfg.Agent.AgentLabel,
		MaxRetries: cfg.Agent.MaxRetryAttempts,
	})

	return &Services{
		Store:       st,
		Exchange:    exchangeClient,
		Keystore:    keystore,
		Provisioner: provisioner,
		Plans:       sip.NewService(st, decimal.Zero),
		Verifier:    signature.NewVerifier(cfg.Signature.FreshnessWindow, cfg.Signature.MaxClockSkew),
	}, nil
}

// InitializeStoreOnly opens just the plan store without the exchange or
// signing stack. Useful for one-shot tools like schema setup.
func InitializeStoreOnly(ctx context.Context, cfg *models.Config) (store.PlanStore, error) {
	switch cfg.Store.Backend {
	case "postgres":
		zap.L().Info("Using Postgres store")
		return postgres.NewService(ctx, cfg.Postgres)
	default:
		zap.L().Info("Using SQLite store", zap.String("path", cfg.Database.Path))
		return database.NewService(ctx, cfg.Database)
	}
}

func (cs *Services) Close() {
	if cs.Store != nil {
		cs.Store.Close()
	}
}

// LoadPrimarySigner builds a signing client from the PRIMARY_WALLET_KEY
// environment variable. CLI tools use it to act as the user's primary
// wallet. The hosted server must never set this variable: without it every
// signer lookup fails and the server physically cannot submit approvals.
func LoadPrimarySigner() (*signature.LocalSigner, error) {
	hexKey := os.Getenv("PRIMARY_WALLET_KEY")
	if hexKey == "" {
		return nil, fmt.Errorf("missing required credential: PRIMARY_WALLET_KEY")
	}
	return signature.NewLocalSignerFromHex(hexKey)
}

// primarySignerFactory resolves the primary wallet signer for a given user.
// The loaded key must control the requested wallet, so a CLI cannot approve
// an agent for someone else's address.
func primarySignerFactory() agent.SignerFactory {
	return func(userAddress string) (exchange.ActionSigner, error) {
		signer, err := LoadPrimarySigner()
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(signer.Address(), userAddress) {
			return nil, fmt.Errorf("PRIMARY_WALLET_KEY controls %s, not %s", signer.Address(), userAddress)
		}
		return signer, nil
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
