package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestNewService_RequiresURL(t *testing.T) {
	_, err := NewService(context.Background(), models.PostgresConfig{
		MaxOpenConns: 10,
		PingTimeout:  time.Second,
	})
	if err == nil {
		t.Fatal("Expected error for missing connection URL, got nil")
	}
}

func TestNewService_RejectsBadPoolConfig(t *testing.T) {
	_, err := NewService(context.Background(), models.PostgresConfig{
		URL:         "postgres://localhost/ezdawg",
		PingTimeout: time.Second,
	})
	if err == nil {
		t.Fatal("Expected error for zero max open connections, got nil")
	}

	_, err = NewService(context.Background(), models.PostgresConfig{
		URL:          "postgres://localhost/ezdawg",
		MaxOpenConns: 10,
	})
	if err == nil {
		t.Fatal("Expected error for zero ping timeout, got nil")
	}
}

// ---------- Integration tests (need a reachable database) ----------

// setupPostgres connects to the database named by TEST_DATABASE_URL and
// skips the test when it is unset. Tests create their own rows under unique
// wallets and remove them on cleanup, so a shared database stays clean.
func setupPostgres(t *testing.T) *Service {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres integration test")
	}

	service, err := NewService(context.Background(), models.PostgresConfig{
		URL:          url,
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test postgres: %v", err)
	}
	t.Cleanup(service.Close)
	return service
}

func testWallet() string {
	return "0x00000000" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

func createPostgresUser(t *testing.T, service *Service, wallet string) *models.User {
	t.Helper()

	user, err := service.UpsertUserByWallet(context.Background(), wallet)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	t.Cleanup(func() {
		service.db.Exec("DELETE FROM users WHERE id = $1", user.Id)
	})
	return user
}

func TestPostgresUserRoundTrip(t *testing.T) {
	service := setupPostgres(t)
	ctx := context.Background()

	wallet := testWallet()
	user := createPostgresUser(t, service, wallet)
	if user.WalletAddress != wallet {
		t.Errorf("Stored wallet = %s, want %s", user.WalletAddress, wallet)
	}

	again, err := service.UpsertUserByWallet(ctx, strings.ToUpper(wallet[2:]))
	if err != nil {
		t.Fatalf("Repeat upsert failed: %v", err)
	}
	if again.Id != user.Id {
		t.Errorf("Repeat upsert id = %s, want the original %s", again.Id, user.Id)
	}

	fetched, err := service.GetUserByWallet(ctx, wallet)
	if err != nil {
		t.Fatalf("GetUserByWallet failed: %v", err)
	}
	if fetched.Id != user.Id {
		t.Errorf("Fetched id = %s, want %s", fetched.Id, user.Id)
	}

	if _, err := service.GetUserByWallet(ctx, testWallet()); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Unknown wallet error = %v, want ErrUserNotFound", err)
	}
}

func TestPostgresPlanLifecycle(t *testing.T) {
	service := setupPostgres(t)
	ctx := context.Background()

	wallet := testWallet()
	user := createPostgresUser(t, service, wallet)

	first, err := service.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            user.Id,
		AssetName:         "BTC",
		AssetIndex:        3,
		MonthlyAmountUsdc: decimal.NewFromInt(1500),
	})
	if err != nil {
		t.Fatalf("InsertPlan failed: %v", err)
	}
	second, err := service.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            user.Id,
		AssetName:         "ETH",
		AssetIndex:        1,
		MonthlyAmountUsdc: decimal.NewFromInt(2000),
	})
	if err != nil {
		t.Fatalf("InsertPlan failed: %v", err)
	}

	plans, err := service.ListPlansByUser(ctx, wallet)
	if err != nil {
		t.Fatalf("ListPlansByUser failed: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("Listed %d plans, want 2", len(plans))
	}
	if plans[0].Id != second.Id {
		t.Errorf("First listed plan = %s, want the newest %s", plans[0].Id, second.Id)
	}

	owner, err := service.GetPlanOwnerWallet(ctx, first.Id)
	if err != nil {
		t.Fatalf("GetPlanOwnerWallet failed: %v", err)
	}
	if owner != wallet {
		t.Errorf("Plan owner = %s, want %s", owner, wallet)
	}

	paused, err := service.UpdatePlanStatus(ctx, first.Id, models.PlanStatusPaused)
	if err != nil {
		t.Fatalf("UpdatePlanStatus to paused failed: %v", err)
	}
	if paused.Status != models.PlanStatusPaused {
		t.Errorf("Status = %s, want paused", paused.Status)
	}

	if _, err := service.UpdatePlanStatus(ctx, first.Id, models.PlanStatusCancelled); err != nil {
		t.Fatalf("UpdatePlanStatus to cancelled failed: %v", err)
	}
	if _, err := service.UpdatePlanStatus(ctx, first.Id, models.PlanStatusActive); !errors.Is(err, store.ErrPlanCancelled) {
		t.Errorf("Transition out of cancelled error = %v, want ErrPlanCancelled", err)
	}

	if _, err := service.UpdatePlanStatus(ctx, uuid.New().String(), models.PlanStatusPaused); !errors.Is(err, store.ErrPlanNotFound) {
		t.Errorf("Unknown plan update error = %v, want ErrPlanNotFound", err)
	}

	// The amount CHECK lives in the schema too, not only the service layer.
	if _, err := service.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            user.Id,
		AssetName:         "DOGE",
		AssetIndex:        12,
		MonthlyAmountUsdc: decimal.NewFromInt(500),
	}); err == nil {
		t.Error("Expected CHECK violation for a below-minimum amount")
	}
}

func TestPostgresAgentWalletConvergence(t *testing.T) {
	service := setupPostgres(t)
	ctx := context.Background()

	wallet := testWallet()
	user := createPostgresUser(t, service, wallet)

	if _, err := service.GetAgentWallet(ctx, user.Id); !errors.Is(err, store.ErrAgentWalletNotFound) {
		t.Errorf("Missing agent error = %v, want ErrAgentWalletNotFound", err)
	}

	winner, err := service.CreateAgentWallet(ctx, store.CreateAgentWalletParams{
		UserId:        user.Id,
		AgentAddress:  "0x00000000000000000000000000000000000000aa",
		EncPrivateKey: []byte("winner-blob"),
	})
	if err != nil {
		t.Fatalf("CreateAgentWallet failed: %v", err)
	}

	loser, err := service.CreateAgentWallet(ctx, store.CreateAgentWalletParams{
		UserId:        user.Id,
		AgentAddress:  "0x00000000000000000000000000000000000000bb",
		EncPrivateKey: []byte("loser-blob"),
	})
	if err != nil {
		t.Fatalf("Second CreateAgentWallet failed: %v", err)
	}
	if loser.AgentAddress != winner.AgentAddress {
		t.Errorf("Racing insert returned %s, want the winning %s", loser.AgentAddress, winner.AgentAddress)
	}

	pending, err := service.ListPendingAgents(ctx)
	if err != nil {
		t.Fatalf("ListPendingAgents failed: %v", err)
	}
	if !containsPendingAgent(pending, user.Id) {
		t.Error("Expected the fresh agent in the pending list")
	}

	if err := service.SetAgentApproved(ctx, user.Id, true); err != nil {
		t.Fatalf("SetAgentApproved failed: %v", err)
	}
	row, err := service.GetAgentWallet(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetAgentWallet after approval failed: %v", err)
	}
	if !row.Approved {
		t.Error("Expected approved flag to persist")
	}

	pending, err = service.ListPendingAgents(ctx)
	if err != nil {
		t.Fatalf("ListPendingAgents after approval failed: %v", err)
	}
	if containsPendingAgent(pending, user.Id) {
		t.Error("Approved agent still listed as pending")
	}

	if err := service.SetAgentApproved(ctx, uuid.New().String(), true); !errors.Is(err, store.ErrAgentWalletNotFound) {
		t.Errorf("Approval for unknown user error = %v, want ErrAgentWalletNotFound", err)
	}
}

// containsPendingAgent scans by user id because a shared test database may
// hold pending agents from other runs.
func containsPendingAgent(pending []models.PendingAgent, userId string) bool {
	for _, p := range pending {
		if p.UserId == userId {
			return true
		}
	}
	return false
}
