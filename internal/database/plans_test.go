package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// A second pool connection would get its own empty in-memory database.
	db.SetMaxOpenConns(1)

	service := &Service{db: db}

	// Use the actual schema initialization
	if err := service.initSchema(false); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func createTestUser(t *testing.T, service *Service, wallet string) *models.User {
	t.Helper()

	user, err := service.UpsertUserByWallet(context.Background(), wallet)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func TestInsertPlan(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "0xAbC0000000000000000000000000000000000001")

	amount := decimal.NewFromInt(1500)
	plan, err := service.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            user.Id,
		AssetName:         "BTC",
		AssetIndex:        3,
		MonthlyAmountUsdc: amount,
	})
	if err != nil {
		t.Fatalf("InsertPlan failed: %v", err)
	}

	if plan.Id == "" {
		t.Error("Expected generated plan id, got empty string")
	}
	if plan.UserId != user.Id {
		t.Errorf("Expected user id %s, got %s", user.Id, plan.UserId)
	}
	if plan.AssetName != "BTC" {
		t.Errorf("Expected asset BTC, got %s", plan.AssetName)
	}
	if plan.AssetIndex != 3 {
		t.Errorf("Expected asset index 3, got %d", plan.AssetIndex)
	}
	if !plan.MonthlyAmountUsdc.Equal(amount) {
		t.Errorf("Expected amount %s, got %s", amount.String(), plan.MonthlyAmountUsdc.String())
	}
	if plan.Status != models.PlanStatusActive {
		t.Errorf("Expected status active, got %s", plan.Status)
	}
	if plan.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}
}

func TestInsertPlan_BelowMinimumRejectedBySchema(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "0xabc0000000000000000000000000000000000002")

	// The service layer validates the minimum; the CHECK constraint is the
	// backstop for writes that bypass it.
	_, err := service.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            user.Id,
		AssetName:         "ETH",
		AssetIndex:        1,
		MonthlyAmountUsdc: decimal.NewFromInt(999),
	})
	if err == nil {
		t.Fatal("Expected CHECK constraint error for amount below 1000, got nil")
	}
}

func TestGetPlan(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "0xabc0000000000000000000000000000000000003")

	created, err := service.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            user.Id,
		AssetName:         "SOL",
		AssetIndex:        7,
		MonthlyAmountUsdc: decimal.NewFromInt(2000),
	})
	if err != nil {
		t.Fatalf("InsertPlan failed: %v", err)
	}

	plan, err := service.GetPlan(ctx, created.Id)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}

	if plan.Id != created.Id {
		t.Errorf("Expected plan id %s, got %s", created.Id, plan.Id)
	}
	if !plan.MonthlyAmountUsdc.Equal(created.MonthlyAmountUsdc) {
		t.Errorf("Expected amount %s, got %s", created.MonthlyAmountUsdc.String(), plan.MonthlyAmountUsdc.String())
	}
}

func TestGetPlan_NotFound(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := service.GetPlan(context.Background(), "no-such-plan")
	if !errors.Is(err, store.ErrPlanNotFound) {
		t.Errorf("Expected ErrPlanNotFound, got: %v", err)
	}
}

func TestGetPlanOwnerWallet(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := "0xabc0000000000000000000000000000000000004"
	user := createTestUser(t, service, wallet)

	plan, err := service.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            user.Id,
		AssetName:         "BTC",
		AssetIndex:        3,
		MonthlyAmountUsdc: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("InsertPlan failed: %v", err)
	}

	owner, err := service.GetPlanOwnerWallet(ctx, plan.Id)
	if err != nil {
		t.Fatalf("GetPlanOwnerWallet failed: %v", err)
	}
	if owner != wallet {
		t.Errorf("Expected owner %s, got %s", wallet, owner)
	}

	_, err = service.GetPlanOwnerWallet(ctx, "no-such-plan")
	if !errors.Is(err, store.ErrPlanNotFound) {
		t.Errorf("Expected ErrPlanNotFound, got: %v", err)
	}
}

func TestListPlansByUser(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := "0xabc0000000000000000000000000000000000005"
	user := createTestUser(t, service, wallet)
	other := createTestUser(t, service, "0xabc0000000000000000000000000000000000006")

	var ids []string
	for _, asset := range []string{"BTC", "ETH", "SOL"} {
		plan, err := service.InsertPlan(ctx, store.CreatePlanParams{
			UserId:            user.Id,
			AssetName:         asset,
			AssetIndex:        1,
			MonthlyAmountUsdc: decimal.NewFromInt(1200),
		})
		if err != nil {
			t.Fatalf("InsertPlan failed: %v", err)
		}
		ids = append(ids, plan.Id)
	}

	_, err := service.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            other.Id,
		AssetName:         "BTC",
		AssetIndex:        3,
		MonthlyAmountUsdc: decimal.NewFromInt(5000),
	})
	if err != nil {
		t.Fatalf("InsertPlan for other user failed: %v", err)
	}

	plans, err := service.ListPlansByUser(ctx, wallet)
	if err != nil {
		t.Fatalf("ListPlansByUser failed: %v", err)
	}

	if len(plans) != 3 {
		t.Fatalf("Expected 3 plans, got %d", len(plans))
	}

	// Newest first
	if plans[0].Id != ids[2] || plans[1].Id != ids[1] || plans[2].Id != ids[0] {
		t.Errorf("Expected newest-first ordering %v, got [%s %s %s]",
			[]string{ids[2], ids[1], ids[0]}, plans[0].Id, plans[1].Id, plans[2].Id)
	}
}

func TestListPlansByUser_UnknownWalletReturnsEmpty(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	plans, err := service.ListPlansByUser(context.Background(), "0xdead000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("ListPlansByUser failed: %v", err)
	}
	if plans == nil {
		t.Fatal("Expected empty slice, got nil")
	}
	if len(plans) != 0 {
		t.Errorf("Expected 0 plans, got %d", len(plans))
	}
}

func TestListPlansByUser_CaseInsensitiveWallet(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "0xAbC0000000000000000000000000000000000007")

	_, err := service.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            user.Id,
		AssetName:         "BTC",
		AssetIndex:        3,
		MonthlyAmountUsdc: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("InsertPlan failed: %v", err)
	}

	plans, err := service.ListPlansByUser(ctx, "0xABC0000000000000000000000000000000000007")
	if err != nil {
		t.Fatalf("ListPlansByUser failed: %v", err)
	}
	if len(plans) != 1 {
		t.Errorf("Expected 1 plan for checksum-cased wallet, got %d", len(plans))
	}
}

func TestUpdatePlanStatus(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "0xabc0000000000000000000000000000000000008")

	plan, err := service.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            user.Id,
		AssetName:         "BTC",
		AssetIndex:        3,
		MonthlyAmountUsdc: decimal.NewFromInt(1500),
	})
	if err != nil {
		t.Fatalf("InsertPlan failed: %v", err)
	}

	updated, err := service.UpdatePlanStatus(ctx, plan.Id, models.PlanStatusPaused)
	if err != nil {
		t.Fatalf("UpdatePlanStatus failed: %v", err)
	}
	if updated.Status != models.PlanStatusPaused {
		t.Errorf("Expected status paused, got %s", updated.Status)
	}

	reread, err := service.GetPlan(ctx, plan.Id)
	if err != nil {
		t.Fatalf("GetPlan after update failed: %v", err)
	}
	if reread.Status != models.PlanStatusPaused {
		t.Errorf("Expected persisted status paused, got %s", reread.Status)
	}
}

func TestUpdatePlanStatus_NotFound(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := service.UpdatePlanStatus(context.Background(), "no-such-plan", models.PlanStatusCancelled)
	if !errors.Is(err, store.ErrPlanNotFound) {
		t.Errorf("Expected ErrPlanNotFound, got: %v", err)
	}
}

func TestUpdatePlanStatus_CancelledIsTerminal(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "0xabc0000000000000000000000000000000000009")

	plan, err := service.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            user.Id,
		AssetName:         "BTC",
		AssetIndex:        3,
		MonthlyAmountUsdc: decimal.NewFromInt(1500),
	})
	if err != nil {
		t.Fatalf("InsertPlan failed: %v", err)
	}

	if _, err := service.UpdatePlanStatus(ctx, plan.Id, models.PlanStatusCancelled); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	// Every transition out of cancelled is rejected at the row level.
	for _, next := range []models.PlanStatus{models.PlanStatusActive, models.PlanStatusPaused, models.PlanStatusCancelled} {
		if _, err := service.UpdatePlanStatus(ctx, plan.Id, next); !errors.Is(err, store.ErrPlanCancelled) {
			t.Errorf("Transition to %s: expected ErrPlanCancelled, got: %v", next, err)
		}
	}

	reread, err := service.GetPlan(ctx, plan.Id)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if reread.Status != models.PlanStatusCancelled {
		t.Errorf("Expected plan to stay cancelled, got %s", reread.Status)
	}
}

func TestUpdatePlanStatus_UnknownStatusRejectedBySchema(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "0xabc000000000000000000000000000000000000a")

	plan, err := service.InsertPlan(ctx, store.CreatePlanParams{
		UserId:            user.Id,
		AssetName:         "BTC",
		AssetIndex:        3,
		MonthlyAmountUsdc: decimal.NewFromInt(1500),
	})
	if err != nil {
		t.Fatalf("InsertPlan failed: %v", err)
	}

	// The service layer validates the enum; the CHECK constraint is the
	// backstop for writes that bypass it.
	if _, err := service.UpdatePlanStatus(ctx, plan.Id, models.PlanStatus("archived")); err == nil {
		t.Fatal("Expected CHECK constraint error for unknown status, got nil")
	}

	reread, err := service.GetPlan(ctx, plan.Id)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if reread.Status != models.PlanStatusActive {
		t.Errorf("Expected plan to stay active, got %s", reread.Status)
	}
}
