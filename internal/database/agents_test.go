package database

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"ezdawg-sip-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

func TestCreateAgentWallet(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "0xaaa0000000000000000000000000000000000001")

	encKey := []byte("nonce-and-ciphertext")
	agent, err := service.CreateAgentWallet(ctx, store.CreateAgentWalletParams{
		UserId:        user.Id,
		AgentAddress:  "0x1111111111111111111111111111111111111111",
		EncPrivateKey: encKey,
	})
	if err != nil {
		t.Fatalf("CreateAgentWallet failed: %v", err)
	}

	if agent.UserId != user.Id {
		t.Errorf("Expected user id %s, got %s", user.Id, agent.UserId)
	}
	if agent.AgentAddress != "0x1111111111111111111111111111111111111111" {
		t.Errorf("Expected stored agent address, got %s", agent.AgentAddress)
	}
	if !bytes.Equal(agent.EncPrivateKey, encKey) {
		t.Error("Expected encrypted key bytes to round-trip")
	}
	if agent.Approved {
		t.Error("Expected new agent wallet to start unapproved")
	}
}

func TestCreateAgentWallet_KeepsFirstKey(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "0xaaa0000000000000000000000000000000000002")

	first, err := service.CreateAgentWallet(ctx, store.CreateAgentWalletParams{
		UserId:        user.Id,
		AgentAddress:  "0x1111111111111111111111111111111111111111",
		EncPrivateKey: []byte("first-key"),
	})
	if err != nil {
		t.Fatalf("First CreateAgentWallet failed: %v", err)
	}

	// A concurrent provisioner losing the insert race must get the winner back.
	second, err := service.CreateAgentWallet(ctx, store.CreateAgentWalletParams{
		UserId:        user.Id,
		AgentAddress:  "0x2222222222222222222222222222222222222222",
		EncPrivateKey: []byte("second-key"),
	})
	if err != nil {
		t.Fatalf("Second CreateAgentWallet failed: %v", err)
	}

	if second.AgentAddress != first.AgentAddress {
		t.Errorf("Expected winning address %s, got %s", first.AgentAddress, second.AgentAddress)
	}
	if !bytes.Equal(second.EncPrivateKey, first.EncPrivateKey) {
		t.Error("Expected winning encrypted key, got the losing one")
	}
}

func TestGetAgentWallet_NotFound(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := service.GetAgentWallet(context.Background(), "no-such-user")
	if !errors.Is(err, store.ErrAgentWalletNotFound) {
		t.Errorf("Expected ErrAgentWalletNotFound, got: %v", err)
	}
}

func TestSetAgentApproved(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "0xaaa0000000000000000000000000000000000003")

	_, err := service.CreateAgentWallet(ctx, store.CreateAgentWalletParams{
		UserId:        user.Id,
		AgentAddress:  "0x1111111111111111111111111111111111111111",
		EncPrivateKey: []byte("key"),
	})
	if err != nil {
		t.Fatalf("CreateAgentWallet failed: %v", err)
	}

	if err := service.SetAgentApproved(ctx, user.Id, true); err != nil {
		t.Fatalf("SetAgentApproved failed: %v", err)
	}

	agent, err := service.GetAgentWallet(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetAgentWallet failed: %v", err)
	}
	if !agent.Approved {
		t.Error("Expected agent wallet to be approved after update")
	}
}

func TestSetAgentApproved_NotFound(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	err := service.SetAgentApproved(context.Background(), "no-such-user", true)
	if !errors.Is(err, store.ErrAgentWalletNotFound) {
		t.Errorf("Expected ErrAgentWalletNotFound, got: %v", err)
	}
}

func TestListPendingAgents(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	pendingUser := createTestUser(t, service, "0xaaa0000000000000000000000000000000000004")
	approvedUser := createTestUser(t, service, "0xaaa0000000000000000000000000000000000005")

	_, err := service.CreateAgentWallet(ctx, store.CreateAgentWalletParams{
		UserId:        pendingUser.Id,
		AgentAddress:  "0x3333333333333333333333333333333333333333",
		EncPrivateKey: []byte("pending-key"),
	})
	if err != nil {
		t.Fatalf("CreateAgentWallet failed: %v", err)
	}

	_, err = service.CreateAgentWallet(ctx, store.CreateAgentWalletParams{
		UserId:        approvedUser.Id,
		AgentAddress:  "0x4444444444444444444444444444444444444444",
		EncPrivateKey: []byte("approved-key"),
	})
	if err != nil {
		t.Fatalf("CreateAgentWallet failed: %v", err)
	}
	if err := service.SetAgentApproved(ctx, approvedUser.Id, true); err != nil {
		t.Fatalf("SetAgentApproved failed: %v", err)
	}

	pending, err := service.ListPendingAgents(ctx)
	if err != nil {
		t.Fatalf("ListPendingAgents failed: %v", err)
	}

	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending agent, got %d", len(pending))
	}
	if pending[0].UserId != pendingUser.Id {
		t.Errorf("Expected user id %s, got %s", pendingUser.Id, pending[0].UserId)
	}
	if pending[0].WalletAddress != pendingUser.WalletAddress {
		t.Errorf("Expected wallet %s, got %s", pendingUser.WalletAddress, pending[0].WalletAddress)
	}
	if pending[0].AgentAddress != "0x3333333333333333333333333333333333333333" {
		t.Errorf("Expected pending agent address, got %s", pending[0].AgentAddress)
	}
}

func TestListPendingAgents_Empty(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	pending, err := service.ListPendingAgents(context.Background())
	if err != nil {
		t.Fatalf("ListPendingAgents failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no pending agents, got %d", len(pending))
	}
}
