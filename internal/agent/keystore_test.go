package agent

import (
	"bytes"
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"ezdawg-sip-go/internal/database"
	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/store"

	"github.com/ethereum/go-ethereum/crypto"
	_ "github.com/mattn/go-sqlite3"
)

func testMasterKey() string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
}

// setupKeystore backs the keystore with an in-memory SQLite store pinned to
// one connection so every query sees the same database.
func setupKeystore(t *testing.T) (*Keystore, store.PlanStore, func()) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}

	ks, err := NewKeystore(db, testMasterKey())
	if err != nil {
		db.Close()
		t.Fatalf("Failed to build keystore: %v", err)
	}

	return ks, db, db.Close
}

func TestNewKeystore_RejectsBadMasterKey(t *testing.T) {
	if _, err := NewKeystore(nil, "not base64!!"); err == nil {
		t.Error("Expected error for non-base64 master key, got nil")
	}

	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	if _, err := NewKeystore(nil, short); err == nil {
		t.Error("Expected error for short master key, got nil")
	}
}

func TestKeystoreEncryptDecryptRoundTrip(t *testing.T) {
	ks, _, cleanup := setupKeystore(t)
	defer cleanup()

	plain := []byte("agent private key bytes")
	blob, err := ks.encrypt(plain)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if bytes.Contains(blob, plain) {
		t.Error("Ciphertext contains the plaintext")
	}

	back, err := ks.decrypt(blob)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if !bytes.Equal(back, plain) {
		t.Errorf("Round trip mismatch: got %q, want %q", back, plain)
	}

	if _, err := ks.decrypt(blob[:4]); err == nil {
		t.Error("Expected error for truncated ciphertext, got nil")
	}
}

func TestGetOrCreate_SequentialCallsReturnSameKey(t *testing.T) {
	ks, _, cleanup := setupKeystore(t)
	defer cleanup()

	ctx := context.Background()
	wallet := "0xAAA0000000000000000000000000000000000001"

	row1, priv1, created1, err := ks.GetOrCreate(ctx, wallet)
	if err != nil {
		t.Fatalf("First GetOrCreate failed: %v", err)
	}
	if !created1 {
		t.Error("Expected first call to create the key")
	}

	row2, priv2, created2, err := ks.GetOrCreate(ctx, wallet)
	if err != nil {
		t.Fatalf("Second GetOrCreate failed: %v", err)
	}
	if created2 {
		t.Error("Expected second call to fetch the stored key, not create")
	}

	if row1.AgentAddress != row2.AgentAddress {
		t.Errorf("Agent address changed between calls: %s vs %s", row1.AgentAddress, row2.AgentAddress)
	}
	if !bytes.Equal(crypto.FromECDSA(priv1), crypto.FromECDSA(priv2)) {
		t.Error("Private key changed between calls")
	}
}

func TestGetOrCreate_DifferentUsersGetDifferentKeys(t *testing.T) {
	ks, _, cleanup := setupKeystore(t)
	defer cleanup()

	ctx := context.Background()
	rowA, _, _, err := ks.GetOrCreate(ctx, "0xaaa0000000000000000000000000000000000002")
	if err != nil {
		t.Fatalf("GetOrCreate for first user failed: %v", err)
	}
	rowB, _, _, err := ks.GetOrCreate(ctx, "0xaaa0000000000000000000000000000000000003")
	if err != nil {
		t.Fatalf("GetOrCreate for second user failed: %v", err)
	}

	if rowA.AgentAddress == rowB.AgentAddress {
		t.Error("Two users share the same agent address")
	}
}

func TestGetOrCreate_ConcurrentCallersConverge(t *testing.T) {
	ks, _, cleanup := setupKeystore(t)
	defer cleanup()

	ctx := context.Background()
	wallet := "0xaaa0000000000000000000000000000000000004"

	const callers = 8
	addresses := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			row, _, _, err := ks.GetOrCreate(ctx, wallet)
			if err != nil {
				t.Errorf("Concurrent GetOrCreate failed: %v", err)
				return
			}
			addresses[n] = row.AgentAddress
		}(i)
	}
	wg.Wait()

	// After storage settles, every caller must observe the same winning key.
	row, _, _, err := ks.GetOrCreate(ctx, wallet)
	if err != nil {
		t.Fatalf("Settling GetOrCreate failed: %v", err)
	}
	for i, addr := range addresses {
		if addr != row.AgentAddress {
			t.Errorf("Caller %d observed agent %s, want %s", i, addr, row.AgentAddress)
		}
	}
}

func TestGetOrCreate_StoredKeyDecryptsToSameIdentity(t *testing.T) {
	ks, st, cleanup := setupKeystore(t)
	defer cleanup()

	ctx := context.Background()
	wallet := "0xaaa0000000000000000000000000000000000005"

	row, priv, _, err := ks.GetOrCreate(ctx, wallet)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if DeriveAddress(priv) != row.AgentAddress {
		t.Errorf("Derived address %s does not match stored %s", DeriveAddress(priv), row.AgentAddress)
	}

	// The store must never hold plaintext key material.
	user, err := st.GetUserByWallet(ctx, wallet)
	if err != nil {
		t.Fatalf("GetUserByWallet failed: %v", err)
	}
	stored, err := st.GetAgentWallet(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetAgentWallet failed: %v", err)
	}
	if bytes.Contains(stored.EncPrivateKey, crypto.FromECDSA(priv)) {
		t.Error("Store contains plaintext private key bytes")
	}
}
