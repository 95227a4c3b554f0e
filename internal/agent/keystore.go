// Package agent provisions the secondary signing identity a user delegates
// exchange actions to: an encrypted-at-rest keypair that is generated once,
// registered with the venue as an authorized delegate, and reused across
// sessions.
package agent

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/store"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Keystore persists one agent private key per user, AES-256-GCM encrypted
// under a master key. The plaintext key exists only in process memory; the
// store sees nonce || ciphertext blobs.
type Keystore struct {
	store store.PlanStore
	aead  cipher.AEAD
}

// NewKeystore builds a keystore from a base64-encoded 32-byte master key.
func NewKeystore(st store.PlanStore, base64MasterKey string) (*Keystore, error) {
	mk, err := base64.StdEncoding.DecodeString(base64MasterKey)
	if err != nil {
		return nil, fmt.Errorf("master key decode: %w", err)
	}
	if len(mk) != 32 {
		return nil, errors.New("master key must be 32 bytes")
	}

	block, err := aes.NewCipher(mk)
	if err != nil {
		return nil, fmt.Errorf("master key cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("master key gcm: %w", err)
	}

	return &Keystore{store: st, aead: aead}, nil
}

func (k *Keystore) encrypt(plain []byte) ([]byte, error) {
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return append(nonce, k.aead.Seal(nil, nonce, plain, nil)...), nil
}

func (k *Keystore) decrypt(blob []byte) ([]byte, error) {
	ns := k.aead.NonceSize()
	if len(blob) < ns {
		return nil, errors.New("ciphertext too short")
	}
	return k.aead.Open(nil, blob[:ns], blob[ns:], nil)
}

// DeriveAddress returns the EIP-55 address of an agent key. Pure derivation,
// no I/O.
func DeriveAddress(priv *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(priv.PublicKey).Hex()
}

// GetOrCreate returns the persisted agent key for the wallet's user, creating
// user and key on first need. Once a key is persisted it is never
// regenerated: callers always get the stored key back. Generation is cheap,
// so a concurrent caller that loses the insert race simply discards its
// candidate and adopts the winner; created reports whether this call's
// candidate won.
func (k *Keystore) GetOrCreate(ctx context.Context, userAddress string) (*models.AgentWallet, *ecdsa.PrivateKey, bool, error) {
	user, err := k.store.UpsertUserByWallet(ctx, userAddress)
	if err != nil {
		return nil, nil, false, fmt.Errorf("unable to resolve user: %w", err)
	}

	row, err := k.store.GetAgentWallet(ctx, user.Id)
	if err == nil {
		priv, err := k.openKey(row)
		return row, priv, false, err
	}
	if !errors.Is(err, store.ErrAgentWalletNotFound) {
		return nil, nil, false, fmt.Errorf("unable to load agent wallet: %w", err)
	}

	candidate, err := crypto.GenerateKey()
	if err != nil {
		return nil, nil, false, fmt.Errorf("unable to generate agent key: %w", err)
	}
	candidateAddress := DeriveAddress(candidate)

	enc, err := k.encrypt(crypto.FromECDSA(candidate))
	if err != nil {
		return nil, nil, false, fmt.Errorf("unable to encrypt agent key: %w", err)
	}

	row, err = k.store.CreateAgentWallet(ctx, store.CreateAgentWalletParams{
		UserId:        user.Id,
		AgentAddress:  candidateAddress,
		EncPrivateKey: enc,
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("unable to persist agent key: %w", err)
	}

	created := strings.EqualFold(row.AgentAddress, candidateAddress)
	if created {
		zap.L().Info("Agent key generated",
			zap.String("wallet", user.WalletAddress),
			zap.String("agent_address", row.AgentAddress))
		return row, candidate, true, nil
	}

	// Lost the insert race: another provisioner's key is the agent now.
	zap.L().Debug("Agent key generation lost race, adopting stored key",
		zap.String("wallet", user.WalletAddress),
		zap.String("agent_address", row.AgentAddress))
	priv, err := k.openKey(row)
	return row, priv, false, err
}

// openKey decrypts and parses a stored agent key, cross-checking that the
// key still derives the persisted address.
func (k *Keystore) openKey(row *models.AgentWallet) (*ecdsa.PrivateKey, error) {
	plain, err := k.decrypt(row.EncPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt agent key: %w", err)
	}
	priv, err := crypto.ToECDSA(plain)
	if err != nil {
		return nil, fmt.Errorf("stored agent key is corrupt: %w", err)
	}
	if !strings.EqualFold(DeriveAddress(priv), row.AgentAddress) {
		return nil, fmt.Errorf("stored agent key does not match address %s", row.AgentAddress)
	}
	return priv, nil
}
