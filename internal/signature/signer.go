package signature

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// LocalSigner signs canonical messages with an in-process private key. It
// stands in for a user's wallet in CLI tools and tests; in production the
// primary-wallet signer is an external collaborator (the browser wallet).
type LocalSigner struct {
	priv    *ecdsa.PrivateKey
	address string
}

// NewLocalSigner wraps an in-memory private key.
func NewLocalSigner(priv *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		priv:    priv,
		address: crypto.PubkeyToAddress(priv.PublicKey).Hex(),
	}
}

// ParsePrivateKey parses a hex-encoded secp256k1 private key. The 0x prefix
// is optional.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return priv, nil
}

// NewLocalSignerFromHex wraps a hex-encoded private key.
func NewLocalSignerFromHex(hexKey string) (*LocalSigner, error) {
	priv, err := ParsePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	return NewLocalSigner(priv), nil
}

// Address returns the signer's EIP-55 wallet address.
func (s *LocalSigner) Address() string {
	return s.address
}

// SignAction signs a canonical message. The message is expected to come from
// BuildMessage so the verifier can recompute the exact bytes.
func (s *LocalSigner) SignAction(message string) ([]byte, error) {
	return SignMessage(s.priv, message)
}
