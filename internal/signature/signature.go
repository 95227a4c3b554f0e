// Package signature implements the signed-request protocol: a canonical
// plain-text message carrying an action label, ordered parameters, and a
// millisecond-timestamp nonce, signed with the standard Ethereum
// personal-message scheme. Verification recovers the signer address, which
// serves as the authenticated principal; there is no session or token.
package signature

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Sentinel errors for the authentication failure taxonomy. All of them map
// to a 401 at the HTTP boundary.
var (
	ErrMissingNonce     = errors.New("message has no trailing numeric nonce")
	ErrSignatureExpired = errors.New("signature nonce is older than the freshness window")
	ErrFutureNonce      = errors.New("signature nonce is too far in the future")
	ErrBadSignature     = errors.New("signature recovery failed")
)

// Param is one key/value pair of a signable message. Order is significant:
// the verifier recomputes recovery over the exact bytes the client signed,
// so parameter order must be fixed by the caller, not by a map.
type Param struct {
	Key   string
	Value string
}

// personalMessagePrefix is the EIP-191 prefix for personal_sign payloads.
const personalMessagePrefix = "\x19Ethereum Signed Message:\n"

// nonceRe extracts the trailing nonce line. The nonce must be the final
// token of the message.
var nonceRe = regexp.MustCompile(`Nonce:\s*(\d+)\s*$`)

// BuildMessage renders the canonical signable message for an action, with a
// nonce taken from the wall clock at call time:
//
//	<action>
//	key: value, key2: value2
//	Nonce: <epoch-milliseconds>
func BuildMessage(action string, params []Param) string {
	return buildMessageWithNonce(action, params, time.Now().UnixMilli())
}

func buildMessageWithNonce(action string, params []Param, nonceMs int64) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.Key+": "+p.Value)
	}
	return action + "\n" + strings.Join(parts, ", ") + "\nNonce: " + strconv.FormatInt(nonceMs, 10)
}

// personalHash returns the Keccak-256 digest of the prefixed message, the
// exact digest wallets sign for personal_sign requests.
func personalHash(message string) []byte {
	prefixed := personalMessagePrefix + strconv.Itoa(len(message)) + message
	return crypto.Keccak256([]byte(prefixed))
}

// SignMessage signs a canonical message with the given key, producing the
// 65-byte [R || S || V] signature a wallet would. V is normalized to 27/28,
// matching what browser wallets emit.
func SignMessage(priv *ecdsa.PrivateKey, message string) ([]byte, error) {
	sig, err := crypto.Sign(personalHash(message), priv)
	if err != nil {
		return nil, fmt.Errorf("unable to sign message: %w", err)
	}
	if len(sig) == 65 && sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// DecodeSignature parses a 0x-prefixed hex signature into raw bytes.
func DecodeSignature(hexSig string) ([]byte, error) {
	if !strings.HasPrefix(hexSig, "0x") {
		hexSig = "0x" + hexSig
	}
	raw, err := hexutil.Decode(hexSig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return raw, nil
}

// EncodeSignature renders a raw signature as 0x-prefixed hex.
func EncodeSignature(sig []byte) string {
	return hexutil.Encode(sig)
}

// Verifier checks signed requests for freshness and recovers the signer.
// Verification is stateless: no record of seen nonces is kept, so an
// identical signed message stays valid until its nonce leaves the window.
type Verifier struct {
	window  time.Duration
	maxSkew time.Duration
	now     func() time.Time
}

// NewVerifier builds a Verifier with the given freshness window and forward
// clock-skew tolerance. The server defaults are 60s and 5s.
func NewVerifier(window, maxSkew time.Duration) *Verifier {
	return &Verifier{
		window:  window,
		maxSkew: maxSkew,
		now:     time.Now,
	}
}

// Verify authenticates a signed message and returns the EIP-55 address of
// the signer. Errors wrap one of the package sentinels:
//
//   - ErrMissingNonce: no trailing `Nonce: <digits>` line
//   - ErrSignatureExpired: nonce older than the window (boundary inclusive:
//     a nonce exactly window-old is still accepted)
//   - ErrFutureNonce: nonce more than maxSkew ahead of the verifier clock
//   - ErrBadSignature: malformed signature or failed key recovery
func (v *Verifier) Verify(message string, sig []byte) (string, error) {
	m := nonceRe.FindStringSubmatch(message)
	if m == nil {
		return "", ErrMissingNonce
	}
	nonceMs, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingNonce, err)
	}

	age := v.now().UnixMilli() - nonceMs
	if age > v.window.Milliseconds() {
		return "", fmt.Errorf("%w: age %dms exceeds %dms", ErrSignatureExpired, age, v.window.Milliseconds())
	}
	if age < -v.maxSkew.Milliseconds() {
		return "", fmt.Errorf("%w: %dms ahead of verifier clock", ErrFutureNonce, -age)
	}

	if len(sig) != 65 {
		return "", fmt.Errorf("%w: signature must be 65 bytes, got %d", ErrBadSignature, len(sig))
	}
	// Wallets emit V as 27/28; recovery wants 0/1. Accept both, never
	// mutate the caller's slice.
	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] == 27 || normalized[64] == 28 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return "", fmt.Errorf("%w: invalid recovery id %d", ErrBadSignature, sig[64])
	}

	pub, err := crypto.SigToPub(personalHash(message), normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	return crypto.PubkeyToAddress(*pub).Hex(), nil
}
