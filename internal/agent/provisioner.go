package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ezdawg-sip-go/internal/exchange"
	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/signature"
	"ezdawg-sip-go/internal/store"

	"go.uber.org/zap"
)

// Venue is the slice of the exchange client the provisioner needs: who is
// authorized to act for a user, and the approval action itself.
type Venue interface {
	ExtraAgents(ctx context.Context, userAddress string) ([]models.AgentAuthorization, error)
	ApproveAgent(ctx context.Context, signer exchange.ActionSigner, agentAddress, agentName string) error
}

// SignerFactory produces the signing client for a user's primary wallet. In
// the CLIs this wraps a local key; in the hosted deployment the primary
// wallet lives client-side and the factory returns an error, which keeps
// Bootstrap out of the server request path by construction.
type SignerFactory func(userAddress string) (exchange.ActionSigner, error)

// Session is the agent signing client registered for a user after bootstrap.
// Trade calls pass it to the exchange client as the acting delegate. It
// satisfies exchange.ActionSigner.
type Session struct {
	userAddress string
	signer      *signature.LocalSigner
}

// UserAddress returns the wallet of the user this agent acts for.
func (s *Session) UserAddress() string {
	return s.userAddress
}

// Address returns the agent's own address.
func (s *Session) Address() string {
	return s.signer.Address()
}

// SignAction signs a canonical action message with the agent key.
func (s *Session) SignAction(message string) ([]byte, error) {
	return s.signer.SignAction(message)
}

// Provisioner runs the agent bootstrap state machine:
//
//	NoAgent → KeyGenerated → ClientReady → ApprovalChecked → Approved
//
// All state lives on the instance (stores, caches, sessions) and is injected
// at construction; nothing hides in package globals.
type Provisioner struct {
	keystore   *Keystore
	store      store.PlanStore
	venue      Venue
	signers    SignerFactory
	agentLabel string
	maxRetries int

	mu             sync.Mutex
	primarySigners map[string]exchange.ActionSigner
	sessions       map[string]*Session
}

// ProvisionerConfig wires a Provisioner.
type ProvisionerConfig struct {
	Keystore *Keystore
	Store    store.PlanStore
	Venue    Venue
	Signers  SignerFactory
	// AgentLabel is the human-readable name sent with approval requests.
	AgentLabel string
	// MaxRetries caps BootstrapWithRetry attempts.
	MaxRetries int
}

func NewProvisioner(cfg ProvisionerConfig) *Provisioner {
	label := cfg.AgentLabel
	if label == "" {
		label = "ezdawg-sip"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	return &Provisioner{
		keystore:       cfg.Keystore,
		store:          cfg.Store,
		venue:          cfg.Venue,
		signers:        cfg.Signers,
		agentLabel:     label,
		maxRetries:     maxRetries,
		primarySigners: make(map[string]exchange.ActionSigner),
		sessions:       make(map[string]*Session),
	}
}

// EnsureAgentKey resolves the user's agent address, generating and persisting
// a key on first need. Idempotent: later calls return the same address.
func (p *Provisioner) EnsureAgentKey(ctx context.Context, userAddress string) (string, bool, error) {
	row, _, created, err := p.keystore.GetOrCreate(ctx, userAddress)
	if err != nil {
		return "", false, err
	}
	return row.AgentAddress, created, nil
}

// EnsureAgent is the API-facing variant: get-or-create the key and report
// the current approval state. The stored flag short-circuits; while it is
// still false the venue is consulted and the flag persisted once the venue
// confirms. No approval is ever submitted here; that needs the primary
// wallet, which the server does not hold.
func (p *Provisioner) EnsureAgent(ctx context.Context, userAddress string) (string, bool, error) {
	row, _, _, err := p.keystore.GetOrCreate(ctx, userAddress)
	if err != nil {
		return "", false, err
	}
	if row.Approved {
		return row.AgentAddress, true, nil
	}

	approved := p.CheckApproval(ctx, userAddress, row.AgentAddress)
	if approved {
		if err := p.store.SetAgentApproved(ctx, row.UserId, true); err != nil {
			zap.L().Warn("Failed to persist agent approval flag",
				zap.String("wallet", userAddress),
				zap.Error(err))
		}
	}
	return row.AgentAddress, approved, nil
}

// CheckApproval asks the venue whether agentAddress is an authorized
// delegate for userAddress. An unreachable venue or an empty answer counts
// as not-approved: a false negative only costs a redundant approval, whereas
// a false positive would skip authorization that is genuinely missing.
func (p *Provisioner) CheckApproval(ctx context.Context, userAddress, agentAddress string) bool {
	agents, err := p.venue.ExtraAgents(ctx, userAddress)
	if err != nil {
		zap.L().Warn("Approval check failed, treating agent as not approved",
			zap.String("wallet", userAddress),
			zap.String("agent_address", agentAddress),
			zap.Error(err))
		return false
	}

	for _, a := range agents {
		if strings.EqualFold(a.Address, agentAddress) {
			return true
		}
	}
	return false
}

// ApproveAgentIfNeeded submits the approval action unless the agent is
// already approved. A failed submission is a warning, not an error: the
// dominant cause is an approval that already exists on the venue, and a
// genuinely missing authorization will fail loudly at the first trade.
// The return value reports whether the agent should now be considered
// approved.
func (p *Provisioner) ApproveAgentIfNeeded(ctx context.Context, signer exchange.ActionSigner, agentAddress string, alreadyApproved bool) bool {
	if alreadyApproved {
		zap.L().Debug("Agent already approved, skipping approval",
			zap.String("agent_address", agentAddress))
		return true
	}

	if err := p.venue.ApproveAgent(ctx, signer, agentAddress, p.agentLabel); err != nil {
		zap.L().Warn("Agent approval failed, proceeding optimistically (most often the agent is already approved)",
			zap.String("wallet", signer.Address()),
			zap.String("agent_address", agentAddress),
			zap.Error(err))
		return false
	}
	return true
}

// Bootstrap runs the full provisioning sequence for a user. The ordering is
// load-bearing: the key must be durable before any approval, the primary
// signer must exist before the venue is consulted, and approval is checked
// before it is re-submitted so a warm agent never burns a second approval
// transaction.
func (p *Provisioner) Bootstrap(ctx context.Context, userAddress string) (models.AgentInitResult, error) {
	// 1. Get or create the agent key.
	row, priv, created, err := p.keystore.GetOrCreate(ctx, userAddress)
	if err != nil {
		return models.AgentInitResult{}, fmt.Errorf("agent key bootstrap failed: %w", err)
	}

	// 2. Ensure a signing client for the user's primary wallet.
	signer, err := p.primarySigner(userAddress)
	if err != nil {
		return models.AgentInitResult{}, fmt.Errorf("primary wallet signer unavailable: %w", err)
	}

	// 3. Derive the agent identity. The persisted row is authoritative; the
	// derivation is cross-checked when the key is opened.
	agentAddress := DeriveAddress(priv)

	zap.L().Info("Bootstrapping agent",
		zap.String("wallet", userAddress),
		zap.String("agent_address", agentAddress),
		zap.Bool("key_created", created))

	// 4. Check approval against the venue.
	approved := p.CheckApproval(ctx, userAddress, agentAddress)

	// 5. Approve if needed.
	approved = p.ApproveAgentIfNeeded(ctx, signer, agentAddress, approved)
	if approved != row.Approved {
		if err := p.store.SetAgentApproved(ctx, row.UserId, approved); err != nil {
			zap.L().Warn("Failed to persist agent approval flag",
				zap.String("wallet", userAddress),
				zap.Error(err))
		}
	}

	// 6. Register the agent signing client for subsequent trade calls.
	session := &Session{
		userAddress: strings.ToLower(userAddress),
		signer:      signature.NewLocalSigner(priv),
	}
	p.mu.Lock()
	p.sessions[strings.ToLower(userAddress)] = session
	p.mu.Unlock()

	return models.AgentInitResult{
		AgentAddress: agentAddress,
		Initialized:  true,
	}, nil
}

// BootstrapWithRetry wraps Bootstrap with capped exponential backoff. Every
// bootstrap step is idempotent or degrades to a no-op, so retrying the whole
// sequence is safe.
func (p *Provisioner) BootstrapWithRetry(ctx context.Context, userAddress string) (models.AgentInitResult, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt - 1)
			zap.L().Info("Retrying agent bootstrap",
				zap.String("wallet", userAddress),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return models.AgentInitResult{}, ctx.Err()
			}
		}

		result, err := p.Bootstrap(ctx, userAddress)
		if err == nil {
			return result, nil
		}
		lastErr = err
		zap.L().Warn("Agent bootstrap attempt failed",
			zap.String("wallet", userAddress),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return models.AgentInitResult{}, fmt.Errorf("agent bootstrap failed after %d attempts: %w", p.maxRetries, lastErr)
}

// AgentClient returns the registered agent session for a user, if Bootstrap
// has run in this process.
func (p *Provisioner) AgentClient(userAddress string) (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	session, ok := p.sessions[strings.ToLower(userAddress)]
	return session, ok
}

// primarySigner returns the cached signing client for a user's primary
// wallet, constructing it lazily on first need.
func (p *Provisioner) primarySigner(userAddress string) (exchange.ActionSigner, error) {
	key := strings.ToLower(userAddress)

	p.mu.Lock()
	signer, ok := p.primarySigners[key]
	p.mu.Unlock()
	if ok {
		return signer, nil
	}

	signer, err := p.signers(userAddress)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.primarySigners[key] = signer
	p.mu.Unlock()
	return signer, nil
}
