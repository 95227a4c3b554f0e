package exchange

import (
	"context"
	"encoding/json"
	"fmt"

	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/signature"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

type approveAgentAction struct {
	Type         string `json:"type"`
	AgentAddress string `json:"agentAddress"`
	AgentName    string `json:"agentName,omitempty"`
}

type exchangeRequest struct {
	Action    approveAgentAction `json:"action"`
	User      string             `json:"user"`
	Message   string             `json:"message"`
	Signature string             `json:"signature"`
}

type exchangeResponse struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
}

// ExtraAgents returns the delegate addresses the venue currently authorizes
// to act for the user.
func (c *Client) ExtraAgents(ctx context.Context, userAddress string) ([]models.AgentAuthorization, error) {
	var out []models.AgentAuthorization
	if err := c.postJSON(ctx, "/info", infoRequest{Type: "extraAgents", User: userAddress}, &out); err != nil {
		return nil, err
	}

	zap.L().Debug("Fetched extra agents",
		zap.String("user", userAddress),
		zap.Int("count", len(out)))
	return out, nil
}

// ApproveAgent asks the venue to authorize agentAddress as a delegate for the
// signer's wallet. The approval is a canonical action message signed by the
// user's primary wallet; the venue recovers the principal from the signature.
func (c *Client) ApproveAgent(ctx context.Context, signer ActionSigner, agentAddress, agentName string) error {
	message := signature.BuildMessage("Approve Agent", []signature.Param{
		{Key: "agentAddress", Value: agentAddress},
		{Key: "agentName", Value: agentName},
	})

	sig, err := signer.SignAction(message)
	if err != nil {
		return fmt.Errorf("unable to sign approval: %w", err)
	}

	req := exchangeRequest{
		Action: approveAgentAction{
			Type:         "approveAgent",
			AgentAddress: agentAddress,
			AgentName:    agentName,
		},
		User:      signer.Address(),
		Message:   message,
		Signature: hexutil.Encode(sig),
	}

	var out exchangeResponse
	if err := c.postJSON(ctx, "/exchange", req, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("approval rejected by venue: %s", string(out.Response))
	}

	zap.L().Info("Agent approved on venue",
		zap.String("user", signer.Address()),
		zap.String("agent", agentAddress))
	return nil
}
