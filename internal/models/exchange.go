package models

// SpotAsset is one entry in the exchange's spot asset universe. Index is the
// asset's integer position in the universe and must stay consistent with the
// name at plan-creation time.
type SpotAsset struct {
	Name  string `json:"name" yaml:"name"`
	Index int    `json:"index" yaml:"index"`
}

// AgentAuthorization is one delegate currently authorized by the exchange to
// act for a user.
type AgentAuthorization struct {
	Address    string `json:"address"`
	Name       string `json:"name"`
	ValidUntil int64  `json:"validUntil,omitempty"`
}

// AgentInitResult reports the outcome of the provisioning bootstrap.
// Initialized is false only when bootstrap failed before the agent exchange
// client was registered.
type AgentInitResult struct {
	AgentAddress string
	Initialized  bool
}
