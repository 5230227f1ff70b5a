package models

import (
	"strings"
)

// AgentState is the server-side lifecycle state of an agent. The client only
// ever observes it.
type AgentState string

const (
	AgentStateCreated  AgentState = "CREATED"
	AgentStateDeployed AgentState = "DEPLOYED"
	AgentStateStarted  AgentState = "STARTED"
	AgentStateStopped  AgentState = "STOPPED"
	AgentStateDeleting AgentState = "DELETING"
	AgentStateDeleted  AgentState = "DELETED"
	AgentStateError    AgentState = "ERROR"
)

var KnownAgentStates = []AgentState{
	AgentStateCreated,
	AgentStateDeployed,
	AgentStateStarted,
	AgentStateStopped,
	AgentStateDeleting,
	AgentStateDeleted,
	AgentStateError,
}

// ParseAgentState normalises user input. Unknown states are passed through
// upper-cased since the service may know states this client does not.
func ParseAgentState(s string) AgentState {
	return AgentState(strings.ToUpper(strings.TrimSpace(s)))
}

func (s AgentState) String() string {
	return string(s)
}

func (s AgentState) IsKnown() bool {
	for _, known := range KnownAgentStates {
		if s == known {
			return true
		}
	}
	return false
}

type Agent struct {
	ID                       Ref        `json:"id,omitempty"`
	Name                     string     `json:"name"`
	Key                      Ref        `json:"key,omitempty"`
	ServiceIPFSHash          string     `json:"service_ipfs_hash,omitempty"`
	Variables                []Ref      `json:"variables,omitempty"`
	State                    AgentState `json:"agent_state"`
	ChainID                  int        `json:"chain_id,omitempty"`
	TokenID                  int        `json:"token_id,omitempty"`
	IngressEnabled           bool       `json:"ingress_enabled,omitempty"`
	TendermintIngressEnabled bool       `json:"tendermint_ingress_enabled,omitempty"`
}

// AgentCreateRequest is the body of the agent create call. Optional fields
// left at their zero value are not sent.
type AgentCreateRequest struct {
	Key                      int      `json:"key"`
	Name                     string   `json:"name,omitempty"`
	ServiceIPFSHash          string   `json:"service_ipfs_hash,omitempty"`
	ChainID                  int      `json:"chain_id,omitempty"`
	TokenID                  int      `json:"token_id,omitempty"`
	IngressEnabled           bool     `json:"ingress_enabled,omitempty"`
	Variables                []string `json:"variables,omitempty"`
	TendermintIngressEnabled bool     `json:"tendermint_ingress_enabled,omitempty"`
}
