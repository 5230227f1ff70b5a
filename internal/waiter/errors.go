package waiter

import (
	"fmt"
	"time"

	"github.com/valory-xyz/propel-client-go/internal/common"
	"github.com/valory-xyz/propel-client-go/internal/models"
)

// Reason says why a wait ended without reaching its target.
type Reason string

const (
	// ReasonTimeout means the deadline passed before the target was observed.
	ReasonTimeout Reason = "timeout"
	// ReasonTerminal means the agent entered a state it cannot leave towards
	// the target.
	ReasonTerminal Reason = "terminal"
	// ReasonUnreachable means too many consecutive transient failures.
	ReasonUnreachable Reason = "unreachable"
	// ReasonPermanent means describe failed with a non-transient error.
	ReasonPermanent Reason = "permanent"
	// ReasonCancelled means the caller's context was cancelled.
	ReasonCancelled Reason = "cancelled"
)

// WaitError carries everything known about a failed wait.
type WaitError struct {
	Reason    Reason
	Agent     string
	Target    models.AgentState
	LastState models.AgentState // empty if the agent was never observed
	Elapsed   time.Duration
	Polls     int
	Err       error // last describe error, if any
}

func (e *WaitError) Error() string {
	var msg string

	switch e.Reason {
	case ReasonTimeout:
		msg = fmt.Sprintf("timed out after %s waiting for %s", common.FormatDuration(e.Elapsed), e.Target)
	case ReasonTerminal:
		msg = fmt.Sprintf("entered terminal state %s while waiting for %s", e.LastState, e.Target)
	case ReasonUnreachable:
		msg = fmt.Sprintf("service unreachable after %d polls waiting for %s", e.Polls, e.Target)
	case ReasonPermanent:
		msg = fmt.Sprintf("describe failed while waiting for %s", e.Target)
	case ReasonCancelled:
		msg = fmt.Sprintf("cancelled while waiting for %s", e.Target)
	default:
		msg = fmt.Sprintf("wait for %s failed", e.Target)
	}

	if e.Reason != ReasonTerminal && len(e.LastState) > 0 {
		msg += fmt.Sprintf(" (last state: %s)", e.LastState)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return fmt.Sprintf("agent %s: %s", e.Agent, msg)
}

func (e *WaitError) Unwrap() error {
	return e.Err
}
