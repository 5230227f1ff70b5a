// Package lifecycle composes single agent requests and waits into the
// multi-step flows used by the CLI: tearing an agent down completely and
// deploying one from scratch.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valory-xyz/propel-client-go/internal/client"
	"github.com/valory-xyz/propel-client-go/internal/models"
	"github.com/valory-xyz/propel-client-go/internal/waiter"
)

type Agents interface {
	Create(ctx context.Context, req models.AgentCreateRequest) (*models.Agent, error)
	Describe(ctx context.Context, name string) (*models.Agent, error)
	Restart(ctx context.Context, name string) (*models.Agent, error)
	Stop(ctx context.Context, name string) (*models.Agent, error)
	EnsureDeleted(ctx context.Context, name string) error
}

type Waiter interface {
	Wait(ctx context.Context, name string, target models.AgentState, timeout time.Duration) (*waiter.Result, error)
}

type Seats interface {
	Ensure(ctx context.Context) (*models.Seats, error)
}

// Reporter receives one line per completed step.
type Reporter func(agent string, message string)

type Lifecycle struct {
	agents Agents
	waiter Waiter
	seats  Seats
	report Reporter
}

func New(agents Agents, w Waiter, seats Seats, report Reporter) *Lifecycle {
	if report == nil {
		report = func(string, string) {}
	}
	return &Lifecycle{
		agents: agents,
		waiter: w,
		seats:  seats,
		report: report,
	}
}

type DeployRequest struct {
	Agent   models.AgentCreateRequest
	Timeout time.Duration // applies to each wait separately
	// Teardown removes an existing agent with the same name first.
	Teardown bool
	// Restart starts the agent once it is deployed.
	Restart bool
}

// Teardown makes sure the agent no longer exists. A running agent is
// stopped first, then deleted, then waited on until the service no longer
// knows it.
func (l *Lifecycle) Teardown(ctx context.Context, name string, timeout time.Duration) error {

	agent, err := l.agents.Describe(ctx, name)
	if client.IsNotFound(err) {
		l.report(name, "already deleted")
		return nil
	}
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"agent": name,
		"state": agent.State,
	}).Debugln("Tearing down agent")

	switch agent.State {
	case models.AgentStateDeleted:
		l.report(name, "already deleted")
		return nil

	case models.AgentStateStarted:
		if _, err := l.agents.Stop(ctx, name); err != nil {
			return fmt.Errorf("failed to stop agent: %w", err)
		}
		if _, err := l.waiter.Wait(ctx, name, models.AgentStateDeployed, timeout); err != nil {
			return err
		}
		l.report(name, "agent stopped")
	}

	if agent.State != models.AgentStateDeleting {
		if err := l.agents.EnsureDeleted(ctx, name); err != nil {
			return fmt.Errorf("failed to delete agent: %w", err)
		}
	}

	if _, err := l.waiter.Wait(ctx, name, models.AgentStateDeleted, timeout); err != nil {
		return err
	}

	l.report(name, "agent deleted")
	return nil
}

// Deploy creates an agent and waits for it to be deployed, optionally
// removing a previous agent of the same name and starting the new one.
func (l *Lifecycle) Deploy(ctx context.Context, req DeployRequest) (*models.Agent, error) {
	name := req.Agent.Name

	if len(name) == 0 {
		return nil, fmt.Errorf("agent name is required")
	}

	if _, err := l.seats.Ensure(ctx); err != nil {
		return nil, err
	}

	if req.Teardown {
		l.report(name, "ensure agent deleted")
		if err := l.Teardown(ctx, name, req.Timeout); err != nil {
			return nil, err
		}
	}

	l.report(name, "create agent")
	if _, err := l.agents.Create(ctx, req.Agent); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	result, err := l.waiter.Wait(ctx, name, models.AgentStateDeployed, req.Timeout)
	if err != nil {
		return nil, err
	}
	l.report(name, "agent deployed")

	if !req.Restart {
		return result.Agent, nil
	}

	l.report(name, "agent restarting")
	if _, err := l.agents.Restart(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to restart agent: %w", err)
	}

	result, err = l.waiter.Wait(ctx, name, models.AgentStateStarted, req.Timeout)
	if err != nil {
		return nil, err
	}
	l.report(name, "agent started")

	return result.Agent, nil
}
