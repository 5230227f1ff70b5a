// Package agents issues single lifecycle requests for agents. It never
// waits; see the waiter package for observing state changes.
package agents

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/valory-xyz/propel-client-go/internal/client"
	"github.com/valory-xyz/propel-client-go/internal/models"
)

// API is the subset of client.Client used by the controller.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body any, out any) error
}

type Controller struct {
	api API
}

func NewController(api API) *Controller {
	return &Controller{api: api}
}

func agentPath(name string, action ...string) string {
	parts := append([]string{client.AgentsEndpoint, url.PathEscape(name)}, action...)
	return strings.Join(parts, "/")
}

func validateName(name string) error {
	if len(strings.TrimSpace(name)) == 0 {
		return fmt.Errorf("agent name is required")
	}
	return nil
}

// Create asks the service to create an agent. An existing agent with the
// same name is reported by the service as a rejection.
func (c *Controller) Create(ctx context.Context, req models.AgentCreateRequest) (*models.Agent, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}

	if len(req.ServiceIPFSHash) == 0 {
		return nil, fmt.Errorf("service ipfs hash is required")
	}

	logrus.WithFields(logrus.Fields{
		"agent": req.Name,
		"key":   req.Key,
	}).Debugln("Creating agent")

	var agent models.Agent
	if err := c.api.Post(ctx, client.AgentsEndpoint+"/", &req, &agent); err != nil {
		return nil, err
	}

	return &agent, nil
}

// Describe returns the current record of an agent.
func (c *Controller) Describe(ctx context.Context, name string) (*models.Agent, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	var agent models.Agent
	if err := c.api.Get(ctx, agentPath(name), &agent); err != nil {
		return nil, err
	}

	return &agent, nil
}

func (c *Controller) List(ctx context.Context) ([]models.Agent, error) {
	var agents []models.Agent
	if err := c.api.Get(ctx, client.AgentsEndpoint, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

func (c *Controller) Restart(ctx context.Context, name string) (*models.Agent, error) {
	return c.action(ctx, name, "restart")
}

func (c *Controller) Stop(ctx context.Context, name string) (*models.Agent, error) {
	return c.action(ctx, name, "stop")
}

// Delete requests deletion. A missing agent is an error here; use
// EnsureDeleted when absence is the goal.
func (c *Controller) Delete(ctx context.Context, name string) (*models.Agent, error) {
	return c.action(ctx, name, "delete")
}

// EnsureDeleted requests deletion and treats an agent that does not exist as
// already deleted. Deletion may still be in progress when it returns.
func (c *Controller) EnsureDeleted(ctx context.Context, name string) error {
	_, err := c.Delete(ctx, name)

	if client.IsNotFound(err) {
		logrus.WithField("agent", name).Debugln("Agent does not exist, nothing to delete")
		return nil
	}

	return err
}

func (c *Controller) action(ctx context.Context, name string, action string) (*models.Agent, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"agent":  name,
		"action": action,
	}).Debugln("Requesting agent action")

	var agent models.Agent
	if err := c.api.Get(ctx, agentPath(name, action), &agent); err != nil {
		return nil, err
	}

	return &agent, nil
}
