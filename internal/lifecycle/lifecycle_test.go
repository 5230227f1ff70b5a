package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valory-xyz/propel-client-go/internal/agents"
	"github.com/valory-xyz/propel-client-go/internal/client"
	"github.com/valory-xyz/propel-client-go/internal/models"
	"github.com/valory-xyz/propel-client-go/internal/seats"
	"github.com/valory-xyz/propel-client-go/internal/sessions"
	"github.com/valory-xyz/propel-client-go/internal/testing/mocks/propel"
	"github.com/valory-xyz/propel-client-go/internal/waiter"
)

type instantClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type reported struct {
	agent   string
	message string
}

func newTestLifecycle(t *testing.T, service *propel.Service) (*Lifecycle, *[]reported) {
	t.Helper()

	store := sessions.NewSessionManager(t.TempDir(), service.URL())
	api, err := client.New(client.Options{BaseURL: service.URL(), Timeout: 5 * time.Second}, store)
	require.NoError(t, err)
	_, err = api.Login(context.Background(), propel.DefaultUsername, propel.DefaultPassword)
	require.NoError(t, err)

	controller := agents.NewController(api)
	w := waiter.New(controller, waiter.Options{
		Period: time.Second,
		Clock:  &instantClock{now: time.Unix(0, 0)},
	})

	var lines []reported
	l := New(controller, w, seats.NewService(api), func(agent string, message string) {
		lines = append(lines, reported{agent: agent, message: message})
	})

	return l, &lines
}

func deployRequest(name string) DeployRequest {
	return DeployRequest{
		Agent: models.AgentCreateRequest{
			Key:             1,
			Name:            name,
			ServiceIPFSHash: "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
		},
		Timeout:  2 * time.Minute,
		Teardown: true,
		Restart:  true,
	}
}

func messages(lines []reported) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.message)
	}
	return out
}

func TestDeployFresh(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	l, lines := newTestLifecycle(t, service)

	agent, err := l.Deploy(context.Background(), deployRequest("agent-1"))
	require.NoError(t, err)
	assert.Equal(t, models.AgentStateStarted, agent.State)

	assert.Equal(t, []string{
		"ensure agent deleted",
		"already deleted",
		"create agent",
		"agent deployed",
		"agent restarting",
		"agent started",
	}, messages(*lines))

	for _, line := range *lines {
		assert.Equal(t, "agent-1", line.agent)
	}
}

func TestDeployReplacesRunningAgent(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateStarted})
	l, lines := newTestLifecycle(t, service)

	_, err := l.Deploy(context.Background(), deployRequest("agent-1"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ensure agent deleted",
		"agent stopped",
		"agent deleted",
		"create agent",
		"agent deployed",
		"agent restarting",
		"agent started",
	}, messages(*lines))

	assert.Equal(t, 1, service.Requests(http.MethodGet, "/api2/agents/agent-1/stop"))
	assert.Equal(t, 1, service.Requests(http.MethodGet, "/api2/agents/agent-1/delete"))
	assert.Equal(t, 1, service.Requests(http.MethodPost, "/api2/agents/"))
}

func TestDeployWithoutRestart(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	l, _ := newTestLifecycle(t, service)

	req := deployRequest("agent-1")
	req.Restart = false
	req.Teardown = false

	agent, err := l.Deploy(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.AgentStateDeployed, agent.State)
	assert.Zero(t, service.Requests(http.MethodGet, "/api2/agents/agent-1/restart"))
}

func TestDeployNoSeats(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	service.SetSeats(models.Seats{NAvailable: 0, NUsed: 1, NTotal: 1})
	l, _ := newTestLifecycle(t, service)

	_, err := l.Deploy(context.Background(), deployRequest("agent-1"))
	assert.True(t, errors.Is(err, seats.ErrNoSeats))
	assert.Zero(t, service.Requests(http.MethodPost, "/api2/agents/"))
}

func TestDeployTerminalState(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	service.CreateStates = []models.AgentState{models.AgentStateCreated, models.AgentStateError}
	l, _ := newTestLifecycle(t, service)

	_, err := l.Deploy(context.Background(), deployRequest("agent-1"))
	require.Error(t, err)

	var waitErr *waiter.WaitError
	require.True(t, errors.As(err, &waitErr))
	assert.Equal(t, waiter.ReasonTerminal, waitErr.Reason)
	assert.Equal(t, models.AgentStateError, waitErr.LastState)
	assert.Zero(t, service.Requests(http.MethodGet, "/api2/agents/agent-1/restart"))
}

func TestDeployTimeout(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	service.CreateStates = []models.AgentState{models.AgentStateCreated}
	l, _ := newTestLifecycle(t, service)

	req := deployRequest("agent-1")
	req.Timeout = 10 * time.Second

	_, err := l.Deploy(context.Background(), req)

	var waitErr *waiter.WaitError
	require.True(t, errors.As(err, &waitErr))
	assert.Equal(t, waiter.ReasonTimeout, waitErr.Reason)
}

func TestTeardownDeployedAgent(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateDeployed})
	l, lines := newTestLifecycle(t, service)

	require.NoError(t, l.Teardown(context.Background(), "agent-1", time.Minute))
	assert.Equal(t, []string{"agent deleted"}, messages(*lines))
	assert.Zero(t, service.Requests(http.MethodGet, "/api2/agents/agent-1/stop"))

	_, ok := service.GetAgent("agent-1")
	assert.False(t, ok)
}

func TestTeardownTwice(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateStarted})
	l, _ := newTestLifecycle(t, service)

	require.NoError(t, l.Teardown(context.Background(), "agent-1", time.Minute))
	require.NoError(t, l.Teardown(context.Background(), "agent-1", time.Minute))
}

func TestTeardownUnauthenticated(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateDeployed})
	l, _ := newTestLifecycle(t, service)
	service.RotateToken("rotated")

	err := l.Teardown(context.Background(), "agent-1", time.Minute)
	assert.True(t, client.IsUnauthenticated(err))

	_, ok := service.GetAgent("agent-1")
	assert.True(t, ok)
}
