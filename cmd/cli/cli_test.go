package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valory-xyz/propel-client-go/internal/client"
	"github.com/valory-xyz/propel-client-go/internal/models"
	"github.com/valory-xyz/propel-client-go/internal/seats"
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

type harness struct {
	t          *testing.T
	service    *propel.Service
	configFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	service := propel.NewService()
	t.Cleanup(service.Close)

	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := "sessions:\n  path: " + filepath.Join(dir, "sessions") + "\nwait:\n  period: 3s\n"
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0600))

	return &harness{t: t, service: service, configFile: configFile}
}

func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()

	a := &app{clock: &instantClock{now: time.Unix(0, 0)}}
	cmd := newRootCommand(a)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--url", h.service.URL(), "--config", h.configFile}, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (h *harness) login() {
	h.t.Helper()
	_, _, err := h.run("login", "-u", propel.DefaultUsername, "-p", propel.DefaultPassword)
	require.NoError(h.t, err)
}

func TestLoginLogout(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "not logged in")

	stdout, _, err = h.run("login", "-u", propel.DefaultUsername, "-p", propel.DefaultPassword)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Login successful!")

	stdout, _, err = h.run("status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "active")

	_, _, err = h.run("logout")
	require.NoError(t, err)

	_, _, err = h.run("seats", "ensure")
	assert.True(t, client.IsUnauthenticated(err))
	assert.Contains(t, DescribeError(err), "propel login")
}

func TestLoginBadCredentials(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("login", "-u", propel.DefaultUsername, "-p", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrRejected))
}

func TestLoginWithoutTerminalNeedsFlags(t *testing.T) {
	h := newHarness(t)
	t.Setenv("PROPEL_USERNAME", "")
	t.Setenv("PROPEL_PASSWORD", "")

	_, _, err := h.run("login")
	assert.Error(t, err)
	assert.Zero(t, h.service.Requests("POST", client.LoginEndpoint))
}

func TestSeatsEnsure(t *testing.T) {
	h := newHarness(t)
	h.login()

	stdout, _, err := h.run("seats", "ensure", "-q", ".n_available")
	require.NoError(t, err)
	assert.Equal(t, "1\n", stdout)

	h.service.SetSeats(models.Seats{NAvailable: 0, NUsed: 2, NTotal: 2})
	_, _, err = h.run("seats", "ensure")
	assert.True(t, errors.Is(err, seats.ErrNoSeats))
}

func TestQueryVariables(t *testing.T) {
	h := newHarness(t)
	h.login()

	stdout, _, err := h.run("seats", "ensure", "-q", "$url")
	require.NoError(t, err)
	assert.Equal(t, h.service.URL()+"\n", stdout)

	stdout, _, err = h.run("seats", "ensure", "-q", "$host")
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(h.service.URL(), "http://")+"\n", stdout)
}

func TestAgentsCreateAndGet(t *testing.T) {
	h := newHarness(t)
	h.login()

	stdout, _, err := h.run("agents", "create",
		"--key", "1",
		"--name", "agent-1",
		"--service-ipfs-hash", "bafybei",
		"--variables", "A, B",
	)
	require.NoError(t, err)

	var agent models.Agent
	require.NoError(t, json.Unmarshal([]byte(stdout), &agent))
	assert.Equal(t, "agent-1", agent.Name)
	assert.Equal(t, []models.Ref{"A", "B"}, agent.Variables)

	stdout, _, err = h.run("agents", "get", "agent-1", "-q", ".name")
	require.NoError(t, err)
	assert.Equal(t, "agent-1\n", stdout)

	_, _, err = h.run("agents", "create", "--key", "1", "--name", "agent-1", "--service-ipfs-hash", "bafybei")
	assert.True(t, errors.Is(err, client.ErrRejected))
}

func TestAgentsCreateRequiresFlags(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, _, err := h.run("agents", "create", "--key", "1")
	assert.Error(t, err)
	assert.Zero(t, h.service.Requests("POST", "/api2/agents/"))
}

func TestAgentsWait(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateCreated},
		models.AgentStateCreated, models.AgentStateCreated, models.AgentStateDeployed)

	_, stderr, err := h.run("agents", "wait", "agent-1", "deployed", "--timeout", "120")
	require.NoError(t, err)
	assert.Contains(t, stderr, "[Agent: agent-1] state: CREATED, waiting for DEPLOYED for next 3s")
	assert.Contains(t, stderr, "reached DEPLOYED after 6s")
}

func TestAgentsWaitTimeout(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateCreated})

	_, _, err := h.run("agents", "wait", "agent-1", "DEPLOYED", "--timeout", "PT10S")
	require.Error(t, err)

	var waitErr *waiter.WaitError
	require.True(t, errors.As(err, &waitErr))
	assert.Equal(t, waiter.ReasonTimeout, waitErr.Reason)

	message := DescribeError(err)
	assert.Contains(t, message, "last state: CREATED")
	assert.Contains(t, message, "elapsed: 10s")
}

func TestAgentsWaitTerminal(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateError})

	_, _, err := h.run("agents", "wait", "agent-1", "STARTED")

	var waitErr *waiter.WaitError
	require.True(t, errors.As(err, &waitErr))
	assert.Equal(t, waiter.ReasonTerminal, waitErr.Reason)
	assert.Equal(t, 1, waitErr.Polls)
}

func TestAgentsWaitBadTimeout(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, _, err := h.run("agents", "wait", "agent-1", "STARTED", "--timeout", "soon")
	assert.Error(t, err)
}

func TestAgentsEnsureDeletedTwice(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateStarted})

	_, stderr, err := h.run("agents", "ensure-deleted", "agent-1")
	require.NoError(t, err)
	assert.Contains(t, stderr, "agent deleted")

	_, stderr, err = h.run("agents", "ensure-deleted", "agent-1")
	require.NoError(t, err)
	assert.Contains(t, stderr, "already deleted")
}

func TestAgentsRestart(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateDeployed})

	_, _, err := h.run("agents", "restart", "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 1, h.service.Requests("GET", "/api2/agents/agent-1/restart"))

	_, _, err = h.run("agents", "restart", "missing")
	assert.True(t, client.IsNotFound(err))
}

func TestAgentsDeploy(t *testing.T) {
	h := newHarness(t)
	h.login()

	stdout, stderr, err := h.run("agents", "deploy",
		"--key", "1",
		"--name", "agent-1",
		"--service-ipfs-hash", "bafybei",
		"-q", ".agent_state",
	)
	require.NoError(t, err)
	assert.Equal(t, "STARTED\n", stdout)
	assert.Contains(t, stderr, "[Agent: agent-1] create agent")
	assert.Contains(t, stderr, "[Agent: agent-1] agent started")
}

func TestVariablesCreate(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, _, err := h.run("variables", "create", "V", "ALL_PARTICIPANTS", `["0x1"]`)
	require.NoError(t, err)

	_, _, err = h.run("variables", "create", "V", "ALL_PARTICIPANTS", `["0x2"]`)
	require.NoError(t, err)

	stored := h.service.Variables()
	require.Len(t, stored, 1)
	assert.Equal(t, `["0x2"]`, stored[0].Value)
	assert.Equal(t, models.VarTypeList, stored[0].Type)

	stdout, _, err := h.run("variables", "list", "-q", ".[0].masked_value")
	require.NoError(t, err)
	assert.Equal(t, "******\n", stdout)

	_, _, err = h.run("variables", "create", "V", "K", "1", "tuple")
	assert.Error(t, err)
}

func TestVariablesCreateJSONString(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, _, err := h.run("variables", "create", "NAME", "SERVICE_NAME", `"abc"`)
	require.NoError(t, err)

	stored := h.service.Variables()
	require.Len(t, stored, 1)
	assert.Equal(t, "abc", stored[0].Value)
	assert.Equal(t, models.VarTypeString, stored[0].Type)
}

func TestCall(t *testing.T) {
	h := newHarness(t)
	h.login()

	stdout, _, err := h.run("call", "/v1/models", "model: gpt-4\n", "-q", ".payload.model")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4\n", stdout)

	stdout, _, err = h.run("openai", "/v1/models")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"path": "/v1/models"`)
}

func TestKeys(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, _, err := h.run("keys", "create")
	require.NoError(t, err)

	stdout, _, err := h.run("keys", "list", "-q", "length")
	require.NoError(t, err)
	assert.Equal(t, "1\n", stdout)
}

func TestTransientErrorIsReported(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.service.FailNext("/api2/agents", 503, 1)

	_, _, err := h.run("agents", "list")
	require.Error(t, err)
	assert.Contains(t, DescribeError(err), "transient")
}

func TestVersion(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "Propel client") || strings.HasPrefix(stdout, "Failed"))
}

func TestExecuteExitCode(t *testing.T) {
	assert.Equal(t, "", DescribeError(nil))
}
