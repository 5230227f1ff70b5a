package agents

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valory-xyz/propel-client-go/internal/client"
	"github.com/valory-xyz/propel-client-go/internal/models"
	"github.com/valory-xyz/propel-client-go/internal/sessions"
	"github.com/valory-xyz/propel-client-go/internal/testing/mocks/propel"
)

func newTestController(t *testing.T, service *propel.Service, login bool) *Controller {
	t.Helper()

	store := sessions.NewSessionManager(t.TempDir(), service.URL())
	api, err := client.New(client.Options{BaseURL: service.URL(), Timeout: 5 * time.Second}, store)
	require.NoError(t, err)

	if login {
		_, err = api.Login(context.Background(), propel.DefaultUsername, propel.DefaultPassword)
		require.NoError(t, err)
	}

	return NewController(api)
}

func createRequest(name string) models.AgentCreateRequest {
	return models.AgentCreateRequest{
		Key:             1,
		Name:            name,
		ServiceIPFSHash: "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
		Variables:       []string{"OPENAI_KEY"},
	}
}

func TestCreate(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	controller := newTestController(t, service, true)

	agent, err := controller.Create(context.Background(), createRequest("agent-1"))
	require.NoError(t, err)
	assert.Equal(t, "agent-1", agent.Name)
	assert.Equal(t, models.AgentStateCreated, agent.State)
	assert.Equal(t, []models.Ref{"OPENAI_KEY"}, agent.Variables)

	_, ok := service.GetAgent("agent-1")
	assert.True(t, ok)
}

func TestCreateDuplicateIsRejected(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	controller := newTestController(t, service, true)

	_, err := controller.Create(context.Background(), createRequest("agent-1"))
	require.NoError(t, err)

	_, err = controller.Create(context.Background(), createRequest("agent-1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrRejected))
}

func TestCreateValidation(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	controller := newTestController(t, service, true)

	_, err := controller.Create(context.Background(), models.AgentCreateRequest{ServiceIPFSHash: "x"})
	assert.Error(t, err)

	_, err = controller.Create(context.Background(), models.AgentCreateRequest{Name: "a"})
	assert.Error(t, err)

	assert.Zero(t, service.Requests(http.MethodPost, client.AgentsEndpoint+"/"))
}

func TestDescribe(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateStarted})
	controller := newTestController(t, service, true)

	agent, err := controller.Describe(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, models.AgentStateStarted, agent.State)

	_, err = controller.Describe(context.Background(), "missing")
	assert.True(t, client.IsNotFound(err))
}

func TestList(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	service.PutAgent(models.Agent{Name: "b", State: models.AgentStateDeployed})
	service.PutAgent(models.Agent{Name: "a", State: models.AgentStateStarted})
	controller := newTestController(t, service, true)

	agents, err := controller.List(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "a", agents[0].Name)
	assert.Equal(t, "b", agents[1].Name)
}

func TestRestartAndStop(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateDeployed})
	controller := newTestController(t, service, true)

	_, err := controller.Restart(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 1, service.Requests(http.MethodGet, "/api2/agents/agent-1/restart"))

	_, err = controller.Stop(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 1, service.Requests(http.MethodGet, "/api2/agents/agent-1/stop"))

	_, err = controller.Restart(context.Background(), "missing")
	assert.True(t, client.IsNotFound(err))
}

func TestDeleteMissingIsRejected(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	controller := newTestController(t, service, true)

	_, err := controller.Delete(context.Background(), "missing")
	assert.True(t, client.IsNotFound(err))
}

func TestEnsureDeletedIsIdempotent(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateDeployed})
	controller := newTestController(t, service, true)

	require.NoError(t, controller.EnsureDeleted(context.Background(), "agent-1"))
	require.NoError(t, controller.EnsureDeleted(context.Background(), "agent-1"))

	_, ok := service.GetAgent("agent-1")
	assert.False(t, ok)
	assert.Equal(t, 2, service.Requests(http.MethodGet, "/api2/agents/agent-1/delete"))
}

func TestEnsureDeletedPropagatesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		is     error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, is: client.ErrUnauthenticated},
		{name: "forbidden", status: http.StatusForbidden, is: client.ErrRejected},
		{name: "server error", status: http.StatusInternalServerError, is: client.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := propel.NewService()
			defer service.Close()

			service.PutAgent(models.Agent{Name: "agent-1", State: models.AgentStateDeployed})
			controller := newTestController(t, service, true)

			service.FailNext("/api2/agents/agent-1/delete", tt.status, 1)

			err := controller.EnsureDeleted(context.Background(), "agent-1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.is))

			_, ok := service.GetAgent("agent-1")
			assert.True(t, ok)
		})
	}
}

func TestUnauthenticatedWithoutSession(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	controller := newTestController(t, service, false)

	err := controller.EnsureDeleted(context.Background(), "agent-1")
	assert.True(t, client.IsUnauthenticated(err))

	_, err = controller.Describe(context.Background(), "agent-1")
	assert.True(t, client.IsUnauthenticated(err))
}
