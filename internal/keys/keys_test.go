package keys

import (
	"context"
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

func TestCreateAndList(t *testing.T) {
	service := propel.NewService()
	defer service.Close()

	store := sessions.NewSessionManager(t.TempDir(), service.URL())
	api, err := client.New(client.Options{BaseURL: service.URL(), Timeout: 5 * time.Second}, store)
	require.NoError(t, err)
	_, err = api.Login(context.Background(), propel.DefaultUsername, propel.DefaultPassword)
	require.NoError(t, err)

	keys := NewService(api)

	listed, err := keys.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)

	created, err := keys.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Ref("1"), created.ID)

	listed, err = keys.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, listed, 1)
	assert.Equal(t, 1, service.Requests(http.MethodPost, "/api2/keys/"))
}
