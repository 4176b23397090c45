//go:build integration

package cli

import (
	"context"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/netbox-inventory/internal/testutil"
	"github.com/Sternrassler/netbox-inventory/pkg/ratelimit"
)

// setupRedis starts a Redis container and returns its endpoint and a client.
func setupRedis(t *testing.T) (string, *redis.Client) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "start Redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return endpoint, rdb
}

func TestIntegration_ThrottleStateSharedThroughRedis(t *testing.T) {
	endpoint, rdb := setupRedis(t)

	mock := testutil.NewMockNetBox()
	defer mock.Close()
	mock.SetHandler("dcim/sites/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Remaining", "42")
		_, _ = w.Write([]byte(`{"count":1,"next":null,"previous":null,"results":[{"id":1,"name":"PAR1"}]}`))
	})
	newEnv(t, mock)
	t.Setenv("NETBOX_REDIS_URL", "redis://"+endpoint+"/0")

	code, out, errOut := execute(context.Background(), "list", "sites")
	require.Equal(t, ExitOK, code, errOut)
	assert.Contains(t, out, "PAR1")

	remaining, err := rdb.Get(context.Background(), ratelimit.RedisKeyRemaining).Int()
	require.NoError(t, err)
	assert.Equal(t, 42, remaining)

	// other nbx processes load the same window
	state, err := ratelimit.NewRedisStore(rdb).Load(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsHealthy)
}
