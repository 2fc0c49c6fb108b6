package provisionapi

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client
}

func TestStatusStoreRedis(t *testing.T) {
	s := NewStatusStore(setupTestRedis(t))
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, RunStatus{BusinessID: "acme", State: StateProvisioning}))
	st, ok, err := s.Get(ctx, "acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateProvisioning, st.State)
	assert.False(t, st.UpdatedAt.IsZero())

	require.NoError(t, s.Set(ctx, RunStatus{
		BusinessID: "acme", State: StateReady,
		AdminAPIURL: "https://admin", AgentURL: "https://agent",
	}))
	st, ok, err = s.Get(ctx, "acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateReady, st.State)
	assert.Equal(t, "https://admin", st.AdminAPIURL)
}

func TestStatusStoreMemoryFallback(t *testing.T) {
	s := NewStatusStore(nil)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, RunStatus{BusinessID: "acme", State: StateFailed, Error: "boom"}))
	st, ok, err := s.Get(ctx, "acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, "boom", st.Error)

	_, ok, err = s.Get(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}
