package tenants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMemoryRegistry(t *testing.T) {
	reg := NewMemoryRegistry(zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := reg.Get(ctx, "acme")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, reg.Upsert(ctx, Installation{
		BusinessID: "acme", Provider: ProviderShopify, Shop: "acme.myshopify.com", Status: "provisioning",
	}))
	first, err := reg.Get(ctx, "acme")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	// Upsert keeps identity and creation time, replaces the rest.
	require.NoError(t, reg.Upsert(ctx, Installation{
		BusinessID: "acme", Provider: ProviderShopify, Shop: "acme.myshopify.com",
		AdminAPIURL: "https://admin", AgentURL: "https://agent", Status: "ready",
	}))
	second, err := reg.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "ready", second.Status)
	assert.Equal(t, "https://admin", second.AdminAPIURL)

	require.NoError(t, reg.Upsert(ctx, Installation{BusinessID: "beta", Provider: ProviderMock, Status: "ready"}))
	all, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "acme", all[0].BusinessID)
	assert.Equal(t, "beta", all[1].BusinessID)
}

func TestMemoryRegistryLogsWrites(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reg := NewMemoryRegistry(zap.New(core).Sugar())

	require.NoError(t, reg.Upsert(context.Background(), Installation{
		BusinessID: "acme", Provider: ProviderShopify, Status: "pending",
	}))
	assert.Equal(t, 1, logs.FilterMessage("installation recorded").Len())
}
