package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	store, err := New(ctx, Config{Addr: mr.Addr()})
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get(ctx, "accounts")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "accounts", []byte(`[{"address":"0x1"}]`)))

	value, ok, err := store.Get(ctx, "accounts")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"address":"0x1"}]`, string(value))
	assert.True(t, mr.Exists("healthscope:accounts"), "keys are namespaced")

	require.NoError(t, store.Delete(ctx, "accounts"))
	_, ok, err = store.Get(ctx, "accounts")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = New(context.Background(), Config{Addr: addr})
	assert.Error(t, err)
}
