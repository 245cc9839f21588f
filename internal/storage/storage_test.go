package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "healthscope.json")

	store, err := OpenFile(path)
	require.NoError(t, err)

	_, ok, err := store.Get(ctx, "pinned")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "pinned", []byte(`"base:0x1"`)))
	require.NoError(t, store.Put(ctx, "settings", []byte(`{"display_field":"ltv"}`)))
	require.NoError(t, store.Delete(ctx, "settings"))
	require.NoError(t, store.Close())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "tmp file must be renamed away")

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	value, ok, err := reopened.Get(ctx, "pinned")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"base:0x1"`, string(value))

	_, ok, err = reopened.Get(ctx, "settings")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreRejectsInvalidJSON(t *testing.T) {
	store, err := OpenFile(filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)
	assert.Error(t, store.Put(context.Background(), "k", []byte("{oops")))
}

func TestFileStoreClosed(t *testing.T) {
	store, err := OpenFile(filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	_, _, err = store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenFileRejectsDirectory(t *testing.T) {
	_, err := OpenFile(t.TempDir())
	assert.Error(t, err)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	value := []byte(`{"a":1}`)
	require.NoError(t, store.Put(ctx, "k", value))
	value[0] = 'X'

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()

	backend, err := Open(ctx, Config{Backend: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, backend.KV)

	backend, err = Open(ctx, Config{Path: filepath.Join(t.TempDir(), "s.json")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, backend.KV)
	assert.Nil(t, backend.Snapshots)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	backend, err = Open(ctx, Config{Backend: "redis", RedisAddr: mr.Addr()}, nil)
	require.NoError(t, err)
	require.NoError(t, backend.KV.Put(ctx, "k", []byte(`1`)))
	assert.NoError(t, backend.KV.Close())

	_, err = Open(ctx, Config{Backend: "etcd"}, nil)
	assert.Error(t, err)
}

func TestWithRetry(t *testing.T) {
	attempts := 0
	var retried []int
	err := WithRetry(context.Background(), RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	}, func(attempt int, _ error) {
		retried = append(retried, attempt)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)

	failure := errors.New("down")
	err = WithRetry(context.Background(), RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond}, func(context.Context) error {
		return failure
	}, nil)
	assert.ErrorIs(t, err, failure)
}

func TestJSONLWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "status.jsonl")
	w, err := CreateJSONL(path, false)
	require.NoError(t, err)
	require.NoError(t, w.Write(map[string]int{"a": 1}))
	require.NoError(t, w.Write(map[string]int{"b": 2}))
	require.NoError(t, w.Close())

	w, err = CreateJSONL(path, true)
	require.NoError(t, err)
	require.NoError(t, w.Write(map[string]int{"c": 3}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n{\"c\":3}\n", string(data))
}
