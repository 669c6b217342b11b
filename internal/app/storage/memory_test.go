package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, found, err := store.Read(ctx, "a.json")
	require.NoError(t, err)
	assert.False(t, found)

	data := []byte(`{"interactions":[]}`)
	require.NoError(t, store.Write(ctx, "a.json", data))
	data[0] = '['

	stored, found, err := store.Read(ctx, "a.json")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"interactions":[]}`, string(stored))
	assert.Equal(t, []string{"a.json"}, store.Keys())

	assert.ErrorIs(t, store.Write(ctx, "../a.json", data), ErrInvalidKey)
}
