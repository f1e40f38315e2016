package provider

import (
	"context"
	"testing"

	"github.com/jwwelbor/marcus/internal/config"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCRUDRoundTrip(t *testing.T) {
	p := NewInMemory()
	ctx := context.Background()

	created, err := p.CreateTask(ctx, "key-1", BoardTask{Title: "write tests", Status: "todo"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ExternalID)

	got, err := p.ReadTask(ctx, created.ExternalID)
	require.NoError(t, err)
	require.Equal(t, "write tests", got.Title)

	updated, err := p.SetStatus(ctx, "key-2", created.ExternalID, "in-progress")
	require.NoError(t, err)
	require.Equal(t, "in-progress", updated.Status)

	comment, err := p.AppendComment(ctx, "", created.ExternalID, "started working")
	require.NoError(t, err)
	require.Equal(t, "started working", comment.Body)

	board, err := p.ListBoard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 1)

	require.NoError(t, p.DeleteTask(ctx, "key-3", created.ExternalID))
	_, err = p.ReadTask(ctx, created.ExternalID)
	require.Error(t, err)
}

func TestInMemoryCreateIsIdempotent(t *testing.T) {
	p := NewInMemory()
	ctx := context.Background()

	first, err := p.CreateTask(ctx, "same-key", BoardTask{Title: "a"})
	require.NoError(t, err)

	second, err := p.CreateTask(ctx, "same-key", BoardTask{Title: "b"})
	require.NoError(t, err)

	require.Equal(t, first.ExternalID, second.ExternalID)
	require.Equal(t, "a", second.Title, "idempotent replay must return the first result, not re-run with the new title")

	board, err := p.ListBoard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 1, "retried create with the same key must not duplicate the task")
}

func TestRegistrySelectsInMemoryByDefault(t *testing.T) {
	adapter, err := New("in-memory", config.ProviderConfig{})
	require.NoError(t, err)
	require.Equal(t, "in-memory", adapter.Name())
}

func TestRegistryUnknownProvider(t *testing.T) {
	_, err := New("not-a-real-provider", config.ProviderConfig{})
	require.Error(t, err)
}

func TestRegisterAdapterOverride(t *testing.T) {
	RegisterAdapter("test-stub", func(cfg config.ProviderConfig) Adapter { return NewInMemory() })
	adapter, err := New("test-stub", config.ProviderConfig{})
	require.NoError(t, err)
	require.Equal(t, "in-memory", adapter.Name())
}
