package stash

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "k1", strings.NewReader("png-bytes"), 9, "image/png"))
	rc, err := s.Open(ctx, "k1")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.Remove(ctx, "k1"))
	_, err = s.Open(ctx, "k1")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 0, s.Len())
}
