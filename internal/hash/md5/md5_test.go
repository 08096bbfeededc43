package md5

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	t.Parallel()

	h := New()
	got, err := h.Hash([]byte("https://example.com"))
	require.NoError(t, err)
	require.Equal(t, "c984d06aafbecf6bc55569f964148ea3", got)

	// Stable across calls.
	again, err := h.Hash([]byte("https://example.com"))
	require.NoError(t, err)
	require.Equal(t, got, again)

	_, err = h.Hash(nil)
	require.Error(t, err)
}
