package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runDocumentStoreContract checks the behavior every backend must share.
func runDocumentStoreContract(t *testing.T, s DocumentStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "cart", []byte(`{"entries":[]}`)))

		got, err := s.Get(ctx, "cart")
		require.NoError(t, err)
		assert.JSONEq(t, `{"entries":[]}`, string(got))
	})

	t.Run("put replaces whole document", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "cart", []byte(`{"entries":[{"entry_id":"1"}],"extra":true}`)))
		require.NoError(t, s.Put(ctx, "cart", []byte(`{"entries":[]}`)))

		got, err := s.Get(ctx, "cart")
		require.NoError(t, err)
		assert.JSONEq(t, `{"entries":[]}`, string(got))
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "other", []byte(`{"entries":null}`)))

		got, err := s.Get(ctx, "cart")
		require.NoError(t, err)
		assert.JSONEq(t, `{"entries":[]}`, string(got))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "cart"))
		_, err := s.Get(ctx, "cart")
		assert.ErrorIs(t, err, ErrNotFound)

		// deleting again is not an error
		require.NoError(t, s.Delete(ctx, "cart"))
	})
}
