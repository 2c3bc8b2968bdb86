// Package ledgertest runs the behaviour every storage.Ledger backend must
// share.
package ledgertest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/inkseal/storage"
)

// Run exercises l. The ledger must start empty.
func Run(t *testing.T, l storage.Ledger) {
	ctx := context.Background()

	var refs []string

	t.Run("PublishFetch", func(t *testing.T) {
		payload := []byte(`{"version":"2.0","encrypted":true}`)
		rcpt, err := l.Publish(ctx, payload)
		require.NoError(t, err)
		require.NoError(t, storage.ValidateReference(rcpt.Ref))
		assert.Equal(t, len(payload), rcpt.Size)
		assert.False(t, rcpt.Timestamp.IsZero())

		payload[0] = 'X'
		got, err := l.Fetch(ctx, rcpt.Ref)
		require.NoError(t, err)
		assert.Equal(t, `{"version":"2.0","encrypted":true}`, string(got))
		refs = append(refs, rcpt.Ref)
	})

	t.Run("FetchReturnsCopy", func(t *testing.T) {
		got, err := l.Fetch(ctx, refs[0])
		require.NoError(t, err)
		got[0] = 'Y'
		again, err := l.Fetch(ctx, refs[0])
		require.NoError(t, err)
		assert.Equal(t, byte('{'), again[0])
	})

	t.Run("FetchUppercaseRef", func(t *testing.T) {
		got, err := l.Fetch(ctx, strings.ToUpper(refs[0]))
		require.NoError(t, err)
		assert.NotEmpty(t, got)
	})

	t.Run("PublishIsAppendOnly", func(t *testing.T) {
		a, err := l.Publish(ctx, []byte("same"))
		require.NoError(t, err)
		b, err := l.Publish(ctx, []byte("same"))
		require.NoError(t, err)
		assert.NotEqual(t, a.Ref, b.Ref)
		refs = append(refs, a.Ref, b.Ref)
	})

	t.Run("EmptyPayload", func(t *testing.T) {
		_, err := l.Publish(ctx, nil)
		assert.ErrorIs(t, err, storage.ErrEmptyPayload)
		_, err = l.Publish(ctx, []byte{})
		assert.ErrorIs(t, err, storage.ErrEmptyPayload)
	})

	t.Run("NotFound", func(t *testing.T) {
		missing, err := storage.NewReference()
		require.NoError(t, err)
		_, err = l.Fetch(ctx, missing)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("InvalidReference", func(t *testing.T) {
		_, err := l.Fetch(ctx, "not-a-txid")
		assert.ErrorIs(t, err, storage.ErrInvalidReference)
	})

	t.Run("ListInPublishOrder", func(t *testing.T) {
		got, err := l.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, refs, got)
	})

	t.Run("ConcurrentPublish", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := l.Publish(ctx, []byte("concurrent")); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Error(err)
		}
		got, err := l.List(ctx)
		require.NoError(t, err)
		assert.Len(t, got, len(refs)+10)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := l.Publish(cctx, []byte("late"))
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	})
}
