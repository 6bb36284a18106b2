package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll(t *testing.T) {
	ctx := context.Background()

	t.Run("condition eventually holds", func(t *testing.T) {
		calls := 0
		err := poll(ctx, "third call", time.Second, time.Millisecond, func(context.Context) (bool, error) {
			calls++
			return calls == 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("timeout names what was awaited", func(t *testing.T) {
		err := poll(ctx, "the login form", 20*time.Millisecond, 5*time.Millisecond, func(context.Context) (bool, error) {
			return false, nil
		})
		require.ErrorIs(t, err, ErrWaitTimeout)
		assert.EqualError(t, err, "time expired waiting for the login form")
	})

	t.Run("condition error stops the wait", func(t *testing.T) {
		boom := errors.New("boom")
		err := poll(ctx, "x", time.Second, time.Millisecond, func(context.Context) (bool, error) {
			return false, boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := poll(cctx, "x", time.Hour, time.Hour, func(context.Context) (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("checked at least once with zero timeout", func(t *testing.T) {
		calls := 0
		err := poll(ctx, "x", 0, time.Millisecond, func(context.Context) (bool, error) {
			calls++
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}
