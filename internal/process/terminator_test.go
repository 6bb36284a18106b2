//go:build !windows

package process

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/monitoring"
)

type sent struct {
	pid int
	sig os.Signal
}

// fakeProcs is a process table where most processes exit on SIGTERM,
// stubborn ones only on SIGKILL and immortal ones never.
type fakeProcs struct {
	mu       sync.Mutex
	alive    map[int]bool
	stubborn map[int]bool
	immortal map[int]bool
	failing  map[int]error
	sent     []sent
	sleeps   int
}

func newFakeProcs(pids ...int) *fakeProcs {
	f := &fakeProcs{
		alive:    map[int]bool{},
		stubborn: map[int]bool{},
		immortal: map[int]bool{},
		failing:  map[int]error{},
	}
	for _, pid := range pids {
		f.alive[pid] = true
	}
	return f
}

func (f *fakeProcs) terminator(rounds int) *Terminator {
	return &Terminator{
		Rounds: rounds,
		signal: f.signal,
		alive:  f.isAlive,
		sleep: func(ctx context.Context, _ time.Duration) error {
			f.mu.Lock()
			f.sleeps++
			f.mu.Unlock()
			return ctx.Err()
		},
	}
}

func (f *fakeProcs) signal(pid int, sig os.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing[pid]; err != nil {
		return err
	}
	f.sent = append(f.sent, sent{pid, sig})
	switch {
	case f.immortal[pid]:
	case sig == sigKill, !f.stubborn[pid]:
		f.alive[pid] = false
	}
	return nil
}

func (f *fakeProcs) isAlive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func TestTerminate(t *testing.T) {
	ctx := context.Background()

	t.Run("cooperative processes exit on SIGTERM", func(t *testing.T) {
		f := newFakeProcs(10, 11, 12)
		res, err := f.terminator(5).Terminate(ctx, []int{10, 11, 12})
		require.NoError(t, err)

		assert.Equal(t, []int{10, 11, 12}, res.Signalled)
		assert.False(t, res.Forced)
		assert.Empty(t, res.Survivors)
		assert.Equal(t, []sent{{10, sigTerm}, {11, sigTerm}, {12, sigTerm}}, f.sent)
		assert.Equal(t, 1, f.sleeps)
	})

	t.Run("survivors get SIGKILL after the grace interval", func(t *testing.T) {
		f := newFakeProcs(10, 11)
		f.stubborn[11] = true
		m := monitoring.NewMetrics()
		term := f.terminator(5)
		term.Metrics = m

		res, err := term.Terminate(ctx, []int{10, 11})
		require.NoError(t, err)

		assert.True(t, res.Forced)
		assert.Empty(t, res.Survivors)
		assert.Equal(t, []sent{{10, sigTerm}, {11, sigTerm}, {11, sigKill}}, f.sent)
		assert.Equal(t, 2.0, testutil.ToFloat64(m.Signals.WithLabelValues("SIGTERM")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Signals.WithLabelValues("SIGKILL")))
	})

	t.Run("dead pids are never signalled", func(t *testing.T) {
		f := newFakeProcs(10)
		res, err := f.terminator(5).Terminate(ctx, []int{99, 10, 98})
		require.NoError(t, err)

		assert.Equal(t, []int{10}, res.Signalled)
		assert.Equal(t, []sent{{10, sigTerm}}, f.sent)
	})

	t.Run("nothing alive means no rounds", func(t *testing.T) {
		f := newFakeProcs()
		res, err := f.terminator(5).Terminate(ctx, []int{1, 2})
		require.NoError(t, err)
		assert.Empty(t, res.Signalled)
		assert.Zero(t, f.sleeps)
	})

	t.Run("rounds are bounded", func(t *testing.T) {
		f := newFakeProcs(7)
		f.immortal[7] = true

		res, err := f.terminator(3).Terminate(ctx, []int{7})
		require.NoError(t, err)

		assert.Equal(t, []int{7}, res.Survivors)
		assert.Equal(t, []sent{{7, sigTerm}, {7, sigKill}, {7, sigKill}}, f.sent)
		assert.Equal(t, 3, f.sleeps)
	})

	t.Run("undeliverable signal is returned", func(t *testing.T) {
		f := newFakeProcs(10, 11)
		f.failing[11] = errors.New("operation not permitted")
		f.immortal[11] = true

		res, err := f.terminator(2).Terminate(ctx, []int{10, 11})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SIGTERM pid 11")
		assert.Contains(t, err.Error(), "SIGKILL pid 11")
		assert.Equal(t, []int{10}, res.Signalled)
		assert.Equal(t, []int{11}, res.Survivors)
	})

	t.Run("cancelled context still escalates", func(t *testing.T) {
		f := newFakeProcs(10)
		f.stubborn[10] = true
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		res, err := f.terminator(5).Terminate(cctx, []int{10})
		require.ErrorIs(t, err, context.Canceled)
		assert.True(t, res.Forced)
		assert.Empty(t, res.Survivors)
	})
}

func TestSleepCtx(t *testing.T) {
	require.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
