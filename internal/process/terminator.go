package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/monitoring"
)

// Defaults for a zero Terminator.
const (
	DefaultGrace  = 100 * time.Millisecond
	DefaultRounds = 5
)

// Result describes one Terminate call.
type Result struct {
	// Signalled holds every pid that received at least one signal.
	Signalled []int
	// Forced is true when a kill signal had to be sent to a survivor.
	Forced bool
	// Survivors are pids still alive after the last round.
	Survivors []int
}

// Terminator escalates from a normal termination signal to forceful kills
// over a bounded number of rounds. The zero value is ready to use.
type Terminator struct {
	Grace   time.Duration
	Rounds  int
	Logger  *logging.Logger
	Metrics *monitoring.Metrics

	// test seams
	signal func(pid int, sig os.Signal) error
	alive  func(pid int) bool
	sleep  func(ctx context.Context, d time.Duration) error
}

// Terminate signals every pid in pids that is still alive. Round one sends
// SIGTERM; later rounds send SIGKILL to whatever survived the grace
// interval. Pids that are already gone are skipped without error. A
// cancelled context only cuts the grace waits short: every round still
// runs, and the context error is returned alongside the result together
// with any signal that could not be delivered.
func (t *Terminator) Terminate(ctx context.Context, pids []int) (Result, error) {
	logger := logging.OrNop(t.Logger)
	signal, alive, sleep := t.seams()

	grace := t.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	rounds := t.Rounds
	if rounds <= 0 {
		rounds = DefaultRounds
	}

	var (
		res    Result
		errs   []error
		ctxErr error
	)
	signalled := make(map[int]bool, len(pids))
	live := liveSet(pids, alive)

	for round := 0; round < rounds && len(live) > 0; round++ {
		sig, name := sigTerm, "SIGTERM"
		if round > 0 {
			sig, name = sigKill, "SIGKILL"
			res.Forced = true
		}

		for _, pid := range live {
			if err := signal(pid, sig); err != nil {
				errs = append(errs, fmt.Errorf("%s pid %d: %w", name, pid, err))
				continue
			}
			t.Metrics.RecordSignal(name)
			if !signalled[pid] {
				signalled[pid] = true
				res.Signalled = append(res.Signalled, pid)
			}
		}
		logger.Debug("Termination round", zap.Int("round", round+1), zap.String("signal", name), zap.Ints("pids", live))

		if err := sleep(ctx, grace); err != nil && ctxErr == nil {
			ctxErr = err
		}
		live = liveSet(live, alive)
	}

	res.Survivors = live
	if len(live) > 0 {
		logger.Warn("Processes survived termination", zap.Ints("pids", live))
	}
	return res, errors.Join(append(errs, ctxErr)...)
}

func (t *Terminator) seams() (func(int, os.Signal) error, func(int) bool, func(context.Context, time.Duration) error) {
	signal, alive, sleep := t.signal, t.alive, t.sleep
	if signal == nil {
		signal = sendSignal
	}
	if alive == nil {
		alive = Alive
	}
	if sleep == nil {
		sleep = sleepCtx
	}
	return signal, alive, sleep
}

func liveSet(pids []int, alive func(int) bool) []int {
	var out []int
	for _, pid := range pids {
		if alive(pid) {
			out = append(out, pid)
		}
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
