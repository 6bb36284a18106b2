package navigation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/monitoring"
)

// Navigator is the capability a live session provides.
type Navigator interface {
	Load(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
}

// Reauthenticate is called once per failed attempt with the number of
// retries used so far. An error aborts the navigation.
type Reauthenticate func(ctx context.Context, retry int) error

// Options for one navigation.
type Options struct {
	MaxRetries  int
	BackoffBase time.Duration
	Reauth      Reauthenticate
	// EnforceURLMatch requires the browser to end up on the requested URL
	// (see MatchURL); otherwise any load that did not fail is accepted.
	EnforceURLMatch bool
	IgnoreQuery     bool
	// OnTransition observes every state change.
	OnTransition func(from, to State, attempt int)
}

// Controller runs navigations against one Navigator. Navigations are
// independent; a controller may be reused after Succeeded or Failed.
type Controller struct {
	nav     Navigator
	logger  *logging.Logger
	metrics *monitoring.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a controller. logger and metrics may be nil.
func New(nav Navigator, logger *logging.Logger, metrics *monitoring.Metrics) *Controller {
	return &Controller{
		nav:     nav,
		logger:  logging.OrNop(logger).Named("navigation"),
		metrics: metrics,
		sleep:   sleepCtx,
	}
}

// Backoff is the pause before retry number retry (1-based).
func Backoff(base time.Duration, retry int) time.Duration {
	return base * time.Duration(retry*retry)
}

// Navigate loads target, retrying up to opts.MaxRetries times. It returns
// a *Error once retries are exhausted. Cancelling ctx interrupts a
// backoff sleep.
func (c *Controller) Navigate(ctx context.Context, target string, opts Options) error {
	start := time.Now()
	defer func() { c.metrics.RecordNavigation(time.Since(start)) }()
	logger := c.logger.With(zap.String("url", target))

	var (
		state    = Loading
		attempt  int
		retry    int
		loadErr  error
		lastErr  error
		mismatch string
	)
	move := func(to State) {
		if opts.OnTransition != nil {
			opts.OnTransition(state, to, attempt)
		}
		state = to
	}

	for {
		switch state {
		case Loading:
			attempt++
			loadErr = c.nav.Load(ctx, target)
			if loadErr != nil {
				lastErr = loadErr
			}
			move(Verifying)

		case Verifying:
			if loadErr != nil {
				move(Recovering)
				continue
			}
			if !opts.EnforceURLMatch {
				move(Succeeded)
				continue
			}
			current, err := c.nav.CurrentURL(ctx)
			switch {
			case err != nil:
				lastErr = err
				move(Recovering)
			case MatchURL(current, target, opts.IgnoreQuery):
				move(Succeeded)
			default:
				mismatch = current
				move(Recovering)
			}

		case Recovering:
			if opts.Reauth != nil {
				if err := opts.Reauth(ctx, retry); err != nil {
					c.metrics.RecordNavigationAttempt("failed")
					return fmt.Errorf("reauthenticate after attempt %d: %w", attempt, err)
				}
			}
			if retry >= opts.MaxRetries {
				move(Failed)
				continue
			}
			retry++
			pause := Backoff(opts.BackoffBase, retry)
			c.metrics.RecordNavigationAttempt("retried")
			logger.Debug("Navigation retry",
				zap.Int("attempt", attempt),
				zap.Duration("pause", pause),
				zap.String("landed_on", mismatch),
				zap.Error(loadErr),
			)
			if err := c.sleep(ctx, pause); err != nil {
				c.metrics.RecordNavigationAttempt("failed")
				return &Error{URL: target, Attempts: attempt, Err: err}
			}
			mismatch = ""
			move(Loading)

		case Succeeded:
			c.metrics.RecordNavigationAttempt("succeeded")
			return nil

		case Failed:
			c.metrics.RecordNavigationAttempt("failed")
			logger.Warn("Navigation failed", zap.Int("attempts", attempt), zap.Error(lastErr))
			return &Error{URL: target, Attempts: attempt, Err: lastErr}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
