package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
)

// WaitInterval is how often Wait re-checks its condition.
const WaitInterval = 500 * time.Millisecond

// ErrWaitTimeout is wrapped by every wait that ran out of time.
var ErrWaitTimeout = errors.New("time expired")

// Condition is polled by Wait until it reports true or fails.
type Condition func(ctx context.Context) (bool, error)

// Wait blocks until cond holds. A zero timeout uses the session timeout.
func (s *Session) Wait(ctx context.Context, what string, timeout time.Duration, cond Condition) error {
	if timeout <= 0 {
		timeout = s.opts.timeout()
	}
	return poll(ctx, what, timeout, WaitInterval, cond)
}

// WaitElement waits for selector to match an element on the current page.
func (s *Session) WaitElement(ctx context.Context, selector string, timeout time.Duration) (*rod.Element, error) {
	page, err := s.Page(ctx)
	if err != nil {
		return nil, err
	}
	var el *rod.Element
	err = s.Wait(ctx, "element "+selector, timeout, func(context.Context) (bool, error) {
		ok, found, err := page.Has(selector)
		if err != nil || !ok {
			return false, err
		}
		el = found
		return true, nil
	})
	return el, err
}

// WaitURL waits until the browser's URL satisfies match.
func (s *Session) WaitURL(ctx context.Context, what string, timeout time.Duration, match func(string) bool) error {
	return s.Wait(ctx, what, timeout, func(ctx context.Context) (bool, error) {
		u, err := s.CurrentURL(ctx)
		if err != nil {
			return false, err
		}
		return match(u), nil
	})
}

func poll(ctx context.Context, what string, timeout, interval time.Duration, cond Condition) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w waiting for %s", ErrWaitTimeout, what)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
