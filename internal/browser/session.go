package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/admitted/internal/process"
	"github.com/GriffinCanCode/admitted/internal/shared/id"
	"github.com/GriffinCanCode/admitted/internal/webdriver"
)

// reapSlack is how long Close waits for the control channel to be reaped
// on top of the signal rounds themselves.
const reapSlack = 5 * time.Second

// ErrNoDebugger is returned by page-level calls when the control channel
// did not report a debugger address.
var ErrNoDebugger = errors.New("session has no debugger address")

// Session owns one control channel, the browser it started, and every
// process recorded at launch.
type Session struct {
	ID              id.SessionID
	DebuggerAddress string
	BrowserVersion  string
	// PIDs is the process tree captured at launch; it is what Close
	// terminates. Empty for attached sessions.
	PIDs      []int
	StartedAt time.Time

	opts    Options
	client  *webdriver.Client
	wdID    string
	child   *child
	term    *process.Terminator
	logger  *logging.Logger
	metrics *monitoring.Metrics

	onClose    func()
	unregister func()
	closeOnce  sync.Once
	closeErr   error
	closed     chan struct{}
	closedInit sync.Once

	mu   sync.Mutex
	ws   *cdp.WebSocket
	page *rod.Page
}

// Info is the public view of a session.
type Info struct {
	ID              id.SessionID `json:"id"`
	DebuggerAddress string       `json:"debugger_address"`
	BrowserVersion  string       `json:"browser_version"`
	PIDs            []int        `json:"pids"`
	StartedAt       time.Time    `json:"started_at"`
	Attached        bool         `json:"attached"`
}

// Info describes the session.
func (s *Session) Info() Info {
	return Info{
		ID:              s.ID,
		DebuggerAddress: s.DebuggerAddress,
		BrowserVersion:  s.BrowserVersion,
		PIDs:            append([]int(nil), s.PIDs...),
		StartedAt:       s.StartedAt,
		Attached:        s.child == nil,
	}
}

// Load navigates the top-level browsing context to url.
func (s *Session) Load(ctx context.Context, url string) error {
	return s.client.Navigate(ctx, s.wdID, url)
}

// CurrentURL returns the URL the browser is on.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	return s.client.CurrentURL(ctx, s.wdID)
}

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} {
	s.closedInit.Do(func() { s.closed = make(chan struct{}) })
	return s.closed
}

// Close ends the session. The first call does the work; later calls return
// the first call's result without touching any process.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.terminate()
		s.Done()
		close(s.closed)
	})
	return s.closeErr
}

// terminate runs the graceful phase under its own deadline, then the
// signal rounds under a fresh one, so a hung control channel never eats
// the grace interval between SIGTERM and SIGKILL.
func (s *Session) terminate() error {
	logger := logging.OrNop(s.logger)
	if s.unregister != nil {
		s.unregister()
	}
	if s.onClose != nil {
		defer s.onClose()
	}
	defer s.metrics.RecordSessionClosed()
	defer s.client.Close()

	s.disconnect()
	errs := s.shutdown()

	if s.child == nil {
		logger.Info("Session closed")
		return errors.Join(errs...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), signalBudget(s.term)+reapSlack)
	defer cancel()
	res, err := s.term.Terminate(ctx, s.PIDs)
	if err != nil {
		errs = append(errs, err)
	}
	select {
	case <-s.child.done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("control channel not reaped: %w", ctx.Err()))
	}

	if res.Forced && s.opts.CleanLocks && s.opts.UserDataDir != "" {
		n, err := cleanLocks(s.opts.UserDataDir)
		if err != nil {
			errs = append(errs, err)
		}
		logger.Debug("Removed profile locks", zap.Int("count", n))
	}

	logger.Info("Session closed",
		zap.Ints("signalled", res.Signalled),
		zap.Bool("forced", res.Forced),
		zap.Ints("survivors", res.Survivors),
	)
	if len(res.Survivors) > 0 {
		errs = append(errs, fmt.Errorf("processes still running after termination: %v", res.Survivors))
	}
	return errors.Join(errs...)
}

// shutdown asks the control channel to end the session and, when this
// session started it, to exit. A control channel that already died has
// nothing to shut down.
func (s *Session) shutdown() []error {
	if s.child != nil && s.child.exited() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.shutdownTimeout())
	defer cancel()

	var errs []error
	err := s.client.DeleteSession(ctx, s.wdID)
	var we *webdriver.Error
	switch {
	case err == nil:
		s.metrics.RecordSignal("shutdown")
	case errors.As(err, &we) && we.Code == "invalid session id":
	default:
		errs = append(errs, fmt.Errorf("delete session: %w", err))
	}
	if s.child != nil {
		_ = s.client.Shutdown(ctx)
	}
	return errs
}

// signalBudget is the longest t.Terminate can take when nothing cancels it.
func signalBudget(t *process.Terminator) time.Duration {
	grace, rounds := t.Grace, t.Rounds
	if grace <= 0 {
		grace = process.DefaultGrace
	}
	if rounds <= 0 {
		rounds = process.DefaultRounds
	}
	return time.Duration(rounds) * grace
}

// cleanLocks removes the Singleton* files a killed browser leaves in its
// profile directory; they would make the next launch refuse the profile.
func cleanLocks(dir string) (int, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "Singleton*")
	if err != nil {
		return 0, err
	}
	var errs []error
	n := 0
	for _, m := range matches {
		err := os.Remove(filepath.Join(dir, m))
		switch {
		case err == nil:
			n++
		case !errors.Is(err, os.ErrNotExist):
			errs = append(errs, err)
		}
	}
	return n, errors.Join(errs...)
}

// Page returns the session's current page over the debugger address,
// connecting on first use.
func (s *Session) Page(ctx context.Context) (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		if s.DebuggerAddress == "" {
			return nil, ErrNoDebugger
		}
		u, err := launcher.ResolveURL(s.DebuggerAddress)
		if err != nil {
			return nil, fmt.Errorf("resolve debugger address %s: %w", s.DebuggerAddress, err)
		}
		ws := &cdp.WebSocket{}
		if err := ws.Connect(ctx, u, nil); err != nil {
			return nil, fmt.Errorf("connect to %s: %w", u, err)
		}
		page, err := firstPage(rod.New().Client(cdp.New().Start(ws)))
		if err != nil {
			_ = ws.Close()
			return nil, err
		}
		s.ws = ws
		s.page = page
	}
	return s.page.Context(ctx), nil
}

func firstPage(b *rod.Browser) (*rod.Page, error) {
	if err := b.Connect(); err != nil {
		return nil, err
	}
	pages, err := b.Pages()
	if err != nil {
		return nil, err
	}
	if page := pages.First(); page != nil {
		return page, nil
	}
	return b.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// disconnect drops the debugger connection opened by Page. The browser
// itself is left to the control channel.
func (s *Session) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws != nil {
		_ = s.ws.Close()
		s.ws, s.page = nil, nil
	}
}

// Window returns window helpers for the current page.
func (s *Session) Window(ctx context.Context) (*Window, error) {
	p, err := s.Page(ctx)
	if err != nil {
		return nil, err
	}
	return &Window{page: p, logger: s.logger, metrics: s.metrics}, nil
}
