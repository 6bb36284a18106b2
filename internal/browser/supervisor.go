package browser

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/admitted/internal/process"
	"github.com/GriffinCanCode/admitted/internal/shared/id"
	"github.com/GriffinCanCode/admitted/internal/webdriver"
)

const readyPoll = 100 * time.Millisecond

// Supervisor launches sessions and keeps track of the ones still open.
type Supervisor struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics

	sessions sync.Map // id.SessionID -> *Session
}

// NewSupervisor creates a supervisor. Both arguments may be nil.
func NewSupervisor(logger *logging.Logger, metrics *monitoring.Metrics) *Supervisor {
	return &Supervisor{
		logger:  logging.OrNop(logger).Named("browser"),
		metrics: metrics,
	}
}

// Launch starts the control channel and a browser session on it. The
// process tree is recorded once, right after the session starts, and is
// what Close terminates. The session is also registered as an exit hook.
func (s *Supervisor) Launch(ctx context.Context, opts Options) (sess *Session, err error) {
	defer func() { s.metrics.RecordLaunch(err) }()

	if opts.AttachURL != "" {
		return s.attach(ctx, opts)
	}

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("reserve control channel port: %w", err)
	}

	// Not CommandContext: the process belongs to the session, not to ctx.
	cmd := exec.Command(opts.DriverPath, opts.driverArgs(port)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start control channel %s: %w", opts.DriverPath, err)
	}
	c := reap(cmd)
	client := webdriver.New(fmt.Sprintf("http://127.0.0.1:%d", port), s.logger)
	term := s.terminator(opts)

	abort := func(cause error) (*Session, error) {
		_, _ = term.Terminate(context.Background(), process.Descendants(cmd.Process.Pid))
		<-c.done
		client.Close()
		return nil, cause
	}

	if err := c.waitReady(ctx, client, opts.startupTimeout()); err != nil {
		return abort(err)
	}
	wd, err := client.NewSession(ctx, opts.capabilities())
	if err != nil {
		return abort(fmt.Errorf("start browser session: %w", err))
	}

	sess = &Session{
		ID:              id.NewSessionID(),
		DebuggerAddress: wd.DebuggerAddress,
		BrowserVersion:  wd.BrowserVersion,
		PIDs:            process.Descendants(cmd.Process.Pid),
		StartedAt:       time.Now(),
		opts:            opts,
		client:          client,
		wdID:            wd.ID,
		child:           c,
		term:            term,
		metrics:         s.metrics,
	}
	s.track(sess)
	sess.unregister = RegisterExitHook(func() { _ = sess.Close() })

	sess.logger.Info("Session launched",
		zap.Int("port", port),
		zap.Ints("pids", sess.PIDs),
		zap.String("debugger_address", sess.DebuggerAddress),
		zap.String("browser_version", sess.BrowserVersion),
	)
	return sess, nil
}

// attach opens a session on a control channel someone else runs. There
// is nothing to signal on close and so no exit hook either.
func (s *Supervisor) attach(ctx context.Context, opts Options) (*Session, error) {
	client := webdriver.New(opts.AttachURL, s.logger)

	rctx, cancel := context.WithTimeout(ctx, opts.startupTimeout())
	defer cancel()
	if err := client.WaitReady(rctx, readyPoll); err != nil {
		client.Close()
		return nil, err
	}
	wd, err := client.NewSession(ctx, opts.capabilities())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("start browser session: %w", err)
	}

	sess := &Session{
		ID:              id.NewSessionID(),
		DebuggerAddress: wd.DebuggerAddress,
		BrowserVersion:  wd.BrowserVersion,
		StartedAt:       time.Now(),
		opts:            opts,
		client:          client,
		wdID:            wd.ID,
		metrics:         s.metrics,
	}
	s.track(sess)
	sess.logger.Info("Session attached", zap.String("control_url", opts.AttachURL))
	return sess, nil
}

func (s *Supervisor) track(sess *Session) {
	sess.logger = s.logger.With(zap.String("session_id", sess.ID.String()))
	sess.onClose = func() { s.sessions.Delete(sess.ID) }
	s.sessions.Store(sess.ID, sess)
}

func (s *Supervisor) terminator(opts Options) *process.Terminator {
	return &process.Terminator{
		Grace:   opts.Grace,
		Rounds:  opts.Rounds,
		Logger:  s.logger,
		Metrics: s.metrics,
	}
}

// Sessions describes the open sessions, oldest first.
func (s *Supervisor) Sessions() []Info {
	var out []Info
	s.sessions.Range(func(_, v any) bool {
		out = append(out, v.(*Session).Info())
		return true
	})
	slices.SortFunc(out, func(a, b Info) int { return a.StartedAt.Compare(b.StartedAt) })
	return out
}

// CloseAll closes every open session and returns the first error.
func (s *Supervisor) CloseAll() error {
	var first error
	s.sessions.Range(func(_, v any) bool {
		if err := v.(*Session).Close(); err != nil && first == nil {
			first = err
		}
		return true
	})
	return first
}

// child is a started control channel with a goroutine waiting on it, so
// it never lingers as a zombie.
type child struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func reap(cmd *exec.Cmd) *child {
	c := &child{cmd: cmd, done: make(chan struct{})}
	go func() {
		c.err = cmd.Wait()
		close(c.done)
	}()
	return c
}

func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// waitReady polls the control channel until it answers, the startup
// timeout passes, or the process exits.
func (c *child) waitReady(ctx context.Context, client *webdriver.Client, timeout time.Duration) error {
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-rctx.Done():
		}
	}()

	err := client.WaitReady(rctx, readyPoll)
	if err != nil && c.exited() {
		return fmt.Errorf("control channel %s exited during startup: %v", c.cmd.Path, c.err)
	}
	return err
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
