package webdriver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
)

// Client talks to one control-channel process.
type Client struct {
	rc *resty.Client
}

// New returns a client for the control channel listening at baseURL.
func New(baseURL string, logger *logging.Logger) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60*time.Second).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetLogger(logging.OrNop(logger).Named("webdriver").Sugar())
	return &Client{rc: rc}
}

// BaseURL returns the control channel address.
func (c *Client) BaseURL() string {
	return c.rc.BaseURL
}

// Close releases idle connections to the control channel.
func (c *Client) Close() {
	c.rc.GetClient().CloseIdleConnections()
}

// Status reports whether the control channel accepts new sessions.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.call(ctx, http.MethodGet, "/status", nil, &st)
	return st, err
}

// WaitReady polls Status until it reports ready or ctx expires.
func (c *Client) WaitReady(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	for {
		st, err := c.Status(ctx)
		if err == nil && st.Ready {
			return nil
		}
		if err != nil {
			last = err
		} else {
			last = fmt.Errorf("control channel not ready: %s", st.Message)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for control channel: %w", errors.Join(ctx.Err(), last))
		case <-ticker.C:
		}
	}
}

// NewSession starts a browser and returns its session.
func (c *Client) NewSession(ctx context.Context, caps Capabilities) (*Session, error) {
	var req newSessionRequest
	req.Capabilities.AlwaysMatch = caps

	var v newSessionValue
	if err := c.call(ctx, http.MethodPost, "/session", req, &v); err != nil {
		return nil, err
	}
	if v.SessionID == "" {
		return nil, errors.New("webdriver: new session response has no session id")
	}
	return &Session{
		ID:              v.SessionID,
		BrowserVersion:  v.Capabilities.BrowserVersion,
		DebuggerAddress: v.Capabilities.ChromeOptions.DebuggerAddress,
	}, nil
}

// DeleteSession ends a session and closes its browser.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/session/"+url.PathEscape(id), nil, nil)
}

// Navigate loads u in the session's current top-level browsing context and
// returns once the page load strategy is satisfied.
func (c *Client) Navigate(ctx context.Context, id, u string) error {
	return c.call(ctx, http.MethodPost, "/session/"+url.PathEscape(id)+"/url", map[string]string{"url": u}, nil)
}

// CurrentURL returns the URL of the session's top-level browsing context.
func (c *Client) CurrentURL(ctx context.Context, id string) (string, error) {
	var u string
	err := c.call(ctx, http.MethodGet, "/session/"+url.PathEscape(id)+"/url", nil, &u)
	return u, err
}

// Shutdown asks the control channel process to exit. The process may drop
// the connection before answering, so transport errors are ignored.
func (c *Client) Shutdown(ctx context.Context) error {
	err := c.call(ctx, http.MethodGet, "/shutdown", nil, nil)
	var we *Error
	if errors.As(err, &we) {
		return err
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	req := c.rc.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("webdriver %s %s: %w", method, path, err)
	}

	var env envelope
	if len(resp.Body()) > 0 {
		if err := sonic.Unmarshal(resp.Body(), &env); err != nil && !resp.IsError() {
			return fmt.Errorf("webdriver %s %s: decode response: %w", method, path, err)
		}
	}

	if resp.IsError() {
		we := &Error{StatusCode: resp.StatusCode()}
		if len(env.Value) == 0 || sonic.Unmarshal(env.Value, we) != nil || we.Code == "" {
			we.Code = "unknown error"
			we.Message = resp.Status()
		}
		return we
	}

	if out == nil || len(env.Value) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(env.Value, out); err != nil {
		return fmt.Errorf("webdriver %s %s: decode value: %w", method, path, err)
	}
	return nil
}
