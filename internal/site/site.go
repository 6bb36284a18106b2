package site

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/admitted/internal/navigation"
)

// Authenticator is implemented once per concrete web site.
type Authenticator interface {
	// LoginURL is the page that hosts the login form.
	LoginURL() string
	// IsAuthenticated reports whether the session is still logged in.
	IsAuthenticated(ctx context.Context) (bool, error)
	// Authenticate fills in and submits the login form. It is called with
	// the browser already on the login page.
	Authenticate(ctx context.Context) error
}

// Site ties an Authenticator to the session it drives.
type Site struct {
	auth       Authenticator
	nav        navigation.Navigator
	controller *navigation.Controller
	logger     *logging.Logger
}

// New creates a site. logger and metrics may be nil.
func New(auth Authenticator, nav navigation.Navigator, logger *logging.Logger, metrics *monitoring.Metrics) *Site {
	logger = logging.OrNop(logger).Named("site").With(zap.String("login_url", auth.LoginURL()))
	return &Site{
		auth:       auth,
		nav:        nav,
		controller: navigation.New(nav, logger, metrics),
		logger:     logger,
	}
}

// Login authenticates unless the session already is. The login page is
// only loaded when the browser is not on it yet, ignoring subdomain and
// query, so a redirect such as auth.example.com/login?returnTo=... keeps
// its return target.
func (s *Site) Login(ctx context.Context) error {
	ok, err := s.auth.IsAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("check authentication: %w", err)
	}
	if ok {
		return nil
	}

	current, err := s.nav.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("current url: %w", err)
	}
	if !navigation.MatchURL(current, s.auth.LoginURL(), true) {
		if err := s.controller.Navigate(ctx, s.auth.LoginURL(), navigation.Options{}); err != nil {
			return err
		}
	}

	s.logger.Info("Authenticating", zap.String("from", current))
	if err := s.auth.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	return nil
}

// Page returns a page of this site at url.
func (s *Site) Page(url string) *Page {
	return &Page{
		site:    s,
		URL:     url,
		Retries: DefaultPageRetries,
		Backoff: DefaultPageBackoff,
		Enforce: true,
	}
}
