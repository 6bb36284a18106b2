package site

import (
	"context"
	"time"

	"github.com/GriffinCanCode/admitted/internal/navigation"
)

const (
	DefaultPageRetries = 2
	DefaultPageBackoff = 3 * time.Second
)

// Page is one location on a Site.
type Page struct {
	site *Site

	URL     string
	Retries int
	Backoff time.Duration
	// Enforce requires the browser to land on URL; a redirect to the login
	// page then counts as a failed attempt and triggers a login.
	Enforce bool
}

// Navigate loads the page, logging in again between failed attempts.
func (p *Page) Navigate(ctx context.Context) error {
	return p.site.controller.Navigate(ctx, p.URL, navigation.Options{
		MaxRetries:      p.Retries,
		BackoffBase:     p.Backoff,
		EnforceURLMatch: p.Enforce,
		Reauth: func(ctx context.Context, _ int) error {
			return p.site.Login(ctx)
		},
	})
}
