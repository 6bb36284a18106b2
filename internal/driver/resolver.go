package driver

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/GriffinCanCode/admitted/internal/platform"
)

// HTTP is the network capability the resolver and installer need.
// httpclient.Client satisfies it.
type HTTP interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// DefaultCutover is the first major version published only in the catalog.
const DefaultCutover = 115

// Resolver answers "which driver goes with this browser" and "where do I
// download it". Network failures are returned as-is; retry policy belongs
// to the HTTP implementation and the caller.
type Resolver struct {
	HTTP       HTTP
	LegacyURL  string
	CatalogURL string
	Cutover    int

	mu      sync.Mutex
	catalog *Catalog
}

func (r *Resolver) cutover() int {
	if r.Cutover <= 0 {
		return DefaultCutover
	}
	return r.Cutover
}

// Catalog fetches the catalog once and caches it.
func (r *Resolver) Catalog(ctx context.Context) (*Catalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.catalog != nil {
		return r.catalog, nil
	}

	data, err := r.HTTP.Get(ctx, r.CatalogURL)
	if err != nil {
		return nil, fmt.Errorf("fetch driver catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, &VersionError{Op: "resolve", Err: err}
	}
	r.catalog = c
	return c, nil
}

// Recommended returns the driver version for browser. ok is false when the
// catalog has no usable entry, meaning "install the latest".
func (r *Resolver) Recommended(ctx context.Context, browser Version, platformID string) (version string, ok bool, err error) {
	if browser.Major() < r.cutover() {
		url := fmt.Sprintf("%s/LATEST_RELEASE_%d", strings.TrimRight(r.LegacyURL, "/"), browser.Major())
		data, err := r.HTTP.Get(ctx, url)
		if err != nil {
			return "", false, fmt.Errorf("fetch legacy driver release: %w", err)
		}
		version = strings.TrimSpace(string(data))
		if _, err := ParseVersion(version); err != nil {
			return "", false, &VersionError{Op: "resolve", Platform: platformID, Wanted: browser.String(), Err: err}
		}
		return version, true, nil
	}

	c, err := r.Catalog(ctx)
	if err != nil {
		return "", false, err
	}
	version, ok = c.Recommend(browser, platformID)
	return version, ok, nil
}

// DownloadURL returns the archive URL for a driver version.
func (r *Resolver) DownloadURL(ctx context.Context, version, platformID string) (string, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return "", &VersionError{Op: "resolve", Platform: platformID, Wanted: version, Err: err}
	}

	if v.Major() < r.cutover() {
		return fmt.Sprintf("%s/%s/chromedriver_%s.zip", strings.TrimRight(r.LegacyURL, "/"), version, legacyPlatform(platformID)), nil
	}

	c, err := r.Catalog(ctx)
	if err != nil {
		return "", err
	}
	url, ok := c.DriverURL(version, platformID)
	if !ok {
		return "", &VersionError{Op: "resolve", Platform: platformID, Wanted: version, Err: ErrNoDownload}
	}
	return url, nil
}

// Latest returns the newest catalog driver for the platform.
func (r *Resolver) Latest(ctx context.Context, platformID string) (version, url string, err error) {
	c, err := r.Catalog(ctx)
	if err != nil {
		return "", "", err
	}
	version, url, ok := c.Latest(platformID)
	if !ok {
		return "", "", &VersionError{Op: "resolve latest", Platform: platformID, Err: ErrNoDownload}
	}
	return version, url, nil
}

// legacyPlatform maps catalog platform ids onto the pre-catalog archive names.
func legacyPlatform(id string) string {
	switch id {
	case platform.Win32, platform.Win64:
		return "win32"
	case platform.MacARM64:
		return "mac64_m1"
	case platform.MacX64:
		return "mac64"
	default:
		return id
	}
}
