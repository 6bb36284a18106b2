package driver

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Catalog is the known-good-versions-with-downloads document.
type Catalog struct {
	Timestamp string           `json:"timestamp"`
	Versions  []CatalogVersion `json:"versions"`
}

// CatalogVersion is one browser/driver build and its downloads per product.
type CatalogVersion struct {
	Version   string                `json:"version"`
	Revision  string                `json:"revision"`
	Downloads map[string][]Download `json:"downloads"`
}

// Download is a per-platform archive location.
type Download struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

const productDriver = "chromedriver"

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := sonic.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &c, nil
}

// DriverURL returns the driver archive URL for an exact version/platform.
func (c *Catalog) DriverURL(version, platform string) (string, bool) {
	for _, v := range c.Versions {
		if v.Version == version {
			return v.driverURL(platform)
		}
	}
	return "", false
}

func (v CatalogVersion) driverURL(platform string) (string, bool) {
	for _, d := range v.Downloads[productDriver] {
		if d.Platform == platform {
			return d.URL, true
		}
	}
	return "", false
}

// Recommend picks the driver for browser: the exact build when the
// catalog has a driver download for it, otherwise the newest build of the
// same major version that does. ok is false when neither exists.
func (c *Catalog) Recommend(browser Version, platform string) (version string, ok bool) {
	if _, found := c.DriverURL(browser.String(), platform); found {
		return browser.String(), true
	}

	var best Version
	for _, v := range c.Versions {
		parsed, err := ParseVersion(v.Version)
		if err != nil || parsed.Major() != browser.Major() {
			continue
		}
		if _, found := v.driverURL(platform); !found {
			continue
		}
		if best == nil || Compare(parsed, best) > 0 {
			best, version = parsed, v.Version
		}
	}
	return version, best != nil
}

// Latest returns the newest build with a driver download for platform.
func (c *Catalog) Latest(platform string) (version, url string, ok bool) {
	var best Version
	for _, v := range c.Versions {
		parsed, err := ParseVersion(v.Version)
		if err != nil {
			continue
		}
		u, found := v.driverURL(platform)
		if !found {
			continue
		}
		if best == nil || Compare(parsed, best) > 0 {
			best, version, url = parsed, v.Version, u
		}
	}
	return version, url, best != nil
}
