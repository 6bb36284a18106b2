package navigation

import (
	"net/url"
	"slices"
	"strings"
)

// MatchURL reports whether a and b point at the same place: equal paths,
// equal last two host labels (so a.example.com matches b.example.com) and,
// unless ignoreQuery is set, equal raw queries. Scheme and fragment are
// not compared.
func MatchURL(a, b string, ignoreQuery bool) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}

	if ua.Path != ub.Path {
		return false
	}
	if !slices.Equal(siteLabels(ua.Host), siteLabels(ub.Host)) {
		return false
	}
	return ignoreQuery || ua.RawQuery == ub.RawQuery
}

func siteLabels(host string) []string {
	labels := strings.Split(strings.ToLower(host), ".")
	if len(labels) > 2 {
		labels = labels[len(labels)-2:]
	}
	return labels
}
