package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMatchURL(t *testing.T) {
	tests := []struct {
		name        string
		a, b        string
		ignoreQuery bool
		want        bool
	}{
		{"identical", "https://example.com/a?x=1", "https://example.com/a?x=1", false, true},
		{"subdomain", "https://login.example.com/a", "https://www.example.com/a", false, true},
		{"host case", "https://WWW.Example.COM/a", "https://example.com/a", false, true},
		{"scheme ignored", "http://example.com/a", "https://example.com/a", false, true},
		{"fragment ignored", "https://example.com/a#top", "https://example.com/a", false, true},
		{"other site", "https://example.org/a", "https://example.com/a", false, false},
		{"path differs", "https://example.com/a", "https://example.com/b", false, false},
		{"trailing slash", "https://example.com/a/", "https://example.com/a", false, false},
		{"query differs", "https://example.com/a?x=1", "https://example.com/a?x=2", false, false},
		{"query ignored", "https://example.com/a?x=1", "https://example.com/a?x=2", true, true},
		{"port kept", "https://example.com:8443/a", "https://example.com/a", false, false},
		{"unparseable", "https://exa mple.com/%zz", "https://example.com/a", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchURL(tt.a, tt.b, tt.ignoreQuery))
		})
	}
}

func TestMatchURLProperties(t *testing.T) {
	label := rapid.StringMatching(`[a-z][a-z0-9]{0,8}`)
	path := rapid.StringMatching(`(/[a-z0-9]{1,6}){0,3}`)
	query := rapid.StringMatching(`([a-z]{1,4}=[0-9]{1,3})?`)

	rapid.Check(t, func(t *rapid.T) {
		site := label.Draw(t, "site") + ".com"
		p := path.Draw(t, "path")
		q := query.Draw(t, "query")
		u := "https://" + site + p
		if q != "" {
			u += "?" + q
		}

		if !MatchURL(u, u, false) {
			t.Fatalf("%q does not match itself", u)
		}

		sub := "https://" + label.Draw(t, "sub") + "." + site + p
		if !MatchURL(sub, "https://"+site+p, false) {
			t.Fatalf("%q should match %q", sub, site+p)
		}

		other := path.Draw(t, "other")
		if other != p && MatchURL("https://"+site+other, "https://"+site+p, true) {
			t.Fatalf("paths %q and %q should not match", other, p)
		}

		q2 := query.Draw(t, "query2")
		if !MatchURL("https://"+site+p+"?"+q2, u, true) {
			t.Fatalf("query should be ignored")
		}
	})
}
