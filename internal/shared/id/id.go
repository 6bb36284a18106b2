// Package id generates the identifiers used for browser sessions and
// in-page fetch requests.
//
// Session ids are prefixed ULIDs (sess_01H...), so they sort by creation
// time in logs and in the status server's session listing. Fetch ids are
// random UUIDs used only to correlate a script evaluation with its log
// lines.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID identifies a browser session
type SessionID string

// FetchID correlates an in-page fetch with its log lines
type FetchID string

const (
	SessionPrefix = "sess"
	FetchPrefix   = "fetch"
)

// Generator generates monotonic ULIDs
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator(rand.Reader, time.Now)
	})
	return defaultGenerator
}

// NewGenerator creates a generator. Entropy is wrapped so ids generated in
// the same millisecond still sort in creation order.
func NewGenerator(entropy io.Reader, now func() time.Time) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(entropy, 0),
		now:     now,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// NewSessionID generates a session ID with the shared generator
func NewSessionID() SessionID {
	return Default().SessionID()
}

// SessionID generates a session ID
func (g *Generator) SessionID() SessionID {
	return SessionID(fmt.Sprintf("%s_%s", SessionPrefix, g.Generate()))
}

// NewFetchID generates a fetch correlation ID
func NewFetchID() FetchID {
	return FetchID(fmt.Sprintf("%s_%s", FetchPrefix, uuid.NewString()))
}

func (s SessionID) String() string { return string(s) }
func (f FetchID) String() string   { return string(f) }

// ParseSessionID validates s and returns the time it was created.
func ParseSessionID(s string) (SessionID, time.Time, error) {
	raw, ok := strings.CutPrefix(s, SessionPrefix+"_")
	if !ok {
		return "", time.Time{}, fmt.Errorf("session id %q: missing %s_ prefix", s, SessionPrefix)
	}
	u, err := ulid.ParseStrict(raw)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session id %q: %w", s, err)
	}
	return SessionID(s), ulid.Time(u.Time()), nil
}
