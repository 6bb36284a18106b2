package id

import (
	"crypto/rand"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionID(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	gen := NewGenerator(rand.Reader, func() time.Time { return fixed })

	t.Run("prefixed and parseable", func(t *testing.T) {
		sid := gen.SessionID()
		assert.True(t, strings.HasPrefix(sid.String(), "sess_"))

		parsed, created, err := ParseSessionID(sid.String())
		require.NoError(t, err)
		assert.Equal(t, sid, parsed)
		assert.True(t, created.Equal(fixed))
	})

	t.Run("same millisecond ids still sort in order", func(t *testing.T) {
		ids := make([]string, 50)
		for i := range ids {
			ids[i] = gen.SessionID().String()
		}
		assert.True(t, sort.StringsAreSorted(ids))
	})
}

func TestParseSessionIDRejects(t *testing.T) {
	for _, in := range []string{"", "01HZZZZZZZZZZZZZZZZZZZZZZZ", "sess_nope", "fetch_" + NewGenerator(rand.Reader, time.Now).Generate().String()} {
		_, _, err := ParseSessionID(in)
		assert.Error(t, err, in)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[SessionID]bool)
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sid := NewSessionID()
				mu.Lock()
				seen[sid] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 800)
}

func TestFetchID(t *testing.T) {
	a, b := NewFetchID(), NewFetchID()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a.String(), "fetch_"))
}
