// Package webdrivertest provides an in-memory control channel for tests.
package webdrivertest

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/admitted/internal/webdriver"
)

// Fake implements the endpoints webdriver.Client uses. Fields may be set
// before the handler serves its first request.
type Fake struct {
	// DebuggerAddress is reported in every new session.
	DebuggerAddress string
	// Redirect maps a requested URL to the URL the "browser" ends up on.
	Redirect func(string) string
	// FailNavigations makes the next n navigations fail.
	FailNavigations int
	// NotReady makes /status report ready=false.
	NotReady bool
	// Message is the /status message; "fake" when empty.
	Message string
	// OnShutdown runs after /shutdown has been answered.
	OnShutdown func()

	mu       sync.Mutex
	nextID   int
	sessions map[string]string // id -> current url
	caps     []webdriver.Capabilities
	requests []string
	mux      *http.ServeMux
	once     sync.Once
}

func (f *Fake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.once.Do(f.routes)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
	f.mux.ServeHTTP(w, r)
}

// Requests lists "METHOD /path" for every request served so far.
func (f *Fake) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// Capabilities returns the capabilities of every session request.
func (f *Fake) Capabilities() []webdriver.Capabilities {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]webdriver.Capabilities(nil), f.caps...)
}

// Sessions returns the number of live sessions.
func (f *Fake) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *Fake) routes() {
	f.sessions = map[string]string{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		ready, msg := !f.NotReady, f.Message
		f.mu.Unlock()
		if msg == "" {
			msg = "fake"
		}
		reply(w, http.StatusOK, map[string]any{"ready": ready, "message": msg})
	})

	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Capabilities struct {
				AlwaysMatch webdriver.Capabilities `json:"alwaysMatch"`
			} `json:"capabilities"`
		}
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, http.StatusBadRequest, "invalid argument", err.Error())
			return
		}

		f.mu.Lock()
		f.nextID++
		id := fmt.Sprintf("fake-session-%d", f.nextID)
		f.sessions[id] = "about:blank"
		f.caps = append(f.caps, req.Capabilities.AlwaysMatch)
		addr := f.DebuggerAddress
		f.mu.Unlock()

		reply(w, http.StatusOK, map[string]any{
			"sessionId": id,
			"capabilities": map[string]any{
				"browserName":        "chrome",
				"browserVersion":     "120.0.6099.109",
				"goog:chromeOptions": map[string]any{"debuggerAddress": addr},
			},
		})
	})

	mux.HandleFunc("DELETE /session/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		_, ok := f.sessions[r.PathValue("id")]
		delete(f.sessions, r.PathValue("id"))
		f.mu.Unlock()
		if !ok {
			fail(w, http.StatusNotFound, "invalid session id", "session deleted or never existed")
			return
		}
		reply(w, http.StatusOK, nil)
	})

	mux.HandleFunc("POST /session/{id}/url", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, http.StatusBadRequest, "invalid argument", err.Error())
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.PathValue("id")
		if _, ok := f.sessions[id]; !ok {
			fail(w, http.StatusNotFound, "invalid session id", "session deleted or never existed")
			return
		}
		if f.FailNavigations > 0 {
			f.FailNavigations--
			fail(w, http.StatusInternalServerError, "unknown error", "net::ERR_CONNECTION_RESET")
			return
		}
		target := req.URL
		if f.Redirect != nil {
			target = f.Redirect(target)
		}
		f.sessions[id] = target
		reply(w, http.StatusOK, nil)
	})

	mux.HandleFunc("GET /session/{id}/url", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		u, ok := f.sessions[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			fail(w, http.StatusNotFound, "invalid session id", "session deleted or never existed")
			return
		}
		reply(w, http.StatusOK, u)
	})

	mux.HandleFunc("GET /shutdown", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, nil)
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
		f.mu.Lock()
		hook := f.OnShutdown
		f.mu.Unlock()
		if hook != nil {
			go hook()
		}
	})

	f.mux = mux
}

func reply(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(map[string]any{"value": value})
}

func fail(w http.ResponseWriter, status int, code, msg string) {
	reply(w, status, map[string]any{"error": code, "message": msg, "stacktrace": ""})
}
