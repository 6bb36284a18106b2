package webdriver

import (
	"encoding/json"
	"fmt"
)

// ChromeOptions is the goog:chromeOptions capability.
type ChromeOptions struct {
	Args            []string       `json:"args,omitempty"`
	Prefs           map[string]any `json:"prefs,omitempty"`
	Binary          string         `json:"binary,omitempty"`
	DebuggerAddress string         `json:"debuggerAddress,omitempty"`
}

// Capabilities requested for a new session.
type Capabilities struct {
	BrowserName   string         `json:"browserName,omitempty"`
	PageLoad      string         `json:"pageLoadStrategy,omitempty"`
	ChromeOptions *ChromeOptions `json:"goog:chromeOptions,omitempty"`
}

// Status is the value of GET /status.
type Status struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message"`
}

// Session is what POST /session returns.
type Session struct {
	ID              string
	BrowserVersion  string
	DebuggerAddress string
}

// Error is a W3C error payload.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("webdriver %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type envelope struct {
	Value json.RawMessage `json:"value"`
}

type newSessionRequest struct {
	Capabilities struct {
		AlwaysMatch Capabilities `json:"alwaysMatch"`
	} `json:"capabilities"`
}

type newSessionValue struct {
	SessionID    string `json:"sessionId"`
	Capabilities struct {
		BrowserVersion string        `json:"browserVersion"`
		ChromeOptions  ChromeOptions `json:"goog:chromeOptions"`
	} `json:"capabilities"`
}
