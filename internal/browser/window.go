package browser

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/go-rod/rod"
	"github.com/ysmood/gson"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/monitoring"
)

// Window reads and drives the global scope of the current page.
type Window struct {
	page    *rod.Page
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// Get returns window.<name>, or window<name> when name is a bracket
// accessor like `["my-key"]`. ok is false when the expression throws or
// the value is undefined.
func (w *Window) Get(name string) (value gson.JSON, ok bool) {
	expr, err := globalExpr(name)
	if err != nil {
		return gson.New(nil), false
	}
	obj, err := w.page.Eval("() => " + expr)
	if err != nil || obj.Value.Nil() {
		return gson.New(nil), false
	}
	return obj.Value, true
}

func globalExpr(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty global name")
	}
	expr := "window." + name
	if strings.HasPrefix(name, "[") {
		expr = "window" + name
	}
	if _, err := goja.Compile("global", expr, true); err != nil {
		return "", fmt.Errorf("invalid global accessor %q: %w", name, err)
	}
	return expr, nil
}

// newKeysScript diffs the page's globals against a pristine frame.
const newKeysScript = `() => {
	const frame = document.createElement("iframe");
	frame.style.display = "none";
	document.documentElement.appendChild(frame);
	const pristine = new Set(Object.keys(frame.contentWindow));
	frame.remove();
	return Object.keys(window).filter((k) => !pristine.has(k)).sort();
}`

// NewKeys lists globals the page added on top of a pristine window.
func (w *Window) NewKeys() ([]string, error) {
	obj, err := w.page.Eval(newKeysScript)
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := obj.Value.Unmarshal(&keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// ScrollToTop scrolls the window to the top of the page.
func (w *Window) ScrollToTop() error {
	_, err := w.page.Eval("() => window.scrollTo(0, 0)")
	return err
}
