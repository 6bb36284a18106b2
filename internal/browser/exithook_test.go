package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitHooks(t *testing.T) {
	var order []string
	RegisterExitHook(func() { order = append(order, "first") })
	cancel := RegisterExitHook(func() { order = append(order, "cancelled") })
	RegisterExitHook(func() { order = append(order, "last") })
	cancel()
	assert.Equal(t, 2, pendingExitHooks())

	RunExitHooks()
	assert.Equal(t, []string{"last", "first"}, order)
	assert.Zero(t, pendingExitHooks())

	RunExitHooks()
	assert.Len(t, order, 2, "hooks run once")
	cancel()
}
