package process

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliveSelf(t *testing.T) {
	assert.True(t, Alive(os.Getpid()))
	assert.False(t, Alive(0))
	assert.False(t, Alive(-1))
}

func TestDescendantsAndTerminate(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	cmd := exec.Command("sh", "-c", "sleep 30 & sleep 30 & wait")
	require.NoError(t, cmd.Start())
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	root := cmd.Process.Pid
	var pids []int
	require.Eventually(t, func() bool {
		pids = Descendants(root)
		return len(pids) == 3
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, root, pids[0])

	term := &Terminator{Grace: 50 * time.Millisecond}
	res, err := term.Terminate(context.Background(), pids)
	require.NoError(t, err)
	assert.ElementsMatch(t, pids, res.Signalled)
	assert.Empty(t, res.Survivors)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shell was not reaped")
	}
	for _, pid := range pids {
		assert.False(t, Alive(pid), "pid %d", pid)
	}

	// a second pass finds nothing to signal
	res, err = term.Terminate(context.Background(), pids)
	require.NoError(t, err)
	assert.Empty(t, res.Signalled)
}

func TestDescendantsWithoutChildren(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	assert.Equal(t, []int{cmd.Process.Pid}, Descendants(cmd.Process.Pid))
}
