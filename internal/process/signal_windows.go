//go:build windows

package process

import (
	"errors"
	"os"
)

// Windows has no SIGTERM for arbitrary processes; both phases end in
// TerminateProcess.
var (
	sigTerm os.Signal = os.Kill
	sigKill os.Signal = os.Kill
)

func sendSignal(pid int, _ os.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	defer p.Release()
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func signalAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = p.Release()
	return true
}
