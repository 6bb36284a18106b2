// Command admitted keeps the browser control channel in step with the
// installed browser and drives sessions from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/admitted/internal/browser"
)

func main() {
	os.Exit(run())
}

func run() int {
	// sessions still open when a command returns, fails or is interrupted
	defer browser.RunExitHooks()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
