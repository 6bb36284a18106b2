// Package browser launches and supervises browser sessions.
//
// A Supervisor starts the control-channel executable, opens a W3C session
// against it and records the process tree that resulted. The returned
// Session is the single owner of those processes: Close ends the session
// gracefully, then escalates signals until every recorded pid is gone.
// Close runs at most once, whether called directly or from RunExitHooks.
//
//	sup := browser.NewSupervisor(logger, metrics)
//	sess, err := sup.Launch(ctx, opts)
//	if err != nil {
//		return err
//	}
//	defer sess.Close()
//
// Page-level work (in-page fetch, window globals, element waits) goes over
// the session's debugger address using go-rod.
package browser
