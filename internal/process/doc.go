// Package process finds and terminates the OS processes a browser session
// leaves behind.
//
// A session records its control-channel process and every descendant once,
// right after launch (Descendants). On close a Terminator walks that set:
// a normal termination signal first, then forceful kills for survivors,
// re-checking liveness after a fixed grace interval each round.
//
// Process discovery reads /proc through prometheus/procfs. On systems
// without procfs the set degrades to the root pid alone.
package process
