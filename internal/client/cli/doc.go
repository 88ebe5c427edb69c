// Package cli implements the socialhub console client: a small REPL over the
// record access service, the session controller and the realtime watcher.
//
// The REPL stands in for the dashboard's screens. It reads one command per
// line, prints results as JSON lines, and never exits on a failed command;
// errors are printed and the loop continues.
package cli
