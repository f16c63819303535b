// Package daemon wires the library store, research orchestrator, duplicate
// resolver and reference validator into a single long-running process with
// an HTTP API. A flock-based lock file next to the database keeps a second
// daemon from racing the first.
package daemon
