// Command bandstand is the operator CLI for the jazz metadata library. It
// works directly against the shared SQLite database for library operations
// and talks to the daemon's HTTP API for runtime status.
package main
