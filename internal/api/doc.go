// Package api defines the JSON payloads shared by the daemon's HTTP surface
// and the CLI client, plus converters from internal types. Keeping the wire
// shapes here stops the daemon and CLI from drifting apart.
package api
