// Package logging builds the slog loggers used across Bandstand.
//
// It provides a human-oriented console handler and a JSON handler, typed
// attribute helpers, standardized field keys, and context-derived fields so
// research jobs and API requests carry consistent correlation data in every
// record.
package logging
