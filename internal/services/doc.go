// Package services defines the shared error taxonomy and context plumbing
// used by the matcher, validator, resolver, and research worker.
//
// Expected matching outcomes (no candidates, below threshold, partial
// container match) are sentinel errors so callers can classify them with
// errors.Is without treating them as exceptional.
package services
