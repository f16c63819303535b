package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCandidates marks searches where the external catalog returned
	// nothing at all. Distinct from ErrBelowThreshold.
	ErrNoCandidates = errors.New("no candidates")
	// ErrBelowThreshold marks searches where candidates existed but none
	// scored high enough to accept.
	ErrBelowThreshold = errors.New("no candidate above threshold")
	// ErrAmbiguousReference marks stored external references that resolve to
	// a disambiguation or placeholder page.
	ErrAmbiguousReference = errors.New("ambiguous reference")
	// ErrPartialContainerMatch marks two-level matches where the container
	// (album) matched but the contained item (track) did not.
	ErrPartialContainerMatch = errors.New("container matched, item did not")
	// ErrMergeConflict marks junction inserts skipped during a duplicate
	// merge because of a uniqueness constraint.
	ErrMergeConflict = errors.New("merge conflict")
	// ErrExternalUnavailable marks network or catalog failures.
	ErrExternalUnavailable = errors.New("external catalog unavailable")

	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsExpectedOutcome reports whether err represents a frequent, non-exceptional
// matching result (no candidates, below threshold, partial container match)
// rather than a failure that needs operator attention.
func IsExpectedOutcome(err error) bool {
	return errors.Is(err, ErrNoCandidates) ||
		errors.Is(err, ErrBelowThreshold) ||
		errors.Is(err, ErrPartialContainerMatch)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
