// Package refcheck re-validates stored external references against their
// catalog pages. Verification is conservative: a page that cannot be
// fetched proves nothing and the reference survives; deletion happens only
// through the explicit purge path after a failed re-check.
package refcheck
