// Package provenance manages the layered descriptive fields of the library:
// crawled values written by catalog importers and curated values written by
// operators, each slot with its own attribution and timestamp. Curated wins
// on read; re-imports refresh crawled slots without ever disturbing curated
// ones.
package provenance
