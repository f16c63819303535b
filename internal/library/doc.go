// Package library is the SQLite persistence layer for the music graph:
// songs, performers, recordings, releases, the junctions between them, and
// external catalog references. Descriptive fields are layered: a crawled
// slot written by importers and a curated slot written by operators, each
// with its own attribution, with curated winning on every read. One
// database also carries the research queue.
package library
