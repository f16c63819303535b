// Package dedup finds and merges recordings that represent the same real
// performance. Detection is heuristic and only ever suggests; merging is a
// single all-or-nothing transaction that migrates release links, credits
// and external references to the master, skipping junction rows the master
// already holds, then deletes the duplicates.
package dedup
