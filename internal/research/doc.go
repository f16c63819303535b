// Package research runs the enrichment pipeline. Jobs queue durably in the
// library database and a single worker drains them in enqueue order, walking
// each job through the fixed phase sequence: archive import, the two
// streaming-catalog matches, then biography and cover fetch. A phase that
// finds nothing is recorded on the job and the run continues; only storage
// failures abort a job.
package research
