// Package worker runs the single-claim ingest loop: claim a job, stream it
// through the pipeline, and persist the outcome through the job store.
package worker
