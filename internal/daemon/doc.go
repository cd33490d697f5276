// Package daemon wires the ingest worker, job store, and liveness API into a
// single-instance background process with clean shutdown reconciliation.
package daemon
