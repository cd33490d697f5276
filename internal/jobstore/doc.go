// Package jobstore persists ingestion jobs in SQLite and owns every status
// transition: claiming pending references, recording success and failure, and
// resetting in-flight jobs during shutdown. Claims run inside a single
// transaction so concurrent worker processes never own the same reference.
package jobstore
