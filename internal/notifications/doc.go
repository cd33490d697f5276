// Package notifications delivers best-effort push notifications about ingest
// outcomes via ntfy.
package notifications
