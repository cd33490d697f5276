// Command jukebox is the operator CLI for the ingestion worker: it registers
// tracks, inspects and repairs the job queue, and checks configuration.
package main
