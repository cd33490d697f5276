// Package objectstore writes ingested audio to an S3-compatible bucket with
// deterministic, reference-derived keys.
package objectstore
