package objectstore

const (
	keyPrefix      = "audio/"
	audioExtension = ".webm"

	// AudioContentType is the fixed content type for ingested audio objects.
	AudioContentType = "audio/webm"
)

// KeyFor derives the deterministic object key for a catalog reference. The key
// namespace is partitioned by reference so concurrent distinct jobs never
// collide.
func KeyFor(reference string) string {
	return keyPrefix + reference + audioExtension
}
