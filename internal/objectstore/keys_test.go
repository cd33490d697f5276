package objectstore

import "testing"

func TestKeyFor(t *testing.T) {
	if got, want := KeyFor("trk-42"), "audio/trk-42.webm"; got != want {
		t.Errorf("KeyFor = %q, want %q", got, want)
	}
	// Same reference, same key: re-ingesting overwrites rather than duplicates.
	if KeyFor("trk-42") != KeyFor("trk-42") {
		t.Error("KeyFor must be deterministic")
	}
}
