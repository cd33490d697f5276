package testsupport

import (
	"context"
	"testing"

	"jukebox/internal/config"
	"jukebox/internal/jobstore"
)

// MustOpenStore opens a jobstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedTrack inserts a playlist track carrying a catalog reference.
func SeedTrack(t testing.TB, store *jobstore.Store, title, reference string) {
	t.Helper()

	if err := store.SeedTrack(context.Background(), title, reference); err != nil {
		t.Fatalf("store.SeedTrack: %v", err)
	}
}

// MustClaim claims the next job and fails the test when nothing is claimable.
func MustClaim(t testing.TB, store *jobstore.Store) *jobstore.Job {
	t.Helper()

	job, err := store.ClaimNext(context.Background())
	if err != nil {
		t.Fatalf("store.ClaimNext: %v", err)
	}
	if job == nil {
		t.Fatal("store.ClaimNext: no claimable job")
	}
	return job
}
