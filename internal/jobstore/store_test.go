package jobstore_test

import (
	"context"
	"testing"

	"jukebox/internal/jobstore"
	"jukebox/internal/testsupport"
)

func TestSeedTrackValidation(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	if err := store.SeedTrack(context.Background(), "No Reference", ""); err == nil {
		t.Fatal("expected error for empty reference")
	}

	testsupport.SeedTrack(t, store, "Track A", "trk-a")
	if err := store.SeedTrack(context.Background(), "Duplicate", "trk-a"); err == nil {
		t.Fatal("expected error for duplicate catalog reference")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedTrack(t, store, "Track A", "trk-a")
	testsupport.SeedTrack(t, store, "Track B", "trk-b")

	testsupport.MustClaim(t, store)
	if err := store.CompleteJob(context.Background(), "trk-a"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	testsupport.MustClaim(t, store)

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}

	completed, err := store.List(context.Background(), jobstore.StatusCompleted)
	if err != nil {
		t.Fatalf("List(completed): %v", err)
	}
	if len(completed) != 1 || completed[0].Reference != "trk-a" {
		t.Errorf("completed = %+v", completed)
	}
}

func TestHealthSummaryCounts(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedTrack(t, store, "Track A", "trk-a")
	testsupport.SeedTrack(t, store, "Track B", "trk-b")

	testsupport.MustClaim(t, store)
	if err := store.CompleteJob(context.Background(), "trk-a"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	testsupport.MustClaim(t, store)

	health, err := store.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	want := jobstore.HealthSummary{Total: 2, Processing: 1, Completed: 1}
	if health != want {
		t.Errorf("health = %+v, want %+v", health, want)
	}
}

func TestCheckHealthOnFreshDatabase(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Errorf("health = %+v, want existing readable database with jobs table", health)
	}
	if !health.IntegrityCheck {
		t.Error("integrity check should pass on a fresh database")
	}
}
