package jobstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"jukebox/internal/jobstore"
	"jukebox/internal/testsupport"
)

func TestResolveFailureBoundsRetries(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedTrack(t, store, "Track A", "trk-a")

	// Attempts 1 through MaxRetries requeue; the final attempt is terminal.
	for attempt := 1; attempt <= jobstore.MaxRetries; attempt++ {
		job := testsupport.MustClaim(t, store)
		if job.RetryCount != attempt-1 {
			t.Fatalf("attempt %d: retry count = %d, want %d", attempt, job.RetryCount, attempt-1)
		}
		status, err := store.ResolveFailure(context.Background(), "trk-a", fmt.Sprintf("failure %d", attempt))
		if err != nil {
			t.Fatalf("ResolveFailure: %v", err)
		}
		if status != jobstore.StatusPending {
			t.Fatalf("attempt %d resolved to %s, want pending", attempt, status)
		}
	}

	job := testsupport.MustClaim(t, store)
	if job.RetryCount != jobstore.MaxRetries {
		t.Fatalf("final attempt retry count = %d, want %d", job.RetryCount, jobstore.MaxRetries)
	}
	status, err := store.ResolveFailure(context.Background(), "trk-a", "final failure")
	if err != nil {
		t.Fatalf("ResolveFailure: %v", err)
	}
	if status != jobstore.StatusFailed {
		t.Fatalf("exhausted job resolved to %s, want failed", status)
	}

	final, err := store.GetByReference(context.Background(), "trk-a")
	if err != nil {
		t.Fatalf("GetByReference: %v", err)
	}
	if !final.IsTerminal() {
		t.Errorf("job = %+v, want terminal", final)
	}
	if final.ErrorMessage != "final failure" {
		t.Errorf("error message = %q, want the last failure detail", final.ErrorMessage)
	}

	// Failed is terminal: nothing claims it again.
	if next, err := store.ClaimNext(context.Background()); err != nil || next != nil {
		t.Fatalf("claim after exhaustion = %+v, %v", next, err)
	}
}

func TestCompleteJobRequiresProcessing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedTrack(t, store, "Track A", "trk-a")

	err := store.CompleteJob(context.Background(), "trk-a")
	if !errors.Is(err, jobstore.ErrNotProcessing) {
		t.Fatalf("err = %v, want ErrNotProcessing for unclaimed reference", err)
	}

	testsupport.MustClaim(t, store)
	if err := store.CompleteJob(context.Background(), "trk-a"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	// Completing twice fails: the job already left processing.
	err = store.CompleteJob(context.Background(), "trk-a")
	if !errors.Is(err, jobstore.ErrNotProcessing) {
		t.Fatalf("second complete err = %v, want ErrNotProcessing", err)
	}

	job, err := store.GetByReference(context.Background(), "trk-a")
	if err != nil {
		t.Fatalf("GetByReference: %v", err)
	}
	if job.Status != jobstore.StatusCompleted || job.ErrorMessage != "" {
		t.Errorf("job = %+v, want completed with error cleared", job)
	}
}

func TestResolveFailureRequiresProcessing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedTrack(t, store, "Track A", "trk-a")

	if _, err := store.ResolveFailure(context.Background(), "trk-a", "boom"); !errors.Is(err, jobstore.ErrNotProcessing) {
		t.Fatalf("err = %v, want ErrNotProcessing", err)
	}
}

func TestResetProcessingPreservesRetryBudget(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedTrack(t, store, "Track A", "trk-a")
	testsupport.SeedTrack(t, store, "Track B", "trk-b")

	// Put trk-a one failure in, then leave both claimed.
	testsupport.MustClaim(t, store)
	if _, err := store.ResolveFailure(context.Background(), "trk-a", "transient"); err != nil {
		t.Fatalf("ResolveFailure: %v", err)
	}
	testsupport.MustClaim(t, store)
	testsupport.MustClaim(t, store)

	moved, err := store.ResetProcessing(context.Background(), jobstore.ShutdownResetReason)
	if err != nil {
		t.Fatalf("ResetProcessing: %v", err)
	}
	if moved != 2 {
		t.Fatalf("moved = %d, want 2", moved)
	}

	jobA, _ := store.GetByReference(context.Background(), "trk-a")
	if jobA.Status != jobstore.StatusPending || jobA.RetryCount != 1 {
		t.Errorf("trk-a = %+v, want pending with retry count intact", jobA)
	}
	if jobA.ErrorMessage != jobstore.ShutdownResetReason {
		t.Errorf("trk-a error = %q, want reset reason", jobA.ErrorMessage)
	}
	jobB, _ := store.GetByReference(context.Background(), "trk-b")
	if jobB.Status != jobstore.StatusPending || jobB.RetryCount != 0 {
		t.Errorf("trk-b = %+v", jobB)
	}
}

func TestRetryFailedResetsBudget(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedTrack(t, store, "Track A", "trk-a")

	for attempt := 0; attempt <= jobstore.MaxRetries; attempt++ {
		testsupport.MustClaim(t, store)
		if _, err := store.ResolveFailure(context.Background(), "trk-a", "persistent failure"); err != nil {
			t.Fatalf("ResolveFailure: %v", err)
		}
	}

	moved, err := store.RetryFailed(context.Background(), "trk-a")
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if moved != 1 {
		t.Fatalf("moved = %d, want 1", moved)
	}

	job, _ := store.GetByReference(context.Background(), "trk-a")
	if job.Status != jobstore.StatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.RetryCount != 0 {
		t.Errorf("retry count = %d, want fresh budget", job.RetryCount)
	}
	if job.ErrorMessage != "" {
		t.Errorf("error message = %q, want cleared", job.ErrorMessage)
	}
}

func TestRetryFailedIgnoresNonFailedJobs(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedTrack(t, store, "Track A", "trk-a")
	testsupport.MustClaim(t, store)

	moved, err := store.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if moved != 0 {
		t.Fatalf("moved = %d, want 0 with no failed jobs", moved)
	}
}
