package jobstore

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an ingestion job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// MaxRetries is the number of retryable-failure transitions allowed before a
// job is marked failed, i.e. up to MaxRetries+1 total attempts. Fixed policy,
// not configurable.
const MaxRetries = 3

// ShutdownResetReason is the error message written when in-flight jobs are
// returned to pending during daemon shutdown.
const ShutdownResetReason = "worker shut down mid-ingest"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Job represents an ingestion job persisted in SQLite, one row per catalog
// reference that has ever been attempted.
type Job struct {
	Reference    string
	Status       Status
	RetryCount   int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsTerminal reports whether no further automatic transition occurs from the
// job's status.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
