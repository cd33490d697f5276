package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies an ingest failure. Callers retry every kind the same way;
// the classification exists for logging and error text, not for policy
// branching.
type Kind string

const (
	KindResolve           Kind = "resolve"
	KindNoSuitableFormat  Kind = "no_suitable_format"
	KindStream            Kind = "stream"
	KindUpload            Kind = "upload"
	KindStartTimeout      Kind = "start_timeout"
	KindInactivityTimeout Kind = "inactivity_timeout"
)

// IngestError is the single error type the pipeline surfaces. It carries the
// underlying cause; callers never need to distinguish source from destination
// failures for retry purposes.
type IngestError struct {
	Kind      Kind
	Reference string
	Err       error
}

func (e *IngestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ingest %s: %s", e.Reference, e.Kind)
	}
	return fmt.Sprintf("ingest %s: %s: %v", e.Reference, e.Kind, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from an error chain, or "" when the error
// did not originate in the pipeline.
func KindOf(err error) Kind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

var (
	errStartTimeout      = errors.New("no bytes received within start window")
	errInactivityTimeout = errors.New("stream stalled beyond inactivity window")
)
