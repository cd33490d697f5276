package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"jukebox/internal/logging"
	"jukebox/internal/objectstore"
	"jukebox/internal/provider"
)

const (
	// DefaultStartWindow bounds how long a freshly opened stream may stay
	// silent before the job is abandoned.
	DefaultStartWindow = 15 * time.Second
	// DefaultInactivityWindow bounds the gap between consecutive chunks once
	// the stream has started.
	DefaultInactivityWindow = 15 * time.Second
)

// Resolver looks up stream formats for a catalog reference and opens the
// chosen one. Satisfied by provider.Client.
type Resolver interface {
	Resolve(ctx context.Context, reference string) ([]provider.Format, error)
	OpenStream(ctx context.Context, reference string, format provider.Format) (io.ReadCloser, error)
}

// Uploader persists a stream to the destination and returns only once the
// destination has acknowledged the complete object. Satisfied by
// objectstore.Client.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
}

// Pipeline performs a single ingest: resolve formats, pick the best audio
// stream, and pipe it straight into the object store without intermediate
// files.
type Pipeline struct {
	resolver Resolver
	uploader Uploader
	logger   *slog.Logger

	startWindow      time.Duration
	inactivityWindow time.Duration
}

func New(resolver Resolver, uploader Uploader, logger *slog.Logger) *Pipeline {
	return NewWithWindows(resolver, uploader, logger, DefaultStartWindow, DefaultInactivityWindow)
}

// NewWithWindows overrides the liveness windows. Used by tests; production
// callers take the defaults.
func NewWithWindows(resolver Resolver, uploader Uploader, logger *slog.Logger, startWindow, inactivityWindow time.Duration) *Pipeline {
	return &Pipeline{
		resolver:         resolver,
		uploader:         uploader,
		logger:           logging.NewComponentLogger(logger, "pipeline"),
		startWindow:      startWindow,
		inactivityWindow: inactivityWindow,
	}
}

// Ingest runs the full transfer for one reference. Success means the
// destination acknowledged the complete object. Every failure is returned as
// an *IngestError; a cancellation of ctx itself propagates as the context
// error so callers can tell shutdown apart from job failure.
func (p *Pipeline) Ingest(ctx context.Context, reference string) error {
	formats, err := p.resolver.Resolve(ctx, reference)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &IngestError{Kind: KindResolve, Reference: reference, Err: err}
	}

	format, ok := provider.BestAudio(formats)
	if !ok {
		return &IngestError{Kind: KindNoSuitableFormat, Reference: reference, Err: errors.New("no audio format in manifest")}
	}
	p.logger.Info("format selected",
		logging.String(logging.FieldReference, reference),
		slog.Int("itag", format.Itag),
		slog.String("mime_type", format.MimeType),
		slog.Int("bitrate", format.Bitrate))

	streamCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	body, err := p.resolver.OpenStream(streamCtx, reference, format)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &IngestError{Kind: KindStream, Reference: reference, Err: err}
	}

	guard := newStreamGuard(cancel, p.startWindow, p.inactivityWindow)
	defer guard.stop()

	// A fired guard cancels streamCtx; closing the body unblocks any Read
	// the upload is parked on so the abort propagates promptly.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-streamCtx.Done():
			body.Close()
		case <-watchDone:
		}
	}()
	defer body.Close()

	key := objectstore.KeyFor(reference)
	err = p.uploader.Upload(streamCtx, key, objectstore.AudioContentType, &guardedReader{src: body, guard: guard})
	guard.stop()
	if err != nil {
		return p.classifyTransferError(ctx, streamCtx, reference, err)
	}

	p.logger.Info("upload acknowledged",
		logging.String(logging.FieldReference, reference),
		slog.String("key", key))
	return nil
}

// classifyTransferError maps an upload failure to its root cause: a guard
// expiry recorded as the stream context cause, a shutdown of the parent
// context, or a genuine transfer error.
func (p *Pipeline) classifyTransferError(ctx, streamCtx context.Context, reference string, err error) error {
	if cause := context.Cause(streamCtx); cause != nil {
		switch {
		case errors.Is(cause, errStartTimeout):
			return &IngestError{Kind: KindStartTimeout, Reference: reference, Err: cause}
		case errors.Is(cause, errInactivityTimeout):
			return &IngestError{Kind: KindInactivityTimeout, Reference: reference, Err: cause}
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &IngestError{Kind: KindUpload, Reference: reference, Err: err}
}
