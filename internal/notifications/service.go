package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jukebox/internal/config"
)

const userAgent = "Jukebox-Ingest/0.1.0"

// Service defines the notification surface exposed to the worker. Every
// method is best-effort: delivery failures are reported for logging but never
// affect job outcomes.
type Service interface {
	NotifyIngestCompleted(ctx context.Context, reference string) error
	NotifyIngestFailed(ctx context.Context, reference, detail string) error
	NotifyWorkerStopped(ctx context.Context, reclaimed int64) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Noop returns a Service that discards every notification.
func Noop() Service { return noopService{} }

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyIngestCompleted(ctx context.Context, reference string) error {
	reference = strings.TrimSpace(reference)
	data := payload{
		title:   "Jukebox - Track Ready",
		message: fmt.Sprintf("Audio ingested: %s", reference),
		tags:    []string{"jukebox", "ingest", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyIngestFailed(ctx context.Context, reference, detail string) error {
	reference = strings.TrimSpace(reference)
	message := fmt.Sprintf("Ingest permanently failed: %s", reference)
	if detail = strings.TrimSpace(detail); detail != "" {
		message = fmt.Sprintf("%s\n%s", message, detail)
	}
	data := payload{
		title:    "Jukebox - Ingest Failed",
		message:  message,
		tags:     []string{"jukebox", "ingest", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyWorkerStopped(ctx context.Context, reclaimed int64) error {
	message := "Ingestion worker stopped"
	if reclaimed > 0 {
		message = fmt.Sprintf("%s: %d in-flight jobs returned to the queue", message, reclaimed)
	}
	data := payload{
		title:   "Jukebox - Worker Stopped",
		message: message,
		tags:    []string{"jukebox", "worker", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Jukebox - Test",
		message:  "Notification system test",
		tags:     []string{"jukebox", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyIngestCompleted(context.Context, string) error      { return nil }
func (noopService) NotifyIngestFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyWorkerStopped(context.Context, int64) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
