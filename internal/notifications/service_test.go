package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"jukebox/internal/config"
	"jukebox/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyIngestCompleted(context.Background(), "trk-1"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "ingest completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyIngestCompleted(context.Background(), "trk-42")
			},
			expectTitle:   "Jukebox - Track Ready",
			expectMessage: "Audio ingested: trk-42",
			expectTags:    "jukebox,ingest,completed",
		},
		{
			name: "ingest failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyIngestFailed(context.Background(), "trk-42", "stream stalled beyond inactivity window")
			},
			expectTitle:    "Jukebox - Ingest Failed",
			expectMessage:  "Ingest permanently failed: trk-42\nstream stalled beyond inactivity window",
			expectTags:     "jukebox,ingest,failed",
			expectPriority: "high",
		},
		{
			name: "worker stopped with reclaimed jobs",
			notify: func(svc notifications.Service) error {
				return svc.NotifyWorkerStopped(context.Background(), 2)
			},
			expectTitle:   "Jukebox - Worker Stopped",
			expectMessage: "Ingestion worker stopped: 2 in-flight jobs returned to the queue",
			expectTags:    "jukebox,worker,stopped",
		},
		{
			name: "test notification",
			notify: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "Jukebox - Test",
			expectMessage:  "Notification system test",
			expectTags:     "jukebox,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyIngestCompleted(context.Background(), "trk-1"); err == nil {
		t.Fatal("expected error for non-2xx ntfy response")
	}
}
