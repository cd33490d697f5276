package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"jukebox/internal/config"
	"jukebox/internal/jobstore"
	"jukebox/internal/logging"
)

// apiServer exposes the liveness and status endpoints on the configured bind
// address. Everything here is read-only.
type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

type statusResponse struct {
	Running      bool   `json:"running"`
	Pending      int    `json:"pending"`
	Processing   int    `json:"processing"`
	Completed    int    `json:"completed"`
	Failed       int    `json:"failed"`
	Total        int    `json:"total"`
	JobDBPath    string `json:"job_db_path"`
	LockFilePath string `json:"lock_file_path"`
}

type jobResponse struct {
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	RetryCount   int    `json:"retry_count"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealthz)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/jobs", srv.handleJobs)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr reports the bound listen address, useful when binding to port 0.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, statusResponse{
		Running:      status.Running,
		Pending:      status.Jobs.Pending,
		Processing:   status.Jobs.Processing,
		Completed:    status.Jobs.Completed,
		Failed:       status.Jobs.Failed,
		Total:        status.Jobs.Total,
		JobDBPath:    status.JobDBPath,
		LockFilePath: status.LockFilePath,
	})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var statuses []jobstore.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := jobstore.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", trimmed))
			return
		}
		statuses = append(statuses, status)
	}

	jobs, err := s.daemon.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp := jobResponse{
			Reference:    job.Reference,
			Status:       string(job.Status),
			RetryCount:   job.RetryCount,
			ErrorMessage: job.ErrorMessage,
		}
		if !job.CreatedAt.IsZero() {
			resp.CreatedAt = job.CreatedAt.Format(time.RFC3339)
		}
		if !job.UpdatedAt.IsZero() {
			resp.UpdatedAt = job.UpdatedAt.Format(time.RFC3339)
		}
		out = append(out, resp)
	}
	s.writeJSON(w, http.StatusOK, map[string][]jobResponse{"jobs": out})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
