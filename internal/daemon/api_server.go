package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"daybook/internal/config"
	"daybook/internal/journal"
	"daybook/internal/logging"
	"daybook/internal/queue"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/jobs", s.handleEnqueueJob)
	r.Get("/api/jobs", s.handleJobsByToken)
	r.Get("/api/jobs/{id}", s.handleJobByID)
	r.Post("/api/events", s.handleCaptureEvent)
	r.Post("/api/notify/test", s.handleTestNotification)
	r.Get("/api/views/compass", s.handleCompassViews)
	r.Get("/api/views/wins", s.handleWinsViews)
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.Health(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

type enqueueJobRequest struct {
	ResponseRef      string `json:"responseRef"`
	AudioLocator     string `json:"audioLocator"`
	StageID          string `json:"stageId"`
	CorrelationToken string `json:"correlationToken"`
	DurationMS       int64  `json:"durationMs"`
}

type enqueueJobResponse struct {
	Queued   bool  `json:"queued"`
	JobID    int64 `json:"jobId,omitempty"`
	Priority int   `json:"priority,omitempty"`
}

func (s *apiServer) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	var req enqueueJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	handle := s.daemon.facade.Enqueue(r.Context(), queue.Payload{
		ResponseRef:      req.ResponseRef,
		AudioLocator:     req.AudioLocator,
		StageID:          req.StageID,
		CorrelationToken: req.CorrelationToken,
		DurationMS:       req.DurationMS,
	})
	if handle == nil {
		// Queue disabled or the submission was rejected; the caller's
		// request still succeeds.
		s.writeJSON(w, http.StatusOK, enqueueJobResponse{Queued: false})
		return
	}
	s.writeJSON(w, http.StatusAccepted, enqueueJobResponse{
		Queued:   true,
		JobID:    handle.ID,
		Priority: handle.Priority,
	})
}

func (s *apiServer) handleJobsByToken(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		s.writeError(w, http.StatusBadRequest, "token query parameter is required")
		return
	}
	snapshots := s.daemon.tracker.ByToken(r.Context(), token)
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": snapshots})
}

func (s *apiServer) handleJobByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	snapshot := s.daemon.tracker.ByID(r.Context(), id)
	if snapshot == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

type captureEventRequest struct {
	UserID        string   `json:"userId"`
	Kind          string   `json:"kind"`
	Prompt        string   `json:"prompt"`
	Response      string   `json:"response"`
	NumericAnswer *float64 `json:"numericAnswer,omitempty"`
	MetaTag       string   `json:"metaTag,omitempty"`
}

type captureEventResponse struct {
	UID        string    `json:"uid"`
	Sequence   int64     `json:"sequence"`
	CapturedAt time.Time `json:"capturedAt"`
}

func (s *apiServer) handleCaptureEvent(w http.ResponseWriter, r *http.Request) {
	var req captureEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, ok := journal.ParseKind(req.Kind)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown event kind %q", req.Kind))
		return
	}

	event, err := s.daemon.CaptureEvent(r.Context(), journal.Event{
		UserID:        req.UserID,
		Kind:          kind,
		Prompt:        req.Prompt,
		Response:      req.Response,
		NumericAnswer: req.NumericAnswer,
		MetaTag:       req.MetaTag,
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, captureEventResponse{
		UID:        event.UID,
		Sequence:   event.ID,
		CapturedAt: event.CapturedAt,
	})
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.TestNotification(r.Context()); err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *apiServer) handleCompassViews(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date != "" {
		view, err := s.daemon.viewsStore.CompassByDate(r.Context(), userID, date)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if view == nil {
			s.writeError(w, http.StatusNotFound, "no compass view for that date")
			return
		}
		s.writeJSON(w, http.StatusOK, view)
		return
	}

	list, err := s.daemon.viewsStore.CompassForUser(r.Context(), userID, queryLimit(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"views": list})
}

func (s *apiServer) handleWinsViews(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date != "" {
		view, err := s.daemon.viewsStore.WinsByDate(r.Context(), userID, date)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if view == nil {
			s.writeError(w, http.StatusNotFound, "no wins view for that date")
			return
		}
		s.writeJSON(w, http.StatusOK, view)
		return
	}

	list, err := s.daemon.viewsStore.WinsForUser(r.Context(), userID, queryLimit(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"views": list})
}

func queryLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
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
