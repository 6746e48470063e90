package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"splice/internal/command"
	"splice/internal/config"
	"splice/internal/ledger"
	"splice/internal/logging"
	"splice/internal/project"
	"splice/internal/render"
	"splice/internal/services"
)

// EventLog reads the render journal. *ledger.Store satisfies it.
type EventLog interface {
	Events(ctx context.Context, projectID string, limit int) ([]ledger.Event, error)
}

// DeadLetterLister reads the dead-letter queue. *ledger.Store satisfies it.
type DeadLetterLister interface {
	DeadLetters(ctx context.Context) ([]ledger.DeadLetter, error)
}

// Deps are the services behind the HTTP routes. Events, DeadLetters and
// Status may be nil.
type Deps struct {
	Store       *project.Store
	Executor    *command.Executor
	Board       render.StatusBoard
	Events      EventLog
	DeadLetters DeadLetterLister
	Status      func(ctx context.Context) StatusResponse
	Logger      *slog.Logger
}

const (
	defaultEventLimit = 100
	maxCommandBytes   = 1 << 20
)

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

// NewHandler builds the API router.
func NewHandler(cfg *config.Config, deps Deps) http.Handler {
	h := &handlers{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "api-server")}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Content-Length"},
		MaxAge:         300,
	}))
	r.Use(authMiddleware(strings.TrimSpace(cfg.Paths.APIToken)))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Get("/deadletters", h.handleDeadLetters)
		r.Post("/projects", h.handleCreateProject)
		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Get("/", h.handleGetProject)
			r.Put("/", h.handleCommand)
			r.Get("/video", h.handleVideo)
			r.Get("/versions", h.handleVersions)
			r.Get("/events", h.handleEvents)
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, h.logger, http.StatusNotFound, ErrorResponse{Error: genericErrorMessage})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, ErrorResponse{Error: genericErrorMessage})
	})
	return r
}

func (h *handlers) handleGetProject(w http.ResponseWriter, r *http.Request) {
	ctx, projectID := h.projectContext(r)
	store := h.deps.Store
	versionID, err := store.Resolve(ctx, projectID, r.URL.Query().Get("versionId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	doc, err := store.Load(ctx, projectID, versionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := doc.Bytes()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ProjectResponse{Project: string(data)})
}

func (h *handlers) handleCommand(w http.ResponseWriter, r *http.Request) {
	ctx, projectID := h.projectContext(r)
	var cmd command.Command
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCommandBytes)).Decode(&cmd); err != nil {
		h.fail(w, r, services.Wrap(services.ErrValidation, "api", "decode command", "malformed command body", err))
		return
	}
	result, err := h.deps.Executor.Execute(ctx, cmd, projectID, r.URL.Query().Get("versionId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := result.Document.Bytes()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := CommandResponse{UpdatedProject: string(data), Success: result.Success}
	if result.Version != nil {
		resp.VersionID = result.Version.ID
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *handlers) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Executor.CreateProject(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, CreateProjectResponse{ProjectID: v.ProjectID, VersionID: v.ID})
}

func (h *handlers) handleVideo(w http.ResponseWriter, r *http.Request) {
	_, projectID := h.projectContext(r)
	if err := project.ValidateID(projectID); err != nil {
		h.fail(w, r, err)
		return
	}
	job := h.deps.Board.GetOrCreate(projectID)
	if r.URL.Query().Get("media") == "" {
		writeJSON(w, h.logger, http.StatusOK, job)
		return
	}

	if job.LatestFile == "" {
		h.fail(w, r, services.Wrap(services.ErrRenderNotReady, "api", "stream video", projectID+" has no render output", nil))
		return
	}
	f, err := os.Open(job.LatestFile)
	if err != nil {
		h.fail(w, r, services.Wrap(services.ErrRenderNotReady, "api", "stream video", "open latest output", err))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		h.fail(w, r, services.Wrap(services.ErrRenderNotReady, "api", "stream video", "stat latest output", err))
		return
	}
	contentType := mime.TypeByExtension(filepath.Ext(job.LatestFile))
	if contentType == "" {
		contentType = "video/mp4"
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, filepath.Base(job.LatestFile), info.ModTime(), f)
}

func (h *handlers) handleVersions(w http.ResponseWriter, r *http.Request) {
	ctx, projectID := h.projectContext(r)
	versions, err := h.deps.Store.Versions(ctx, projectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := VersionsResponse{ProjectID: projectID, Versions: make([]VersionInfo, 0, len(versions))}
	for _, v := range versions {
		resp.Versions = append(resp.Versions, VersionInfo{ID: v.ID, Label: v.Label(), CreatedAt: v.CreatedAt})
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *handlers) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx, projectID := h.projectContext(r)
	if err := project.ValidateID(projectID); err != nil {
		h.fail(w, r, err)
		return
	}
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.fail(w, r, services.Wrap(services.ErrValidation, "api", "list events", "invalid limit", err))
			return
		}
		limit = parsed
	}
	resp := EventsResponse{ProjectID: projectID, Events: []ledger.Event{}}
	if h.deps.Events != nil {
		events, err := h.deps.Events.Events(ctx, projectID, limit)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if events != nil {
			resp.Events = events
		}
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp StatusResponse
	if h.deps.Status != nil {
		resp = h.deps.Status(r.Context())
	}
	resp.Running = true
	if resp.PID == 0 {
		resp.PID = os.Getpid()
	}
	resp.Jobs = h.deps.Board.Snapshot()
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *handlers) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	resp := DeadLettersResponse{DeadLetters: []ledger.DeadLetter{}}
	if h.deps.DeadLetters != nil {
		letters, err := h.deps.DeadLetters.DeadLetters(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if letters != nil {
			resp.DeadLetters = letters
		}
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *handlers) projectContext(r *http.Request) (context.Context, string) {
	projectID := chi.URLParam(r, "projectID")
	return services.WithProjectID(r.Context(), projectID), projectID
}

// fail logs err with its request id and answers with the generic body.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	logger := logging.WithContext(r.Context(), h.logger)
	if id := chi.URLParam(r, "projectID"); id != "" {
		logger = logger.With(logging.String(logging.FieldProjectID, id))
	}
	attrs := []logging.Attr{
		logging.Error(err),
		logging.String("method", r.Method),
		logging.String("path", r.URL.Path),
		logging.Int("status", status),
	}
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "api request failed", "api_request_failed", attrs...)
	} else {
		logger.Info("api request rejected", logging.Args(append(attrs, logging.String(logging.FieldEventType, "api_request_rejected"))...)...)
	}
	writeJSON(w, h.logger, status, ErrorResponse{Error: genericErrorMessage})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

// Server runs the API on the configured bind address.
type Server struct {
	bind     string
	handler  http.Handler
	logger   *slog.Logger
	listener net.Listener
	server   *http.Server
}

// NewServer prepares a server for cfg.Paths.APIBind.
func NewServer(cfg *config.Config, deps Deps) *Server {
	return &Server{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		handler: NewHandler(cfg, deps),
		logger:  logging.NewComponentLogger(deps.Logger, "api-server"),
	}
}

// Start listens and serves in the background until ctx ends or Stop is
// called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "api_server_failed"),
				logging.String(logging.FieldErrorHint, "check the api_bind address"),
			)
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
