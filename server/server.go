// Package server exposes the engine over HTTP: collection, correlation,
// deep-clean streaming, report export, profile lifecycle, and settings.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shadowhorn/shadowhorn/backend"
	"github.com/shadowhorn/shadowhorn/collect"
	"github.com/shadowhorn/shadowhorn/deepclean"
	"github.com/shadowhorn/shadowhorn/profile"
	"github.com/shadowhorn/shadowhorn/report"
	"github.com/shadowhorn/shadowhorn/store"
)

const defaultHeartbeat = 120 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCollector enables the collection endpoint.
func WithCollector(runner *collect.Runner) Option {
	return func(s *Server) { s.collector = runner }
}

// WithDeepClean enables the deep-clean stream endpoint.
func WithDeepClean(runner *deepclean.Runner) Option {
	return func(s *Server) { s.deep = runner }
}

// WithHeartbeat overrides the SSE heartbeat interval, mostly for tests.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// Server handles the HTTP API.
type Server struct {
	store     *store.Store
	engine    *backend.Engine
	collector *collect.Runner
	deep      *deepclean.Runner
	logger    *slog.Logger
	heartbeat time.Duration
}

// New creates a Server over a store and a backend engine.
func New(st *store.Store, engine *backend.Engine, opts ...Option) *Server {
	s := &Server{
		store:     st,
		engine:    engine,
		logger:    slog.Default(),
		heartbeat: defaultHeartbeat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/collect/{identifier}", s.handleCollect)
		r.Post("/correlate", s.handleCorrelate)
		r.Get("/profiles", s.handleIdentifiers)
		r.Get("/profiles/{identifier}", s.handleProfile)
		r.Delete("/profiles/{identifier}", s.handleDeleteProfile)
		r.Get("/deepclean/{identifier}/stream", s.handleDeepCleanStream)
		r.Get("/report/{identifier}", s.handleReport)
		r.Get("/settings/{key}", s.handleGetSetting)
		r.Put("/settings/{key}", s.handlePutSetting)
		r.Delete("/settings/{key}", s.handleDeleteSetting)
	})
	return r
}

// ListenAndServe runs the server until the context is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeError(w, http.StatusServiceUnavailable, "collection is not configured")
		return
	}
	identifier := chi.URLParam(r, "identifier")
	result := s.collector.Run(r.Context(), identifier)
	writeJSON(w, http.StatusOK, map[string]any{
		"identifier": identifier,
		"collected":  len(result.Documents),
		"errors":     result.Errors,
	})
}

type correlateRequest struct {
	Identifier string `json:"identifier"`
	Mode       string `json:"mode"`
	Backend    string `json:"backend"`
	Prompt     string `json:"prompt"`
}

func (s *Server) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	var req correlateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Identifier == "" {
		writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}

	ctx := r.Context()
	docs, err := s.store.RawDocuments(ctx, req.Identifier)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	p, err := s.engine.Correlate(ctx, docs, req.Identifier, req.Mode, req.Backend, req.Prompt)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = backend.ModeFast
	}
	doc := profile.CorrelationDocument{
		Identifier:  req.Identifier,
		Mode:        mode,
		Prompt:      req.Prompt,
		CollectedAt: time.Now().UTC(),
		Result:      p,
	}
	if err := s.store.SaveCorrelation(ctx, doc); err != nil {
		s.logger.WarnContext(ctx, "failed to persist correlation",
			"identifier", req.Identifier, "error", err)
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleIdentifiers(w http.ResponseWriter, r *http.Request) {
	identifiers, err := s.store.Identifiers(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"identifiers": identifiers})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	doc, err := s.store.LatestCorrelation(r.Context(), identifier)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	if err := s.store.DeleteIdentifier(r.Context(), identifier); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": identifier})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	doc, err := s.store.LatestCorrelation(r.Context(), identifier)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	rep := report.Build(doc.Result, identifier)
	format := r.URL.Query().Get("format")
	out, err := rep.Export(format)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	switch format {
	case "yaml", "yml":
		w.Header().Set("Content-Type", "application/yaml")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := s.store.Setting(r.Context(), key)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

type settingRequest struct {
	Value string `json:"value"`
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req settingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Value == "" {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	if err := s.store.SetSetting(r.Context(), key, req.Value); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "status": "saved"})
}

func (s *Server) handleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.store.DeleteSetting(r.Context(), key); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "status": "deleted"})
}

// writeFailure maps engine and store errors to HTTP statuses.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WarnContext(r.Context(), "request failed",
		"path", r.URL.Path, "error", err)

	switch {
	case errors.Is(err, profile.ErrNotFound), errors.Is(err, profile.ErrNoData):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, profile.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, profile.ErrNoBackend):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
