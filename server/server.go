// Package server exposes the engine over HTTP.
//
//	POST /v1/ask      {text, location_hint?, caller_role?} -> engine.Response
//	POST /v1/extract  {text}                               -> extracted stats + location
//	GET  /health
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/spektr-org/tally/engine"
	"github.com/spektr-org/tally/parser"
)

const maxBodyBytes = 64 << 10

// Server serves engine requests against one history source.
type Server struct {
	engine  *engine.Engine
	source  engine.RowSource
	logger  *log.Logger
	origins []string
	timeout time.Duration
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithRequestTimeout bounds each request. Default 30s.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a server. A nil source answers from empty history.
func New(eng *engine.Engine, source engine.RowSource, opts ...Option) *Server {
	s := &Server{
		engine:  eng,
		source:  source,
		logger:  log.Default(),
		timeout: 30 * time.Second,
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithPrefix("server")
	return s
}

// Router returns the bare route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/v1/ask", s.ask).Methods(http.MethodPost)
	r.HandleFunc("/v1/extract", s.extract).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, NotFound, "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, MethodNotAllowed, "method not allowed")
	})
	return r
}

// Handler wraps the router with access logging, panic recovery and CORS.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	if len(s.origins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.origins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(h)
	}
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.logger}))(h)
	return handlers.LoggingHandler(s.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel}).Writer(), h)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, InvalidRequest, "text is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	resp := s.engine.Handle(ctx, req, s.rows())
	s.logger.Debug("answered", "intent", resp.Intent, "location", resp.Location)
	writeJSON(w, http.StatusOK, resp)
}

// ExtractResponse is the /v1/extract body.
type ExtractResponse struct {
	Extracted    map[string]int     `json:"extracted"`
	Location     string             `json:"location,omitempty"`
	LocationName string             `json:"location_name,omitempty"`
	Match        parser.CampusMatch `json:"match"`
	Missing      []string           `json:"missing_suggestions,omitempty"`
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, InvalidRequest, "text is required")
		return
	}

	extracted := s.engine.Extract(req.Text)
	match := s.engine.ResolveLocation(req.Text)
	out := ExtractResponse{
		Extracted: extracted,
		Match:     match,
		Missing:   engine.MissingSuggestions(extracted, s.engine.Metrics()),
	}
	if match.Found() {
		out.Location = match.ID
		out.LocationName = s.engine.Locations().DisplayName(match.ID)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, RequestTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, InvalidRequest, "request body is empty")
		default:
			writeError(w, InvalidRequest, "invalid JSON: "+err.Error())
		}
		return false
	}
	return true
}

func (s *Server) rows() engine.RowSource {
	if s.source == nil {
		return engine.StaticRows(nil)
	}
	return s.source
}

type recoveryLogger struct{ l *log.Logger }

func (r recoveryLogger) Println(v ...interface{}) {
	r.l.Error("panic in handler", "err", v)
}
