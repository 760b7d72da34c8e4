package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/region"
	"github.com/couchcryptid/where/internal/where"
)

// Detector is the part of where.Where the API serves.
type Detector interface {
	Detect(ctx context.Context, opts where.Options) where.Options
	Best() (where.Observation, bool)
	All() []where.Observation
	ForSource(src domain.SourceKind) (where.Observation, bool)
	Options() where.Options
	IsDetecting() bool
	IsUpdating() bool
}

// Server exposes the region API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer    *http.Server
	detector      Detector
	displayLocale string
	logger        *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the /v1 API routes.
func NewServer(addr string, detector Detector, ready sharedobs.ReadinessChecker, displayLocale string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		detector:      detector,
		displayLocale: displayLocale,
		logger:        logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/region", s.handleBest)
	mux.HandleFunc("GET /v1/regions", s.handleAll)
	mux.HandleFunc("GET /v1/regions/{source}", s.handleForSource)
	mux.HandleFunc("POST /v1/detect", s.handleDetect)
	mux.HandleFunc("GET /v1/timezones/{region}", s.handleTimeZones)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type statusResponse struct {
	Observations []where.Observation `json:"observations"`
	Options      where.Options       `json:"options"`
	Detecting    bool                `json:"detecting"`
	Updating     bool                `json:"updating"`
}

type detectRequest struct {
	Options []string `json:"options"`
}

type detectResponse struct {
	Options where.Options `json:"options"`
}

type timeZonesResponse struct {
	Region    string            `json:"region"`
	Name      string            `json:"name"`
	TimeZones []region.TimeZone `json:"time_zones"`
}

func (s *Server) handleBest(w http.ResponseWriter, _ *http.Request) {
	obs, ok := s.detector.Best()
	if !ok {
		writeError(w, http.StatusNotFound, "no region observed")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, obs)
}

func (s *Server) handleAll(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, statusResponse{
		Observations: s.detector.All(),
		Options:      s.detector.Options(),
		Detecting:    s.detector.IsDetecting(),
		Updating:     s.detector.IsUpdating(),
	})
}

func (s *Server) handleForSource(w http.ResponseWriter, r *http.Request) {
	src, err := domain.ParseSourceKind(r.PathValue("source"))
	if err != nil || !src.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown source %q", r.PathValue("source")))
		return
	}
	obs, ok := s.detector.ForSource(src)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no observation from %s", src))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, obs)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	opts, err := where.ParseOptions(req.Options)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	applied := s.detector.Detect(r.Context(), opts)
	sharedobs.WriteJSON(w, http.StatusAccepted, detectResponse{Options: applied})
}

func (s *Server) handleTimeZones(w http.ResponseWriter, r *http.Request) {
	code := region.Canonicalize(r.PathValue("region"))
	if code == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unrecognized region %q", r.PathValue("region")))
		return
	}
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = s.displayLocale
	}
	zones := region.TimeZonesForRegion(code)
	if zones == nil {
		zones = []region.TimeZone{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, timeZonesResponse{
		Region:    code,
		Name:      region.DisplayName(code, locale),
		TimeZones: zones,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
