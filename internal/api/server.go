// Package api exposes the crawl orchestrator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aleister1102/crawlgate/internal/metrics"
	"github.com/aleister1102/crawlgate/internal/models"
	"github.com/aleister1102/crawlgate/internal/orchestrator"
	"github.com/aleister1102/crawlgate/internal/ratelimit"
	"github.com/aleister1102/crawlgate/internal/rslimiter"
	"github.com/rs/zerolog"
)

// Service is the orchestrator surface the API drives.
type Service interface {
	Crawl(ctx context.Context, seeds []string, opts models.CrawlOptions) (models.CrawlResponse, error)
	Invalidate(rawURL string) int
	ClearCache() int
	CleanupExpired() int
	Stats() orchestrator.ServiceStats
	Health(ctx context.Context) models.HealthResponse
}

// Options carries the optional collaborators of a Server. Nil values disable
// the matching feature.
type Options struct {
	CallerLimiter *ratelimit.CallerLimiter
	Resources     *rslimiter.ResourceLimiter
	Metrics       *metrics.Metrics
	MaxBodyBytes  int64
}

// Server exposes the crawl API.
type Server struct {
	svc     Service
	opts    Options
	mux     *http.ServeMux
	handler http.Handler
	root    zerolog.Logger
	logger  zerolog.Logger
}

// NewServer wires handlers onto an HTTP mux.
func NewServer(svc Service, opts Options, logger zerolog.Logger) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	s := &Server{
		svc:    svc,
		opts:   opts,
		mux:    http.NewServeMux(),
		root:   logger,
		logger: logger.With().Str("component", "API").Logger(),
	}
	s.routes()
	s.handler = s.withRequestContext(s.mux)
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/crawl", s.limited(s.handleCrawl))
	s.mux.HandleFunc("/crawl/health", s.handleHealth)
	s.mux.HandleFunc("/crawl/stats", s.handleStats)
	s.mux.HandleFunc("/crawl/cache", s.limited(s.handleCache))
	s.mux.HandleFunc("/crawl/cache/invalidate", s.limited(s.handleInvalidate))
	s.mux.HandleFunc("/crawl/cache/cleanup", s.limited(s.handleCleanup))
	if s.opts.Metrics != nil {
		s.mux.Handle("/metrics", s.opts.Metrics.Handler())
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then lets in-flight
// requests finish for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("API server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	log := zerolog.Ctx(r.Context())

	if err := s.opts.Resources.Admit(); err != nil {
		log.Warn().Err(err).Msg("Refusing crawl request")
		writeError(w, http.StatusServiceUnavailable, "Crawling service temporarily unavailable: "+err.Error())
		return
	}

	req := models.NewCrawlRequest()
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid crawl configuration: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		resp := errorResponse{Detail: "Invalid crawl configuration: " + err.Error()}
		var verrs models.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Errors = toFieldErrors(verrs)
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	resp, err := s.svc.Crawl(r.Context(), req.URLs, req.Options())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBackendUnreachable):
			log.Error().Err(err).Msg("Crawl4AI service unreachable")
			writeError(w, http.StatusServiceUnavailable, "Crawl4AI service unreachable")
		case errors.Is(err, models.ErrRunTimeout):
			log.Error().Err(err).Msg("Crawl request timed out")
			writeError(w, http.StatusGatewayTimeout, "Crawl4AI service timeout")
		case errors.Is(err, context.Canceled):
			// Client went away; nobody reads the reply.
			log.Debug().Msg("Client cancelled crawl request")
		default:
			log.Error().Err(err).Msg("Crawling failed")
			writeError(w, http.StatusServiceUnavailable, "Crawling service temporarily unavailable: "+err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	payload := healthPayload{HealthResponse: s.svc.Health(r.Context())}
	if s.opts.Resources != nil {
		usage := s.opts.Resources.Usage()
		if !usage.SampledAt.IsZero() {
			payload.Resources = &usage
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Stats())
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	cleared := s.svc.ClearCache()
	writeJSON(w, http.StatusOK, models.CacheClearResponse{
		Message:        "Cache cleared successfully",
		ClearedEntries: cleared,
		Timestamp:      time.Now().UTC(),
	})
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req invalidateRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid json payload: %v", err))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusUnprocessableEntity, "url is required")
		return
	}
	writeJSON(w, http.StatusOK, models.InvalidateResponse{
		URL:                req.URL,
		InvalidatedEntries: s.svc.Invalidate(req.URL),
		Timestamp:          time.Now().UTC(),
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	removed := s.svc.CleanupExpired()
	writeJSON(w, http.StatusOK, cleanupResponse{
		Message:        "Expired cache entries removed",
		RemovedEntries: removed,
		Timestamp:      time.Now().UTC(),
	})
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
