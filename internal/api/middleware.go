package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

var knownRoutes = map[string]struct{}{
	"/crawl":                  {},
	"/crawl/health":           {},
	"/crawl/stats":            {},
	"/crawl/cache":            {},
	"/crawl/cache/invalidate": {},
	"/crawl/cache/cleanup":    {},
	"/metrics":                {},
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withRequestContext tags every request with an ID, stores a request-scoped
// logger in its context and records an access line and metrics.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		reqLogger := s.root.With().Str("request_id", requestID).Logger()
		r = r.WithContext(reqLogger.WithContext(r.Context()))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if _, ok := knownRoutes[route]; !ok {
			route = "other"
		}
		s.opts.Metrics.ObserveHTTP(route, rec.status)

		ev := s.logger.Info()
		if rec.status >= http.StatusInternalServerError {
			ev = s.logger.Warn()
		}
		ev.Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("caller", callerKey(r)).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("Handled request")
	})
}

// limited applies the per-caller limit before next.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := s.opts.CallerLimiter.Allow(callerKey(r))
		if !ok {
			s.opts.Metrics.ObserveThrottled()
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded: "+s.opts.CallerLimiter.String())
			return
		}
		next(w, r)
	}
}

// callerKey identifies the caller for rate limiting: the first
// X-Forwarded-For hop when present, otherwise the remote IP.
func callerKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

