// Package http provides the dashboard HTTP server and handlers.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"splitlens/internal/cache"
	"splitlens/internal/core"
	"splitlens/internal/report"
	appweb "splitlens/web"
)

// ReportProvider is what the handlers need from the report layer.
type ReportProvider interface {
	Compute(ctx context.Context, p report.Params) (*report.Report, error)
	Groups(ctx context.Context) ([]core.Group, error)
}

type Server struct {
	http.Server
	templates   *template.Template
	reports     ReportProvider
	rateLimiter *rateLimiter

	// defaultGroupID is used when a request does not name a group.
	// Zero means non-group expenses.
	defaultGroupID int64

	// Computed reports are cached per parameter set so switching between
	// recently viewed months does not refetch from the upstream API.
	reportCache *cache.LRUCache[*report.Report]
	groupCache  *cache.LRUCache[[]core.Group]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, reports ReportProvider, defaultGroupID int64) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		reports:          reports,
		defaultGroupID:   defaultGroupID,
		rateLimiter:      newRateLimiter(),
		reportCache:      cache.NewLRUCache[*report.Report](100, 5*time.Minute),
		groupCache:       cache.NewLRUCache[[]core.Group](10, 10*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/ui/report", s.withSecurityHeaders(s.handleReportPartial))
	mux.HandleFunc("/api/report", s.withSecurityHeaders(s.handleReportJSON))
	mux.HandleFunc("/api/groups", s.withSecurityHeaders(s.handleGroups))

	return s
}

// startCacheCleanup runs periodic cleanup for both caches.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			reportsCleaned := s.reportCache.CleanExpired()
			groupsCleaned := s.groupCache.CleanExpired()
			if reportsCleaned > 0 || groupsCleaned > 0 {
				slog.Debug("Cache cleanup completed",
					"report_entries_removed", reportsCleaned,
					"group_entries_removed", groupsCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

type contextKey string

const requestIDKey contextKey = "request_id"

// withSecurityHeaders adds security headers, rate limiting and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Every report endpoint turns into an upstream API call on a cache
		// miss, so all routed traffic is rate limited.
		if !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// getReport returns a cached report or computes one with a bounded timeout.
func (s *Server) getReport(ctx context.Context, p report.Params) (*report.Report, error) {
	key := p.Key()
	if rep, found := s.reportCache.Get(key); found {
		slog.DebugContext(ctx, "Report cache hit", "key", key)
		return rep, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	rep, err := s.reports.Compute(cctx, p)
	if err != nil {
		return nil, fmt.Errorf("compute report (%s): %w", key, err)
	}

	s.reportCache.Set(key, rep)
	slog.DebugContext(ctx, "Report cached", "key", key, "records", len(rep.Records))
	return rep, nil
}

func (s *Server) getGroups(ctx context.Context) ([]core.Group, error) {
	if groups, found := s.groupCache.Get("groups"); found {
		return groups, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	groups, err := s.reports.Groups(cctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	s.groupCache.Set("groups", groups)
	return groups, nil
}
