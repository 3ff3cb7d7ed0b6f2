package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"conti/internal/bot"
	"conti/internal/log"
	"conti/internal/middleware/ratelimit"
	"conti/internal/middleware/security"
	"conti/internal/middleware/trace"
)

const maxEventBytes = 16 << 10

// EventHandler turns one chat event into the reply for the user.
type EventHandler interface {
	Handle(ctx context.Context, ev bot.Event) bot.Response
}

// Pinger reports whether a dependency is ready to serve.
type Pinger func(ctx context.Context) error

// Options tunes the middleware chain.
type Options struct {
	RateLimitPerMinute int
	Ready              Pinger
}

type Server struct {
	http.Server
	handler  EventHandler
	ready    Pinger
	logger   *log.Logger
	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

type errorBody struct {
	Error string `json:"error"`
}

// NewServer wires the webhook routes behind trace, security headers and
// per-client rate limiting.
func NewServer(addr string, h EventHandler, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		handler:  h,
		ready:    opts.Ready,
		logger:   logger,
		detector: detector,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:   trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/events", s.limiter.Middleware(detector.ExtractClientIP, s.onLimit)(http.HandlerFunc(s.handleEvent)))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(s.screen(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the limiter janitor.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// screen drops scanner traffic before it reaches the router.
func (s *Server) screen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request rejected",
				log.FieldClientIP, s.detector.ExtractClientIP(r))
			writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r))
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxEventBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var ev bot.Event
	if err := dec.Decode(&ev); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "event too large"})
			return
		}
		logger.WarnContext(ctx, "Invalid event body", log.FieldError, err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON"})
		return
	}
	if err := ev.Validate(); err != nil {
		logger.WarnContext(ctx, "Invalid event", log.FieldError, err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	resp := s.handler.Handle(ctx, ev)

	logger.DebugContext(ctx, "Event handled",
		log.FieldUserID, ev.UserID,
		log.FieldEventType, string(ev.Type))
	writeJSON(w, http.StatusOK, resp)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
