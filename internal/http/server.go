package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fincast/internal/amqp"
	"fincast/internal/cache"
	"fincast/internal/engine"
	"fincast/internal/log"
	"fincast/internal/store"
)

// RecomputePublisher pushes recompute requests to the alert worker. A nil
// publisher disables the pipeline; writes still succeed.
type RecomputePublisher interface {
	PublishRecompute(ctx context.Context, msg *amqp.RecomputeMessage) error
}

// Options tunes engine parameters exposed over the API.
type Options struct {
	TopCategories   int
	ForecastHorizon int
	// Now supplies the reference date for period resolution. Defaults to
	// time.Now; tests pin it.
	Now func() time.Time
}

type Server struct {
	http.Server
	store     store.Store
	publisher RecomputePublisher
	logger    *log.Logger
	now       func() time.Time

	topCategories   int
	forecastHorizon int

	rateLimiter *rateLimiter

	// Derived results are cached per period key and flushed wholesale on
	// any write.
	summaryCache   *cache.LRUCache[summaryResponse]
	forecastCache  *cache.LRUCache[forecastResponse]
	insightsCache  *cache.LRUCache[insightsResponse]
	breakdownCache *cache.LRUCache[breakdownResponse]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and caches, returning a ready-to-run server.
func NewServer(addr string, st store.Store, pub RecomputePublisher, opts Options, logger *log.Logger) *Server {
	if opts.TopCategories <= 0 {
		opts.TopCategories = engine.DefaultTopCategories
	}
	if opts.ForecastHorizon <= 0 {
		opts.ForecastHorizon = engine.ForecastHistoryMonths
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:           st,
		publisher:       pub,
		logger:          logger.WithComponent(log.ComponentHTTP),
		now:             opts.Now,
		topCategories:   opts.TopCategories,
		forecastHorizon: opts.ForecastHorizon,
		rateLimiter:     newRateLimiter(),
		summaryCache:    cache.NewLRUCache[summaryResponse](100, 5*time.Minute),
		forecastCache:   cache.NewLRUCache[forecastResponse](50, 5*time.Minute),
		insightsCache:   cache.NewLRUCache[insightsResponse](100, 5*time.Minute),
		breakdownCache:  cache.NewLRUCache[breakdownResponse](100, 5*time.Minute),
		cacheManager:    cache.NewManager(logger),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.forecastCache)
	s.cacheManager.Register(s.insightsCache)
	s.cacheManager.Register(s.breakdownCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("GET /api/summary", s.withAPIMiddleware(s.handleSummary))
	mux.HandleFunc("GET /api/forecast", s.withAPIMiddleware(s.handleForecast))
	mux.HandleFunc("GET /api/insights", s.withAPIMiddleware(s.handleInsights))
	mux.HandleFunc("GET /api/categories/breakdown", s.withAPIMiddleware(s.handleCategoryBreakdown))
	mux.HandleFunc("POST /api/expenses", s.withAPIMiddleware(s.handleCreateExpense))
	mux.HandleFunc("POST /api/incomes", s.withAPIMiddleware(s.handleCreateIncome))
	mux.HandleFunc("POST /api/goals/{id}/contributions", s.withAPIMiddleware(s.handleGoalContribution))
	mux.HandleFunc("POST /api/installments/{id}/payments", s.withAPIMiddleware(s.handleInstallmentPayment))
	mux.HandleFunc("GET /api/export", s.withAPIMiddleware(s.handleExport))
	mux.HandleFunc("POST /api/import", s.withAPIMiddleware(s.handleImport))

	return s
}

// withAPIMiddleware adds request tracing, rate limiting and security
// headers around a handler.
func (s *Server) withAPIMiddleware(next http.HandlerFunc) http.HandlerFunc {
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
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.logger.DebugContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		// Writes are rate limited per client; reads are cached and cheap.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Snapshot(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateDerived flushes every derived-result cache. Called after any
// write; period-keyed entries cannot be mapped back to records cheaply.
func (s *Server) invalidateDerived() {
	s.summaryCache.Clear()
	s.forecastCache.Clear()
	s.insightsCache.Clear()
	s.breakdownCache.Clear()
}

// publishRecompute hands a recompute request to the worker, best effort.
func (s *Server) publishRecompute(ctx context.Context, msg *amqp.RecomputeMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecompute(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish recompute message",
			log.FieldError, err,
			"scope", msg.Scope)
	}
}

// Shutdown gracefully stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
