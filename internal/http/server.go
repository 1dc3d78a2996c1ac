// Package http serves the marketplace analytics API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"puremetrics/internal/cache"
	"puremetrics/internal/core"
	"puremetrics/internal/market"
)

type Server struct {
	http.Server
	txReader    market.TransactionReader
	prodReader  market.ProductReader
	rateLimiter *rateLimiter

	// Response caches keyed by request path and query, dropped whenever the
	// ingestion worker announces new data.
	listCache      *cache.LRUCache[transactionListResponse]
	statsCache     *cache.LRUCache[statsResponse]
	detailCache    *cache.LRUCache[detailResponse]
	chartCache     *cache.LRUCache[[]core.DailyBucket]
	materialsCache *cache.LRUCache[[]string]
	cacheManager   *cache.Manager

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and caches, returning a ready-to-run server.
func NewServer(addr string, txr market.TransactionReader, pr market.ProductReader) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		txReader:    txr,
		prodReader:  pr,
		rateLimiter: newRateLimiter(),

		listCache:      cache.NewLRUCache[transactionListResponse](100, 5*time.Minute),
		statsCache:     cache.NewLRUCache[statsResponse](100, 5*time.Minute),
		detailCache:    cache.NewLRUCache[detailResponse](200, 5*time.Minute),
		chartCache:     cache.NewLRUCache[[]core.DailyBucket](50, 5*time.Minute),
		materialsCache: cache.NewLRUCache[[]string](1, 5*time.Minute),
		cacheManager:   cache.NewManager(),

		startedAt: time.Now(),
	}

	s.cacheManager.Register(s.listCache)
	s.cacheManager.Register(s.statsCache)
	s.cacheManager.Register(s.detailCache)
	s.cacheManager.Register(s.chartCache)
	s.cacheManager.Register(s.materialsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/transactions", s.withAPIMiddleware(s.handleListTransactions))
	mux.HandleFunc("GET /api/products", s.withAPIMiddleware(s.handleProductStats))
	mux.HandleFunc("GET /api/products/{product}/{variant}/transactions", s.withAPIMiddleware(s.handleVariantTransactions))
	mux.HandleFunc("GET /api/charts/daily", s.withAPIMiddleware(s.handleDailyChart))
	mux.HandleFunc("GET /api/materials", s.withAPIMiddleware(s.handleMaterials))

	return s
}

// InvalidateCaches drops every cached response. The AMQP consumer calls it
// when a sync pass lands new data.
func (s *Server) InvalidateCaches() {
	s.listCache.Clear()
	s.statsCache.Clear()
	s.detailCache.Clear()
	s.chartCache.Clear()
	s.materialsCache.Clear()
	slog.Info("Response caches invalidated")
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) withAPIMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := generateRequestID()
		start := time.Now()

		clientIP := extractClientIP(r)
		if !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"request_id", requestID,
				"client_ip", clientIP,
				"path", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Request-ID", requestID)

		next(w, r)

		slog.InfoContext(r.Context(), "Request handled",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"duration_ms", time.Since(start).Milliseconds())
	}
}
