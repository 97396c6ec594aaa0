package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/joseph-ayodele/cardmate/internal/export"
	repo "github.com/joseph-ayodele/cardmate/internal/repository"
	"github.com/joseph-ayodele/cardmate/internal/services/auth"
	"github.com/joseph-ayodele/cardmate/internal/services/cards"
)

// Deps bundles the services exposed over HTTP and gRPC.
type Deps struct {
	Auth   *auth.Service
	Cards  *cards.Service
	Export *export.Service
	DB     *repo.DB // optional, used by /health
}

// HTTPConfig tunes request limits of the HTTP API.
type HTTPConfig struct {
	MaxUploadBytes   int64
	MaxJSONBytes     int64
	MaxConcurrentOCR int64
	RateEvery        time.Duration
	RateBurst        int
	ScanTimeout      time.Duration
	UploadDir        string // "" uses the OS temp dir
}

func (c HTTPConfig) withDefaults() HTTPConfig {
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 10 << 20
	}
	if c.MaxJSONBytes <= 0 {
		c.MaxJSONBytes = 1 << 20
	}
	if c.MaxConcurrentOCR <= 0 {
		c.MaxConcurrentOCR = 4
	}
	if c.RateEvery <= 0 {
		c.RateEvery = 200 * time.Millisecond
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 20
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = 2 * time.Minute
	}
	return c
}

// HTTPServer serves the card API.
type HTTPServer struct {
	deps     Deps
	cfg      HTTPConfig
	ocrSem   *semaphore.Weighted
	limiters *sync.Map
	active   atomic.Int64
	logger   *slog.Logger
}

func NewHTTPServer(deps Deps, cfg HTTPConfig, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &HTTPServer{
		deps:     deps,
		cfg:      cfg,
		ocrSem:   semaphore.NewWeighted(cfg.MaxConcurrentOCR),
		limiters: &sync.Map{},
		logger:   logger,
	}
}

// Handler returns the routed API wrapped in logging, recovery and CORS.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /register", s.withRateLimit(s.handleRegister))
	mux.HandleFunc("POST /login", s.withRateLimit(s.handleLogin))

	mux.HandleFunc("POST /ocr",
		s.withRateLimit(
			s.withOCRGate(s.handleOCR)))
	mux.HandleFunc("POST /scan",
		s.withRateLimit(
			s.withAuth(
				s.withOCRGate(s.handleScan))))

	mux.HandleFunc("GET /cards", s.withAuth(s.handleListCards))
	mux.HandleFunc("GET /cards/export.xlsx", s.withAuth(s.handleExportCards))
	mux.HandleFunc("POST /cards/clear", s.withAuth(s.handleClearCards))
	mux.HandleFunc("GET /cards/{id}", s.withAuth(s.handleGetCard))
	mux.HandleFunc("PATCH /cards/{id}", s.withAuth(s.handleUpdateCard))
	mux.HandleFunc("DELETE /cards/{id}", s.withAuth(s.handleDeleteCard))
	mux.HandleFunc("POST /cards/{id}/set-owner", s.withAuth(s.handleSetOwner))
	mux.HandleFunc("GET /cards/{id}/vcard", s.withAuth(s.handleCardVCard))
	mux.HandleFunc("GET /cards/{id}/qr", s.withAuth(s.handleCardQR))

	return s.withLogging(s.withRecovery(withCORS(mux)))
}

// CleanupLimiters drops the per-IP rate limiters every interval until ctx
// is done.
func (s *HTTPServer) CleanupLimiters(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiters.Range(func(k, _ any) bool {
				s.limiters.Delete(k)
				return true
			})
			s.logger.Debug("http.limiters.reset", "active", s.active.Load())
		}
	}
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "CardMate API",
		"status":  "running",
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	db := "skipped"
	if s.deps.DB != nil {
		db = "ok"
		if err := s.deps.DB.HealthCheck(r.Context(), 2*time.Second, s.logger); err != nil {
			db = "down"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":   status,
		"database": db,
		"active":   s.active.Load(),
	})
}
