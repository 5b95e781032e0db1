package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/orafinite/scan-api/internal/core"
	"github.com/orafinite/scan-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Scans  *service.ScanService
	Engine core.ScanEngine
	// Cache backs the rate-limit counters and the health check. Optional.
	Cache core.CacheRepository

	// RateLimitMax requests per client per RateLimitWindow. Zero disables.
	RateLimitMax    int
	RateLimitWindow time.Duration

	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	scanHandlers := &ScanHandlers{Svc: services.Scans}
	probeHandlers := &ProbeHandlers{Svc: services.Scans}
	healthHandlers := &HealthHandlers{Engine: services.Engine, Cache: services.Cache}

	registerScanRoutes(mux, scanHandlers, probeHandlers)
	mux.HandleFunc("GET /healthz", healthHandlers.Health)
	mux.HandleFunc("HEAD /healthz", healthHandlers.Health)

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = mux
	handler = RateLimit(RateLimitOptions{
		Max:      services.RateLimitMax,
		Window:   services.RateLimitWindow,
		Counters: services.Cache,
		Logger:   logger,
	})(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerScanRoutes(mux *http.ServeMux, scans *ScanHandlers, probes *ProbeHandlers) {
	mux.HandleFunc("POST /api/v1/scan/start", scans.Start)
	mux.HandleFunc("GET /api/v1/scan/list", scans.List)
	mux.HandleFunc("GET /api/v1/scan/probes", probes.Catalog)
	mux.HandleFunc("POST /api/v1/scan/retest", probes.Retest)
	mux.HandleFunc("GET /api/v1/scan/{id}", scans.GetStatus)
	mux.HandleFunc("POST /api/v1/scan/{id}/cancel", scans.Cancel)
	mux.HandleFunc("GET /api/v1/scan/{id}/results", scans.GetResults)
	mux.HandleFunc("GET /api/v1/scan/{id}/logs", scans.GetLogs)
}
