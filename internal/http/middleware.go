package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/orafinite/scan-api/internal/core"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitOptions configures the fixed-window rate limiter.
type RateLimitOptions struct {
	// Max is the number of requests allowed per client per window.
	// Zero disables the limiter.
	Max int
	// Window is the fixed window length.
	Window time.Duration
	// Counters backs the per-client window counters. Required when Max > 0.
	Counters core.CacheRepository
	// Logger is optional.
	Logger *slog.Logger
}

const rateLimitKeyPrefix = "ratelimit:"

// RateLimit returns a middleware enforcing a fixed request window per client.
// Counter backend failures fail open: a broken cache must not take the API
// down with it.
func RateLimit(opts RateLimitOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if opts.Max <= 0 || opts.Counters == nil {
			return next
		}
		window := opts.Window
		if window <= 0 {
			window = time.Minute
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKeyPrefix + clientKey(r)
			count, err := opts.Counters.IncrementWithTTL(r.Context(), key, window)
			if err != nil {
				if opts.Logger != nil {
					opts.Logger.Warn("rate limit counter unavailable", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(opts.Max) {
				w.Header().Set("Retry-After", formatSeconds(window))
				WriteError(w, ErrorParams{
					Code:    http.StatusTooManyRequests,
					ErrCode: "rate_limited",
					Err:     errors.New("too many requests, slow down"),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// formatSeconds renders a duration as the whole-second count Retry-After wants.
func formatSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
