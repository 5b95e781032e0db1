package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/orafinite/scan-api/internal/data"
	"github.com/orafinite/scan-api/internal/mocks"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_AllowsWithinWindow(t *testing.T) {
	limited := RateLimit(RateLimitOptions{
		Max:      3,
		Window:   time.Minute,
		Counters: data.NewMemoryCacheRepo(),
	})(okHandler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
	}

	w := httptest.NewRecorder()
	limited.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimit_SeparateClientsSeparateBuckets(t *testing.T) {
	limited := RateLimit(RateLimitOptions{
		Max:      1,
		Window:   time.Minute,
		Counters: data.NewMemoryCacheRepo(),
	})(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.RemoteAddr = "10.0.0.1:1111"
	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.RemoteAddr = "10.0.0.2:2222"

	w := httptest.NewRecorder()
	limited.ServeHTTP(w, first)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	limited.ServeHTTP(w, second)
	assert.Equal(t, http.StatusOK, w.Code, "a different client gets its own window")

	w = httptest.NewRecorder()
	limited.ServeHTTP(w, first)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimit_ForwardedForWins(t *testing.T) {
	limited := RateLimit(RateLimitOptions{
		Max:      1,
		Window:   time.Minute,
		Counters: data.NewMemoryCacheRepo(),
	})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	w := httptest.NewRecorder()
	limited.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	// Same forwarded client behind a different proxy hop shares the bucket.
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.RemoteAddr = "10.9.9.9:3333"
	r2.Header.Set("X-Forwarded-For", "203.0.113.7")

	w = httptest.NewRecorder()
	limited.ServeHTTP(w, r2)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimit_DisabledWhenMaxZero(t *testing.T) {
	limited := RateLimit(RateLimitOptions{
		Max:      0,
		Window:   time.Minute,
		Counters: data.NewMemoryCacheRepo(),
	})(okHandler())

	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimit_FailsOpenOnCounterError(t *testing.T) {
	ctrl := gomock.NewController(t)
	counters := mocks.NewMockCacheRepository(ctrl)
	counters.EXPECT().
		IncrementWithTTL(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(int64(0), assert.AnError).
		Times(2)

	limited := RateLimit(RateLimitOptions{
		Max:      1,
		Window:   time.Minute,
		Counters: counters,
	})(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code, "broken counters must not reject traffic")
	}
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	handler := Recover(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLogging_PassesThrough(t *testing.T) {
	handler := Logging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
