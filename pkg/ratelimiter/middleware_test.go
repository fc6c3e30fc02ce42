package ratelimiter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/intakebilling/pkg/logger"
	"github.com/dmitrymomot/intakebilling/pkg/ratelimiter"
)

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (*ratelimiter.Result, error) {
	return nil, ratelimiter.ErrStoreUnavailable
}

func (brokenLimiter) AllowN(context.Context, string, int) (*ratelimiter.Result, error) {
	return nil, ratelimiter.ErrStoreUnavailable
}

func byRemoteAddr(r *http.Request) string { return r.RemoteAddr }

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestMiddleware(t *testing.T) {
	t.Parallel()

	b := newBucket(t, newFakeClock(), ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Minute})
	h := ratelimiter.Middleware(b, byRemoteAddr)(okHandler)

	call := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkout/start", nil))
		return w
	}

	w := call()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, call().Code)

	w = call()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestMiddleware_DeniedHandler(t *testing.T) {
	t.Parallel()

	b := newBucket(t, newFakeClock(), ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Minute})
	denied := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"too_many_requests"}}`))
	})
	h := ratelimiter.Middleware(b, byRemoteAddr, ratelimiter.WithDeniedHandler(denied))(okHandler)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "too_many_requests"))
}

func TestMiddleware_EmptyKeyNotLimited(t *testing.T) {
	t.Parallel()

	h := ratelimiter.Middleware(brokenLimiter{}, func(*http.Request) string { return "" })(okHandler)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_StoreFailure(t *testing.T) {
	t.Parallel()

	closed := ratelimiter.Middleware(brokenLimiter{}, byRemoteAddr, ratelimiter.WithLogger(logger.Discard()))(okHandler)
	w := httptest.NewRecorder()
	closed.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	open := ratelimiter.Middleware(brokenLimiter{}, byRemoteAddr,
		ratelimiter.WithFailOpen(), ratelimiter.WithLogger(logger.Discard()))(okHandler)
	w = httptest.NewRecorder()
	open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestKeyFuncs(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Intake-ID", "6f1c1b2e-3a4d-4e5f-8a9b-0c1d2e3f4a5b")
	header := func(r *http.Request) string { return r.Header.Get("X-Intake-ID") }
	empty := func(*http.Request) string { return "" }

	assert.Equal(t, "192.0.2.1:1234", ratelimiter.Composite(byRemoteAddr)(r))
	assert.Equal(t, "", ratelimiter.Composite(empty)(r))
	assert.Equal(t, "checkout:192.0.2.1:1234", ratelimiter.Prefix("checkout", byRemoteAddr)(r))
	assert.Equal(t, "", ratelimiter.Prefix("checkout", empty)(r))

	long := ratelimiter.Composite(byRemoteAddr, header)(r)
	assert.LessOrEqual(t, len(long), 64)
	assert.Equal(t, long, ratelimiter.Composite(byRemoteAddr, header)(r))
}
