package limiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newLimiter(t *testing.T, r rate.Limit, b int) *IPRateLimiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	l := NewIPRateLimiter(ctx, r, b, time.Hour)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l
}

func TestMiddleware_LimitsPerIP(t *testing.T) {
	l := newLimiter(t, rate.Limit(0.001), 2)

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/token", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("198.51.100.7:1000"))
	assert.Equal(t, http.StatusOK, call("198.51.100.7:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("198.51.100.7:1002"))

	assert.Equal(t, http.StatusOK, call("198.51.100.8:1000"), "other IPs have their own bucket")
	assert.Equal(t, 2, l.tracked())
}

func TestSweep_RemovesIdleLimiters(t *testing.T) {
	l := newLimiter(t, rate.Limit(1), 1)

	l.GetLimiter("192.0.2.1").Allow()
	l.GetLimiter("192.0.2.2")

	removed, remaining := l.sweep(time.Now())
	assert.Equal(t, 1, removed, "untouched bucket is full")
	assert.Equal(t, 1, remaining)

	removed, remaining = l.sweep(time.Now().Add(time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, remaining)
}

func TestCleanupStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewIPRateLimiter(ctx, rate.Limit(1), 1, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("cleanup goroutine did not stop")
	}
}
