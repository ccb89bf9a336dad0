/*
Package limiter provides request rate limiting keyed by client IP address.

It uses the Token Bucket algorithm (rate.Limiter) per IP and runs a cleanup goroutine
that drops idle limiters until its context is cancelled.
*/
package limiter

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"roomtoken/internal/pkg/errs"
	"roomtoken/internal/pkg/logx"
	"roomtoken/internal/pkg/resp"

	"golang.org/x/time/rate"
)

// DefaultCleanupInterval is how often idle limiters are swept.
const DefaultCleanupInterval = 3 * time.Minute

// IPRateLimiter implements a concurrency-safe rate limiter based on client IP addresses.
type IPRateLimiter struct {
	// mu is used to protect concurrent access to the limits map.
	mu sync.RWMutex

	// limits stores the map from client IP address to the *rate.Limiter instance.
	limits map[string]*rate.Limiter

	// r is the number of events allowed per second.
	r rate.Limit

	// b is the burst size (token bucket size).
	b int

	done chan struct{}
}

// NewIPRateLimiter creates an IPRateLimiter allowing r events per second with burst b.
// Its cleanup goroutine runs every interval until ctx is cancelled; Done is closed
// once it has exited.
func NewIPRateLimiter(ctx context.Context, r rate.Limit, b int, interval time.Duration) *IPRateLimiter {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		done:   make(chan struct{}),
	}

	go i.cleanUpVisitors(ctx, interval)

	return i
}

// Done is closed after the cleanup goroutine has stopped.
func (i *IPRateLimiter) Done() <-chan struct{} {
	return i.done
}

// GetLimiter retrieves the rate limiter for the given IP address, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if !exists {
		i.mu.Lock()
		limiter, exists = i.limits[ip]
		if !exists {
			limiter = rate.NewLimiter(i.r, i.b)
			i.limits[ip] = limiter
		}
		i.mu.Unlock()
	}

	return limiter
}

// tracked returns the number of tracked IP addresses.
func (i *IPRateLimiter) tracked() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.limits)
}

// sweep removes limiters whose bucket is full again, i.e. IPs idle long enough to
// have regained every token.
func (i *IPRateLimiter) sweep(now time.Time) (removed, remaining int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for ip, limiter := range i.limits {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(i.limits, ip)
			removed++
		}
	}
	return removed, len(i.limits)
}

func (i *IPRateLimiter) cleanUpVisitors(ctx context.Context, interval time.Duration) {
	defer close(i.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, remaining := i.sweep(now)
			logx.Debug("Rate limiter cleanup finished", "removed", removed, "remaining", remaining)
		}
	}
}

// Middleware rejects requests over the limit with 429 Too Many Requests.
// It keys on RemoteAddr, which chi's RealIP middleware rewrites upstream when proxy
// headers are trusted.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !i.GetLimiter(ip).Allow() {
			logx.Ctx(r.Context()).Warn().Msg("Rate limit exceeded")
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
