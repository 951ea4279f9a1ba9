package transport

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/time/rate"
)

// TenantLimiter keeps one token bucket per tenant.
type TenantLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewTenantLimiter allows perSecond sustained requests per tenant with the given burst.
// A burst below 1 is raised to 1.
func NewTenantLimiter(perSecond float64, burst int) *TenantLimiter {
	if burst < 1 {
		burst = 1
	}
	return &TenantLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *TenantLimiter) limiter(tenantID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[tenantID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[tenantID] = limiter
	}
	return limiter
}

// Allow reports whether the tenant may make a request now.
func (l *TenantLimiter) Allow(tenantID string) bool {
	return l.limiter(tenantID).Allow()
}

// Middleware rejects requests over the tenant's rate with 429. It must run after the tenant
// is placed in the context.
func (l *TenantLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, _ := TenantFromContext(r.Context())
		if !l.Allow(tenantID) {
			retry := 1
			if l.limit > 0 {
				retry = int(math.Ceil(1 / float64(l.limit)))
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
