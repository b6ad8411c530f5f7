package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/authcode/authcode-go/internal/client"
)

const visitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client address.
type clientLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

func (cl *clientLimiter) limiter(addr string, now time.Time) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	v, ok := cl.visitors[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.visitors[addr] = v
	}
	v.lastSeen = now
	return v.limiter
}

// wait returns how long addr must wait before its next request is allowed,
// or zero when the request may proceed now.
func (cl *clientLimiter) wait(addr string, now time.Time) time.Duration {
	res := cl.limiter(addr, now).ReserveN(now, 1)
	if !res.OK() {
		return visitorTTL
	}
	d := res.DelayFrom(now)
	if d > 0 {
		res.CancelAt(now)
	}
	return d
}

// evict drops visitors not seen within visitorTTL of now.
func (cl *clientLimiter) evict(now time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	for addr, v := range cl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(cl.visitors, addr)
		}
	}
}

func (cl *clientLimiter) sweep() {
	ticker := time.NewTicker(visitorTTL)
	defer ticker.Stop()
	for now := range ticker.C {
		cl.evict(now)
	}
}

// RateLimit limits requests per client IP to rps with bursts of burst.
// Rejected requests get 429 with Retry-After and retryAfterSeconds set to
// the whole seconds until a token is available.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := newClientLimiter(rps, burst)
	go limiter.sweep()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			if d := limiter.wait(ip, time.Now()); d > 0 {
				secs := int(math.Ceil(d.Seconds()))
				LoggerFrom(r.Context()).Warn("rate limited", "ip", ip, "path", r.URL.Path, "retry_after", secs)

				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{
					"ok":                false,
					"error":             "too many requests",
					"retryAfterSeconds": secs,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the address a request is made on behalf of. The first
// X-Forwarded-For entry is used only when the peer is loopback, which is how
// the web host relays browser actions to the API.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	peer := net.ParseIP(host)
	if peer == nil || !peer.IsLoopback() {
		return host
	}

	fwd, _, _ := strings.Cut(r.Header.Get(client.ForwardedForHeader), ",")
	fwd = strings.TrimSpace(fwd)
	if net.ParseIP(fwd) == nil {
		return host
	}
	return fwd
}
