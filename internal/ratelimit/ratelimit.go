package ratelimit

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/httpmw"
)

const (
	DefaultRate       = 5
	DefaultBurst      = 10
	DefaultIdleTTL    = 5 * time.Minute
	DefaultMaxClients = 10000
)

// client is one address's bucket. reported is reset only on eviction, so a
// persistent offender is logged once per idle period.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	reported bool
}

// Limiter holds per-address token buckets.
type Limiter struct {
	mu       sync.Mutex
	clients  map[string]*client
	overflow *rate.Limiter

	perSecond  rate.Limit
	burst      int
	idleTTL    time.Duration
	maxClients int

	onFirstDenied func(ip string)
	onDenied      func()
	onCapacity    func()

	now func() time.Time
}

type Option func(*Limiter)

// WithRate sets the refill rate and bucket size. WithRate(5, 10) allows ten
// requests at once, then five per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *Limiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithIdleTTL is how long an idle address keeps its bucket.
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) { l.idleTTL = d }
}

func WithMaxClients(n int) Option {
	return func(l *Limiter) { l.maxClients = n }
}

// WithOnFirstDenied is called once per tracked address when it is first
// throttled; used for logging.
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *Limiter) { l.onFirstDenied = fn }
}

// WithOnDenied is called on every rejected request; used for metrics.
func WithOnDenied(fn func()) Option {
	return func(l *Limiter) { l.onDenied = fn }
}

// WithOnCapacity is called whenever a new address lands in the overflow
// bucket because the table is full.
func WithOnCapacity(fn func()) Option {
	return func(l *Limiter) { l.onCapacity = fn }
}

// New builds a Limiter and starts eviction, which stops when ctx is done.
func New(ctx context.Context, opts ...Option) *Limiter {
	l := &Limiter{
		clients:    make(map[string]*client),
		perSecond:  DefaultRate,
		burst:      DefaultBurst,
		idleTTL:    DefaultIdleTTL,
		maxClients: DefaultMaxClients,
		now:        time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	l.overflow = rate.NewLimiter(l.perSecond, l.burst)
	go l.evictLoop(ctx)
	return l
}

// Allow reports whether a request from ip may proceed. Hooks run after the
// lock is released.
func (l *Limiter) Allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	c, ok := l.clients[ip]
	full := false
	if !ok {
		if len(l.clients) >= l.maxClients {
			full = true
		} else {
			c = &client{limiter: rate.NewLimiter(l.perSecond, l.burst)}
			l.clients[ip] = c
		}
	}

	var allowed, first bool
	if full {
		allowed = l.overflow.AllowN(now, 1)
	} else {
		c.lastSeen = now
		allowed = c.limiter.AllowN(now, 1)
		if !allowed && !c.reported {
			c.reported = true
			first = true
		}
	}
	l.mu.Unlock()

	if full && l.onCapacity != nil {
		l.onCapacity()
	}
	if allowed {
		return true
	}
	if first && l.onFirstDenied != nil {
		l.onFirstDenied(ip)
	}
	if l.onDenied != nil {
		l.onDenied()
	}
	return false
}

// Tracked is the number of addresses holding a bucket.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// evict drops buckets idle longer than the TTL.
func (l *Limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.clients, ip)
		}
	}
}

func (l *Limiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(l.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(l.now())
		}
	}
}

// retryAfter is the whole number of seconds for one token to refill.
func (l *Limiter) retryAfter() string {
	if l.perSecond <= 0 {
		return "60"
	}
	secs := math.Ceil(1 / float64(l.perSecond))
	return strconv.Itoa(max(1, int(secs)))
}

// Middleware rejects throttled requests with 429. The client address comes
// from httpmw.ClientIPWithOptions, falling back to the socket peer.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := httpmw.ClientIPFromContext(r.Context())
		if ip == "" {
			ip, _, _ = net.SplitHostPort(r.RemoteAddr)
		}

		if !l.Allow(ip) {
			h := w.Header()
			h.Set("Content-Type", "application/json; charset=utf-8")
			h.Set("Cache-Control", "no-store")
			h.Set("Retry-After", l.retryAfter())
			w.WriteHeader(http.StatusTooManyRequests)
			// no detail about limits or remaining budget
			_, _ = w.Write([]byte(`{"error":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
