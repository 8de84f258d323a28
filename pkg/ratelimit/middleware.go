package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cyberguard/cyberguard/pkg/sessions"
)

// Config holds transport-level rate limiting settings. This guard is
// independent of the login flow's windowed attempt guard, which watches the
// attempt log rather than request volume.
type Config struct {
	GlobalEnabled    bool
	GlobalCapacity   int
	GlobalRefillRate float64 // requests per second

	PerIPEnabled    bool
	PerIPCapacity   int
	PerIPRefillRate float64

	// Per-account limiting applies only to requests that already carry a
	// validated session on the context.
	PerAccountEnabled    bool
	PerAccountCapacity   int
	PerAccountRefillRate float64

	// EndpointLimits maps "METHOD /path" to a tighter bucket, keyed per IP.
	EndpointLimits map[string]EndpointLimit

	BucketTTL time.Duration

	IncludeHeaders bool
}

// EndpointLimit defines the bucket for a specific endpoint
type EndpointLimit struct {
	Capacity   int
	RefillRate float64
}

// DefaultConfig returns settings suited to a small dashboard deployment.
// Endpoint limits are the caller's to add, since they depend on the mount
// prefix.
func DefaultConfig() *Config {
	return &Config{
		GlobalEnabled:    true,
		GlobalCapacity:   1000,
		GlobalRefillRate: 1000.0 / 60.0,

		PerIPEnabled:    true,
		PerIPCapacity:   100,
		PerIPRefillRate: 100.0 / 60.0,

		PerAccountEnabled:    true,
		PerAccountCapacity:   200,
		PerAccountRefillRate: 200.0 / 60.0,

		BucketTTL:      time.Hour,
		IncludeHeaders: true,

		EndpointLimits: make(map[string]EndpointLimit),
	}
}

// Middleware applies the configured limits to incoming requests.
type Middleware struct {
	config           *Config
	globalLimiter    *KeyedLimiter
	ipLimiter        *KeyedLimiter
	accountLimiter   *KeyedLimiter
	endpointLimiters map[string]*KeyedLimiter
}

// NewMiddleware creates rate limiting middleware from config (nil gets
// DefaultConfig).
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Middleware{
		config:           config,
		endpointLimiters: make(map[string]*KeyedLimiter),
	}
	if config.GlobalEnabled {
		m.globalLimiter = NewKeyedLimiter(config.GlobalCapacity, config.GlobalRefillRate, config.BucketTTL)
	}
	if config.PerIPEnabled {
		m.ipLimiter = NewKeyedLimiter(config.PerIPCapacity, config.PerIPRefillRate, config.BucketTTL)
	}
	if config.PerAccountEnabled {
		m.accountLimiter = NewKeyedLimiter(config.PerAccountCapacity, config.PerAccountRefillRate, config.BucketTTL)
	}
	for endpoint, limit := range config.EndpointLimits {
		m.endpointLimiters[endpoint] = NewKeyedLimiter(limit.Capacity, limit.RefillRate, config.BucketTTL)
	}
	return m
}

// Handler returns the middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.config.GlobalEnabled && !m.globalLimiter.Allow("global") {
			m.rateLimitExceeded(w, r, "global")
			return
		}

		ip := getClientIP(r)
		if m.config.PerIPEnabled && ip != "" && !m.ipLimiter.Allow(ip) {
			m.rateLimitExceeded(w, r, "ip")
			return
		}

		accountID := ""
		if id := sessions.AccountIDFromContext(r.Context()); id != uuid.Nil {
			accountID = id.String()
		}
		if m.config.PerAccountEnabled && accountID != "" && !m.accountLimiter.Allow(accountID) {
			m.rateLimitExceeded(w, r, "account")
			return
		}

		endpointKey := r.Method + " " + r.URL.Path
		if limiter, exists := m.endpointLimiters[endpointKey]; exists {
			if !limiter.Allow(ip + ":" + endpointKey) {
				m.rateLimitExceeded(w, r, "endpoint")
				return
			}
		}

		if m.config.IncludeHeaders {
			m.addRateLimitHeaders(w, ip, accountID)
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, limitType string) {
	slog.Warn("Rate limit exceeded",
		"type", limitType,
		"ip", getClientIP(r),
		"path", r.URL.Path,
		"method", r.Method,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"code":"TOO_MANY_ATTEMPTS","error":"too many requests, try again later","type":"%s"}`, limitType)
}

func (m *Middleware) addRateLimitHeaders(w http.ResponseWriter, ip, accountID string) {
	if m.config.PerIPEnabled && ip != "" {
		w.Header().Set("X-RateLimit-Limit-IP", fmt.Sprintf("%d", m.config.PerIPCapacity))
	}
	if m.config.PerAccountEnabled && accountID != "" {
		w.Header().Set("X-RateLimit-Limit-Account", fmt.Sprintf("%d", m.config.PerAccountCapacity))
	}
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
