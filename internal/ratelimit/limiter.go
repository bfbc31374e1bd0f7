// Package ratelimit throttles theme writes per client.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adhikaar-ai/adhikaar/internal/api/apiutil"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Kind separates imports, which parse untrusted files, from other writes.
type Kind string

const (
	KindWrite  Kind = "write"
	KindImport Kind = "import"
)

// Config holds rate limit configuration.
type Config struct {
	WritesPerMinute int  // Max mutating requests per client per minute (default: 60)
	ImportsPerHour  int  // Max imports per client per hour (default: 20)
	TrustProxy      bool // Read the client address from X-Forwarded-For / X-Real-IP

	// POST routes that only compute and never write (nil uses DefaultExemptPaths)
	ExemptPaths []string

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultExemptPaths are side-effect free POST routes.
var DefaultExemptPaths = []string{"/api/v1/themes/contrast"}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		WritesPerMinute: 60,
		ImportsPerHour:  20,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

type entry struct {
	count   int
	firstAt time.Time // First request in window
	lastAt  time.Time
}

// Limiter counts requests per client in fixed windows.
type Limiter struct {
	config *Config
	clock  Clock
	exempt map[string]struct{}
	mu     sync.Mutex
	// Keyed by client IP
	writes  map[string]*entry
	imports map[string]*entry

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

// New creates a new rate limiter with the given config.
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	exemptPaths := cfg.ExemptPaths
	if exemptPaths == nil {
		exemptPaths = DefaultExemptPaths
	}
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		exempt[path] = struct{}{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		exempt:        exempt,
		writes:        make(map[string]*entry),
		imports:       make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine and releases resources.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// Allow checks and records one request of the given kind from ip.
// Imports count against both budgets.
func (l *Limiter) Allow(kind Kind, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if result := check(l.writes[ip], now, time.Minute, l.config.WritesPerMinute, "write_limit"); !result.Allowed {
		return result
	}
	if kind == KindImport {
		if result := check(l.imports[ip], now, time.Hour, l.config.ImportsPerHour, "import_limit"); !result.Allowed {
			return result
		}
		record(l.imports, ip, now, time.Hour)
	}
	record(l.writes, ip, now, time.Minute)

	return LimitResult{Allowed: true}
}

func check(e *entry, now time.Time, window time.Duration, limit int, reason string) LimitResult {
	if e == nil || limit <= 0 {
		return LimitResult{Allowed: true}
	}
	if elapsed := now.Sub(e.firstAt); elapsed < window && e.count >= limit {
		return LimitResult{
			Allowed:    false,
			RetryAfter: window - elapsed,
			Reason:     reason,
		}
	}
	return LimitResult{Allowed: true}
}

func record(entries map[string]*entry, key string, now time.Time, window time.Duration) {
	e := entries[key]
	if e == nil || now.Sub(e.firstAt) >= window {
		entries[key] = &entry{count: 1, firstAt: now, lastAt: now}
		return
	}
	e.count++
	e.lastAt = now
}

// Middleware limits every request that is not GET, HEAD or OPTIONS and not
// on an exempt path. A path ending in /import is charged as an import.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := l.exempt[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		kind := KindWrite
		if strings.HasSuffix(r.URL.Path, "/import") {
			kind = KindImport
		}
		ip := GetClientIP(r, l.config.TrustProxy)

		result := l.Allow(kind, ip)
		if !result.Allowed {
			LogRateLimitExceeded(r, kind, ip, result.Reason)
			seconds := int(math.Ceil(result.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			apiutil.WriteError(w, r, apiutil.HandlerError{
				Status:  http.StatusTooManyRequests,
				Message: fmt.Sprintf("Too many theme changes, retry in %ds", seconds),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.writes {
		if now.Sub(e.lastAt) > time.Minute {
			delete(l.writes, k)
		}
	}
	for k, e := range l.imports {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.imports, k)
		}
	}
}

// GetClientIP extracts the client IP from a request.
// When trustProxy is true, uses the rightmost public IP from X-Forwarded-For.
// When trustProxy is false, ignores forwarding headers entirely.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				ip := strings.TrimSpace(parts[i])
				if ip != "" && !isPrivateIP(ip) {
					return ip
				}
			}
			// All IPs are private, use the last one
			return strings.TrimSpace(parts[len(parts)-1])
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

var privateNetworks []*net.IPNet

func init() {
	privateRanges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10", // Link-local
	}
	for _, cidr := range privateRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid private CIDR: " + cidr)
		}
		privateNetworks = append(privateNetworks, network)
	}
}

// isPrivateIP handles IPv4-mapped IPv6 addresses such as ::ffff:192.168.1.1.
func isPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	if ipv4 := ip.To4(); ipv4 != nil {
		ip = ipv4
	}
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func LogRateLimitExceeded(r *http.Request, kind Kind, ip, reason string) {
	log.Ctx(r.Context()).Warn().
		Str("event", "rate_limit_exceeded").
		Str("type", string(kind)).
		Str("ip", ip).
		Str("path", r.URL.Path).
		Str("reason", reason).
		Msg("Theme write rate limit exceeded")
}
