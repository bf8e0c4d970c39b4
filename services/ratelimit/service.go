package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds per-client token bucket settings
type Config struct {
	// RequestsPerSecond is the sustained rate per client; 0 disables limiting.
	RequestsPerSecond float64
	Burst             int

	// IdleTTL is how long an unused client limiter is kept.
	IdleTTL time.Duration
}

// RateLimitResult represents the result of a rate limit check
type RateLimitResult struct {
	Allowed         bool
	RetryAfter      time.Duration
	ViolationReason string
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitService keeps one token bucket per client key, usually the
// client IP.
type RateLimitService struct {
	config      Config
	mu          sync.Mutex
	clients     map[string]*clientLimiter
	lastCleanup time.Time
	now         func() time.Time
	logger      *zap.Logger
}

// NewRateLimitService creates a new RateLimitService instance
func NewRateLimitService(config Config, logger *zap.Logger) *RateLimitService {
	if config.Burst < 1 {
		config.Burst = 1
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = time.Hour
	}
	return &RateLimitService{
		config:      config,
		clients:     make(map[string]*clientLimiter),
		lastCleanup: time.Now(),
		now:         time.Now,
		logger:      logger,
	}
}

// Enabled reports whether requests are limited at all
func (s *RateLimitService) Enabled() bool {
	return s.config.RequestsPerSecond > 0
}

// CheckLimit consumes one token for key
func (s *RateLimitService) CheckLimit(key string) *RateLimitResult {
	if !s.Enabled() {
		return &RateLimitResult{Allowed: true}
	}

	now := s.now()
	limiter := s.limiterFor(key, now)

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return &RateLimitResult{Allowed: false, ViolationReason: "rate limit exceeded"}
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		s.logger.Debug("rate limit exceeded",
			zap.String("client", key),
			zap.Duration("retry_after", delay))
		return &RateLimitResult{
			Allowed:         false,
			RetryAfter:      delay,
			ViolationReason: fmt.Sprintf("exceeded %.2f requests per second", s.config.RequestsPerSecond),
		}
	}

	return &RateLimitResult{Allowed: true}
}

// Clients returns the number of tracked client limiters
func (s *RateLimitService) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *RateLimitService) limiterFor(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastCleanup) > s.config.IdleTTL {
		s.cleanup(now)
	}

	c, ok := s.clients[key]
	if !ok {
		c = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.Burst),
		}
		s.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

// cleanup drops limiters idle for longer than IdleTTL. Caller holds mu.
func (s *RateLimitService) cleanup(now time.Time) {
	removed := 0
	for key, c := range s.clients {
		if now.Sub(c.lastSeen) > s.config.IdleTTL {
			delete(s.clients, key)
			removed++
		}
	}
	s.lastCleanup = now
	if removed > 0 {
		s.logger.Debug("cleaned up idle rate limiters", zap.Int("removed", removed))
	}
}
