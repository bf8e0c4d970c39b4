package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services/ratelimit"
	"github.com/circassiandna/chatbot/utils"
)

// RateLimit rejects requests from clients that exceeded their token bucket
// with 429 and a Retry-After header. Preflight requests are never limited.
func RateLimit(limiter *ratelimit.RateLimitService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || !limiter.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			result := limiter.CheckLimit(ip)
			if !result.Allowed {
				logger.Warn("rate limit exceeded",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("client_ip", ip),
					zap.Duration("retry_after", result.RetryAfter))
				_ = utils.WriteTooManyRequests(w, "", result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
		})
	}
}
