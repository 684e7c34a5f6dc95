package api

import (
	"sync"

	"tourbook/internal/config"
	"tourbook/internal/domain"
	"tourbook/internal/metrics"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// ipRateLimiter keeps one token bucket per client IP for unauthenticated routes.
type ipRateLimiter struct {
	limiters sync.Map
	cfg      config.APIRateLimitConfig
}

func newIPRateLimiter(cfg config.APIRateLimitConfig) *ipRateLimiter {
	return &ipRateLimiter{cfg: cfg}
}

func (l *ipRateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}

func (l *ipRateLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l.cfg.RPS <= 0 {
				return next(c)
			}
			if !l.getLimiter(c.RealIP()).Allow() {
				metrics.IncRateLimited("ip")
				return domain.ErrRateLimited
			}
			return next(c)
		}
	}
}
