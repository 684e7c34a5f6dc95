package api

import (
	"strconv"
	"strings"
	"time"

	"tourbook/internal/auth"
	"tourbook/internal/domain"
	"tourbook/internal/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	identityKey     = "identity"
	requestIDHeader = "X-Request-ID"
)

func identityFrom(c echo.Context) auth.Identity {
	id, _ := c.Get(identityKey).(auth.Identity)
	return id
}

// requestLogger writes one access log line per request and feeds the HTTP metrics.
func requestLogger(logger *zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := req.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(requestIDHeader, requestID)

			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			elapsed := time.Since(start)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.ObserveHTTP(req.Method, route, status, elapsed)

			event := logger.Info()
			if status >= 500 {
				event = logger.Error()
			}
			event.
				Str("request_id", requestID).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("duration", elapsed).
				Str("remote_ip", c.RealIP()).
				Str("user_id", identityFrom(c).UserID).
				Msg("http request")
			return nil
		}
	}
}

// authMiddleware resolves the bearer token into an auth.Identity.
func authMiddleware(tokens *auth.TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return domain.ErrUnauthenticated
			}

			id, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// userRateLimit applies a per-user fixed window. Store failures let the request through.
func userRateLimit(store domain.RateLimitStore, limit int, window time.Duration, logger *zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if store == nil || limit <= 0 {
				return next(c)
			}
			id := identityFrom(c)
			allowed, err := store.CheckRateLimit(c.Request().Context(), "user:"+id.UserID, limit, window)
			if err != nil {
				logger.Warn().Err(err).Str("user_id", id.UserID).Msg("rate limit check failed")
				return next(c)
			}
			if !allowed {
				metrics.IncRateLimited("user")
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				return domain.ErrRateLimited
			}
			return next(c)
		}
	}
}

// requireRole rejects callers whose role is not listed.
func requireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !identityFrom(c).HasRole(roles...) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
