package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tourbook/internal/auth"
	"tourbook/internal/config"
	"tourbook/internal/domain"
	"tourbook/internal/models"
	"tourbook/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Services groups the application services the HTTP layer dispatches to.
type Services struct {
	Bookings *service.BookingService
	Tours    *service.TourService
	Users    *service.UserService
	Auth     *service.AuthService
}

// HTTPServer exposes the booking API over REST.
type HTTPServer struct {
	echo     *echo.Echo
	server   *http.Server
	services Services
	logger   *zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	services Services,
	tokens *auth.TokenManager,
	limiter domain.RateLimitStore,
	logger *zerolog.Logger,
) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &HTTPServer{echo: e, services: services, logger: logger}
	e.HTTPErrorHandler = srv.handleError

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	e.GET("/healthz", srv.handleHealth)

	v1 := e.Group("/api/v1")

	public := v1.Group("", newIPRateLimiter(cfg.RateLimit).middleware())
	public.POST("/auth/register", srv.handleRegister)
	public.POST("/auth/login", srv.handleLogin)
	public.GET("/tours", srv.handleListTours)
	public.GET("/tours/:id", srv.handleGetTour)

	window := time.Duration(cfg.UserRateLimit.WindowSeconds) * time.Second
	private := v1.Group("",
		authMiddleware(tokens),
		userRateLimit(limiter, cfg.UserRateLimit.Requests, window, logger),
	)

	tourist := requireRole(models.RoleTourist)
	guide := requireRole(models.RoleGuide)
	admin := requireRole(models.RoleAdmin)

	private.GET("/auth/me", srv.handleMe)
	private.POST("/users", srv.handleCreateUser, admin)
	private.GET("/users", srv.handleListUsers, admin)

	b := private.Group("/bookings")
	b.POST("/create-payment-intent", srv.handleCreatePaymentIntent, tourist)
	b.POST("", srv.handleCreateBooking, tourist)
	b.GET("/user", srv.handleListOwnBookings, tourist)
	b.GET("/guide", srv.handleListGuideBookings, guide)
	b.GET("", srv.handleListAllBookings, admin)
	b.POST("/admin", srv.handleAdminCreateBooking, admin)
	b.PUT("/admin/:id", srv.handleAdminUpdateBooking, admin)
	b.GET("/admin/:id/events", srv.handleListBookingEvents, admin)
	b.GET("/export", srv.handleExportBookings, admin)
	b.GET("/:id", srv.handleGetBooking, requireRole(models.RoleTourist, models.RoleAdmin))
	b.PUT("/:id", srv.handleUpdateBooking, tourist)
	b.PUT("/:id/cancel", srv.handleCancelBooking, tourist)
	b.PUT("/:id/guide", srv.handleGuideUpdateStatus, guide)
	b.DELETE("/:id", srv.handleAdminDeleteBooking, admin)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      45 * time.Second,
	}

	return srv
}

// Handler returns the router, mainly for httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.echo
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
