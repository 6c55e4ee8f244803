package api

import (
	"context"
	"net/http"
	"os"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type Options struct {
	Address        string
	DisableReqLogs bool
	// JWTSecret enables bearer authentication on the pricing routes when set.
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
}

type Server struct {
	opts Options
	app  *echo.Echo
}

// NewServer creates a new instance of Server with its middleware and routes registered.
func NewServer(opts Options, pricer Pricer) *Server {
	s := &Server{opts: opts, app: echo.New()}
	s.app.HideBanner = true
	s.app.HTTPErrorHandler = appHTTPErrorHandler

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(opts.RateLimitRPS),
				Burst:     opts.RateLimitBurst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.Request().RemoteAddr, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
	}

	if !opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(middleware.Recover())
	if opts.RateLimitRPS > 0 {
		s.app.Use(middleware.RateLimiterWithConfig(limiterConfig))
	}

	handler := NewPricingHandler(pricer)
	s.app.GET("/pricing/health", handler.Health)

	pricing := s.app.Group("/pricing")
	if opts.JWTSecret != "" {
		pricing.Use(echojwt.JWT([]byte(opts.JWTSecret)))
	}
	pricing.POST("/calculate", handler.Calculate)
	pricing.GET("/snapshots/:id", handler.GetSnapshot)

	return s
}

func (s *Server) Start() error {
	logger.Info().Str("addr", s.opts.Address).Msg("Starting pricing API")
	err := s.app.Start(s.opts.Address)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}
