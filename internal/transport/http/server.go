// Package http provides the HTTP server of the assistants link service.
package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/config"
	"github.com/euskoog/openai-assistants-link/internal/service"
	v1 "github.com/euskoog/openai-assistants-link/internal/transport/http/v1"
)

// Version is reported by the health route.
const Version = "0.1.0"

// HeaderProcessTime carries the handling time of a request in seconds.
const HeaderProcessTime = "X-Process-Time"

// NewServer creates and configures the HTTP server.
func NewServer(svc *service.Service, cfg *config.Config, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("64M"))
	e.Use(requestLogger(logger))
	e.Use(processTime)

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"message": "Welcome to the assistants link API",
			"docs":    cfg.BaseURL + cfg.CorePrefix(),
		})
	})
	e.GET("/health", func(c echo.Context) error {
		if err := svc.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"version": Version,
				"error":   err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"version": Version,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1.NewHandler(svc, logger).RegisterRoutes(e.Group(cfg.CorePrefix()))

	return e
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	logger = logger.With(zap.String("component", "access"))
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}

// processTime sets HeaderProcessTime before the response is written.
func processTime(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		c.Response().Before(func() {
			elapsed := time.Since(start).Seconds()
			c.Response().Header().Set(HeaderProcessTime, strconv.FormatFloat(elapsed, 'f', 6, 64))
		})
		return next(c)
	}
}

// Addr returns the listen address for port.
func Addr(port int) string {
	return fmt.Sprintf(":%d", port)
}
