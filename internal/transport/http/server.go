// Package http provides the HTTP server implementation for the hearing service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/KeikaK/llmbroadhearing/internal/config"
	"github.com/KeikaK/llmbroadhearing/internal/logger"
	"github.com/KeikaK/llmbroadhearing/internal/metrics"
	"github.com/KeikaK/llmbroadhearing/internal/service"
	"github.com/KeikaK/llmbroadhearing/internal/transport/http/api"
	"github.com/KeikaK/llmbroadhearing/internal/transport/ws"
)

// NewServer creates and configures the HTTP server: the JSON API, the
// streaming chat endpoints and the metrics endpoint.
func NewServer(cfg *config.Config, svc *service.Service, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(logger.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	apiHandler := api.NewHandler(svc)
	wsServer := ws.NewServer(cfg, svc)

	// Register Routes
	apiHandler.RegisterRoutes(e)
	wsServer.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	return e
}
