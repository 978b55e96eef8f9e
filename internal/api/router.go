package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/account-system/docs"
	"github.com/99minutos/account-system/internal/api/handler"
	"github.com/99minutos/account-system/internal/api/middleware"
	"github.com/99minutos/account-system/internal/core/ports"
)

// Deps is everything the router needs. Registerer and Gatherer are optional:
// without a Registerer no HTTP metrics are collected, and /metrics falls back
// to the default gatherer.
type Deps struct {
	Auth      ports.AuthService
	Accounts  ports.AccountService
	Pingers   map[string]handler.Pinger
	Log       zerolog.Logger
	APIPrefix string

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.AccessLog(d.Log))
	e.Use(middleware.RequestContext())
	if d.Registerer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace:  "accounts",
			Subsystem:  "http",
			Registerer: d.Registerer,
		}))
	}

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth)
	accountHandler := handler.NewAccountHandler(d.Accounts)
	adminHandler := handler.NewAdminHandler(d.Accounts)
	healthHandler := handler.NewHealthHandler(d.Pingers)

	e.GET("/", welcome)

	// --- Operational endpoints (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group(d.APIPrefix)

	// --- Auth routes ---
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/login/email", authHandler.LoginEmail)

	// --- Account routes (bearer token required) ---
	users := api.Group("/users", middleware.BearerToken())
	users.GET("/me", accountHandler.GetMe)
	users.PUT("/me", accountHandler.UpdateMe)
	users.DELETE("/me", accountHandler.DeleteMe)

	users.GET("", adminHandler.List)
	users.POST("", adminHandler.Create)
	users.GET("/:id", adminHandler.Get)
	users.PUT("/:id", adminHandler.Update)
	users.DELETE("/:id", adminHandler.Delete)

	return e
}

func welcome(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "account service",
		"docs":    "/swagger/index.html",
	})
}
