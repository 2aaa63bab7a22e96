package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/sendwell/sendguard/api/handlers"
	"github.com/sendwell/sendguard/api/middleware"
	"github.com/sendwell/sendguard/internal/repository"
	"github.com/sendwell/sendguard/internal/tracing"
	"github.com/sendwell/sendguard/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// the engine from gin.Default already carries gin.Recovery
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	apiHandlers := handlers.InitHandlers(s, repos)

	// Health check and status endpoints (no custom context needed)
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.Status(s))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-SENDGUARD-API-KEY",
		ValidAPIKey: apikey,
	})

	// API group with version and custom context
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.CustomContextMiddleware("sendguard"))
	api.Use(middleware.TracingMiddleware())
	{
		accounts := api.Group("/accounts")
		{
			accounts.POST("", apiHandlers.Accounts.Register())
			accounts.GET("/:id", apiHandlers.Accounts.Get())
		}

		api.POST("/triggers", apiHandlers.Triggers.Trigger())

		reports := api.Group("/reports")
		{
			reports.GET("/daily", apiHandlers.Reports.Daily())
		}

		jobs := api.Group("/jobs")
		{
			jobs.GET("/failures", apiHandlers.Jobs.Failures())
		}
	}
}
