package routes

import (
	"fab-panel/internal/api/handlers"
	"fab-panel/internal/api/middleware"
	"fab-panel/internal/config"
	"fab-panel/internal/events"
	"fab-panel/internal/models"
	"fab-panel/internal/services"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config) {
	// Initialize services
	bus := events.NewBus()
	services.RegisterAuditRecorder(bus)

	authService := services.NewAuthService(cfg)
	userService := services.NewUserService()
	resourceService := services.NewResourceService()
	introductionService := services.NewIntroductionService()
	introducerService := services.NewIntroducerService()
	authorizationService := services.NewAuthorizationService(introductionService, introducerService, resourceService)
	usageService := services.NewUsageService(authorizationService, resourceService, bus)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, cfg)
	usageHandler := handlers.NewUsageHandler(usageService, authorizationService)
	resourceIntroductions := handlers.NewIntroductionHandler(models.ScopeResource, introductionService, introducerService, resourceService, userService)
	groupIntroductions := handlers.NewIntroductionHandler(models.ScopeResourceGroup, introductionService, introducerService, resourceService, userService)
	resourceIntroducers := handlers.NewIntroducerHandler(models.ScopeResource, introducerService, resourceService, userService)
	groupIntroducers := handlers.NewIntroducerHandler(models.ScopeResourceGroup, introducerService, resourceService, userService)

	// Middleware
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.ErrorHandler())

	// Public routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"message": "Fab-Panel API is running",
			})
		})

		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(authService))
	{
		// Auth routes (protected)
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.GetMe)

		// Caller's own usage history
		protected.GET("/users/me/usage/history", usageHandler.GetMyHistory)

		// Resource routes
		resources := protected.Group("/resources/:id")
		{
			resources.GET("/can-control", usageHandler.CanControl)

			usage := resources.Group("/usage")
			{
				usage.POST("/start", usageHandler.StartSession)
				usage.POST("/end", usageHandler.EndSession)
				usage.GET("/active", usageHandler.GetActiveSession)
				usage.GET("/history", usageHandler.GetHistory)
			}

			introductions := resources.Group("/introductions")
			{
				introductions.GET("", resourceIntroductions.List)
				introductions.GET("/history", resourceIntroductions.History)
				introductions.POST("/grant", resourceIntroductions.Grant)
				introductions.POST("/revoke", resourceIntroductions.Revoke)
			}

			introducers := resources.Group("/introducers")
			{
				introducers.GET("", resourceIntroducers.List)
				introducers.POST("/:userId", middleware.RequireResourceManager(), resourceIntroducers.Grant)
				introducers.DELETE("/:userId", middleware.RequireResourceManager(), resourceIntroducers.Revoke)
			}
		}

		// Resource group routes
		groups := protected.Group("/groups/:id")
		{
			introductions := groups.Group("/introductions")
			{
				introductions.GET("", groupIntroductions.List)
				introductions.GET("/history", groupIntroductions.History)
				introductions.POST("/grant", groupIntroductions.Grant)
				introductions.POST("/revoke", groupIntroductions.Revoke)
			}

			introducers := groups.Group("/introducers")
			{
				introducers.GET("", groupIntroducers.List)
				introducers.POST("/:userId", middleware.RequireResourceManager(), groupIntroducers.Grant)
				introducers.DELETE("/:userId", middleware.RequireResourceManager(), groupIntroducers.Revoke)
			}
		}
	}
}
