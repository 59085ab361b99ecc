// internal/router/router.go
package router

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/greenproof/greenproof-backend/internal/config"
	"github.com/greenproof/greenproof-backend/internal/handlers"
	"github.com/greenproof/greenproof-backend/internal/middleware"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/repository"
	"github.com/greenproof/greenproof-backend/internal/services"
)

const Version = "1.0.0"

// Options carries the collaborators that differ between production and
// tests.
type Options struct {
	Clock      repository.Clock
	Ping       handlers.Pinger
	MailSender services.MailSender
}

func Initialize(store repository.Store, cfg *config.Config, opts Options) (*gin.Engine, error) {
	clock := opts.Clock
	if clock == nil {
		clock = repository.SystemClock
	}

	// Initialize services
	notificationService := services.NewNotificationService(store, cfg, clock)
	if opts.MailSender != nil {
		notificationService.WithMailSender(opts.MailSender)
	}
	storageService, err := services.NewStorageService(cfg, clock)
	if err != nil {
		return nil, err
	}
	qrService := services.NewQRService(cfg.Frontend.BaseURL)

	authService := services.NewAuthService(store, cfg, clock)
	userService := services.NewUserService(store, clock)
	adminService := services.NewAdminService(store, notificationService, clock)
	productService := services.NewProductService(store, qrService, clock)
	credentialService := services.NewCredentialService(store, qrService, notificationService, clock)
	dashboardService := services.NewDashboardService(store, clock)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(opts.Ping, Version)
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	adminHandler := handlers.NewAdminHandler(adminService)
	productHandler := handlers.NewProductHandler(productService)
	credentialHandler := handlers.NewCredentialHandler(credentialService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	uploadHandler := handlers.NewUploadHandler(storageService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	limits := middleware.NewRateLimits(cfg.RateLimit)

	// Initialize Gin router
	r := gin.New()
	r.MaxMultipartMemory = int64(cfg.Storage.MaxUploadMB) << 20

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))

	// Locally stored evidence is served straight from disk.
	if !cfg.AWS.Enabled() && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		r.Static(cfg.Storage.PublicBaseURL, cfg.Storage.LocalPath)
	}

	api := r.Group("/api")
	api.Use(limits.General.Middleware())
	api.Use(middleware.ActivityLogger(store))
	{
		api.GET("/health", healthHandler.Health)

		// Authentication routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", limits.Auth.Middleware(), authHandler.Register)
			auth.POST("/login", limits.Auth.Middleware(), authHandler.Login)
			auth.POST("/refresh", limits.Auth.Middleware(), authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		}

		// User routes
		users := api.Group("/users")
		{
			users.GET("/:id/public", userHandler.GetPublicProfile)

			protected := users.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.PUT("/profile", userHandler.UpdateProfile)
				protected.POST("/verification-documents", userHandler.AddVerificationDocument)
			}
		}

		// Product routes
		products := api.Group("/products")
		{
			products.GET("", middleware.OptionalAuth(), productHandler.GetProducts)
			products.GET("/qr/:qrCode", productHandler.GetProductByQRCode)
			products.GET("/:id", middleware.OptionalAuth(), productHandler.GetProduct)
			products.GET("/:id/qr", productHandler.GetProductQRCode)

			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", middleware.RoleRequired(models.RoleProducer, models.RoleAdmin), productHandler.CreateProduct)
				protected.PUT("/:id", middleware.RoleRequired(models.RoleProducer, models.RoleAdmin), productHandler.UpdateProduct)
				protected.DELETE("/:id", middleware.RoleRequired(models.RoleProducer, models.RoleAdmin), productHandler.DeleteProduct)
				protected.POST("/:id/supply-chain", middleware.RoleRequired(models.RoleProducer, models.RoleAdmin), productHandler.AddSupplyChainStage)
			}
		}

		// Credential routes
		credentials := api.Group("/credentials")
		credentials.Use(middleware.AuthRequired())
		{
			issuers := middleware.RoleRequired(models.RoleProducer, models.RoleAdmin)
			verifiers := middleware.RoleRequired(models.RoleVerifier, models.RoleAdmin)

			credentials.GET("", credentialHandler.GetCredentials)
			credentials.POST("", issuers, credentialHandler.CreateCredential)
			credentials.GET("/:id", credentialHandler.GetCredential)
			credentials.GET("/:id/qr", credentialHandler.GetCredentialQRCode)
			credentials.PUT("/:id", issuers, credentialHandler.UpdateCredential)
			credentials.PUT("/:id/submit", issuers, credentialHandler.SubmitCredential)
			credentials.PUT("/:id/verify", verifiers, credentialHandler.VerifyCredential)
			credentials.PUT("/:id/reject", verifiers, credentialHandler.RejectCredential)
			credentials.PUT("/:id/revoke", issuers, credentialHandler.RevokeCredential)
			credentials.PUT("/:id/requirements/:index", verifiers, credentialHandler.MarkRequirement)
			credentials.PUT("/:id/evidence/:index/verify", verifiers, credentialHandler.VerifyEvidence)
		}

		// Carbon routes
		carbon := api.Group("/carbon")
		carbon.Use(middleware.AuthRequired())
		{
			carbon.POST("/calculate", dashboardHandler.CalculateCarbon)
			carbon.GET("/dashboard", dashboardHandler.GetCarbonDashboard)
		}

		// Dashboard routes
		dashboard := api.Group("/dashboard")
		dashboard.Use(middleware.AuthRequired())
		{
			dashboard.GET("/overview", dashboardHandler.GetOverview)
			dashboard.GET("/analytics", dashboardHandler.GetAnalytics)
		}

		// Upload routes
		uploads := api.Group("/uploads")
		uploads.Use(middleware.AuthRequired(), limits.Upload.Middleware())
		{
			uploads.POST("/evidence", uploadHandler.UploadEvidence)
		}

		// Notification routes
		notifications := api.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/users", adminHandler.GetUsers)
			admin.PUT("/users/:id/verify", adminHandler.VerifyUser)
			admin.GET("/activity-logs", adminHandler.GetActivityLogs)
		}
	}

	return r, nil
}
