// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fabhub/fabhub-backend/internal/config"
	"github.com/fabhub/fabhub-backend/internal/handlers"
	"github.com/fabhub/fabhub-backend/internal/middleware"
	"github.com/fabhub/fabhub-backend/internal/services"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

// Services bundles the service layer so main can share instances with the
// background worker.
type Services struct {
	Auth         *services.AuthService
	Item         *services.ItemService
	License      *services.LicenseService
	Download     *services.DownloadService
	Purchase     *services.PurchaseService
	Escrow       *services.EscrowService
	Review       *services.ReviewService
	Community    *services.CommunityService
	Analytics    *services.AnalyticsService
	Admin        *services.AdminService
	Notification *services.NotificationService
	Storage      *services.StorageService
}

func BuildServices(db *gorm.DB, cfg *config.Config) (*Services, error) {
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}

	notificationService := services.NewNotificationService(db, cfg)
	licenseService := services.NewLicenseService(db)
	downloadService := services.NewDownloadService(db, cfg, storageService)

	return &Services{
		Auth:         services.NewAuthService(db, cfg, notificationService),
		Item:         services.NewItemService(db),
		License:      licenseService,
		Download:     downloadService,
		Purchase:     services.NewPurchaseService(db, cfg, licenseService, downloadService, notificationService),
		Escrow:       services.NewEscrowService(db, cfg, notificationService),
		Review:       services.NewReviewService(db, notificationService),
		Community:    services.NewCommunityService(db),
		Analytics:    services.NewAnalyticsService(db),
		Admin:        services.NewAdminService(db),
		Notification: notificationService,
		Storage:      storageService,
	}, nil
}

func Initialize(db *gorm.DB, cfg *config.Config, svc *Services) *gin.Engine {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Auth)
	itemHandler := handlers.NewItemHandler(svc.Item, svc.Storage)
	purchaseHandler := handlers.NewPurchaseHandler(svc.Purchase, svc.License, cfg)
	escrowHandler := handlers.NewEscrowHandler(svc.Escrow)
	downloadHandler := handlers.NewDownloadHandler(svc.Download, svc.Storage)
	reviewHandler := handlers.NewReviewHandler(svc.Review)
	communityHandler := handlers.NewCommunityHandler(svc.Community)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics)
	notificationHandler := handlers.NewNotificationHandler(svc.Notification)
	adminHandler := handlers.NewAdminHandler(svc.Admin, svc.Escrow, svc.Purchase, svc.License, svc.Download)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.POST("/verify-email", authHandler.VerifyEmail)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Marketplace catalog
		items := v1.Group("/items")
		{
			items.GET("", middleware.OptionalAuth(), itemHandler.SearchItems)
			items.GET("/popular", itemHandler.GetPopularItems)
			items.GET("/featured", itemHandler.GetFeaturedItems)
			items.GET("/:id", middleware.OptionalAuth(), itemHandler.GetItem)
			items.GET("/:id/reviews", reviewHandler.GetItemReviews)

			// Seller routes
			sellerOnly := items.Group("")
			sellerOnly.Use(middleware.AuthRequired(), middleware.SellerRequired())
			{
				sellerOnly.POST("", itemHandler.CreateItem)
				sellerOnly.PUT("/:id", itemHandler.UpdateItem)
				sellerOnly.DELETE("/:id", itemHandler.DeleteItem)
				sellerOnly.POST("/:id/files", itemHandler.AddFile)
				sellerOnly.POST("/:id/files/upload", middleware.UploadRateLimit(), itemHandler.UploadFile)
			}
		}

		// Purchases
		purchases := v1.Group("/purchases")
		purchases.Use(middleware.AuthRequired())
		{
			purchases.POST("", purchaseHandler.CreatePurchase)
			purchases.GET("", purchaseHandler.GetPurchaseHistory)
			purchases.GET("/:id", purchaseHandler.GetPurchase)
			purchases.POST("/:id/pay", purchaseHandler.ProcessPurchase)
			purchases.POST("/:id/cancel", purchaseHandler.CancelPurchase)
			purchases.POST("/confirm", purchaseHandler.ConfirmPayment)
		}

		// Processor callbacks, authenticated by signature rather than JWT
		v1.POST("/webhooks/stripe", purchaseHandler.StripeWebhook)

		// Licensing
		licenses := v1.Group("/licenses")
		{
			licenses.GET("/tiers", purchaseHandler.ListLicenseTiers)
			licenses.GET("/verify/:key", purchaseHandler.VerifyLicenseKey)
			licenses.GET("/grants", middleware.AuthRequired(), purchaseHandler.ListMyGrants)
			licenses.GET("/grants/:id", middleware.AuthRequired(), purchaseHandler.GetGrant)
		}

		// Escrow
		escrows := v1.Group("/escrows")
		escrows.Use(middleware.AuthRequired())
		{
			escrows.GET("/:id", escrowHandler.GetEscrow)
			escrows.POST("/:id/approve", escrowHandler.ApproveDelivery)
			escrows.POST("/:id/delivered", escrowHandler.MarkDelivered)
			escrows.POST("/:id/dispute", escrowHandler.DisputeEscrow)
		}

		// Downloads
		downloads := v1.Group("/downloads")
		{
			downloads.GET("/file", downloadHandler.ServeFile)

			protected := downloads.Group("")
			protected.Use(middleware.AuthRequired(), middleware.DownloadRateLimit())
			{
				protected.GET("", downloadHandler.ListMyDownloads)
				protected.POST("/files/:id", downloadHandler.RequestDownload)
			}
		}

		// Reviews
		reviews := v1.Group("/reviews")
		reviews.Use(middleware.AuthRequired())
		{
			reviews.POST("", reviewHandler.CreateReview)
			reviews.PUT("/:id", reviewHandler.UpdateReview)
			reviews.DELETE("/:id", reviewHandler.DeleteReview)
			reviews.POST("/:id/response", middleware.SellerRequired(), reviewHandler.RespondToReview)
		}

		// Community projects
		projects := v1.Group("/projects")
		{
			projects.GET("", communityHandler.ListProjects)
			projects.GET("/:id", middleware.OptionalAuth(), communityHandler.GetProject)
			projects.GET("/:id/comments", communityHandler.GetCommentTree)

			protected := projects.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", communityHandler.CreateProject)
				protected.PUT("/:id", communityHandler.UpdateProject)
				protected.DELETE("/:id", communityHandler.DeleteProject)
				protected.POST("/:id/comments", communityHandler.CreateComment)
			}
		}

		// Comments
		comments := v1.Group("/comments")
		comments.Use(middleware.AuthRequired())
		{
			comments.DELETE("/:id", communityHandler.DeleteComment)
			comments.POST("/:id/vote", communityHandler.VoteComment)
		}

		// Notifications
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}

		// Seller dashboard
		sellers := v1.Group("/sellers")
		sellers.Use(middleware.AuthRequired(), middleware.SellerRequired())
		{
			sellers.GET("/me/items", itemHandler.GetMyItems)
			sellers.GET("/me/dashboard", analyticsHandler.GetSellerDashboard)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/users", adminHandler.SearchUsers)
			admin.PUT("/users/:id/status", adminHandler.SetUserStatus)
			admin.PUT("/items/:id/suspend", adminHandler.SuspendItem)
			admin.PUT("/items/:id/reinstate", adminHandler.ReinstateItem)
			admin.PUT("/items/:id/featured", adminHandler.SetItemFeatured)
			admin.GET("/escrows", adminHandler.ListEscrows)
			admin.POST("/escrows/:id/resolve", adminHandler.ResolveDispute)
			admin.POST("/purchases/refund", adminHandler.ProcessRefund)
			admin.PUT("/purchases/:id/revoke-downloads", adminHandler.RevokeDownloads)
			admin.PUT("/grants/:id/revoke", adminHandler.RevokeGrant)
			admin.GET("/audit-logs", adminHandler.GetAuditLogs)
			admin.GET("/analytics/overview", analyticsHandler.GetPlatformOverview)
			admin.GET("/analytics/metrics/:name", analyticsHandler.GetMetricHistory)
		}
	}

	return r
}
