package main

import (
	"context"
	"log"
	"time"

	"linkboard-be/internal/cache"
	"linkboard-be/internal/config"
	"linkboard-be/internal/controllers"
	"linkboard-be/internal/database"
	"linkboard-be/internal/extractor"
	"linkboard-be/internal/jwt"
	"linkboard-be/internal/middleware"
	"linkboard-be/internal/repository"
	"linkboard-be/internal/service"
	"linkboard-be/internal/storage"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis cache (optional - continue if Redis is unavailable)
	var cacheClient cache.Cache
	cacheClient, err = cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis (%v). Continuing without cache.", err)
		cacheClient = nil
	} else {
		log.Println("Connected to Redis cache")
	}

	// Initialize the object store gateway
	store, err := storage.NewS3Store(context.Background(), storage.S3Config{
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize object store: %v", err)
	}

	fetchTimeout := time.Duration(cfg.FetchTimeout) * time.Second

	// Initialize repositories
	linkRepo := repository.NewLinkRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize JWT service
	jwtService := jwt.NewJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTTTL)*time.Hour,
	)

	// Initialize services
	ogExtractor := extractor.NewOGExtractor(fetchTimeout)
	linkService := service.NewLinkService(linkRepo, store, ogExtractor, cacheClient, cfg.ThumbnailFolder, cfg.ListPageSize, fetchTimeout)
	authService := service.NewAuthService(userRepo, jwtService)

	// Initialize controllers
	linkController := controllers.NewLinkController(linkService)
	authController := controllers.NewAuthController(authService)
	qrcodeController := controllers.NewQRCodeController(linkService)

	// Initialize rate limiters
	generalRateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	authRateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitAuthRPS), cfg.RateLimitAuthBurst)
	createRateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitCreateRPS), cfg.RateLimitCreateBurst)

	// Create a Gin router
	router := gin.Default()

	// Health check endpoint (no rate limiting)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API v1 routes group with general rate limiting
	api := router.Group("/api/v1")
	api.Use(generalRateLimiter.LimitMiddleware())
	{
		// Auth routes with stricter rate limiting
		auth := api.Group("/auth")
		auth.Use(authRateLimiter.LimitMiddleware())
		{
			auth.POST("/register", authController.Register)
			auth.POST("/login", authController.Login)
		}

		// Public reads
		api.GET("/links", linkController.ListLinks)
		api.GET("/links/:id/qrcode", qrcodeController.GenerateQRCode)

		// Protected routes - require JWT authentication
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		{
			// Ingestion does remote fetches, so it gets the strictest limiter
			protected.POST("/links", createRateLimiter.LimitMiddleware(), linkController.CreateLink)
			protected.DELETE("/links/:id", linkController.DeleteLink)
			protected.GET("/thumbnail", linkController.GetThumbnail)
		}
	}

	// Start the server on port 8080
	log.Println("Server starting on http://localhost:8080")
	router.Run(":8080")
}
