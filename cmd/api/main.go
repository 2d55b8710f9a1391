package main

import (
	"fmt"
	"net/http"
	"os"

	"cryptoforge/internal/config"
	"cryptoforge/internal/database"
	"cryptoforge/internal/handlers"
	"cryptoforge/internal/logger"
	"cryptoforge/internal/middleware"
	"cryptoforge/internal/services"
	"cryptoforge/internal/storage"
	"cryptoforge/internal/validator"

	"github.com/gin-gonic/gin"
)

// @title           CryptoForge API
// @version         1.0
// @description     CryptoForge is an account ledger for cryptocurrency portfolios: registration with seeded holdings, balance queries, and concurrency-safe holding adjustments.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Initialize repository and services
	repo := storage.NewAccountRepository(dbManager.DB())
	accountService := services.NewAccountService(repo)
	portfolioService := services.NewPortfolioService(repo)
	mutator := services.NewHoldingMutator(repo, appConfig.MutatorWorkers, appConfig.MutatorQueueDepth)
	defer mutator.Close()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(accountService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, mutator)

	// Register custom binding validators
	validator.Register()

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// Account profile
	protected.GET("/profile", authHandler.GetProfile)
	protected.DELETE("/profile", authHandler.DeleteAccount)

	// Portfolio routes
	portfolio := protected.Group("/portfolio")
	portfolio.GET("/balance/:asset", portfolioHandler.GetBalance)
	portfolio.GET("/value", portfolioHandler.GetTotalValue)
	portfolio.GET("/holdings", portfolioHandler.ListHoldings)
	portfolio.POST("/holdings/adjust", portfolioHandler.AdjustHolding)

	log.Infof("Starting CryptoForge backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
