package main

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"plinko-backend/internal/config"
	"plinko-backend/internal/handlers"
	"plinko-backend/internal/middleware"
	"plinko-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	pgStore, err := services.NewPostgresStore(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()

	notifier, err := services.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatalf("Failed to set up Telegram notifier: %v", err)
	}
	if notifier == nil {
		logrus.Info("Telegram notifications disabled")
	}

	jwtService := services.NewJWTService(cfg)

	sampler, err := services.NewWeightedSampler(services.PayoutTable, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.Fatalf("Failed to build sampler: %v", err)
	}

	wsHandler := handlers.NewWebSocketHandler(redisService)

	engine := services.NewSettlementEngine(redisService, redisService, sampler, cfg.JackpotThreshold, cfg.JackpotPrize).
		WithAwardLog(pgStore).
		WithNotifier(notifier).
		WithBroadcaster(wsHandler)

	withdrawalService := services.NewWithdrawalService(redisService, pgStore).
		WithNotifier(notifier)

	scheduler := services.NewScheduler(redisService)
	scheduler.Start()
	defer scheduler.Stop()

	authHandler := handlers.NewAuthHandler(redisService, jwtService, notifier, cfg)
	userHandler := handlers.NewUserHandler(redisService)
	gameHandler := handlers.NewGameHandler(engine, redisService)
	withdrawHandler := handlers.NewWithdrawHandler(withdrawalService, pgStore, redisService)
	adminHandler := handlers.NewAdminHandler(redisService, withdrawalService, pgStore, jwtService, cfg)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"ok": true, "status": "UP"})
		})

		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/reset-password", authHandler.ResetPassword)
		api.GET("/user/:id", userHandler.GetUser)
		api.GET("/leaderboard", userHandler.Leaderboard)
		api.POST("/admin/login", adminHandler.Login)

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		{
			protected.GET("/me", userHandler.Me)
			protected.GET("/ws", wsHandler.HandleWebSocket)

			protected.POST("/play", gameHandler.Play)
			protected.GET("/balance", gameHandler.GetBalance)
			protected.GET("/history", gameHandler.GetHistory)

			protected.POST("/withdraw", withdrawHandler.Request)
			protected.GET("/withdrawals", withdrawHandler.MyWithdrawals)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService), middleware.AdminOnlyMiddleware())
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/user/:id/block", adminHandler.BlockUser)
			admin.GET("/withdrawals", adminHandler.ListWithdrawals)
			admin.POST("/withdraw/:id", adminHandler.ResolveWithdrawal)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
