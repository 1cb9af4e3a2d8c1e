package main

import (
	"log"
	"time"

	"waba-onboarding/internal/api"
	"waba-onboarding/internal/auth"
	"waba-onboarding/internal/backend"
	"waba-onboarding/internal/config"
	"waba-onboarding/internal/database"
	"waba-onboarding/internal/onboarding"
	"waba-onboarding/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	database.InitGorm(cfg)

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	store := database.NewStore(database.GormDB)
	authStore := auth.NewStore(database.GormDB)
	backendClient := backend.NewClient(cfg.APIBaseURL, authStore)

	hub := ws.NewHub()
	go hub.Run()

	session := onboarding.NewSession(backendClient, store, hub, onboarding.LaunchMode(cfg.LaunchMode))
	poller := onboarding.NewPoller(session,
		time.Duration(cfg.PollIntervalMs)*time.Millisecond,
		time.Duration(cfg.PollMaxDurationMs)*time.Millisecond)

	onboardingHandler := api.NewOnboardingHandler(session, poller, store, cfg)
	authHandler := api.NewAuthHandler(authStore)

	// Meta redirects the browser here after the hosted signup.
	r.GET("/esb/callback", onboardingHandler.HandleCallback)

	// Live session updates for an attached UI.
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/auth/login", authHandler.Login)
		apiGroup.POST("/auth/logout", authHandler.Logout)
		apiGroup.GET("/auth/status", authHandler.Status)

		onboardingGroup := apiGroup.Group("/onboarding")
		{
			onboardingGroup.GET("/session", onboardingHandler.GetSession)
			onboardingGroup.POST("/start", onboardingHandler.Start)
			onboardingGroup.POST("/register-phone", onboardingHandler.RegisterPhone)
			onboardingGroup.POST("/verify-otp", onboardingHandler.VerifyOTP)
			onboardingGroup.POST("/resend-otp", onboardingHandler.ResendOTP)
			onboardingGroup.POST("/create-system-user", onboardingHandler.CreateSystemUser)
			onboardingGroup.POST("/activate", onboardingHandler.Activate)
			onboardingGroup.POST("/check-status", onboardingHandler.CheckStatus)
			onboardingGroup.POST("/restart", onboardingHandler.Restart)
			onboardingGroup.GET("/transitions", onboardingHandler.GetTransitions)
		}
	}

	log.Printf("Onboarding agent starting on port %s (launch mode: %s)", cfg.Port, cfg.LaunchMode)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
