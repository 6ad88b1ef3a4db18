package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"liveclass/internal/auth"
	"liveclass/internal/conference"
	"liveclass/internal/config"
	"liveclass/internal/database"
	"liveclass/internal/handlers"
	"liveclass/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load .env if present; real deployments set env vars directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	db := database.GetDB()

	confClient := conference.NewClient(conference.Config{
		BaseURL:    cfg.ConferenceURL,
		Secret:     cfg.ConferenceSecret,
		Timeout:    cfg.ConferenceTimeout,
		MaxRetries: cfg.ConferenceRetries,
	})
	if !confClient.Config().IsConfigured() {
		log.Println("Warning: conference backend not fully configured (CONFERENCE_URL / CONFERENCE_SECRET)")
	}

	emailService := services.NewEmailService(cfg)
	attendanceService := services.NewAttendanceService(db, cfg.GraceWindow)
	meetingService := services.NewMeetingService(db, confClient, attendanceService, emailService)

	handlers.Init(db, meetingService, attendanceService, cfg)

	// Background workers
	reminderWorker := services.NewReminderWorker(db, emailService, cfg.ReminderLead, cfg.ReminderPoll)
	reminderWorker.Start()
	reconcileWorker := services.NewReconcileWorker(db, meetingService, cfg.ReconcilePoll, cfg.ConferenceTimeout)
	reconcileWorker.Start()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{SkipPaths: []string{"/health", "/metrics"}}))
	router.Use(cors.Default())
	router.SetTrustedProxies([]string{"127.0.0.1"})

	// Basic routes
	router.GET("/", handlers.HomeHandler)
	router.GET("/health", handlers.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth and account routes (no auth required)
	router.POST("/auth/login", handlers.Login)
	router.POST("/accounts", handlers.CreateAccount)

	// Join redirect: identity is embedded in the path, no bearer token
	router.GET("/join/:session_id/:role/:participant_id", handlers.JoinSession)

	// Protected routes (auth required)
	protected := router.Group("")
	protected.Use(auth.AuthMiddleware(cfg.JWTSigningKey, cfg.JWTIssuer))
	{
		protected.GET("/sessions", handlers.ListSessions)
		protected.GET("/sessions/:session_id", handlers.GetSession)
		protected.GET("/sessions/:session_id/events", handlers.ListSessionEvents)
		protected.GET("/sessions/:session_id/attendance", handlers.GetAttendanceReport)
		protected.GET("/sessions/:session_id/attendance.csv", handlers.ExportAttendanceCSV)

		instructor := protected.Group("")
		instructor.Use(auth.RequireInstructor())
		{
			instructor.POST("/sessions", handlers.ScheduleSession)
			instructor.POST("/sessions/:session_id/end", handlers.EndSession)
			instructor.POST("/sessions/:session_id/cancel", handlers.CancelSession)
			instructor.POST("/sessions/:session_id/check", handlers.CheckSession)
			instructor.POST("/sessions/:session_id/attendance", handlers.MarkAttendance)

			instructor.POST("/lessons", handlers.CreateLesson)
			instructor.GET("/lessons", handlers.ListLessons)
			instructor.POST("/groups", handlers.CreateGroup)
			instructor.GET("/groups/:group_id", handlers.GetGroup)
			instructor.POST("/groups/:group_id/enrollments", handlers.EnrollStudent)
			instructor.POST("/groups/:group_id/enrollments/:student_id/confirm", handlers.ConfirmEnrollment)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s...", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	reminderWorker.Stop()
	reconcileWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}
	log.Println("Server exited")
}
