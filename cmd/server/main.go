package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trainhub/internal/cache"
	"trainhub/internal/config"
	"trainhub/internal/repository"
	"trainhub/internal/service"
	"trainhub/internal/transport/rest"
	"trainhub/internal/transport/ws"
)

// @title TrainHub Assessment API
// @version 1.0
// @description Module viewer and timed quiz engine for the training LMS
// @host localhost:8080
// @BasePath /v1
func main() {
	log.Println("started")
	ctx := context.Background()

	cfg := config.Load()
	log.Printf("LMS backend: %s (timeout %v, %d retries)", cfg.LMS.BaseURL, cfg.LMS.Timeout, cfg.LMS.RetryCount)

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	// Ping MongoDB
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr(),
	})
	defer rdb.Close()

	// Ping Redis
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Initialize stores
	attemptRepo := repository.NewAttemptRepo(db)
	moduleCache := cache.NewModuleCache(rdb, cfg.ModuleCacheTTL)
	scoreBoard := cache.NewScoreBoard(rdb)

	// Initialize services
	authSvc := service.NewAuthService(cfg.JWTSecret)
	lmsClient := service.NewLMSClient(cfg.LMS)
	assessmentSvc := service.NewAssessmentService(lmsClient, moduleCache, attemptRepo, scoreBoard)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	assessmentSvc.SetBroadcaster(wsHub)

	sweeper, err := service.NewSweeper(assessmentSvc, cfg.SweepSchedule, cfg.ViewIdleTimeout)
	if err != nil {
		log.Fatal("Failed to schedule idle sweep:", err)
	}
	sweeper.Start()

	router := rest.NewRouter(&rest.Container{
		AuthService:       authSvc,
		AssessmentService: assessmentSvc,
		WSHub:             wsHub,
		AllowedOrigins:    cfg.AllowedOrigins,
		AllowCredentials:  cfg.AllowCredentials,
	})

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Println("Endpoints:")
		log.Println("  POST /v1/modules/{moduleId}/views")
		log.Println("  GET/DELETE /v1/views/{viewId}")
		log.Println("  POST /v1/views/{viewId}/steps/complete")
		log.Println("  POST /v1/views/{viewId}/steps/{index}")
		log.Println("  PUT  /v1/views/{viewId}/quiz/answers/{position}")
		log.Println("  POST /v1/views/{viewId}/quiz/submit")
		log.Println("  GET  /v1/modules/{moduleId}/attempts")
		log.Println("  GET  /v1/modules/{moduleId}/scoreboard")
		log.Println("  WS   /v1/ws/views/{viewId}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	<-sweeper.Stop().Done()
	assessmentSvc.Shutdown()
	wsHub.Stop()

	log.Println("Server exited")
}
