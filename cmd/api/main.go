package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/Pedrolamon/study-sub001/internal/adapters/cache"
	adapterHTTP "github.com/Pedrolamon/study-sub001/internal/adapters/handler/http"
	"github.com/Pedrolamon/study-sub001/internal/adapters/repository"
	"github.com/Pedrolamon/study-sub001/internal/core/services"
	"github.com/Pedrolamon/study-sub001/internal/core/workers"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	startTime := time.Now()

	_ = godotenv.Load()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"),
		envOr("DB_HOST", "localhost"), envOr("DB_PORT", "5432"),
		os.Getenv("DB_NAME"))

	log.Println("Connecting to database...")

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		log.Fatalf("Critical: Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Println("Database connected successfully.")

	redisDB, _ := strconv.Atoi(envOr("REDIS_DB", "0"))
	rdb, err := cache.NewRedisClient(cache.Config{
		Host:     envOr("REDIS_HOST", "localhost"),
		Port:     envOr("REDIS_PORT", "6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	})
	if err != nil {
		// Snapshots and rate limiting degrade gracefully without
		// Redis; scheduling and sync still work.
		log.Printf("Warning: Redis unavailable, running without snapshot cache: %v", err)
		rdb = nil
	}

	cardRepo := repository.NewPostgresFlashcardRepository(db)
	recordRepo := repository.NewPostgresReviewRecordRepository(db)
	streakRepo := repository.NewPostgresStreakRepository(db)
	actionRepo := repository.NewPostgresSyncActionRepository(db)

	locks := services.NewOwnerLocks()

	var snapshots *cache.SnapshotStore
	var invalidator services.SnapshotInvalidator = services.NoopInvalidator{}
	if rdb != nil {
		snapshots = cache.NewSnapshotStore(rdb, 5*time.Minute)
		invalidator = snapshots
	}

	streakService := services.NewStreakService(streakRepo, invalidator, locks)
	reviewService := services.NewReviewService(cardRepo, recordRepo, streakService, invalidator, locks)
	dueService := services.NewDueService(cardRepo)
	flashcardService := services.NewFlashcardService(cardRepo, invalidator, locks)
	syncService := services.NewSyncService(actionRepo, reviewService, flashcardService, streakService, locks)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	syncWorker := workers.NewSyncWorker(syncService, actionRepo, 30*time.Second)
	syncWorker.Start(workerCtx)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		FlashcardHandler: adapterHTTP.NewFlashcardHandler(flashcardService),
		ReviewHandler:    adapterHTTP.NewReviewHandler(reviewService, dueService, snapshots),
		StreakHandler:    adapterHTTP.NewStreakHandler(streakService, snapshots),
		SyncHandler:      adapterHTTP.NewSyncHandler(syncService, syncWorker),
		DB:               db,
		Redis:            rdb,
		StartTime:        startTime,
	})

	srv := &http.Server{
		Addr:         ":" + envOr("PORT", "8080"),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Study review engine running on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Critical server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stop signal received. Shutting down...")

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced shutdown error:", err)
	}

	log.Println("Server stopped gracefully.")
}
