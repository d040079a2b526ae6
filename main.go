package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kexy2025/leadgen/internal/api"
	"github.com/kexy2025/leadgen/internal/cache"
	"github.com/kexy2025/leadgen/internal/ingest"
	"github.com/kexy2025/leadgen/internal/schema"
	"github.com/kexy2025/leadgen/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	_ = godotenv.Load()

	// ─── MongoDB ──────────────────────────────────────────────────────────────
	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")

	ctx10s, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoClient, err := store.New(ctx10s, mongoURI)
	cancel()
	if err != nil {
		log.Fatalf("MongoDB not available (%v) — leads cannot be persisted", err)
	}
	log.Printf("MongoDB connected: %s", mongoURI)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = mongoClient.Disconnect(ctx)
		cancel()
	}()

	ctx5s, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	if err := mongoClient.SeedSchema(ctx5s, schema.Defaults()); err != nil {
		log.Fatalf("seed schema: %v", err)
	}
	cancel2()

	// ─── Redis ────────────────────────────────────────────────────────────────
	var redisClient *cache.Client
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	redisPass := os.Getenv("REDIS_PASSWORD")
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	rc := cache.New(redisAddr, redisPass, redisDB)
	ctx5s2, cancel3 := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rc.Ping(ctx5s2); err != nil {
		log.Printf("WARN: Redis not available (%v) — stats and schema will not be cached", err)
	} else {
		redisClient = rc
		log.Printf("Redis connected: %s", redisAddr)
	}
	cancel3()

	// ─── Upload staging ───────────────────────────────────────────────────────
	staging, err := ingest.NewStaging(getEnv("UPLOAD_DIR", "uploads"))
	if err != nil {
		log.Fatalf("staging dir: %v", err)
	}

	// ─── Google Sheets (optional) ────────────────────────────────────────────
	var sheetsClient *ingest.SheetsClient
	if key := os.Getenv("SHEETS_API_KEY"); key != "" {
		sc, err := ingest.NewSheetsClient(context.Background(), key)
		if err != nil {
			log.Printf("WARN: Sheets client unavailable (%v) — sheet imports disabled", err)
		} else {
			sheetsClient = sc
			log.Printf("Google Sheets import enabled")
		}
	}

	// ─── HTTP server ──────────────────────────────────────────────────────────
	addr := getEnv("ADDR", ":8080")
	handler := api.NewHandler(mongoClient, redisClient, staging, sheetsClient)
	srv := api.NewServer(addr, handler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down...")
	ctx, cancel4 := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel4()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("bye")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
