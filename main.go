// api/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"pulsetrack/api/config"
	"pulsetrack/api/database"
	"pulsetrack/api/geoip"
	"pulsetrack/api/handlers"
	"pulsetrack/api/middleware"
	"pulsetrack/api/queue"
	"pulsetrack/api/store"
)

const shutdownGrace = 30 * time.Second

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	var forceIP string
	flag.StringVar(&forceIP, "ip", "", "force client IP for requests, useful in local development")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- Metadata database (sites, users, API keys) ---
	dbClient, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	// --- Columnar analytics store ---
	chClient, err := database.NewClickHouseDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse database: %v", err)
	}
	defer chClient.Close()

	analyticsStore := store.NewAnalyticsStore(chClient)
	if err := analyticsStore.EnsureTable(context.Background()); err != nil {
		log.Fatalf("Failed to create events table: %v", err)
	}

	// --- Batching queue ---
	eventQueue := queue.New(analyticsStore, cfg.Queue)
	go eventQueue.Run()

	// --- Handlers ---
	geoClient := geoip.NewClient(cfg.Services.GeoHost)
	trackHandlers := handlers.NewTrackHandlers(eventQueue, geoClient, forceIP)
	statsHandlers := handlers.NewStatsHandlers(analyticsStore)

	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/track", trackHandlers.Track)
	r.POST("/stats/", statsHandlers.ViewStats)

	srv := &http.Server{
		Addr:              cfg.API.Host + ":" + cfg.API.Port,
		Handler:           r,
		ReadHeaderTimeout: cfg.API.ReadHeaderTimeout,
	}

	go func() {
		log.Printf("Serving at %s:%s", cfg.API.Host, cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Final drain: no new requests are coming in, flush what is buffered.
	if err := eventQueue.Stop(ctx); err != nil {
		log.Printf("Queue drain aborted: %v", err)
	}

	log.Println("Server exiting.")
}
