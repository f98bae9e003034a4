package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/movierag/internal/config"
	"github.com/user/movierag/internal/embedding"
	"github.com/user/movierag/internal/handler"
	"github.com/user/movierag/internal/ingest"
	"github.com/user/movierag/internal/llm"
	"github.com/user/movierag/internal/middleware"
	"github.com/user/movierag/internal/repository"
	"github.com/user/movierag/internal/router"
	"github.com/user/movierag/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	repos := repository.NewRepositories(db)
	if err := repos.Movie.Migrate(context.Background(), cfg.EmbeddingDim); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	// The embedding client is shared by ingestion and retrieval. Probe the
	// model once so a wrong dimension fails startup instead of the first
	// insert.
	embedder := embedding.New(cfg.OllamaHost, cfg.OllamaModel)
	dim, err := embedder.Dimension(context.Background())
	if err != nil {
		log.Fatalf("Embedding model unavailable: %v", err)
	}
	if dim != cfg.EmbeddingDim {
		log.Fatalf("Embedding dimension mismatch: model %s produces %d, EMBEDDING_DIM is %d",
			cfg.OllamaModel, dim, cfg.EmbeddingDim)
	}
	log.Printf("Embedding model ready: %s (dimension: %d)", cfg.OllamaModel, dim)

	gemini, err := llm.NewGeminiClient(cfg.GoogleAPIKey, cfg.GoogleModelName)
	if err != nil {
		log.Fatalf("Gemini client initialization failed: %v", err)
	}

	recommender := service.NewRecommendService(embedder, repos.Movie, gemini)
	pipeline := ingest.NewPipeline(embedder, repos.Movie)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.Logger())

	h := handler.New(repos, cfg, recommender, pipeline, embedder.Model(), gemini.Model())
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("Server listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
