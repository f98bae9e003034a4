// Command ingest loads a movie metadata CSV into the vector store.
//
// Usage: ingest <path_to_movies_metadata.csv> [limit]
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/user/movierag/internal/config"
	"github.com/user/movierag/internal/embedding"
	"github.com/user/movierag/internal/ingest"
	"github.com/user/movierag/internal/model"
	"github.com/user/movierag/internal/repository"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: ingest <path_to_movies_metadata.csv> [limit]")
		fmt.Println("Example: ingest /data/movies_metadata.csv 1000")
		os.Exit(1)
	}

	csvPath := os.Args[1]
	limit := 0
	if len(os.Args) > 2 {
		var err error
		limit, err = strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Printf("Error: invalid limit %q\n", os.Args[2])
			os.Exit(1)
		}
	}

	if _, err := os.Stat(csvPath); err != nil {
		fmt.Printf("Error: CSV file not found at %s\n", csvPath)
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	fmt.Println("Starting movie data ingestion...")

	fmt.Println("Connecting to database...")
	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	repos := repository.NewRepositories(db)
	ctx := context.Background()
	if err := repos.Movie.Migrate(ctx, cfg.EmbeddingDim); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	fmt.Printf("Loading embedding model (%s)...\n", cfg.OllamaModel)
	embedder := embedding.New(cfg.OllamaHost, cfg.OllamaModel)
	if _, err := embedder.Dimension(ctx); err != nil {
		log.Fatalf("Embedding model unavailable: %v", err)
	}

	pipeline := ingest.NewPipeline(embedder, repos.Movie)

	stats, err := pipeline.Run(ctx, csvPath, ingest.Options{
		Limit:     limit,
		Policy:    model.ConflictSkip,
		BatchSize: 100,
		Progress: func(current, total int, message string) {
			if total > 0 && (current%100 == 0 || current == total) {
				fmt.Printf("  Processed %d/%d movies...\n", current, total)
			}
		},
	})
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	if stats.Total == 0 {
		fmt.Println("No valid movies found in CSV!")
		return
	}

	fmt.Println("\nData ingestion complete!")
	fmt.Printf("Successfully stored %d movies in database (%d errors)\n",
		stats.Successful, stats.Errors)
}
