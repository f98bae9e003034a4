package repository

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/user/movierag/internal/model"
	"gorm.io/gorm"
)

const insertSQL = `
	INSERT INTO movies (
		movie_id, title, overview, genres, tagline,
		vote_average, release_date, runtime,
		combined_text, embedding
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const searchColumns = `id, movie_id, title, overview, genres, tagline,
	vote_average, release_date, runtime, combined_text`

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// Migrate creates the pgvector extension and the movies table. dim is the
// embedding dimension; it must match the embedding model in use.
func (r *MovieRepository) Migrate(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dim)
	}

	if err := r.db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS movies (
			id SERIAL PRIMARY KEY,
			movie_id TEXT UNIQUE,
			title TEXT NOT NULL,
			overview TEXT NOT NULL,
			genres TEXT,
			tagline TEXT,
			vote_average DOUBLE PRECISION,
			release_date TEXT,
			runtime INTEGER,
			combined_text TEXT,
			embedding vector(%d)
		)`, dim)

	if err := r.db.WithContext(ctx).Exec(schema).Error; err != nil {
		return fmt.Errorf("create movies table: %w", err)
	}
	return nil
}

// Insert stores one movie with its embedding and returns the assigned
// surrogate id. With model.ConflictSkip a duplicate movie_id is skipped and
// the returned id is 0.
func (r *MovieRepository) Insert(ctx context.Context, movie *model.Movie, policy model.ConflictPolicy) (int, error) {
	query := insertSQL
	if policy == model.ConflictSkip {
		query += " ON CONFLICT (movie_id) DO NOTHING"
	}
	query += " RETURNING id"

	var id int
	err := r.db.WithContext(ctx).Raw(query,
		movie.MovieID, movie.Title, movie.Overview, movie.Genres, movie.Tagline,
		movie.VoteAverage, movie.ReleaseDate, movie.Runtime,
		movie.CombinedText, movie.Embedding,
	).Scan(&id).Error
	if err != nil {
		return 0, fmt.Errorf("insert movie %q: %w", movie.Title, err)
	}
	return id, nil
}

// InsertBatch stores a group of movies inside one transaction. Long
// ingestion runs commit every batch instead of per row.
func (r *MovieRepository) InsertBatch(ctx context.Context, movies []model.Movie, policy model.ConflictPolicy) error {
	if len(movies) == 0 {
		return nil
	}

	query := insertSQL
	if policy == model.ConflictSkip {
		query += " ON CONFLICT (movie_id) DO NOTHING"
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range movies {
			m := &movies[i]
			if err := tx.Exec(query,
				m.MovieID, m.Title, m.Overview, m.Genres, m.Tagline,
				m.VoteAverage, m.ReleaseDate, m.Runtime,
				m.CombinedText, m.Embedding,
			).Error; err != nil {
				return fmt.Errorf("insert movie %q: %w", m.Title, err)
			}
		}
		return nil
	})
}

// SearchSimilar returns the topK movies closest to the query embedding by
// cosine distance, nearest first. Rows without an embedding never match.
func (r *MovieRepository) SearchSimilar(ctx context.Context, queryEmbedding []float32, topK int) ([]model.Movie, error) {
	var movies []model.Movie

	err := r.db.WithContext(ctx).Raw(fmt.Sprintf(`
		SELECT %s
		FROM movies
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> ?
		LIMIT ?`, searchColumns),
		pgvector.NewVector(queryEmbedding), topK,
	).Scan(&movies).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return movies, nil
}

// Count returns the total number of stored movies.
func (r *MovieRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw("SELECT COUNT(*) FROM movies").Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return count, nil
}

// Clear removes every movie. Used before a full reload.
func (r *MovieRepository) Clear(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Exec("DELETE FROM movies").Error; err != nil {
		return fmt.Errorf("clear movies: %w", err)
	}
	return nil
}
