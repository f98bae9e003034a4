package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pgvector/pgvector-go"
	"github.com/user/movierag/internal/model"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Store is the persistence surface the pipeline writes to. Single-record
// commits go through Insert; larger batch sizes commit via InsertBatch.
type Store interface {
	Insert(ctx context.Context, movie *model.Movie, policy model.ConflictPolicy) (int, error)
	InsertBatch(ctx context.Context, movies []model.Movie, policy model.ConflictPolicy) error
	Clear(ctx context.Context) error
}

// ProgressFunc reports pipeline progress: current item, total item count and
// a short human-readable message. May be nil.
type ProgressFunc func(current, total int, message string)

// Options configures one ingestion run. The interactive path and the batch
// script used to be two separate implementations; they differ only in these
// knobs.
type Options struct {
	// Limit caps the number of raw CSV rows read (not valid records).
	// Zero means no limit.
	Limit int
	// ClearExisting deletes all stored movies before inserting.
	ClearExisting bool
	// Policy decides what happens on a duplicate movie_id.
	Policy model.ConflictPolicy
	// BatchSize is how many embedded records are committed per
	// transaction. Zero or one commits per record.
	BatchSize int
	// Progress receives progress notifications. May be nil.
	Progress ProgressFunc
}

// Stats is the terminal tally of an ingestion run.
type Stats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Errors     int `json:"errors"`
}

// Pipeline loads a movie metadata CSV, embeds each record and persists it.
type Pipeline struct {
	embedder Embedder
	store    Store
}

// NewPipeline creates a pipeline around an already-constructed embedder and
// store. Both are expensive to build and shared for the process lifetime.
func NewPipeline(embedder Embedder, store Store) *Pipeline {
	return &Pipeline{embedder: embedder, store: store}
}

// LoadCSV reads the whole file and normalizes it row by row, keeping valid
// records in input order. limit applies to raw rows; progress fires every
// 100 raw rows with the running valid-record count.
func LoadCSV(csvPath string, limit int, progress func(count int, message string)) ([]model.Movie, error) {
	log.Printf("[Ingest] Loading movies from CSV: %s (limit: %d)", csvPath, limit)

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv header: empty file")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var movies []model.Movie
	for i := 0; ; i++ {
		if limit > 0 && i >= limit {
			break
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A single malformed row never aborts the load.
			log.Printf("[Ingest] Error reading row %d: %v", i, err)
			continue
		}

		row := make(map[string]string, len(header))
		for j, name := range header {
			if j < len(record) {
				row[name] = record[j]
			}
		}

		movie, outcome := NormalizeRow(row)
		if outcome.Status == RowOK {
			movies = append(movies, *movie)
		}

		if progress != nil && (i+1)%100 == 0 {
			progress(len(movies), fmt.Sprintf("Loaded %d valid movies...", len(movies)))
		}
	}

	log.Printf("[Ingest] Loaded %d valid movies from CSV", len(movies))
	return movies, nil
}

// Run executes the full ingestion: load, optional clear, then per record
// compose, embed and insert. A single record's failure is counted and the
// run continues; already-committed batches stay committed.
func (p *Pipeline) Run(ctx context.Context, csvPath string, opts Options) (Stats, error) {
	log.Printf("[Ingest] Starting movie ingestion from %s", csvPath)

	var loadProgress func(count int, message string)
	if opts.Progress != nil {
		loadProgress = func(count int, message string) {
			opts.Progress(count, count, message)
		}
	}

	movies, err := LoadCSV(csvPath, opts.Limit, loadProgress)
	if err != nil {
		return Stats{}, err
	}

	// An empty load never touches the store, not even to clear it.
	if len(movies) == 0 {
		log.Printf("[Ingest] No movies loaded from CSV")
		return Stats{}, nil
	}

	if opts.ClearExisting {
		log.Printf("[Ingest] Clearing existing movies from database")
		if opts.Progress != nil {
			opts.Progress(0, len(movies), "Clearing existing movies...")
		}
		if err := p.store.Clear(ctx); err != nil {
			return Stats{}, fmt.Errorf("clear existing movies: %w", err)
		}
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	stats := Stats{Total: len(movies)}
	batch := make([]model.Movie, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := p.store.InsertBatch(ctx, batch, opts.Policy); err != nil {
			log.Printf("[Ingest] Error committing batch of %d movies: %v", len(batch), err)
			stats.Errors += len(batch)
		} else {
			stats.Successful += len(batch)
		}
		batch = batch[:0]
	}

	// With batch size 1 each record is its own commit, so a skipped
	// duplicate (id 0, no error) still counts as handled.
	insertOne := func(movie model.Movie) {
		if _, err := p.store.Insert(ctx, &movie, opts.Policy); err != nil {
			log.Printf("[Ingest] Error inserting movie %q: %v", movie.Title, err)
			stats.Errors++
		} else {
			stats.Successful++
		}
	}

	for i := range movies {
		movie := movies[i]

		combined := EmbeddingText(&movie)
		embedding, err := p.embedder.Encode(ctx, combined)
		if err != nil {
			log.Printf("[Ingest] Error embedding movie %q: %v", movie.Title, err)
			stats.Errors++
		} else {
			vec := pgvector.NewVector(embedding)
			movie.CombinedText = combined
			movie.Embedding = &vec
			if batchSize == 1 {
				insertOne(movie)
			} else {
				batch = append(batch, movie)
				if len(batch) >= batchSize {
					flush()
				}
			}
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(movies), "Processing: "+truncate(movie.Title, 50))
		}
	}
	flush()

	log.Printf("[Ingest] Ingestion complete: %d successful, %d errors out of %d total",
		stats.Successful, stats.Errors, stats.Total)
	return stats, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
