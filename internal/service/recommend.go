package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/user/movierag/internal/model"
	"github.com/user/movierag/internal/utils"
	"golang.org/x/sync/singleflight"
)

// ErrNoMovies signals an empty store: there is nothing to retrieve, so no
// LLM call is made. Not an internal error; callers surface it as a notice.
var ErrNoMovies = errors.New("no movies in the database")

// Embedder turns a query into a vector.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// MovieSearcher retrieves the nearest stored movies for a query vector.
type MovieSearcher interface {
	SearchSimilar(ctx context.Context, queryEmbedding []float32, topK int) ([]model.Movie, error)
}

// Generator produces the narrative answer from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recommendation is the outcome of one query: the generated answer plus all
// retrieved movies, nearest first. Callers decide how many of the movies to
// display; the LLM always saw all of them.
type Recommendation struct {
	Answer string        `json:"answer"`
	Movies []model.Movie `json:"movies"`
}

// RecommendService embeds a query, retrieves similar movies and asks the
// LLM for a recommendation grounded in them.
type RecommendService struct {
	embedder Embedder
	store    MovieSearcher
	llm      Generator
	sf       singleflight.Group
	answers  *utils.TTLCache[*Recommendation]
}

// NewRecommendService wires the service. All dependencies are built once at
// startup and injected.
func NewRecommendService(embedder Embedder, store MovieSearcher, llm Generator) *RecommendService {
	return &RecommendService{
		embedder: embedder,
		store:    store,
		llm:      llm,
		answers:  utils.NewTTLCache[*Recommendation](256, 10*time.Minute),
	}
}

// Recommend answers a natural-language movie query. Identical concurrent
// queries are collapsed with singleflight and recent answers are cached.
func (s *RecommendService) Recommend(ctx context.Context, query string, topK int) (*Recommendation, error) {
	if topK <= 0 {
		topK = 5
	}

	key := fmt.Sprintf("%s|%d", query, topK)
	if rec, ok := s.answers.Get(key); ok {
		return rec, nil
	}

	val, err, _ := s.sf.Do(key, func() (interface{}, error) {
		rec, err := s.recommend(ctx, query, topK)
		if err != nil {
			return nil, err
		}
		s.answers.Set(key, rec)
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*Recommendation), nil
}

// InvalidateAnswers drops every cached recommendation. Callers that mutate
// the movie store must invoke this so repeated queries see the new data.
func (s *RecommendService) InvalidateAnswers() {
	s.answers.Clear()
}

func (s *RecommendService) recommend(ctx context.Context, query string, topK int) (*Recommendation, error) {
	log.Printf("[Recommend] Searching for movies with query: %q (top_k=%d)", query, topK)

	queryEmbedding, err := s.embedder.Encode(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	movies, err := s.store.SearchSimilar(ctx, queryEmbedding, topK)
	if err != nil {
		return nil, fmt.Errorf("searching similar movies: %w", err)
	}
	log.Printf("[Recommend] Found %d similar movies", len(movies))

	if len(movies) == 0 {
		return nil, ErrNoMovies
	}

	prompt := BuildPrompt(query, movies)
	answer, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	return &Recommendation{
		Answer: answer,
		Movies: movies,
	}, nil
}

// FormatMovieContext renders the retrieved movies as a numbered context
// block for the LLM. Absent fields are omitted.
func FormatMovieContext(movies []model.Movie) string {
	contextParts := make([]string, 0, len(movies))

	for i, movie := range movies {
		parts := []string{fmt.Sprintf("[%d] %s", i+1, movie.Title)}

		if year := movie.Year(); year != "" {
			parts = append(parts, "("+year+")")
		}
		if movie.Genres != "" {
			parts = append(parts, "- Genres: "+movie.Genres)
		}
		if movie.VoteAverage != 0 {
			parts = append(parts, fmt.Sprintf("- Rating: %.1f/10", movie.VoteAverage))
		}
		if movie.Runtime != 0 {
			parts = append(parts, fmt.Sprintf("- Runtime: %d min", movie.Runtime))
		}
		if movie.Overview != "" {
			parts = append(parts, "- Plot: "+movie.Overview)
		}
		if movie.Tagline != "" {
			parts = append(parts, fmt.Sprintf("- Tagline: %q", movie.Tagline))
		}

		contextParts = append(contextParts, strings.Join(parts, "\n"))
	}

	return strings.Join(contextParts, "\n\n")
}

// BuildPrompt composes the fixed instructional prompt around the context
// block and the raw user query.
func BuildPrompt(query string, movies []model.Movie) string {
	contextText := FormatMovieContext(movies)

	return fmt.Sprintf(`You are a helpful movie recommendation assistant. Provide thoughtful recommendations and insights about movies based on the provided context.

Based on the following movie recommendations, please answer the user's question.
Provide helpful information about the movies, including why they might match what the user is looking for.
If the user asks for recommendations, explain why these movies are relevant.

Movies:
%s

User Question: %s

Answer:`, contextText, query)
}
