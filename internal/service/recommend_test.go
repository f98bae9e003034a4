package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/movierag/internal/ingest"
	"github.com/user/movierag/internal/model"
)

// textEmbedder derives a deterministic vector from the text so that equal
// texts always map to equal vectors.
type textEmbedder struct{}

func (textEmbedder) Encode(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 8)
	for i, r := range text {
		v[i%8] += float32(r)
	}
	return v, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Encode(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("embedding backend down")
}

// memStore is an in-memory stand-in for the pgvector repository with real
// cosine ordering.
type memStore struct {
	movies []model.Movie
}

func (s *memStore) InsertBatch(_ context.Context, movies []model.Movie, _ model.ConflictPolicy) error {
	s.movies = append(s.movies, movies...)
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.movies = nil
	return nil
}

func (s *memStore) SearchSimilar(_ context.Context, query []float32, topK int) ([]model.Movie, error) {
	type scored struct {
		movie    model.Movie
		distance float64
	}

	var results []scored
	for _, m := range s.movies {
		if m.Embedding == nil {
			continue
		}
		results = append(results, scored{m, cosineDistance(query, m.Embedding.Slice())})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].distance < results[j].distance
	})
	if len(results) > topK {
		results = results[:topK]
	}

	movies := make([]model.Movie, len(results))
	for i, r := range results {
		movies[i] = r.movie
	}
	return movies, nil
}

func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

type fakeLLM struct {
	answer  string
	calls   int
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.answer, nil
}

func storedMovie(t *testing.T, store *memStore, movie model.Movie) model.Movie {
	t.Helper()
	combined := ingest.EmbeddingText(&movie)
	emb, err := textEmbedder{}.Encode(context.Background(), combined)
	require.NoError(t, err)

	vec := pgvector.NewVector(emb)
	movie.CombinedText = combined
	movie.Embedding = &vec
	require.NoError(t, store.InsertBatch(context.Background(), []model.Movie{movie}, model.ConflictStrict))
	return movie
}

func TestRecommend_EmptyStoreSkipsLLM(t *testing.T) {
	llm := &fakeLLM{answer: "should not be called"}
	svc := NewRecommendService(textEmbedder{}, &memStore{}, llm)

	_, err := svc.Recommend(context.Background(), "time travel movies", 5)
	require.ErrorIs(t, err, ErrNoMovies)
	assert.Zero(t, llm.calls)
}

func TestRecommend_RoundTripIdentity(t *testing.T) {
	store := &memStore{}
	stored := storedMovie(t, store, model.Movie{
		MovieID:  "862",
		Title:    "Toy Story",
		Overview: "A cowboy doll is threatened by a new spaceman figure.",
		Genres:   "Animation, Comedy",
	})

	llm := &fakeLLM{answer: "Toy Story fits."}
	svc := NewRecommendService(textEmbedder{}, store, llm)

	// Querying with the record's own combined text embeds to the exact
	// stored vector, so the record comes back at distance zero.
	rec, err := svc.Recommend(context.Background(), stored.CombinedText, 5)
	require.NoError(t, err)
	require.Len(t, rec.Movies, 1)
	assert.Equal(t, "Toy Story", rec.Movies[0].Title)
	assert.Equal(t, "Toy Story fits.", rec.Answer)
}

func TestRecommend_NeverExceedsTopK(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 4; i++ {
		storedMovie(t, store, model.Movie{
			MovieID:  fmt.Sprint(i),
			Title:    fmt.Sprintf("Movie %d", i),
			Overview: fmt.Sprintf("Overview number %d with some distinct words.", i),
		})
	}

	svc := NewRecommendService(textEmbedder{}, store, &fakeLLM{answer: "ok"})
	rec, err := svc.Recommend(context.Background(), "anything", 2)
	require.NoError(t, err)
	assert.Len(t, rec.Movies, 2)
}

func TestRecommend_SkipsRecordsWithoutEmbedding(t *testing.T) {
	store := &memStore{}
	require.NoError(t, store.InsertBatch(context.Background(), []model.Movie{
		{MovieID: "1", Title: "No Vector", Overview: "Never embedded."},
	}, model.ConflictStrict))
	storedMovie(t, store, model.Movie{
		MovieID: "2", Title: "With Vector", Overview: "Properly embedded.",
	})

	svc := NewRecommendService(textEmbedder{}, store, &fakeLLM{answer: "ok"})
	rec, err := svc.Recommend(context.Background(), "anything", 5)
	require.NoError(t, err)
	require.Len(t, rec.Movies, 1)
	assert.Equal(t, "With Vector", rec.Movies[0].Title)
}

func TestRecommend_PromptCarriesAllRetrievedMovies(t *testing.T) {
	store := &memStore{}
	storedMovie(t, store, model.Movie{MovieID: "1", Title: "Alpha", Overview: "First overview."})
	storedMovie(t, store, model.Movie{MovieID: "2", Title: "Beta", Overview: "Second overview."})

	llm := &fakeLLM{answer: "ok"}
	svc := NewRecommendService(textEmbedder{}, store, llm)

	_, err := svc.Recommend(context.Background(), "show me everything", 5)
	require.NoError(t, err)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Alpha")
	assert.Contains(t, llm.prompts[0], "Beta")
	assert.Contains(t, llm.prompts[0], "User Question: show me everything")
}

func TestRecommend_CachesAnswers(t *testing.T) {
	store := &memStore{}
	storedMovie(t, store, model.Movie{MovieID: "1", Title: "Alpha", Overview: "First overview."})

	llm := &fakeLLM{answer: "cached"}
	svc := NewRecommendService(textEmbedder{}, store, llm)

	first, err := svc.Recommend(context.Background(), "same query", 5)
	require.NoError(t, err)
	second, err := svc.Recommend(context.Background(), "same query", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, llm.calls)
}

func TestRecommend_InvalidateAnswersDropsStaleResults(t *testing.T) {
	store := &memStore{}
	storedMovie(t, store, model.Movie{MovieID: "1", Title: "Alpha", Overview: "First overview."})

	llm := &fakeLLM{answer: "before clear"}
	svc := NewRecommendService(textEmbedder{}, store, llm)

	first, err := svc.Recommend(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Equal(t, "before clear", first.Answer)

	// Emptying the store without invalidation would keep serving the old
	// answer for the cache TTL.
	require.NoError(t, store.Clear(context.Background()))
	svc.InvalidateAnswers()

	_, err = svc.Recommend(context.Background(), "anything", 5)
	require.ErrorIs(t, err, ErrNoMovies)
	assert.Equal(t, 1, llm.calls)
}

func TestRecommend_InvalidateAnswersPicksUpNewData(t *testing.T) {
	store := &memStore{}
	storedMovie(t, store, model.Movie{MovieID: "1", Title: "Alpha", Overview: "First overview."})

	llm := &fakeLLM{answer: "answer"}
	svc := NewRecommendService(textEmbedder{}, store, llm)

	_, err := svc.Recommend(context.Background(), "anything", 5)
	require.NoError(t, err)

	storedMovie(t, store, model.Movie{MovieID: "2", Title: "Beta", Overview: "Second overview."})
	svc.InvalidateAnswers()

	rec, err := svc.Recommend(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Len(t, rec.Movies, 2)
	assert.Equal(t, 2, llm.calls)
}

func TestRecommend_EmbeddingFailurePropagates(t *testing.T) {
	svc := NewRecommendService(failingEmbedder{}, &memStore{}, &fakeLLM{})
	_, err := svc.Recommend(context.Background(), "query", 5)
	assert.Error(t, err)
}

func TestFormatMovieContext_AllFields(t *testing.T) {
	movies := []model.Movie{{
		Title:       "Toy Story",
		ReleaseDate: "1995-10-30",
		Genres:      "Animation, Comedy",
		VoteAverage: 7.7,
		Runtime:     81,
		Overview:    "A cowboy doll is threatened.",
		Tagline:     "The adventure takes off!",
	}}

	want := "[1] Toy Story\n" +
		"(1995)\n" +
		"- Genres: Animation, Comedy\n" +
		"- Rating: 7.7/10\n" +
		"- Runtime: 81 min\n" +
		"- Plot: A cowboy doll is threatened.\n" +
		"- Tagline: \"The adventure takes off!\""
	assert.Equal(t, want, FormatMovieContext(movies))
}

func TestFormatMovieContext_OmitsAbsentFields(t *testing.T) {
	movies := []model.Movie{{
		Title:    "Minimal",
		Overview: "Just a plot.",
	}}

	want := "[1] Minimal\n- Plot: Just a plot."
	assert.Equal(t, want, FormatMovieContext(movies))
}

func TestFormatMovieContext_NumbersEntries(t *testing.T) {
	movies := []model.Movie{
		{Title: "First", Overview: "One."},
		{Title: "Second", Overview: "Two."},
	}

	out := FormatMovieContext(movies)
	assert.Contains(t, out, "[1] First")
	assert.Contains(t, out, "[2] Second")
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("heist movies", []model.Movie{{Title: "Heat", Overview: "A heist."}})
	assert.Contains(t, prompt, "movie recommendation assistant")
	assert.Contains(t, prompt, "[1] Heat")
	assert.Contains(t, prompt, "User Question: heist movies")
	assert.Contains(t, prompt, "Answer:")
}
