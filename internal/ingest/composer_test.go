package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user/movierag/internal/model"
)

func TestEmbeddingText_AllFields(t *testing.T) {
	movie := &model.Movie{
		Title:    "Toy Story",
		Genres:   "Animation, Comedy",
		Overview: "A cowboy doll is threatened by a new spaceman figure.",
		Tagline:  "The adventure takes off!",
	}

	want := "Title: Toy Story\n" +
		"Genres: Animation, Comedy\n" +
		"Plot: A cowboy doll is threatened by a new spaceman figure.\n" +
		"Tagline: The adventure takes off!"
	assert.Equal(t, want, EmbeddingText(movie))
}

func TestEmbeddingText_OmitsAbsentFields(t *testing.T) {
	movie := &model.Movie{
		Title:    "Toy Story",
		Overview: "A cowboy doll is threatened by a new spaceman figure.",
	}

	// Exactly two lines, no blank lines or placeholders.
	want := "Title: Toy Story\n" +
		"Plot: A cowboy doll is threatened by a new spaceman figure."
	assert.Equal(t, want, EmbeddingText(movie))
}

func TestEmbeddingText_Deterministic(t *testing.T) {
	movie := &model.Movie{Title: "A", Overview: "B", Genres: "C", Tagline: "D"}
	assert.Equal(t, EmbeddingText(movie), EmbeddingText(movie))
}
