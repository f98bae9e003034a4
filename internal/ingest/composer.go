package ingest

import (
	"strings"

	"github.com/user/movierag/internal/model"
)

// EmbeddingText builds the text blob a movie is embedded under:
//
//	Title: {title}
//	Genres: {genres}
//	Plot: {overview}
//	Tagline: {tagline}
//
// Absent fields are omitted entirely, no blank lines.
func EmbeddingText(movie *model.Movie) string {
	parts := make([]string, 0, 4)

	if movie.Title != "" {
		parts = append(parts, "Title: "+movie.Title)
	}
	if movie.Genres != "" {
		parts = append(parts, "Genres: "+movie.Genres)
	}
	if movie.Overview != "" {
		parts = append(parts, "Plot: "+movie.Overview)
	}
	if movie.Tagline != "" {
		parts = append(parts, "Tagline: "+movie.Tagline)
	}

	return strings.Join(parts, "\n")
}
