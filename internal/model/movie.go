package model

import (
	"github.com/pgvector/pgvector-go"
)

// Movie is one movie row from the TMDB metadata CSV, stored together with
// the embedding of its combined text.
//
// VoteAverage and Runtime are optional in the source data; a zero value
// means the CSV field was empty or not a parseable number.
type Movie struct {
	ID           int              `json:"id" db:"id"`
	MovieID      string           `json:"movie_id" db:"movie_id" gorm:"unique"`
	Title        string           `json:"title" db:"title"`
	Overview     string           `json:"overview" db:"overview"`
	Genres       string           `json:"genres" db:"genres"`
	Tagline      string           `json:"tagline" db:"tagline"`
	VoteAverage  float64          `json:"vote_average" db:"vote_average"`
	ReleaseDate  string           `json:"release_date" db:"release_date"`
	Runtime      int              `json:"runtime" db:"runtime"`
	CombinedText string           `json:"combined_text" db:"combined_text"`
	Embedding    *pgvector.Vector `json:"-" db:"embedding" gorm:"type:vector(384)"`
}

// Year returns the release year, taken as the first four characters of the
// release date. Empty when no date is known.
func (m *Movie) Year() string {
	if len(m.ReleaseDate) >= 4 {
		return m.ReleaseDate[:4]
	}
	return ""
}

// ConflictPolicy controls what an insert does when a movie with the same
// source MovieID already exists.
type ConflictPolicy int

const (
	// ConflictStrict fails the insert on a duplicate movie_id.
	ConflictStrict ConflictPolicy = iota
	// ConflictSkip silently skips duplicates (ON CONFLICT DO NOTHING).
	ConflictSkip
)
