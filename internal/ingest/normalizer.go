package ingest

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/user/movierag/internal/model"
)

// RowStatus classifies what happened to one raw CSV row.
type RowStatus int

const (
	// RowOK means the row produced a valid movie record.
	RowOK RowStatus = iota
	// RowSkippedAdult means the row was flagged as adult content.
	RowSkippedAdult
	// RowSkippedMissingFields means title or overview was empty after
	// trimming.
	RowSkippedMissingFields
)

// RowOutcome is the typed result of normalizing one row, so that skips stay
// inspectable instead of being swallowed.
type RowOutcome struct {
	Status RowStatus
	Reason string
}

// ParseJSONField extracts the "name" values from a JSON array field like
// '[{"id": 28, "name": "Action"}]' and joins them with ", ". Malformed or
// non-list input yields an empty string, never an error.
func ParseJSONField(fieldValue string) string {
	if fieldValue == "" || fieldValue == "[]" {
		return ""
	}

	var items []any
	if err := json.Unmarshal([]byte(fieldValue), &items); err != nil {
		return ""
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		// Non-object list elements are skipped, not fatal.
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := obj["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// NormalizeRow validates one raw CSV row and produces a movie record.
// Numeric coercion failures leave the field at its zero value rather than
// failing the row.
func NormalizeRow(row map[string]string) (*model.Movie, RowOutcome) {
	if row["adult"] == "True" {
		return nil, RowOutcome{Status: RowSkippedAdult, Reason: "adult content"}
	}

	movie := &model.Movie{
		MovieID:     row["id"],
		Title:       strings.TrimSpace(row["title"]),
		Overview:    strings.TrimSpace(row["overview"]),
		Genres:      ParseJSONField(row["genres"]),
		Tagline:     strings.TrimSpace(row["tagline"]),
		ReleaseDate: strings.TrimSpace(row["release_date"]),
	}

	if movie.Title == "" || movie.Overview == "" {
		return nil, RowOutcome{Status: RowSkippedMissingFields, Reason: "missing title or overview"}
	}

	if v := row["vote_average"]; v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			movie.VoteAverage = f
		}
	}
	// Runtime arrives as decimal-looking text ("81.0"), so go through float.
	if v := row["runtime"]; v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			movie.Runtime = int(f)
		}
	}

	return movie, RowOutcome{Status: RowOK}
}
