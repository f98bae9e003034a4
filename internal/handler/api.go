package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/movierag/internal/ingest"
	"github.com/user/movierag/internal/model"
	"github.com/user/movierag/internal/service"
	"github.com/user/movierag/internal/utils"
)

// RecommendRequest is the body of POST /api/recommend.
type RecommendRequest struct {
	Query string `json:"query" binding:"required"`
	// TopK is how many movies are retrieved and sent to the LLM.
	TopK int `json:"top_k"`
	// DisplayN is how many of the retrieved movies are returned to the
	// client. Never more than TopK.
	DisplayN int `json:"display_n"`
}

// RecommendResponse is the body of a successful recommendation.
type RecommendResponse struct {
	Answer    string        `json:"answer"`
	Movies    []model.Movie `json:"movies"`
	Retrieved int           `json:"retrieved"`
}

// Recommend answers a natural-language movie query.
func (h *Handler) Recommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "query is required")
		return
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}
	if req.DisplayN <= 0 || req.DisplayN > req.TopK {
		req.DisplayN = 5
	}

	rec, err := h.Recommender.Recommend(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		if errors.Is(err, service.ErrNoMovies) {
			utils.NotFound(c, "no movies found in the database, please ingest movie data first")
			return
		}
		log.Printf("[API] Recommendation failed: %v", err)
		utils.InternalServerError(c, "failed to generate recommendation")
		return
	}

	display := rec.Movies
	if req.DisplayN < len(display) {
		display = display[:req.DisplayN]
	}

	utils.Success(c, RecommendResponse{
		Answer:    rec.Answer,
		Movies:    display,
		Retrieved: len(rec.Movies),
	})
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	MovieCount     int64  `json:"movie_count"`
	EmbeddingModel string `json:"embedding_model"`
	LLMModel       string `json:"llm_model"`
}

// Stats reports the store size and configured models. The count is cached
// briefly; it only drives an informational display.
func (h *Handler) Stats(c *gin.Context) {
	if cached, ok := h.statsCache.Get("stats"); ok {
		utils.Success(c, cached)
		return
	}

	count, err := h.Repos.Movie.Count(c.Request.Context())
	if err != nil {
		log.Printf("[API] Counting movies failed: %v", err)
		utils.InternalServerError(c, "failed to count movies")
		return
	}

	stats := StatsResponse{
		MovieCount:     count,
		EmbeddingModel: h.embedModel,
		LLMModel:       h.llmModel,
	}
	h.statsCache.SetDefault("stats", stats)
	utils.Success(c, stats)
}

// IngestRequest is the body of POST /api/admin/ingest.
type IngestRequest struct {
	CSVPath string `json:"csv_path" binding:"required"`
	Limit   int    `json:"limit"`
	// ClearExisting defaults to true, matching a full reload. Send false
	// to append instead.
	ClearExisting *bool `json:"clear_existing"`
}

// Ingest runs the ingestion pipeline synchronously and returns its tally.
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "csv_path is required")
		return
	}

	clearExisting := true
	if req.ClearExisting != nil {
		clearExisting = *req.ClearExisting
	}

	opts := ingest.Options{
		Limit:         req.Limit,
		ClearExisting: clearExisting,
		Policy:        model.ConflictStrict,
		Progress: func(current, total int, message string) {
			if total > 0 && current%100 == 0 {
				log.Printf("[API] Ingest progress: %d/%d %s", current, total, message)
			}
		},
	}
	if !clearExisting {
		// Appending without a clear has to tolerate reruns.
		opts.Policy = model.ConflictSkip
	}

	stats, err := h.Pipeline.Run(c.Request.Context(), req.CSVPath, opts)
	if err != nil {
		log.Printf("[API] Ingestion failed: %v", err)
		utils.InternalServerError(c, "ingestion failed: "+err.Error())
		return
	}

	h.statsCache.Flush()
	h.Recommender.InvalidateAnswers()
	utils.Success(c, stats)
}

// ClearMovies deletes every stored movie.
func (h *Handler) ClearMovies(c *gin.Context) {
	if err := h.Repos.Movie.Clear(c.Request.Context()); err != nil {
		log.Printf("[API] Clearing movies failed: %v", err)
		utils.InternalServerError(c, "failed to clear movies")
		return
	}
	h.statsCache.Flush()
	h.Recommender.InvalidateAnswers()
	utils.SuccessWithMessage(c, "all movies cleared", nil)
}

// Health is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
