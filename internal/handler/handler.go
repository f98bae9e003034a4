package handler

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/user/movierag/internal/config"
	"github.com/user/movierag/internal/ingest"
	"github.com/user/movierag/internal/repository"
	"github.com/user/movierag/internal/service"
)

// Handler carries the HTTP endpoints' dependencies. Everything is built
// once at startup and injected, no globals.
type Handler struct {
	Repos       *repository.Repositories
	Config      *config.Config
	Recommender *service.RecommendService
	Pipeline    *ingest.Pipeline

	embedModel string
	llmModel   string
	statsCache *cache.Cache
}

// New creates the handler.
func New(
	repos *repository.Repositories,
	cfg *config.Config,
	recommender *service.RecommendService,
	pipeline *ingest.Pipeline,
	embedModel, llmModel string,
) *Handler {
	return &Handler{
		Repos:       repos,
		Config:      cfg,
		Recommender: recommender,
		Pipeline:    pipeline,
		embedModel:  embedModel,
		llmModel:    llmModel,
		statsCache:  cache.New(1*time.Minute, 5*time.Minute),
	}
}
