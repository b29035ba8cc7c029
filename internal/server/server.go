// Package server exposes the query pipeline over HTTP.
package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"medrag/internal/config"
	"medrag/internal/domain"
	"medrag/internal/service"
	"medrag/internal/vectorindex"
)

// Server wires the HTTP layer. svc is nil when the index artifacts
// failed to load at startup; the service then reports unhealthy and
// rejects queries instead of serving partial results.
type Server struct {
	cfg     *config.Config
	svc     *service.Service
	loadErr error
	log     *slog.Logger
}

func New(cfg *config.Config, svc *service.Service, loadErr error, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, svc: svc, loadErr: loadErr, log: logger.With("component", "server")}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)
	r.GET("/metadata", s.metadata)
	r.POST("/retrieve", s.retrieve)
	r.POST("/query", s.query)

	return r
}

func (s *Server) health(c *gin.Context) {
	if s.svc == nil {
		detail := "index not loaded"
		if s.loadErr != nil {
			detail = s.loadErr.Error()
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "unavailable",
			"index_loaded": false,
			"detail":       detail,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"index_loaded": true,
		"num_chunks":   s.svc.Store().Len(),
	})
}

func (s *Server) metadata(c *gin.Context) {
	paths := vectorindex.Paths{Dir: s.cfg.ArtifactsDir}
	resp := gin.H{
		"llm_provider":       s.cfg.LLMProvider,
		"llm_model_name":     s.cfg.LLMModel,
		"embedding_model_id": s.cfg.EmbeddingModel,
		"top_k_default":      s.cfg.TopKDefault,
		"artifacts": gin.H{
			"vector_index": vectorindex.StatFile(paths.Index()),
			"lookup_jsonl": vectorindex.StatFile(paths.Lookup()),
			"manifest":     vectorindex.StatFile(paths.Manifest()),
		},
	}
	if s.svc != nil {
		resp["manifest"] = s.svc.Store().Manifest()
	}
	c.JSON(http.StatusOK, resp)
}

// RetrieveRequest is the body of POST /retrieve.
type RetrieveRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

func (s *Server) retrieve(c *gin.Context) {
	if !s.ready(c) {
		return
	}
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results, err := s.svc.Retrieve(c.Request.Context(), req.Query, req.K)
	if err != nil {
		s.fail(c, err)
		return
	}
	if results == nil {
		results = []domain.RetrievedChunk{}
	}
	c.JSON(http.StatusOK, results)
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) query(c *gin.Context) {
	if !s.ready(c) {
		return
	}
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	answer, err := s.svc.Answer(c.Request.Context(), req.Question)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (s *Server) ready(c *gin.Context) bool {
	if s.svc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service not initialized: index artifacts unavailable"})
		return false
	}
	return true
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrArtifact):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrProvider):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		s.log.Error("request failed", "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
