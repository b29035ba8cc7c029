package main

import (
	"time"

	"github.com/spf13/cobra"

	"medrag/internal/config"
	"medrag/internal/embedding/openai"
	"medrag/internal/generator"
	"medrag/internal/llm"
	"medrag/internal/retriever"
	"medrag/internal/server"
	"medrag/internal/service"
	"medrag/internal/vectorindex"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question-answering API over the built index",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	// A missing or corrupt artifact set is not fatal to the process:
	// the service starts, reports unhealthy, and rejects queries.
	// Configuration mistakes (bad credentials, model id mismatch) are
	// fatal instead of degrading silently.
	var svc *service.Service
	store, loadErr := vectorindex.Open(cfg.ArtifactsDir)
	if loadErr != nil {
		logger.Error("index artifacts unavailable", "dir", cfg.ArtifactsDir, "error", loadErr)
	} else {
		embedder, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.EmbeddingBaseURL,
			APIKeyEnv: cfg.EmbeddingAPIKeyEnv,
			Model:     cfg.EmbeddingModel,
			BatchSize: cfg.EmbeddingBatchSize,
			Timeout:   time.Duration(cfg.EmbeddingTimeout) * time.Second,
		})
		if err != nil {
			return err
		}
		ret, err := retriever.New(store, embedder, logger)
		if err != nil {
			return err
		}
		llmClient, err := llm.NewClient(llm.Options{
			Provider:        cfg.LLMProvider,
			Model:           cfg.LLMModel,
			APIKeyEnv:       cfg.LLMAPIKeyEnv,
			Temperature:     cfg.LLMTemperature,
			MaxTokens:       cfg.LLMMaxTokens,
			ReasoningEffort: cfg.LLMReasoningEffort,
			Timeout:         time.Duration(cfg.LLMTimeout) * time.Second,
		})
		if err != nil {
			return err
		}
		gen := generator.New(llmClient, cfg.MaxContextChars, logger)
		svc = service.New(store, ret, gen, cfg.TopKDefault, logger)
		logger.Info("service initialized",
			"chunks", store.Len(),
			"embedding_model", store.Manifest().EmbeddingModelID,
			"llm_provider", llmClient.Name(),
		)
	}

	srv := server.New(cfg, svc, loadErr, logger)
	logger.Info("listening", "addr", cfg.Addr())
	return srv.Router().Run(cfg.Addr())
}
