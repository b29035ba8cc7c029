package main

import (
	"time"

	"github.com/spf13/cobra"

	"medrag/internal/config"
	"medrag/internal/embedding/openai"
	"medrag/internal/pipeline"
)

var (
	indexConfigPath string
	indexForce      bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the chunks dataset and build the index artifact set",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexConfigPath, "config", "pipeline.yaml", "pipeline config file")
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "overwrite an existing index")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pcfg, err := config.LoadPipeline(indexConfigPath)
	if err != nil {
		return err
	}

	records, err := pipeline.LoadChunkRecords(pcfg.ChunksPath)
	if err != nil {
		return err
	}
	logger.Info("loaded chunk records", "count", len(records), "path", pcfg.ChunksPath)

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

	_, err = pipeline.BuildIndex(cmd.Context(), records, embedder, cfg.ArtifactsDir, pipeline.IndexParams{
		ChunkSizeWords:    pcfg.ChunkSizeWords,
		ChunkOverlapWords: pcfg.OverlapWords,
		SourceChunksPath:  pcfg.ChunksPath,
		Force:             indexForce,
	}, logger)
	return err
}
