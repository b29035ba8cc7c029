package main

import (
	"os"

	"github.com/spf13/cobra"

	"medrag/internal/chunker"
	"medrag/internal/config"
	"medrag/internal/ingest"
	"medrag/internal/pipeline"
)

var chunkConfigPath string

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Chunk downloaded articles into a chunks JSONL dataset",
	RunE:  runChunk,
}

func init() {
	chunkCmd.Flags().StringVar(&chunkConfigPath, "config", "pipeline.yaml", "pipeline config file")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	pcfg, err := config.LoadPipeline(chunkConfigPath)
	if err != nil {
		return err
	}

	pmidMap := map[string]string{}
	if _, err := os.Stat(pcfg.IngestLogPath); err == nil {
		pmidMap, err = ingest.LoadPMIDMap(pcfg.IngestLogPath)
		if err != nil {
			return err
		}
	}

	docs, err := ingest.LoadArticles(pcfg.RawDir, pmidMap, logger)
	if err != nil {
		return err
	}
	logger.Info("loaded articles", "count", len(docs), "raw_dir", pcfg.RawDir)

	c, err := chunker.NewSectionChunker(pcfg.ChunkSizeWords, pcfg.OverlapWords, pcfg.MinWords)
	if err != nil {
		return err
	}

	_, err = pipeline.BuildChunks(docs, c, pcfg.ChunksPath, pipeline.ChunksMeta{
		ChunkSizeWords: pcfg.ChunkSizeWords,
		OverlapWords:   pcfg.OverlapWords,
		MinWords:       pcfg.MinWords,
	}, logger)
	return err
}
