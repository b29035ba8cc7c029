package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"medrag/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "medrag",
	Short: "Retrieval-augmented QA over biomedical literature",
	Long: `medrag runs the offline indexing pipeline (fetch, chunk, index)
and serves the question-answering API over the built artifacts.`,
	SilenceUsage: true,
}

var logger *slog.Logger

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	logger = logging.New(slog.LevelInfo)
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
