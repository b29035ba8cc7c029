package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"medrag/internal/config"
	"medrag/internal/ingest"
)

var (
	fetchQuery      string
	fetchTarget     int
	fetchOversample int
	fetchSleepMs    int
	fetchNoResume   bool
	fetchConfigPath string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download PMC full-text articles for a PubMed query",
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchQuery, "query", "q", "", "PubMed search query")
	fetchCmd.Flags().IntVarP(&fetchTarget, "target", "n", 50, "number of articles to download")
	fetchCmd.Flags().IntVar(&fetchOversample, "oversample", 3, "search retmax multiplier")
	fetchCmd.Flags().IntVar(&fetchSleepMs, "sleep-ms", 350, "pause between NCBI calls in milliseconds")
	fetchCmd.Flags().BoolVar(&fetchNoResume, "no-resume", false, "re-download articles that already exist")
	fetchCmd.Flags().StringVar(&fetchConfigPath, "config", "pipeline.yaml", "pipeline config file")
	_ = fetchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.EntrezEmail == "" {
		return errors.New("ENTREZ_EMAIL must be set (NCBI usage policy)")
	}
	pcfg, err := config.LoadPipeline(fetchConfigPath)
	if err != nil {
		return err
	}

	client, err := ingest.NewEntrezClient(ingest.EntrezConfig{
		Email:  cfg.EntrezEmail,
		APIKey: cfg.EntrezAPIKey,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	fetcher := ingest.NewFetcher(client, time.Duration(fetchSleepMs)*time.Millisecond, logger)

	counts, err := fetcher.FetchCorpus(cmd.Context(), ingest.FetchOptions{
		Query:      fetchQuery,
		TargetN:    fetchTarget,
		Oversample: fetchOversample,
		Resume:     !fetchNoResume,
		RawDir:     pcfg.RawDir,
		LogPath:    pcfg.IngestLogPath,
	})
	if err != nil {
		return err
	}
	logger.Info("fetch complete",
		"downloaded", counts.Downloaded,
		"skipped", counts.Skipped,
		"failed", counts.Failed,
		"no_link", counts.NoLink,
	)
	return nil
}
