package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"medrag/internal/domain"
)

// Fetcher orchestrates corpus ingestion: search PubMed, map PMIDs to
// PMC ids, download full-text XML, and append an audit record per
// article to a JSONL ingest log.
type Fetcher struct {
	client *EntrezClient
	sleep  time.Duration
	log    *slog.Logger
}

func NewFetcher(client *EntrezClient, sleep time.Duration, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, sleep: sleep, log: logger.With("component", "fetcher")}
}

// FetchOptions controls a corpus fetch run.
type FetchOptions struct {
	Query      string
	TargetN    int
	Oversample int // multiplier applied to TargetN for the PubMed search
	Resume     bool
	RawDir     string
	LogPath    string
}

// FetchCounts summarizes a fetch run.
type FetchCounts struct {
	Downloaded int
	Skipped    int
	Failed     int
	NoLink     int
}

type ingestRecord struct {
	Type      string `json:"type"`
	RunID     string `json:"run_id"`
	Timestamp string `json:"timestamp"`
	Query     string `json:"query,omitempty"`
	TargetN   int    `json:"target_n,omitempty"`
	Retmax    int    `json:"query_retmax,omitempty"`
	RawDir    string `json:"raw_dir,omitempty"`
	PMID      string `json:"pmid,omitempty"`
	PMCID     string `json:"pmcid,omitempty"`
	XMLPath   string `json:"xml_path,omitempty"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// FetchCorpus downloads articles until TargetN are present on disk.
// With Resume, XML files that already exist are counted as skipped
// rather than re-downloaded.
func (f *Fetcher) FetchCorpus(ctx context.Context, opts FetchOptions) (FetchCounts, error) {
	var counts FetchCounts
	if opts.Query == "" {
		return counts, fmt.Errorf("fetch: query is empty")
	}
	if opts.TargetN <= 0 {
		return counts, fmt.Errorf("fetch: target count must be positive")
	}
	if opts.Oversample <= 0 {
		opts.Oversample = 3
	}
	if err := os.MkdirAll(opts.RawDir, 0o755); err != nil {
		return counts, err
	}
	if opts.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogPath), 0o755); err != nil {
			return counts, err
		}
	}

	retmax := opts.TargetN * opts.Oversample
	f.log.Info("searching pubmed", "query", opts.Query, "retmax", retmax)
	pmids, err := f.client.SearchPubMed(ctx, opts.Query, retmax)
	if err != nil {
		return counts, fmt.Errorf("fetch: search pubmed: %w", err)
	}
	f.log.Info("pubmed search done", "pmids", len(pmids))

	runID := uuid.NewString()
	if opts.LogPath != "" {
		rec := ingestRecord{
			Type:      "run",
			RunID:     runID,
			Timestamp: time.Now().Format(time.RFC3339),
			Query:     opts.Query,
			TargetN:   opts.TargetN,
			Retmax:    retmax,
			RawDir:    opts.RawDir,
		}
		if err := appendJSONL(opts.LogPath, rec); err != nil {
			return counts, err
		}
	}

	for _, pmid := range pmids {
		if counts.Downloaded+counts.Skipped >= opts.TargetN {
			break
		}
		if err := ctx.Err(); err != nil {
			return counts, err
		}

		rec := ingestRecord{
			Type:      "article",
			RunID:     runID,
			Timestamp: time.Now().Format(time.RFC3339),
			PMID:      pmid,
		}

		pmcNum, err := f.client.LinkPMC(ctx, pmid)
		f.pause()
		if err != nil {
			rec.Error = err.Error()
			counts.Failed++
			f.logRecord(opts.LogPath, rec)
			continue
		}
		if pmcNum == "" {
			rec.Error = "no_pmc_link"
			counts.NoLink++
			f.logRecord(opts.LogPath, rec)
			continue
		}

		pmcid := "PMC" + pmcNum
		rec.PMCID = pmcid
		xmlPath := filepath.Join(opts.RawDir, pmcid+".xml")

		if opts.Resume {
			if _, err := os.Stat(xmlPath); err == nil {
				rec.XMLPath = xmlPath
				rec.OK = true
				counts.Skipped++
				f.log.Debug("skipped existing article", "pmcid", pmcid)
				f.logRecord(opts.LogPath, rec)
				continue
			}
		}

		data, err := f.client.FetchArticleXML(ctx, pmcNum)
		f.pause()
		if err != nil {
			rec.Error = "fetch_failed"
			counts.Failed++
			f.log.Warn("article fetch failed", "pmcid", pmcid, "error", err)
			f.logRecord(opts.LogPath, rec)
			continue
		}
		if err := os.WriteFile(xmlPath, data, 0o644); err != nil {
			rec.Error = err.Error()
			counts.Failed++
			f.logRecord(opts.LogPath, rec)
			continue
		}

		rec.XMLPath = xmlPath
		rec.OK = true
		counts.Downloaded++
		f.log.Info("downloaded article", "pmcid", pmcid)
		f.logRecord(opts.LogPath, rec)
	}

	return counts, nil
}

func (f *Fetcher) pause() {
	if f.sleep > 0 {
		time.Sleep(f.sleep)
	}
}

func (f *Fetcher) logRecord(path string, rec ingestRecord) {
	if path == "" {
		return
	}
	if err := appendJSONL(path, rec); err != nil {
		f.log.Warn("failed to append ingest log", "error", err)
	}
}

func appendJSONL(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer fh.Close()
	_, err = fh.Write(append(data, '\n'))
	return err
}

// LoadPMIDMap reads the ingest log and maps PMCID -> PMID for
// successfully fetched articles.
func LoadPMIDMap(logPath string) (map[string]string, error) {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec ingestRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.Type == "article" && rec.OK && rec.PMCID != "" && rec.PMID != "" {
			out[rec.PMCID] = rec.PMID
		}
	}
	return out, nil
}

// LoadArticles parses every PMC*.xml under rawDir into documents, in
// stable filename order. Articles that fail to parse are skipped.
func LoadArticles(rawDir string, pmidMap map[string]string, logger *slog.Logger) ([]domain.Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	paths, err := filepath.Glob(filepath.Join(rawDir, "PMC*.xml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var docs []domain.Document
	for _, p := range paths {
		pmcid := strings.TrimSuffix(filepath.Base(p), ".xml")
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		doc, err := ParseArticle(pmcid, data)
		if err != nil {
			logger.Warn("failed to parse article", "pmcid", pmcid, "error", err)
			continue
		}
		doc.PMID = pmidMap[pmcid]
		doc.Source = p
		docs = append(docs, doc)
	}
	return docs, nil
}
