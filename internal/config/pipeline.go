package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// PipelineConfig configures the offline indexing pipeline. It is read
// from an optional YAML file; missing fields fall back to defaults.
type PipelineConfig struct {
	RawDir         string `yaml:"raw_dir"`
	ChunksPath     string `yaml:"chunks_path"`
	IngestLogPath  string `yaml:"ingest_log_path"`
	ChunkSizeWords int    `yaml:"chunk_size_words"`
	OverlapWords   int    `yaml:"overlap_words"`
	MinWords       int    `yaml:"min_words"`
}

// LoadPipeline reads a pipeline config from path. A missing file yields
// the defaults.
func LoadPipeline(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultPipelineConfig(), nil
		}
		return nil, err
	}
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyPipelineDefaults(&cfg)
	return &cfg, nil
}

func defaultPipelineConfig() *PipelineConfig {
	cfg := &PipelineConfig{}
	applyPipelineDefaults(cfg)
	return cfg
}

func applyPipelineDefaults(cfg *PipelineConfig) {
	if cfg.RawDir == "" {
		cfg.RawDir = "data/raw"
	}
	if cfg.ChunksPath == "" {
		cfg.ChunksPath = "data/chunks/chunks.jsonl"
	}
	if cfg.IngestLogPath == "" {
		cfg.IngestLogPath = "data/ingest.jsonl"
	}
	if cfg.ChunkSizeWords == 0 {
		cfg.ChunkSizeWords = 300
	}
	if cfg.OverlapWords == 0 {
		cfg.OverlapWords = 50
	}
	if cfg.MinWords == 0 {
		cfg.MinWords = 1
	}
}
