package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.MinWorkers != 4 || cfg.Pipeline.MaxWorkers != 16 {
		t.Fatalf("unexpected pool bounds %+v", cfg.Pipeline)
	}
	if cfg.Grading.NumericTolerance != 0.01 || cfg.Grading.SimilarityThreshold != 0.70 || cfg.Grading.WeakTypeThreshold != 60 {
		t.Fatalf("unexpected grading defaults %+v", cfg.Grading)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  port: "9000"
pipeline:
  itemTimeout: 15s
  concurrency: 3
grading:
  similarityThreshold: 0.8
ai:
  provider: anthropic
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REDIS_URI", "redis://cache:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("port: %s", cfg.Server.Port)
	}
	if cfg.Pipeline.ItemTimeout != 15*time.Second || cfg.Pipeline.Concurrency != 3 {
		t.Fatalf("pipeline: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.ValidateTimeout != 120*time.Second {
		t.Fatalf("defaults should survive partial files, got %v", cfg.Pipeline.ValidateTimeout)
	}
	if cfg.Grading.SimilarityThreshold != 0.8 {
		t.Fatalf("grading: %+v", cfg.Grading)
	}
	if cfg.Redis.Addr != "cache:6379" {
		t.Fatalf("redis addr: %s", cfg.Redis.Addr)
	}
	if !cfg.Kafka.Enabled() || len(cfg.Kafka.Brokers) != 2 {
		t.Fatalf("kafka: %+v", cfg.Kafka)
	}
	if !cfg.AI.IsEnabled() || cfg.AI.APIKey() != "test-key" {
		t.Fatalf("ai: provider=%s enabled=%v", cfg.AI.Provider, cfg.AI.IsEnabled())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
