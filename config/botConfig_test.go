package config

import (
	"testing"
	"time"
)

func TestGetBotConfig(t *testing.T) {
	t.Setenv("BOT_TOKEN", "test-token")
	t.Setenv("ALLOWED_USERS", "100, 200, nonsense, ")
	t.Setenv("MAX_FILE_SIZE_MB", "5")
	t.Setenv("LOGOS_FILE", "")
	t.Setenv("LOGOS_DIR", "")

	cfg := GetBotConfig()
	if cfg.Token != "test-token" {
		t.Fatalf("token = %q", cfg.Token)
	}
	if len(cfg.AllowedUsers) != 2 || cfg.AllowedUsers[0] != 100 || cfg.AllowedUsers[1] != 200 {
		t.Fatalf("allowed users = %v", cfg.AllowedUsers)
	}
	if cfg.MaxFileSize != 5*1024*1024 {
		t.Fatalf("max file size = %d", cfg.MaxFileSize)
	}
	if cfg.LogosFile != "logos/top_30_universities_mentions.csv" {
		t.Fatalf("logos file = %q", cfg.LogosFile)
	}

	t.Setenv("LOGOS_DIR", "data")
	if got := GetBotConfig().LogosFile; got != "data/top_30_universities_mentions.csv" {
		t.Fatalf("logos file = %q", got)
	}
	t.Setenv("LOGOS_FILE", "custom.csv")
	if got := GetBotConfig().LogosFile; got != "custom.csv" {
		t.Fatalf("logos file = %q", got)
	}
}

func TestGetImportConfig(t *testing.T) {
	t.Setenv("BATCH_SIZE", "")
	t.Setenv("BATCH_DELAY", "")
	t.Setenv("PROGRESS_UPDATE_INTERVAL", "")

	cfg := GetImportConfig()
	if cfg.BatchSize != 50 {
		t.Fatalf("batch size = %d", cfg.BatchSize)
	}
	if cfg.BatchDelay != 100*time.Millisecond {
		t.Fatalf("batch delay = %v", cfg.BatchDelay)
	}
	if cfg.ProgressInterval != 2*time.Second {
		t.Fatalf("progress interval = %v", cfg.ProgressInterval)
	}

	t.Setenv("BATCH_SIZE", "10")
	t.Setenv("BATCH_DELAY", "0.5")
	if cfg := GetImportConfig(); cfg.BatchSize != 10 || cfg.BatchDelay != 500*time.Millisecond {
		t.Fatalf("overrides ignored: %+v", cfg)
	}
}
