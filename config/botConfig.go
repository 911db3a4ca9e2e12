package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// BotConfig carries the chat-transport settings supplied by the operator.
type BotConfig struct {
	Token        string
	AllowedUsers []int64
	MaxFileSize  int64
	LogosFile    string
}

// ImportConfig carries the knobs the pipeline honors: batching cadence and
// progress-emission throttling.
type ImportConfig struct {
	BatchSize        int
	BatchDelay       time.Duration
	ProgressInterval time.Duration
	MaxRetryAttempts int
	RetryDelay       time.Duration
}

func GetBotConfig() BotConfig {
	maxMB := IntFromEnv("MAX_FILE_SIZE_MB", 10)
	return BotConfig{
		Token:        os.Getenv("BOT_TOKEN"),
		AllowedUsers: parseAllowedUsers(os.Getenv("ALLOWED_USERS")),
		MaxFileSize:  int64(maxMB) * 1024 * 1024,
		LogosFile:    logosFile(),
	}
}

func GetImportConfig() ImportConfig {
	return ImportConfig{
		BatchSize:        IntFromEnv("BATCH_SIZE", 50),
		BatchDelay:       time.Duration(FloatFromEnv("BATCH_DELAY", 0.1) * float64(time.Second)),
		ProgressInterval: time.Duration(FloatFromEnv("PROGRESS_UPDATE_INTERVAL", 2.0) * float64(time.Second)),
		MaxRetryAttempts: IntFromEnv("MAX_RETRY_ATTEMPTS", 3),
		RetryDelay:       time.Duration(FloatFromEnv("RETRY_DELAY", 1.0) * float64(time.Second)),
	}
}

func logosFile() string {
	if f := strings.TrimSpace(os.Getenv("LOGOS_FILE")); f != "" {
		return f
	}
	dir := strings.TrimSpace(os.Getenv("LOGOS_DIR"))
	if dir == "" {
		dir = "logos"
	}
	return dir + "/top_30_universities_mentions.csv"
}

func parseAllowedUsers(raw string) []int64 {
	var users []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	return users
}
