package config

import (
	"os"
	"strings"
)

// LogoMatchingEnabled toggles organization logo matching during import.
//
// Set via env:
// - ENABLE_LOGO_MATCHING=false
func LogoMatchingEnabled() bool {
	return boolFlag("ENABLE_LOGO_MATCHING", true)
}

// TeamSyncEnabled toggles the post-batch teams synchronization.
//
// Set via env:
// - ENABLE_TEAM_SYNC=false
func TeamSyncEnabled() bool {
	return boolFlag("ENABLE_TEAM_SYNC", true)
}

// ProgressUpdatesEnabled toggles throttled progress messages during import.
//
// Set via env:
// - ENABLE_PROGRESS_UPDATES=false
func ProgressUpdatesEnabled() bool {
	return boolFlag("ENABLE_PROGRESS_UPDATES", true)
}

// FileArchiveEnabled toggles archiving received import files to GCS.
// Requires GCS_BUCKET.
//
// Set via env:
// - ENABLE_FILE_ARCHIVE=true
func FileArchiveEnabled() bool {
	return boolFlag("ENABLE_FILE_ARCHIVE", false)
}

func boolFlag(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
