// backfill-logos re-runs organization logo matching over smartjects that
// are already in the database and updates their image URL when the
// reference table yields a different match.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/backfill-logos [-dry-run] [-logos path/to/logos.csv]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/smartjects/importer_backend/config"
	"github.com/smartjects/importer_backend/importer"
	"github.com/smartjects/importer_backend/models"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report matches without writing")
	logosFile := flag.String("logos", "", "logos file (default from env)")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	path := *logosFile
	if path == "" {
		path = config.GetBotConfig().LogosFile
	}
	logos, err := importer.LoadLogoIndex(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load logos from %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("loaded %d logo references from %s\n", logos.Size(), path)

	smartjects, err := models.FetchAllSmartjects(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch smartjects: %v\n", err)
		os.Exit(1)
	}

	var withTeams, found, alreadyCorrect, updated, failed int
	for _, smartject := range smartjects {
		if len(smartject.Team) == 0 {
			continue
		}
		withTeams++

		match, ok := logos.FirstLogo(smartject.Team)
		if !ok {
			continue
		}
		found++

		if smartject.ImageUrl != nil && *smartject.ImageUrl == *match.LogoUrl {
			alreadyCorrect++
			continue
		}

		if *dryRun {
			fmt.Printf("would update %q: %s (%s)\n", smartject.Title, *match.LogoUrl, match.MatchType)
			continue
		}
		if err := models.UpdateSmartjectLogo(ctx, smartject.ID, *match.LogoUrl); err != nil {
			fmt.Fprintf(os.Stderr, "failed to update %q: %v\n", smartject.Title, err)
			failed++
			continue
		}
		updated++
	}

	fmt.Printf("total=%d with_teams=%d matches=%d already_correct=%d updated=%d failed=%d\n",
		len(smartjects), withTeams, found, alreadyCorrect, updated, failed)
}
