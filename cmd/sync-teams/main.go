// sync-teams reconciles the teams and smartject_teams tables against the
// organization names stored on every smartject. It is safe to run more
// than once: existing teams and relations are left untouched.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/sync-teams [-logos path/to/logos.csv]
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
		fmt.Fprintf(os.Stderr, "warning: logos unavailable (%v), new teams get no logo\n", err)
		logos = nil
	}

	smartjects, err := models.FetchAllSmartjects(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch smartjects: %v\n", err)
		os.Exit(1)
	}

	organizations := make(map[string]struct{})
	recordOrganizations := make(map[string][]string)
	for _, smartject := range smartjects {
		if len(smartject.Team) == 0 {
			continue
		}
		recordOrganizations[smartject.ID] = smartject.Team
		for _, name := range smartject.Team {
			organizations[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(organizations))
	for name := range organizations {
		names = append(names, name)
	}

	fmt.Printf("reconciling %d organizations across %d smartjects\n", len(names), len(recordOrganizations))
	stats := importer.NewTeamSync(models.Store{}, logos, config.GetLogger()).Run(ctx, names, recordOrganizations)
	fmt.Printf("new_teams=%d new_relations=%d failed=%d\n", stats.NewTeams, stats.NewRelations, stats.Failed)
}
