package importer

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/smartjects/importer_backend/models"
)

// SyncStats summarizes one reconciliation run.
type SyncStats struct {
	NewTeams     int `json:"new_teams"`
	NewRelations int `json:"new_relations"`
	Failed       int `json:"failed"`
}

// TeamSync reconciles the teams table and the smartject↔team relation
// against the organization names collected from imported rows. Running it
// twice over the same data creates nothing new.
type TeamSync struct {
	store  Store
	logos  *LogoIndex
	logger *logrus.Logger
}

func NewTeamSync(store Store, logos *LogoIndex, logger *logrus.Logger) *TeamSync {
	return &TeamSync{store: store, logos: logos, logger: logger}
}

// Run executes the two reconciliation passes: create missing teams, then
// create missing relations. A single failed team or relation is recorded
// and skipped; the rest proceeds.
func (s *TeamSync) Run(ctx context.Context, organizations []string, recordOrganizations map[string][]string) SyncStats {
	var stats SyncStats

	// Organization rows are deduplicated by normalized name so near-identical
	// spellings never become two teams.
	teamIds := make(map[string]int, len(organizations))
	for _, name := range organizations {
		normalized := NormalizeOrganizationName(name)
		if normalized == "" {
			normalized = name
		}

		existing, err := s.store.FindTeamByNormalizedName(ctx, normalized)
		if err != nil {
			s.logFailure("FindTeamByNormalizedName", name, err)
			stats.Failed++
			continue
		}
		if existing != nil {
			teamIds[name] = existing.ID
			continue
		}

		team := models.Team{Name: name, NormalizedName: normalized}
		if s.logos != nil {
			if match := s.logos.MatchName(name); match.Matched() {
				team.LogoUrl = match.LogoUrl
			}
		}
		if err := s.store.InsertTeam(ctx, &team); err != nil {
			// A concurrent insert of the same name is the state we wanted.
			if models.IsDuplicateKeyError(err) {
				if again, ferr := s.store.FindTeamByNormalizedName(ctx, normalized); ferr == nil && again != nil {
					teamIds[name] = again.ID
					continue
				}
			}
			s.logFailure("InsertTeam", name, err)
			stats.Failed++
			continue
		}
		teamIds[name] = team.ID
		stats.NewTeams++
	}

	for recordId, names := range recordOrganizations {
		for _, name := range names {
			teamId, ok := teamIds[name]
			if !ok {
				continue
			}
			created, err := s.store.LinkSmartjectTeam(ctx, recordId, teamId)
			if err != nil {
				s.logFailure("LinkSmartjectTeam", name, err)
				stats.Failed++
				continue
			}
			if created {
				stats.NewRelations++
			}
		}
	}

	return stats
}

func (s *TeamSync) logFailure(op, name string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"module":   "importer",
		"funcName": "TeamSync.Run",
		"context":  op,
		"team":     name,
	}).Error(err.Error())
}
