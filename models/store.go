package models

import (
	"context"
	"errors"

	"github.com/smartjects/importer_backend/utils"
)

// Store adapts the gorm-backed model functions to the importer's store
// collaborator. The indirection keeps the pipeline's decision logic
// unit-testable without a running MySQL.
type Store struct{}

func (Store) FindSmartjectByTitle(ctx context.Context, title string) (bool, error) {
	_, err := FindSmartjectByTitle(ctx, title)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (Store) InsertSmartject(ctx context.Context, smartject *Smartject, links TagLinks) error {
	return CreateSmartject(ctx, smartject, links)
}

func (Store) FindTeamByNormalizedName(ctx context.Context, normalized string) (*Team, error) {
	team, err := FindTeamByNormalizedName(ctx, normalized)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (Store) InsertTeam(ctx context.Context, team *Team) error {
	return InsertTeam(ctx, team)
}

func (Store) LinkSmartjectTeam(ctx context.Context, smartjectId string, teamId int) (bool, error) {
	return LinkSmartjectTeam(ctx, smartjectId, teamId)
}
