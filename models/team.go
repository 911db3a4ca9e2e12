package models

import (
	"context"
	"errors"

	"github.com/smartjects/importer_backend/config"
	"github.com/smartjects/importer_backend/utils"
	"gorm.io/gorm"
)

// Team is an organization referenced by imported smartjects. NormalizedName
// is the dedup key: the synchronizer matches on it so "The MIT" and "MIT"
// never become two rows.
type Team struct {
	ID             int     `gorm:"primary_key" json:"id"`
	Name           string  `gorm:"uniqueIndex;size:512;not null" json:"name"`
	NormalizedName string  `gorm:"index;size:512;not null" json:"normalized_name"`
	LogoUrl        *string `gorm:"size:1024" json:"logo_url"`
}

type SmartjectTeam struct {
	SmartjectId string `gorm:"primaryKey;size:36" json:"smartject_id"`
	TeamId      int    `gorm:"primaryKey" json:"team_id"`
}

// FindTeamByNormalizedName returns utils.ErrorRecordNotFound when absent.
func FindTeamByNormalizedName(ctx context.Context, normalized string) (*Team, error) {
	db := config.GetDB()

	var team Team
	err := db.WithContext(ctx).Where("normalized_name = ?", normalized).
		Order("id").Take(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func InsertTeam(ctx context.Context, team *Team) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(team).Error
}

// LinkSmartjectTeam creates the smartject↔team relation, reporting whether
// a new row was written. A duplicate pair is not an error; the relation
// already being there is the desired end state.
func LinkSmartjectTeam(ctx context.Context, smartjectId string, teamId int) (bool, error) {
	db := config.GetDB()

	var count int64
	err := db.WithContext(ctx).Model(&SmartjectTeam{}).
		Where("smartject_id = ? AND team_id = ?", smartjectId, teamId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	relation := SmartjectTeam{SmartjectId: smartjectId, TeamId: teamId}
	if err := db.WithContext(ctx).Create(&relation).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func FetchTeams(ctx context.Context) ([]Team, error) {
	db := config.GetDB()
	var teams []Team
	if err := db.WithContext(ctx).Order("id").Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}
