package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smartjects/importer_backend/config"
	"github.com/smartjects/importer_backend/utils"
	"gorm.io/gorm"
)

// StringList is stored as a JSON array column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type %T for StringList", value)
	}
}

type Smartject struct {
	ID           string     `gorm:"primary_key;size:36" json:"id"`
	Title        string     `gorm:"uniqueIndex;size:512;not null" json:"title"`
	ImageUrl     *string    `gorm:"size:1024" json:"image_url"`
	Mission      string     `gorm:"type:text" json:"mission"`
	Problematics string     `gorm:"type:text" json:"problematics"`
	Scope        string     `gorm:"type:text" json:"scope"`
	Audience     string     `gorm:"type:text" json:"audience"`
	HowItWorks   string     `gorm:"type:text" json:"how_it_works"`
	Architecture string     `gorm:"type:text" json:"architecture"`
	Innovation   string     `gorm:"type:text" json:"innovation"`
	UseCase      string     `gorm:"type:text" json:"use_case"`
	Team         StringList `gorm:"type:json" json:"team"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	ResearchPapers []ResearchPaper `gorm:"foreignKey:SmartjectId" json:"research_papers"`
}

type ResearchPaper struct {
	ID          int    `gorm:"primary_key" json:"id"`
	SmartjectId string `gorm:"index;size:36;not null" json:"smartject_id"`
	Title       string `gorm:"size:512" json:"title"`
	Url         string `gorm:"size:1024" json:"url"`
}

// TagLinks are the resolved reference-table identifiers persisted together
// with the smartject row.
type TagLinks struct {
	IndustryIds []int
	AudienceIds []int
	FunctionIds []int
}

type SmartjectDetails struct {
	Smartject
	Industries        []Industry         `json:"industries"`
	AudienceList      []Audience         `json:"audience_list"`
	BusinessFunctions []BusinessFunction `json:"business_functions"`
	Teams             []Team             `json:"teams_list"`
}

// FindSmartjectByTitle looks a smartject up by exact title. Returns
// utils.ErrorRecordNotFound when no row matches.
func FindSmartjectByTitle(ctx context.Context, title string) (*Smartject, error) {
	db := config.GetDB()

	var smartject Smartject
	err := db.WithContext(ctx).Where("title = ?", title).Take(&smartject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &smartject, nil
}

// CreateSmartject inserts the smartject row together with its research
// papers and tag link rows in one transaction, so a failed write leaves no
// partial record behind.
func CreateSmartject(ctx context.Context, smartject *Smartject, links TagLinks) error {
	db := config.GetDB()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(smartject).Error; err != nil {
			return err
		}
		for _, industryId := range links.IndustryIds {
			relation := SmartjectIndustry{SmartjectId: smartject.ID, IndustryId: industryId}
			if err := tx.Create(&relation).Error; err != nil && !IsDuplicateKeyError(err) {
				return err
			}
		}
		for _, audienceId := range links.AudienceIds {
			relation := SmartjectAudience{SmartjectId: smartject.ID, AudienceId: audienceId}
			if err := tx.Create(&relation).Error; err != nil && !IsDuplicateKeyError(err) {
				return err
			}
		}
		for _, functionId := range links.FunctionIds {
			relation := SmartjectBusinessFunction{SmartjectId: smartject.ID, FunctionId: functionId}
			if err := tx.Create(&relation).Error; err != nil && !IsDuplicateKeyError(err) {
				return err
			}
		}
		return nil
	})
}

// SearchSmartjectsByTitle returns up to limit smartjects whose title
// contains the query, case-insensitively.
func SearchSmartjectsByTitle(ctx context.Context, query string, limit int) ([]Smartject, error) {
	db := config.GetDB()
	if limit <= 0 {
		limit = 10
	}

	var smartjects []Smartject
	err := db.WithContext(ctx).
		Select("id", "title", "mission", "created_at").
		Where("title LIKE ?", "%"+query+"%").
		Limit(limit).
		Find(&smartjects).Error
	if err != nil {
		return nil, err
	}
	return smartjects, nil
}

// GetSmartjectDetails fetches the smartject with all its relations.
func GetSmartjectDetails(ctx context.Context, id string) (*SmartjectDetails, error) {
	db := config.GetDB()

	var smartject Smartject
	err := db.WithContext(ctx).Preload("ResearchPapers").Where("id = ?", id).Take(&smartject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	details := SmartjectDetails{Smartject: smartject}

	err = db.WithContext(ctx).
		Joins("JOIN smartject_industries ON smartject_industries.industry_id = industries.id").
		Where("smartject_industries.smartject_id = ?", id).
		Find(&details.Industries).Error
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).
		Joins("JOIN smartject_audiences ON smartject_audiences.audience_id = audiences.id").
		Where("smartject_audiences.smartject_id = ?", id).
		Find(&details.AudienceList).Error
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).
		Joins("JOIN smartject_business_functions ON smartject_business_functions.function_id = business_functions.id").
		Where("smartject_business_functions.smartject_id = ?", id).
		Find(&details.BusinessFunctions).Error
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).
		Joins("JOIN smartject_teams ON smartject_teams.team_id = teams.id").
		Where("smartject_teams.smartject_id = ?", id).
		Find(&details.Teams).Error
	if err != nil {
		return nil, err
	}

	return &details, nil
}

// UpdateSmartjectLogo sets the logo image URL for an existing smartject.
func UpdateSmartjectLogo(ctx context.Context, id string, logoUrl string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&Smartject{}).Where("id = ?", id).
		Update("image_url", logoUrl).Error
}

// FetchAllSmartjects pages through all smartjects, returning the columns the
// maintenance tools need.
func FetchAllSmartjects(ctx context.Context) ([]Smartject, error) {
	db := config.GetDB()

	const pageSize = 1000
	var all []Smartject
	for offset := 0; ; offset += pageSize {
		var page []Smartject
		err := db.WithContext(ctx).
			Select("id", "title", "team", "image_url", "audience").
			Order("id").
			Limit(pageSize).
			Offset(offset).
			Find(&page).Error
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
	}
	return all, nil
}

// DeleteSmartject removes a smartject and all its relation rows.
func DeleteSmartject(ctx context.Context, id string) error {
	db := config.GetDB()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("smartject_id = ?", id).Delete(&SmartjectIndustry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("smartject_id = ?", id).Delete(&SmartjectAudience{}).Error; err != nil {
			return err
		}
		if err := tx.Where("smartject_id = ?", id).Delete(&SmartjectBusinessFunction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("smartject_id = ?", id).Delete(&SmartjectTeam{}).Error; err != nil {
			return err
		}
		if err := tx.Where("smartject_id = ?", id).Delete(&ResearchPaper{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&Smartject{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return utils.ErrorRecordNotFound
		}
		return nil
	})
}
