package models

import (
	"context"

	"github.com/smartjects/importer_backend/config"
)

// Reference tables for tag resolution. Loaded once per run into the
// importer's in-memory index; row processing never mutates them.

type Industry struct {
	ID   int    `gorm:"primary_key" json:"id"`
	Name string `gorm:"uniqueIndex;size:255;not null" json:"name"`
}

type Audience struct {
	ID   int    `gorm:"primary_key" json:"id"`
	Name string `gorm:"uniqueIndex;size:255;not null" json:"name"`
}

type BusinessFunction struct {
	ID   int    `gorm:"primary_key" json:"id"`
	Name string `gorm:"uniqueIndex;size:255;not null" json:"name"`
}

type SmartjectIndustry struct {
	SmartjectId string `gorm:"primaryKey;size:36" json:"smartject_id"`
	IndustryId  int    `gorm:"primaryKey" json:"industry_id"`
}

type SmartjectAudience struct {
	SmartjectId string `gorm:"primaryKey;size:36" json:"smartject_id"`
	AudienceId  int    `gorm:"primaryKey" json:"audience_id"`
}

type SmartjectBusinessFunction struct {
	SmartjectId string `gorm:"primaryKey;size:36" json:"smartject_id"`
	FunctionId  int    `gorm:"primaryKey" json:"function_id"`
}

func FetchIndustries(ctx context.Context) ([]Industry, error) {
	db := config.GetDB()
	var industries []Industry
	if err := db.WithContext(ctx).Order("id").Find(&industries).Error; err != nil {
		return nil, err
	}
	return industries, nil
}

func FetchAudiences(ctx context.Context) ([]Audience, error) {
	db := config.GetDB()
	var audiences []Audience
	if err := db.WithContext(ctx).Order("id").Find(&audiences).Error; err != nil {
		return nil, err
	}
	return audiences, nil
}

func FetchBusinessFunctions(ctx context.Context) ([]BusinessFunction, error) {
	db := config.GetDB()
	var functions []BusinessFunction
	if err := db.WithContext(ctx).Order("id").Find(&functions).Error; err != nil {
		return nil, err
	}
	return functions, nil
}
