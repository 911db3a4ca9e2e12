package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartjects/importer_backend/models"
)

// TagRef is one reference-table entry.
type TagRef struct {
	ID   int
	Name string
}

// TagIndex holds the three tag reference tables keyed by lowercased name.
// Loaded once per run; resolution is a pure lookup over it.
type TagIndex struct {
	industries map[string]TagRef
	audiences  map[string]TagRef
	functions  map[string]TagRef
}

func NewTagIndex(industries []models.Industry, audiences []models.Audience, functions []models.BusinessFunction) *TagIndex {
	ix := &TagIndex{
		industries: make(map[string]TagRef, len(industries)),
		audiences:  make(map[string]TagRef, len(audiences)),
		functions:  make(map[string]TagRef, len(functions)),
	}
	for _, industry := range industries {
		ix.industries[strings.ToLower(industry.Name)] = TagRef{ID: industry.ID, Name: industry.Name}
	}
	for _, audience := range audiences {
		ix.audiences[strings.ToLower(audience.Name)] = TagRef{ID: audience.ID, Name: audience.Name}
	}
	for _, function := range functions {
		ix.functions[strings.ToLower(function.Name)] = TagRef{ID: function.ID, Name: function.Name}
	}
	return ix
}

// LoadTagIndex fetches the reference tables from the store once, before any
// row is processed.
func LoadTagIndex(ctx context.Context) (*TagIndex, error) {
	industries, err := models.FetchIndustries(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch industries: %w", err)
	}
	audiences, err := models.FetchAudiences(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch audiences: %w", err)
	}
	functions, err := models.FetchBusinessFunctions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch business functions: %w", err)
	}
	return NewTagIndex(industries, audiences, functions), nil
}

// Resolve maps the record's raw tag strings to reference identifiers.
// Unresolvable tokens are dropped with a warning; the record only fails when
// nothing resolves in any category.
func (ix *TagIndex) Resolve(record *CandidateRecord) (models.TagLinks, []string, error) {
	var links models.TagLinks
	var warnings []string

	for _, tag := range record.Industries {
		if ref, ok := ix.industries[strings.ToLower(tag)]; ok {
			links.IndustryIds = append(links.IndustryIds, ref.ID)
		} else {
			warnings = append(warnings, fmt.Sprintf("unknown industry tag %q dropped", tag))
		}
	}
	for _, tag := range record.AudienceTags {
		if ref, ok := ix.audiences[strings.ToLower(tag)]; ok {
			links.AudienceIds = append(links.AudienceIds, ref.ID)
		} else {
			warnings = append(warnings, fmt.Sprintf("unknown audience tag %q dropped", tag))
		}
	}
	for _, tag := range record.Functions {
		if ref, ok := ix.functions[strings.ToLower(tag)]; ok {
			links.FunctionIds = append(links.FunctionIds, ref.ID)
		} else {
			warnings = append(warnings, fmt.Sprintf("unknown function tag %q dropped", tag))
		}
	}

	if len(links.IndustryIds)+len(links.AudienceIds)+len(links.FunctionIds) == 0 {
		return models.TagLinks{}, warnings, fmt.Errorf("no valid tags")
	}
	return links, warnings, nil
}
