package importer

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// MatchType records which rule produced an organization match.
type MatchType string

const (
	MatchDirect            MatchType = "direct"
	MatchCaseInsensitive   MatchType = "case_insensitive"
	MatchPartial           MatchType = "partial"
	MatchNormalizedExact   MatchType = "normalized_exact"
	MatchNormalizedPartial MatchType = "normalized_partial"
	MatchNone              MatchType = ""
)

// OrganizationMatch is the result for one raw organization name. An
// unmatched name keeps a nil LogoUrl; it is never an error.
type OrganizationMatch struct {
	Name      string    `json:"name"`
	RefName   string    `json:"ref_name,omitempty"`
	LogoUrl   *string   `json:"logo_url"`
	MatchType MatchType `json:"match_type,omitempty"`
}

func (m OrganizationMatch) Matched() bool {
	return m.LogoUrl != nil
}

type logoEntry struct {
	name       string
	lower      string
	normalized string
	logoUrl    string
}

// LogoIndex is the reference logo table loaded once per run. Entries keep
// their file order in a slice so matching never depends on map iteration
// order; results are a pure function of (name, index).
type LogoIndex struct {
	entries []logoEntry
	byName  map[string]int
	byLower map[string]int
}

func NewLogoIndex(names []string, urls []string) *LogoIndex {
	ix := &LogoIndex{
		byName:  make(map[string]int, len(names)),
		byLower: make(map[string]int, len(names)),
	}
	for i, name := range names {
		name = strings.TrimSpace(name)
		url := strings.TrimSpace(urls[i])
		if name == "" || url == "" {
			continue
		}
		entry := logoEntry{
			name:       name,
			lower:      strings.ToLower(name),
			normalized: NormalizeOrganizationName(name),
			logoUrl:    url,
		}
		ix.entries = append(ix.entries, entry)
		if _, exists := ix.byName[entry.name]; !exists {
			ix.byName[entry.name] = len(ix.entries) - 1
		}
		if _, exists := ix.byLower[entry.lower]; !exists {
			ix.byLower[entry.lower] = len(ix.entries) - 1
		}
	}
	return ix
}

// LoadLogoIndex reads the reference table from a delimiter-separated file
// of organization name and logo URL columns (header "university;logo").
func LoadLogoIndex(path string) (*LogoIndex, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read logos file: %w", err)
	}

	var names, urls []string
	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		delimiter := ";"
		if !strings.Contains(line, ";") {
			delimiter = ","
		}
		parts := strings.SplitN(line, delimiter, 2)
		if len(parts) < 2 {
			continue
		}
		name, url := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if i == 0 && strings.EqualFold(name, "university") {
			continue
		}
		names = append(names, name)
		urls = append(urls, url)
	}
	return NewLogoIndex(names, urls), nil
}

func (ix *LogoIndex) Size() int {
	return len(ix.entries)
}

// Organizations lists the canonical reference names, sorted.
func (ix *LogoIndex) Organizations() []string {
	names := make([]string, 0, len(ix.entries))
	for _, e := range ix.entries {
		names = append(names, e.name)
	}
	sort.Strings(names)
	return names
}

// MatchName resolves one raw organization name against the reference table.
// Rules in priority order: exact, case-insensitive, substring (longest
// reference name wins, first-in-table order breaks ties), normalized.
// Names shorter than 5 runes never match; they are too ambiguous.
func (ix *LogoIndex) MatchName(raw string) OrganizationMatch {
	name := strings.TrimSpace(raw)
	match := OrganizationMatch{Name: name}
	if ix == nil || len(ix.entries) == 0 || len([]rune(name)) < 5 {
		return match
	}

	if i, ok := ix.byName[name]; ok {
		return ix.matchAt(name, i, MatchDirect)
	}

	lower := strings.ToLower(name)
	if i, ok := ix.byLower[lower]; ok {
		return ix.matchAt(name, i, MatchCaseInsensitive)
	}

	if i, ok := ix.substringMatch(lower, 10); ok {
		return ix.matchAt(name, i, MatchPartial)
	}

	normalized := NormalizeOrganizationName(name)
	if len([]rune(normalized)) > 3 {
		for i, entry := range ix.entries {
			if entry.normalized == normalized {
				return ix.matchAt(name, i, MatchNormalizedExact)
			}
		}
		if i, ok := ix.normalizedSubstringMatch(normalized); ok {
			return ix.matchAt(name, i, MatchNormalizedPartial)
		}
	}

	return match
}

// MatchTeam resolves each organization name in order. The result slice
// always has one entry per input name.
func (ix *LogoIndex) MatchTeam(team []string) []OrganizationMatch {
	matches := make([]OrganizationMatch, 0, len(team))
	for _, name := range team {
		matches = append(matches, ix.MatchName(name))
	}
	return matches
}

// FirstLogo returns the first matched logo in team order, for the record's
// best-effort image association.
func (ix *LogoIndex) FirstLogo(team []string) (OrganizationMatch, bool) {
	for _, name := range team {
		if m := ix.MatchName(name); m.Matched() {
			return m, true
		}
	}
	return OrganizationMatch{}, false
}

func (ix *LogoIndex) matchAt(name string, i int, matchType MatchType) OrganizationMatch {
	url := ix.entries[i].logoUrl
	return OrganizationMatch{
		Name:      name,
		RefName:   ix.entries[i].name,
		LogoUrl:   &url,
		MatchType: matchType,
	}
}

// substringMatch scans the table in order, keeping the longest reference
// name that contains or is contained by the candidate. Both sides must be
// longer than minLen runes.
func (ix *LogoIndex) substringMatch(lower string, minLen int) (int, bool) {
	if len([]rune(lower)) <= minLen {
		return 0, false
	}
	best := -1
	bestLen := -1
	for i, entry := range ix.entries {
		entryLen := len([]rune(entry.lower))
		if entryLen <= minLen {
			continue
		}
		if !strings.Contains(entry.lower, lower) && !strings.Contains(lower, entry.lower) {
			continue
		}
		if entryLen > bestLen {
			best, bestLen = i, entryLen
		}
	}
	return best, best >= 0
}

func (ix *LogoIndex) normalizedSubstringMatch(normalized string) (int, bool) {
	if len([]rune(normalized)) <= 5 {
		return 0, false
	}
	best := -1
	bestLen := -1
	for i, entry := range ix.entries {
		entryLen := len([]rune(entry.normalized))
		if entryLen <= 5 {
			continue
		}
		if !strings.Contains(entry.normalized, normalized) && !strings.Contains(normalized, entry.normalized) {
			continue
		}
		if entryLen > bestLen {
			best, bestLen = i, entryLen
		}
	}
	return best, best >= 0
}

var (
	reLeadingThe        = regexp.MustCompile(`^the\s+`)
	reInstitutionPrefix = regexp.MustCompile(`^(university|college|institute|school)\s+of\s+`)
	reInstitutionSuffix = regexp.MustCompile(`\s+(university|college|institute|school)(\s+of\s+[^,]+)?$`)
	reOfTechnology      = regexp.MustCompile(`\s+of\s+technology$`)
	reOfSciTech         = regexp.MustCompile(`\s+of\s+science\s+and\s+technology$`)
	reParenthetical     = regexp.MustCompile(`\s+\([^)]+\)$`)
	reSpaces            = regexp.MustCompile(`\s+`)
)

// NormalizeOrganizationName strips casing and common institutional affixes
// so "University of X" and "X University" share one key.
func NormalizeOrganizationName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = reLeadingThe.ReplaceAllString(name, "")
	name = reParenthetical.ReplaceAllString(name, "")
	name = reInstitutionSuffix.ReplaceAllString(name, "")
	name = reInstitutionPrefix.ReplaceAllString(name, "")
	name = reOfSciTech.ReplaceAllString(name, "")
	name = reOfTechnology.ReplaceAllString(name, "")
	name = reSpaces.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
