package importer

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// csvPublishDateLayout matches the feed export format,
// e.g. "Tue, 05 Mar 2024 10:30:00 +0000".
const csvPublishDateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

// ParseRow turns one raw row into a CandidateRecord. It does not decide the
// row's outcome; the pipeline applies the sentinel and validation rules on
// the parsed record.
func ParseRow(row RawRow) CandidateRecord {
	return CandidateRecord{
		Title:        row.Get("name"),
		SourceUrl:    row.Get("url"),
		Summarized:   row.Get("summarized"),
		Mission:      row.Get("mission"),
		Problematics: row.Get("problematics"),
		Scope:        row.Get("scope"),
		AudienceText: row.Get("audience"),
		HowItWorks:   row.Get("how it works"),
		Architecture: row.Get("architecture"),
		Innovation:   row.Get("innovation"),
		UseCase:      row.Get("use case"),
		Link:         row.Get("link"),
		Industries:   ParseList(row.Get("industries")),
		AudienceTags: ParseList(row.Get("audience")),
		Functions:    ParseList(row.Get("functions")),
		Team:         ParseList(row.Get("team")),
		PublishedAt:  ParsePublishDate(row.Get("publish_date")),
	}
}

// ValidateRecord rejects records without a title or with no raw tag at all
// across industries, audience and functions. The returned string is the
// human-readable rejection reason, empty for valid records.
func ValidateRecord(record *CandidateRecord) string {
	if err := validate.Struct(record); err != nil {
		return "missing name"
	}
	if len(record.Industries)+len(record.AudienceTags)+len(record.Functions) == 0 {
		return "no tags provided"
	}
	return ""
}

// NotRelevant reports whether the summarizer flagged this row as noise.
func NotRelevant(record *CandidateRecord) bool {
	return record.Summarized == NotRelevantSentinel
}

// ParseList parses a cell holding either a bracketed list ("['a', 'b']") or
// a plain comma-separated one into trimmed, unquoted items.
func ParseList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		value = strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	}

	var items []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `"'`)
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

// ParsePublishDate accepts the feed export format and ISO timestamps,
// falling back to the current time for anything else. An unparseable date
// never fails a row. The feed layout is tried first: its weekday prefix
// ("Tue", "Thu", "Sat") contains the same letter an ISO timestamp uses as
// its date/time separator, so sniffing for 'T' misroutes those days.
func ParsePublishDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now().UTC()
	}
	if t, err := time.Parse(csvPublishDateLayout, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Now().UTC()
}
