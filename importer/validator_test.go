package importer

import (
	"testing"
	"time"
)

func TestParseList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Healthcare", []string{"Healthcare"}},
		{"Healthcare, Finance", []string{"Healthcare", "Finance"}},
		{"['Healthcare', 'Finance']", []string{"Healthcare", "Finance"}},
		{`["Healthcare", "Finance"]`, []string{"Healthcare", "Finance"}},
		{"[ 'a' , '' , 'b' ]", []string{"a", "b"}},
		{"  MIT ,  Stanford University ", []string{"MIT", "Stanford University"}},
	}
	for _, c := range cases {
		got := ParseList(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("ParseList(%q) = %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("ParseList(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestParsePublishDate(t *testing.T) {
	// Every weekday prefix must parse, including the ones containing the
	// letter an ISO timestamp uses as its separator.
	feedDates := map[string]time.Time{
		"Mon, 04 Mar 2024 10:30:00 +0000": time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC),
		"Tue, 05 Mar 2024 10:30:00 +0000": time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC),
		"Thu, 07 Mar 2024 10:30:00 +0000": time.Date(2024, 3, 7, 10, 30, 0, 0, time.UTC),
		"Sat, 09 Mar 2024 10:30:00 +0000": time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC),
	}
	for in, want := range feedDates {
		if got := ParsePublishDate(in); !got.Equal(want) {
			t.Fatalf("feed format %q: got %v, want %v", in, got, want)
		}
	}

	want := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	got := ParsePublishDate("2024-03-05T10:30:00Z")
	if !got.Equal(want) {
		t.Fatalf("RFC3339: got %v, want %v", got, want)
	}

	// Unparseable dates never fail a row.
	before := time.Now().UTC().Add(-time.Minute)
	got = ParsePublishDate("not a date")
	if got.Before(before) {
		t.Fatalf("fallback should be near now, got %v", got)
	}
	got = ParsePublishDate("")
	if got.Before(before) {
		t.Fatalf("empty fallback should be near now, got %v", got)
	}
}

func TestParseRow(t *testing.T) {
	row := RawRow{
		"name":         "  Smart Energy Monitor ",
		"summarized":   "YES",
		"mission":      "save energy",
		"how it works": "sensors",
		"industries":   "['Energy', 'Utilities']",
		"audience":     "Engineers",
		"functions":    "Operations",
		"team":         "MIT, Stanford University",
		"link":         "https://example.org/paper",
		"publish_date": "Tue, 05 Mar 2024 10:30:00 +0000",
	}
	record := ParseRow(row)

	if record.Title != "Smart Energy Monitor" {
		t.Fatalf("title = %q", record.Title)
	}
	if len(record.Industries) != 2 || record.Industries[1] != "Utilities" {
		t.Fatalf("industries = %v", record.Industries)
	}
	if len(record.Team) != 2 || record.Team[0] != "MIT" || record.Team[1] != "Stanford University" {
		t.Fatalf("team = %v", record.Team)
	}
	// The free-text audience column doubles as an audience tag source.
	if record.AudienceText != "Engineers" || len(record.AudienceTags) != 1 {
		t.Fatalf("audience = %q tags = %v", record.AudienceText, record.AudienceTags)
	}
	if record.Link != "https://example.org/paper" {
		t.Fatalf("link = %q", record.Link)
	}
}

func TestValidateRecord(t *testing.T) {
	record := CandidateRecord{Title: "A", Industries: []string{"Energy"}}
	if reason := ValidateRecord(&record); reason != "" {
		t.Fatalf("valid record rejected: %q", reason)
	}

	record = CandidateRecord{Industries: []string{"Energy"}}
	if reason := ValidateRecord(&record); reason != "missing name" {
		t.Fatalf("want missing name, got %q", reason)
	}

	record = CandidateRecord{Title: "A"}
	if reason := ValidateRecord(&record); reason != "no tags provided" {
		t.Fatalf("want no tags provided, got %q", reason)
	}
}

func TestNotRelevant(t *testing.T) {
	record := CandidateRecord{Title: "A", Summarized: NotRelevantSentinel}
	if !NotRelevant(&record) {
		t.Fatalf("sentinel not detected")
	}
	// The sentinel is an exact marker, not a substring rule.
	record.Summarized = "no (not relevant)"
	if NotRelevant(&record) {
		t.Fatalf("lowercase text must not match the sentinel")
	}
}
