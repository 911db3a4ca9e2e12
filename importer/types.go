package importer

import (
	"fmt"
	"time"
)

// NotRelevantSentinel marks summarizer output that should never be imported.
const NotRelevantSentinel = "NO (not relevant)"

// CandidateRecord is one parsed row. Constructed per row, consumed once by
// the pipeline, never persisted as-is.
type CandidateRecord struct {
	Title        string `validate:"required"`
	SourceUrl    string
	Summarized   string
	Mission      string
	Problematics string
	Scope        string
	AudienceText string
	HowItWorks   string
	Architecture string
	Innovation   string
	UseCase      string
	Link         string

	Industries   []string
	AudienceTags []string
	Functions    []string
	Team         []string

	PublishedAt time.Time
}

// OutcomeKind enumerates the terminal states of the per-row state machine.
type OutcomeKind string

const (
	OutcomeImported           OutcomeKind = "imported"
	OutcomeSkippedNotRelevant OutcomeKind = "skipped_not_relevant"
	OutcomeSkippedDuplicate   OutcomeKind = "skipped_duplicate"
	OutcomeRejected           OutcomeKind = "rejected"
)

// RowResult is produced exactly once per input row and is immutable after.
type RowResult struct {
	Row      int         `json:"row"`
	Title    string      `json:"title"`
	Outcome  OutcomeKind `json:"outcome"`
	Reason   string      `json:"reason,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
	LogoType MatchType   `json:"logo_match,omitempty"`
}

type ImportStats struct {
	Total              int `json:"total"`
	Imported           int `json:"imported"`
	SkippedNotRelevant int `json:"skipped_not_relevant"`
	SkippedDuplicate   int `json:"skipped_duplicate"`
	Rejected           int `json:"rejected"`
	WithLogos          int `json:"with_logos"`
}

// ImportReport is the explicit result object an import run returns; there is
// no process-wide statistics state.
type ImportReport struct {
	Stats     ImportStats `json:"stats"`
	Results   []RowResult `json:"results"`
	Cancelled bool        `json:"cancelled"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   time.Time   `json:"ended_at"`

	// Inputs to the teams synchronizer: every distinct organization name
	// seen across imported rows, and each imported record's own names.
	Organizations       []string            `json:"organizations"`
	RecordOrganizations map[string][]string `json:"record_organizations"`
}

func (r *ImportReport) addOutcome(result RowResult) {
	switch result.Outcome {
	case OutcomeImported:
		r.Stats.Imported++
	case OutcomeSkippedNotRelevant:
		r.Stats.SkippedNotRelevant++
	case OutcomeSkippedDuplicate:
		r.Stats.SkippedDuplicate++
	case OutcomeRejected:
		r.Stats.Rejected++
	}
	r.Results = append(r.Results, result)
}

// Rejected returns the per-row detail for everything that was not imported.
func (r *ImportReport) Rejected() []RowResult {
	var out []RowResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeRejected {
			out = append(out, res)
		}
	}
	return out
}

// Summary renders the human-readable run summary for the chat channel.
func (r *ImportReport) Summary() string {
	return fmt.Sprintf(
		"📊 Processing Summary:\n"+
			"Total records: %d\n"+
			"✅ Imported: %d\n"+
			"🎓 With logos: %d\n"+
			"⏭️ Skipped (not relevant): %d\n"+
			"⏭️ Skipped (already exists): %d\n"+
			"❌ Rejected: %d\n",
		r.Stats.Total,
		r.Stats.Imported,
		r.Stats.WithLogos,
		r.Stats.SkippedNotRelevant,
		r.Stats.SkippedDuplicate,
		r.Stats.Rejected,
	)
}
