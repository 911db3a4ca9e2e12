package importer

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smartjects/importer_backend/models"
	"github.com/smartjects/importer_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("smartjects-importer")

// Store is the persistent-store collaborator the pipeline and synchronizer
// depend on. All implementations use parameterized queries.
type Store interface {
	FindSmartjectByTitle(ctx context.Context, title string) (bool, error)
	InsertSmartject(ctx context.Context, smartject *models.Smartject, links models.TagLinks) error
	FindTeamByNormalizedName(ctx context.Context, normalized string) (*models.Team, error)
	InsertTeam(ctx context.Context, team *models.Team) error
	LinkSmartjectTeam(ctx context.Context, smartjectId string, teamId int) (bool, error)
}

// Options configures a Processor. Logos and Progress are optional.
// MaxRetries is the total attempt count per persisted row; transient write
// failures are retried after RetryDelay.
type Options struct {
	Store      Store
	Tags       *TagIndex
	Logos      *LogoIndex
	Progress   *ProgressReporter
	BatchSize  int
	BatchDelay time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Logger     *logrus.Logger
}

// Processor runs the per-row state machine over an input file's rows and
// aggregates outcomes into an ImportReport.
type Processor struct {
	store      Store
	tags       *TagIndex
	logos      *LogoIndex
	progress   *ProgressReporter
	batchSize  int
	batchDelay time.Duration
	maxRetries int
	retryDelay time.Duration
	logger     *logrus.Logger
}

func NewProcessor(opts Options) *Processor {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Processor{
		store:      opts.Store,
		tags:       opts.Tags,
		logos:      opts.Logos,
		progress:   opts.Progress,
		batchSize:  batchSize,
		batchDelay: opts.BatchDelay,
		maxRetries: maxRetries,
		retryDelay: opts.RetryDelay,
		logger:     opts.Logger,
	}
}

// Run processes rows strictly in input order. One bad row never aborts the
// batch; cancellation stops intake before the next row and keeps everything
// already persisted. Run never triggers the teams synchronizer itself —
// after a cancelled run that is the caller's call to make.
func (p *Processor) Run(ctx context.Context, rows []RawRow) *ImportReport {
	ctx, span := tracer.Start(ctx, "import.run")
	defer span.End()
	span.SetAttributes(attribute.Int("import.rows", len(rows)))

	report := &ImportReport{
		StartedAt:           time.Now().UTC(),
		RecordOrganizations: make(map[string][]string),
	}
	report.Stats.Total = len(rows)
	orgSet := make(map[string]struct{})

	for idx, row := range rows {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		// Inter-batch delay: rate-limit courtesy only, no correctness impact.
		if idx > 0 && idx%p.batchSize == 0 && p.batchDelay > 0 {
			select {
			case <-ctx.Done():
				report.Cancelled = true
			case <-time.After(p.batchDelay):
			}
			if report.Cancelled {
				break
			}
		}

		result := p.processRow(ctx, idx, row, report, orgSet)
		report.addOutcome(result)
		p.progress.Report(ctx, idx+1, report.Stats.Total, result.Title)
	}

	report.Organizations = sortedKeys(orgSet)
	report.EndedAt = time.Now().UTC()

	if report.Cancelled {
		span.AddEvent("import cancelled", trace.WithAttributes(
			attribute.Int("import.rows_processed", len(report.Results)),
		))
	}

	span.SetAttributes(
		attribute.Int("import.imported", report.Stats.Imported),
		attribute.Int("import.rejected", report.Stats.Rejected),
		attribute.Bool("import.cancelled", report.Cancelled),
	)
	return report
}

// processRow walks one row through
// Received → Validated → DuplicateChecked → TagsResolved →
// OrganizationsMatched → Persisted, returning the terminal state.
func (p *Processor) processRow(ctx context.Context, idx int, row RawRow, report *ImportReport, orgSet map[string]struct{}) RowResult {
	record := ParseRow(row)
	result := RowResult{Row: idx + 1, Title: record.Title}

	if NotRelevant(&record) {
		result.Outcome = OutcomeSkippedNotRelevant
		result.Reason = "not relevant"
		return result
	}

	if reason := ValidateRecord(&record); reason != "" {
		result.Outcome = OutcomeRejected
		result.Reason = reason
		return result
	}

	// The duplicate check precedes every mutating operation, and the store
	// query sees rows persisted earlier in this same run.
	exists, err := p.store.FindSmartjectByTitle(ctx, record.Title)
	if err != nil {
		result.Outcome = OutcomeRejected
		result.Reason = "duplicate check failed: " + err.Error()
		return result
	}
	if exists {
		result.Outcome = OutcomeSkippedDuplicate
		result.Reason = "already exists"
		return result
	}

	links, warnings, err := p.tags.Resolve(&record)
	result.Warnings = warnings
	if err != nil {
		result.Outcome = OutcomeRejected
		result.Reason = "no valid tags"
		return result
	}

	var imageUrl *string
	if p.logos != nil && len(record.Team) > 0 {
		if match, ok := p.logos.FirstLogo(record.Team); ok {
			imageUrl = match.LogoUrl
			result.LogoType = match.MatchType
			report.Stats.WithLogos++
		}
	}

	smartject := models.Smartject{
		ID:           uuid.NewString(),
		Title:        record.Title,
		ImageUrl:     imageUrl,
		Mission:      record.Mission,
		Problematics: record.Problematics,
		Scope:        record.Scope,
		Audience:     record.AudienceText,
		HowItWorks:   record.HowItWorks,
		Architecture: record.Architecture,
		Innovation:   record.Innovation,
		UseCase:      record.UseCase,
		Team:         models.StringList(record.Team),
		CreatedAt:    record.PublishedAt,
		UpdatedAt:    record.PublishedAt,
	}
	if record.Link != "" {
		smartject.ResearchPapers = []models.ResearchPaper{{Title: record.Title, Url: record.Link}}
	}

	if err := p.insertWithRetry(ctx, &smartject, links); err != nil {
		if p.logger != nil {
			fields := logrus.Fields{
				"module":   "importer",
				"funcName": "Processor.processRow",
				"title":    record.Title,
			}
			if chatId, ok := utils.GetChatIdFromContext(ctx); ok {
				fields["chat_id"] = chatId
			}
			if runId, ok := utils.GetCorrelationIdFromContext(ctx); ok {
				fields["run_id"] = runId
			}
			p.logger.WithFields(fields).Error("persistence failed: " + err.Error())
		}
		result.Outcome = OutcomeRejected
		result.Reason = "persistence error: " + err.Error()
		return result
	}

	for _, org := range record.Team {
		orgSet[org] = struct{}{}
	}
	if len(record.Team) > 0 {
		report.RecordOrganizations[smartject.ID] = append([]string(nil), record.Team...)
	}

	result.Outcome = OutcomeImported
	return result
}

// insertWithRetry persists the row, retrying transient failures up to the
// configured attempt count. Duplicate-key errors are never transient and
// cancellation stops retrying immediately.
func (p *Processor) insertWithRetry(ctx context.Context, smartject *models.Smartject, links models.TagLinks) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = p.store.InsertSmartject(ctx, smartject, links)
		if err == nil || models.IsDuplicateKeyError(err) || attempt >= p.maxRetries {
			return err
		}
		if p.logger != nil {
			p.logger.WithFields(logrus.Fields{
				"module":   "importer",
				"funcName": "Processor.insertWithRetry",
				"title":    smartject.Title,
				"attempt":  attempt,
			}).Warn("persistence failed, retrying: " + err.Error())
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.retryDelay):
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
