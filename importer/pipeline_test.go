package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/smartjects/importer_backend/models"
)

// fakeStore is an in-memory Store for pipeline and synchronizer tests.
type fakeStore struct {
	smartjects map[string]*models.Smartject // by title
	links      map[string]models.TagLinks   // by title
	teams      map[string]*models.Team      // by normalized name
	relations  map[string]bool              // "smartjectId:teamId"
	nextTeamId int

	findErr   error
	insertErr map[string]error // by title
	teamErr   map[string]error // by raw team name
	linkErr   error
	onInsert  func(*models.Smartject)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		smartjects: make(map[string]*models.Smartject),
		links:      make(map[string]models.TagLinks),
		teams:      make(map[string]*models.Team),
		relations:  make(map[string]bool),
		insertErr:  make(map[string]error),
		teamErr:    make(map[string]error),
	}
}

func (s *fakeStore) FindSmartjectByTitle(ctx context.Context, title string) (bool, error) {
	if s.findErr != nil {
		return false, s.findErr
	}
	_, ok := s.smartjects[title]
	return ok, nil
}

func (s *fakeStore) InsertSmartject(ctx context.Context, smartject *models.Smartject, links models.TagLinks) error {
	if err := s.insertErr[smartject.Title]; err != nil {
		return err
	}
	s.smartjects[smartject.Title] = smartject
	s.links[smartject.Title] = links
	if s.onInsert != nil {
		s.onInsert(smartject)
	}
	return nil
}

func (s *fakeStore) FindTeamByNormalizedName(ctx context.Context, normalized string) (*models.Team, error) {
	return s.teams[normalized], nil
}

func (s *fakeStore) InsertTeam(ctx context.Context, team *models.Team) error {
	if err := s.teamErr[team.Name]; err != nil {
		return err
	}
	s.nextTeamId++
	team.ID = s.nextTeamId
	s.teams[team.NormalizedName] = team
	return nil
}

func (s *fakeStore) LinkSmartjectTeam(ctx context.Context, smartjectId string, teamId int) (bool, error) {
	if s.linkErr != nil {
		return false, s.linkErr
	}
	key := fmt.Sprintf("%s:%d", smartjectId, teamId)
	if s.relations[key] {
		return false, nil
	}
	s.relations[key] = true
	return true, nil
}

func testProcessor(store Store, logos *LogoIndex) *Processor {
	return NewProcessor(Options{
		Store: store,
		Tags:  testTagIndex(),
		Logos: logos,
	})
}

func energyRow(name string) RawRow {
	return RawRow{
		"name":       name,
		"summarized": "YES",
		"industries": "['Energy']",
	}
}

func TestRunImportsValidRows(t *testing.T) {
	store := newFakeStore()
	row := energyRow("Smart Energy Monitor")
	row["team"] = "MIT, Stanford University"
	row["link"] = "https://example.org/paper"
	rows := []RawRow{row, energyRow("Water Tracker")}

	report := testProcessor(store, testLogoIndex()).Run(context.Background(), rows)

	if report.Stats.Total != 2 || report.Stats.Imported != 2 {
		t.Fatalf("stats = %+v", report.Stats)
	}
	if report.Cancelled {
		t.Fatalf("run should not be cancelled")
	}
	if len(report.Results) != 2 || report.Results[0].Outcome != OutcomeImported {
		t.Fatalf("results = %+v", report.Results)
	}

	monitor := store.smartjects["Smart Energy Monitor"]
	if monitor == nil {
		t.Fatalf("record not persisted")
	}
	if monitor.ID == "" || len(monitor.ID) != 36 {
		t.Fatalf("id = %q", monitor.ID)
	}
	// MIT is too short to match, so Stanford's logo wins.
	if monitor.ImageUrl == nil || *monitor.ImageUrl != "https://logos.example/stanford.png" {
		t.Fatalf("image = %v", monitor.ImageUrl)
	}
	if len(monitor.ResearchPapers) != 1 || monitor.ResearchPapers[0].Url != "https://example.org/paper" {
		t.Fatalf("papers = %+v", monitor.ResearchPapers)
	}
	if report.Stats.WithLogos != 1 {
		t.Fatalf("with logos = %d", report.Stats.WithLogos)
	}
	if links := store.links["Smart Energy Monitor"]; len(links.IndustryIds) != 1 {
		t.Fatalf("links = %+v", links)
	}

	// Organizations are collected for the synchronizer, sorted.
	if len(report.Organizations) != 2 || report.Organizations[0] != "MIT" {
		t.Fatalf("organizations = %v", report.Organizations)
	}
	if orgs := report.RecordOrganizations[monitor.ID]; len(orgs) != 2 {
		t.Fatalf("record organizations = %v", orgs)
	}
}

func TestRunSkipsNotRelevant(t *testing.T) {
	store := newFakeStore()
	row := energyRow("Noise")
	row["summarized"] = NotRelevantSentinel

	report := testProcessor(store, nil).Run(context.Background(), []RawRow{row})

	if report.Stats.SkippedNotRelevant != 1 || report.Stats.Imported != 0 {
		t.Fatalf("stats = %+v", report.Stats)
	}
	if len(store.smartjects) != 0 {
		t.Fatalf("skipped row was persisted")
	}
}

func TestRunSkipsDuplicates(t *testing.T) {
	store := newFakeStore()
	store.smartjects["Existing"] = &models.Smartject{Title: "Existing"}

	// The second "Fresh" row is a duplicate of the first one persisted in
	// this same run.
	rows := []RawRow{energyRow("Existing"), energyRow("Fresh"), energyRow("Fresh")}
	report := testProcessor(store, nil).Run(context.Background(), rows)

	if report.Stats.Imported != 1 || report.Stats.SkippedDuplicate != 2 {
		t.Fatalf("stats = %+v", report.Stats)
	}
	if report.Results[2].Reason != "already exists" {
		t.Fatalf("reason = %q", report.Results[2].Reason)
	}
}

func TestRunRejectsWithoutValidTags(t *testing.T) {
	store := newFakeStore()
	row := RawRow{"name": "Untaggable", "industries": "['Blockchain']"}

	report := testProcessor(store, nil).Run(context.Background(), []RawRow{row})

	if report.Stats.Rejected != 1 {
		t.Fatalf("stats = %+v", report.Stats)
	}
	result := report.Results[0]
	if result.Reason != "no valid tags" || len(result.Warnings) != 1 {
		t.Fatalf("result = %+v", result)
	}
	if rejected := report.Rejected(); len(rejected) != 1 {
		t.Fatalf("rejected = %+v", rejected)
	}
}

func TestRunRejectsMissingName(t *testing.T) {
	store := newFakeStore()
	report := testProcessor(store, nil).Run(context.Background(), []RawRow{{"industries": "['Energy']"}})
	if report.Stats.Rejected != 1 || report.Results[0].Reason != "missing name" {
		t.Fatalf("report = %+v", report.Results)
	}
}

func TestRunIsolatesPersistenceFailures(t *testing.T) {
	store := newFakeStore()
	store.insertErr["Broken"] = errors.New("deadlock found")

	rows := []RawRow{energyRow("Broken"), energyRow("Fine")}
	report := testProcessor(store, nil).Run(context.Background(), rows)

	if report.Stats.Rejected != 1 || report.Stats.Imported != 1 {
		t.Fatalf("stats = %+v", report.Stats)
	}
	if report.Results[0].Outcome != OutcomeRejected {
		t.Fatalf("result = %+v", report.Results[0])
	}
	if _, ok := store.smartjects["Fine"]; !ok {
		t.Fatalf("later row not persisted after earlier failure")
	}
}

// flakyStore fails the first N inserts the way a transient MySQL error
// (deadlock, dropped connection) would.
type flakyStore struct {
	*fakeStore
	failures int
	attempts int
	err      error
}

func (s *flakyStore) InsertSmartject(ctx context.Context, smartject *models.Smartject, links models.TagLinks) error {
	s.attempts++
	if s.attempts <= s.failures {
		return s.err
	}
	return s.fakeStore.InsertSmartject(ctx, smartject, links)
}

func TestRunRetriesTransientPersistenceFailures(t *testing.T) {
	store := &flakyStore{fakeStore: newFakeStore(), failures: 2, err: errors.New("deadlock found")}
	processor := NewProcessor(Options{
		Store:      store,
		Tags:       testTagIndex(),
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})

	report := processor.Run(context.Background(), []RawRow{energyRow("Recovered")})

	if report.Stats.Imported != 1 || report.Stats.Rejected != 0 {
		t.Fatalf("stats = %+v", report.Stats)
	}
	if store.attempts != 3 {
		t.Fatalf("attempts = %d, want 3", store.attempts)
	}
}

func TestRunGivesUpAfterMaxRetries(t *testing.T) {
	store := &flakyStore{fakeStore: newFakeStore(), failures: 10, err: errors.New("deadlock found")}
	processor := NewProcessor(Options{
		Store:      store,
		Tags:       testTagIndex(),
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})

	report := processor.Run(context.Background(), []RawRow{energyRow("Hopeless")})

	if report.Stats.Rejected != 1 {
		t.Fatalf("stats = %+v", report.Stats)
	}
	if store.attempts != 2 {
		t.Fatalf("attempts = %d, want 2", store.attempts)
	}
}

func TestRunDoesNotRetryDuplicateKey(t *testing.T) {
	store := &flakyStore{
		fakeStore: newFakeStore(),
		failures:  10,
		err:       &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"},
	}
	processor := NewProcessor(Options{
		Store:      store,
		Tags:       testTagIndex(),
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})

	report := processor.Run(context.Background(), []RawRow{energyRow("Raced")})

	if report.Stats.Rejected != 1 {
		t.Fatalf("stats = %+v", report.Stats)
	}
	// A concurrent writer winning the title is final, not transient.
	if store.attempts != 1 {
		t.Fatalf("attempts = %d, want 1", store.attempts)
	}
}

func TestRunRejectsOnDuplicateCheckFailure(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("connection refused")

	report := testProcessor(store, nil).Run(context.Background(), []RawRow{energyRow("A")})
	if report.Stats.Rejected != 1 {
		t.Fatalf("stats = %+v", report.Stats)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	store := newFakeStore()
	ctx, cancel := context.WithCancel(context.Background())
	// Cancel after the first persisted row; the already-imported row stays.
	store.onInsert = func(*models.Smartject) { cancel() }

	rows := []RawRow{energyRow("First"), energyRow("Second"), energyRow("Third")}
	report := testProcessor(store, nil).Run(ctx, rows)

	if !report.Cancelled {
		t.Fatalf("report not marked cancelled")
	}
	if report.Stats.Imported != 1 || len(report.Results) != 1 {
		t.Fatalf("stats = %+v results = %d", report.Stats, len(report.Results))
	}
	if _, ok := store.smartjects["First"]; !ok {
		t.Fatalf("persisted row lost on cancellation")
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	store := newFakeStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := testProcessor(store, nil).Run(ctx, []RawRow{energyRow("A")})
	if !report.Cancelled || len(report.Results) != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunBatchDelayHonorsCancellation(t *testing.T) {
	store := newFakeStore()
	ctx, cancel := context.WithCancel(context.Background())
	imported := 0
	store.onInsert = func(*models.Smartject) {
		imported++
		if imported == 2 {
			cancel()
		}
	}

	rows := make([]RawRow, 4)
	for i := range rows {
		rows[i] = energyRow(fmt.Sprintf("Record %d", i))
	}
	processor := NewProcessor(Options{
		Store:      store,
		Tags:       testTagIndex(),
		BatchSize:  2,
		BatchDelay: time.Hour,
	})

	done := make(chan *ImportReport, 1)
	go func() { done <- processor.Run(ctx, rows) }()

	select {
	case report := <-done:
		if !report.Cancelled || report.Stats.Imported != 2 {
			t.Fatalf("report = %+v", report.Stats)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run blocked in batch delay after cancellation")
	}
}

func TestReportSummary(t *testing.T) {
	report := &ImportReport{}
	report.Stats = ImportStats{Total: 5, Imported: 3, SkippedDuplicate: 1, Rejected: 1}
	summary := report.Summary()
	for _, want := range []string{"Total records: 5", "Imported: 3", "Rejected: 1"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
}
