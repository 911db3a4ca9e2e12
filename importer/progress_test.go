package importer

import (
	"context"
	"errors"
	"testing"
	"time"
)

type captureNotifier struct {
	texts []string
	errs  []error // queued per call, nil once exhausted
}

func (n *captureNotifier) Emit(ctx context.Context, text string) error {
	if len(n.errs) > 0 {
		err := n.errs[0]
		n.errs = n.errs[1:]
		if err != nil {
			return err
		}
	}
	n.texts = append(n.texts, text)
	return nil
}

func throttledReporter(notifier Notifier, interval time.Duration) (*ProgressReporter, *time.Time) {
	r := NewProgressReporter(notifier, interval, nil)
	clock := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }
	return r, &clock
}

func TestProgressReporterThrottles(t *testing.T) {
	notifier := &captureNotifier{}
	r, clock := throttledReporter(notifier, 2*time.Second)
	ctx := context.Background()

	r.Report(ctx, 1, 10, "first")
	if len(notifier.texts) != 1 {
		t.Fatalf("first report must emit, got %d", len(notifier.texts))
	}

	*clock = clock.Add(500 * time.Millisecond)
	r.Report(ctx, 2, 10, "second")
	*clock = clock.Add(500 * time.Millisecond)
	r.Report(ctx, 3, 10, "third")
	if len(notifier.texts) != 1 {
		t.Fatalf("reports inside the interval must coalesce, got %d", len(notifier.texts))
	}

	*clock = clock.Add(2 * time.Second)
	r.Report(ctx, 4, 10, "fourth")
	if len(notifier.texts) != 2 {
		t.Fatalf("report after the interval must emit, got %d", len(notifier.texts))
	}
	// The emitted text carries the latest counts, not the suppressed ones.
	if notifier.texts[1] != "⏳ Processing 4/10\nfourth" {
		t.Fatalf("text = %q", notifier.texts[1])
	}
}

func TestProgressReporterAlwaysEmitsLastRow(t *testing.T) {
	notifier := &captureNotifier{}
	r, clock := throttledReporter(notifier, time.Hour)
	ctx := context.Background()

	r.Report(ctx, 1, 2, "first")
	*clock = clock.Add(time.Millisecond)
	r.Report(ctx, 2, 2, "last")
	if len(notifier.texts) != 2 {
		t.Fatalf("final row must bypass throttling, got %d", len(notifier.texts))
	}
}

func TestProgressReporterDefersOnRateLimit(t *testing.T) {
	notifier := &captureNotifier{errs: []error{ErrRateLimited}}
	r, clock := throttledReporter(notifier, 2*time.Second)
	ctx := context.Background()

	r.Report(ctx, 1, 10, "first")
	if len(notifier.texts) != 0 {
		t.Fatalf("rate-limited emission must not be recorded")
	}

	// The next tick carries the coalesced progress.
	*clock = clock.Add(3 * time.Second)
	r.Report(ctx, 5, 10, "fifth")
	if len(notifier.texts) != 1 || notifier.texts[0] != "⏳ Processing 5/10\nfifth" {
		t.Fatalf("texts = %v", notifier.texts)
	}
}

func TestProgressReporterIgnoresOtherEmitErrors(t *testing.T) {
	notifier := &captureNotifier{errs: []error{errors.New("chat not found")}}
	r, clock := throttledReporter(notifier, 2*time.Second)
	ctx := context.Background()

	r.Report(ctx, 1, 10, "first")
	*clock = clock.Add(3 * time.Second)
	r.Report(ctx, 2, 10, "second")
	if len(notifier.texts) != 1 {
		t.Fatalf("texts = %v", notifier.texts)
	}
}

func TestProgressFinishRetriesOnceOnRateLimit(t *testing.T) {
	notifier := &captureNotifier{errs: []error{ErrRateLimited}}
	r := NewProgressReporter(notifier, 10*time.Millisecond, nil)

	r.Finish(context.Background(), "done")
	if len(notifier.texts) != 1 || notifier.texts[0] != "done" {
		t.Fatalf("texts = %v", notifier.texts)
	}
}

func TestProgressFinishStopsOnCancelledContext(t *testing.T) {
	notifier := &captureNotifier{errs: []error{ErrRateLimited}}
	r := NewProgressReporter(notifier, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Finish(ctx, "done")
	if len(notifier.texts) != 0 {
		t.Fatalf("texts = %v", notifier.texts)
	}
}

func TestProgressReporterNilSafe(t *testing.T) {
	var r *ProgressReporter
	r.Report(context.Background(), 1, 1, "x")
	r.Finish(context.Background(), "x")
}
