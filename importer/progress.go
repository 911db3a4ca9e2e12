package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrRateLimited is returned by a Notifier whose channel refused delivery.
// It is retryable and never reaches the row pipeline.
var ErrRateLimited = errors.New("notification rate limited")

// Notifier delivers human-readable status text to the operator's channel.
type Notifier interface {
	Emit(ctx context.Context, text string) error
}

// ProgressReporter throttles status emission to at most one message per
// interval, coalescing completed rows in between. Emission failures are
// logged and retried at the next tick; they never block or fail rows.
type ProgressReporter struct {
	notifier Notifier
	interval time.Duration
	logger   *logrus.Logger

	lastEmit time.Time
	pending  bool
	now      func() time.Time
}

func NewProgressReporter(notifier Notifier, interval time.Duration, logger *logrus.Logger) *ProgressReporter {
	return &ProgressReporter{
		notifier: notifier,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Report observes one completed row. It emits only when the configured
// interval has elapsed since the last successful emission.
func (r *ProgressReporter) Report(ctx context.Context, processed, total int, title string) {
	if r == nil || r.notifier == nil {
		return
	}
	now := r.now()
	if !r.lastEmit.IsZero() && now.Sub(r.lastEmit) < r.interval && !r.lastOfRun(processed, total) {
		r.pending = true
		return
	}

	text := fmt.Sprintf("⏳ Processing %d/%d\n%s", processed, total, title)
	if err := r.notifier.Emit(ctx, text); err != nil {
		if errors.Is(err, ErrRateLimited) {
			// Deferred; the next tick carries the coalesced progress.
			r.pending = true
			return
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{
				"module":   "importer",
				"funcName": "ProgressReporter.Report",
			}).Warn("progress emission failed: " + err.Error())
		}
		return
	}
	r.lastEmit = now
	r.pending = false
}

// Finish emits the final text unconditionally, retrying once after the
// interval when the channel is rate limited.
func (r *ProgressReporter) Finish(ctx context.Context, text string) {
	if r == nil || r.notifier == nil {
		return
	}
	err := r.notifier.Emit(ctx, text)
	if errors.Is(err, ErrRateLimited) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.interval):
		}
		err = r.notifier.Emit(ctx, text)
	}
	if err != nil && r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"module":   "importer",
			"funcName": "ProgressReporter.Finish",
		}).Warn("final progress emission failed: " + err.Error())
	}
}

func (r *ProgressReporter) lastOfRun(processed, total int) bool {
	return total > 0 && processed == total
}
