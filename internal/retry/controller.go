// Package retry implements the day-scoped retry controller around the
// scrape pipeline. The trending page has no historical replay, so retries
// are only meaningful within the same UTC day; once they are exhausted the
// day is a confirmed, permanent gap.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github-trending-archive/internal/metrics"
	"github-trending-archive/internal/pipeline"
	"github-trending-archive/internal/trending"
)

// Skip reasons reported on Outcome.
const (
	SkipAlreadyHasData     = "already_has_data"
	SkipMaxRetriesExceeded = "max_retries_exceeded"
)

const counterKeyPrefix = "scrape_retry:"

// Config controls controller behavior.
type Config struct {
	// MaxAttempts bounds scrape attempts per UTC day. Defaults to 2.
	MaxAttempts int
	// CounterTTL bounds the retry counter lifetime. Defaults to 48h.
	CounterTTL time.Duration
}

// Runner abstracts the pipeline so tests can substitute it.
type Runner interface {
	Run(ctx context.Context, date time.Time) pipeline.Result
}

// Outcome is the structured decision of one controller invocation.
type Outcome struct {
	Date      time.Time        `json:"date"`
	Success   bool             `json:"success"`
	Skipped   string           `json:"skipped,omitempty"`
	Attempt   int              `json:"attempt,omitempty"`
	Recovered bool             `json:"recovered"`
	Result    *pipeline.Result `json:"result,omitempty"`
}

// Controller decides per UTC day whether to skip, run, or declare a
// confirmed gap.
type Controller struct {
	runner   Runner
	archive  trending.ArchiveWriter
	counters trending.CounterStore
	notifier trending.Notifier
	clock    trending.Clock
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Controller. The notifier may be nil.
func New(
	runner Runner,
	archive trending.ArchiveWriter,
	counters trending.CounterStore,
	notifier trending.Notifier,
	clock trending.Clock,
	cfg Config,
	logger *zap.Logger,
) *Controller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.CounterTTL <= 0 {
		cfg.CounterTTL = 48 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		runner:   runner,
		archive:  archive,
		counters: counters,
		notifier: notifier,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// RunForDate executes the decision sequence for one UTC day. A zero date
// means "today". Counter bookkeeping failures are logged and never change
// the decision: scraping is prioritized over retry accounting.
func (c *Controller) RunForDate(ctx context.Context, date time.Time) Outcome {
	if date.IsZero() {
		date = c.clock.Now()
	}
	date = trending.DateOf(date)
	logger := c.logger.With(zap.String("trending_date", date.Format(time.DateOnly)))

	if count, err := c.archive.CountForDate(ctx, date); err != nil {
		logger.Warn("archive pre-check failed, proceeding with scrape", zap.Error(err))
	} else if count > 0 {
		logger.Info("day already archived, skipping", zap.Int("rows", count))
		metrics.ObserveRetrySkip(SkipAlreadyHasData)
		return Outcome{Date: date, Success: true, Skipped: SkipAlreadyHasData}
	}

	attempts := c.readCounter(ctx, logger, date)
	if attempts >= int64(c.cfg.MaxAttempts) {
		logger.Error("retries exhausted, day is a confirmed gap",
			zap.Int64("attempts", attempts),
			zap.Int("max_attempts", c.cfg.MaxAttempts),
		)
		metrics.ObserveRetrySkip(SkipMaxRetriesExceeded)
		c.notify(ctx, logger, fmt.Sprintf(
			"trending archive: %s is a confirmed gap after %d failed attempts",
			date.Format(time.DateOnly), attempts,
		))
		return Outcome{Date: date, Skipped: SkipMaxRetriesExceeded}
	}

	result := c.runner.Run(ctx, date)
	attempt := int(attempts) + 1

	if !result.Success {
		c.incrementCounter(ctx, logger, date)
		logger.Warn("scrape attempt failed",
			zap.Int("attempt", attempt),
			zap.String("error_kind", string(result.ErrorKind)),
		)
		return Outcome{Date: date, Attempt: attempt, Result: &result}
	}

	recovered := attempts > 0
	if recovered {
		c.clearCounter(ctx, logger, date)
		c.notify(ctx, logger, fmt.Sprintf(
			"trending archive: %s recovered on attempt %d (%d records)",
			date.Format(time.DateOnly), attempt, result.RecordCount,
		))
	}
	return Outcome{
		Date:      date,
		Success:   true,
		Attempt:   attempt,
		Recovered: recovered,
		Result:    &result,
	}
}

// readCounter fails open: a counter-store outage must not block scraping.
func (c *Controller) readCounter(ctx context.Context, logger *zap.Logger, date time.Time) int64 {
	count, err := c.counters.Get(ctx, counterKey(date))
	if err != nil {
		logger.Warn("retry counter read failed, assuming zero", zap.Error(err))
		return 0
	}
	return count
}

func (c *Controller) incrementCounter(ctx context.Context, logger *zap.Logger, date time.Time) {
	if _, err := c.counters.Increment(ctx, counterKey(date), c.cfg.CounterTTL); err != nil {
		logger.Warn("retry counter increment failed", zap.Error(err))
	}
}

func (c *Controller) clearCounter(ctx context.Context, logger *zap.Logger, date time.Time) {
	if err := c.counters.Delete(ctx, counterKey(date)); err != nil {
		logger.Warn("retry counter delete failed", zap.Error(err))
	}
}

func (c *Controller) notify(ctx context.Context, logger *zap.Logger, message string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, message); err != nil {
		logger.Warn("notification failed", zap.Error(err))
	}
}

func counterKey(date time.Time) string {
	return counterKeyPrefix + date.Format(time.DateOnly)
}
