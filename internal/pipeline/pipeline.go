// Package pipeline orchestrates one scrape run as a linear stage machine:
// fetching -> parsing -> enriching -> persisting.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github-trending-archive/internal/metrics"
	"github-trending-archive/internal/trending"
)

// Config controls pipeline behavior.
type Config struct {
	// JitterMin/JitterMax bound the random pre-fetch delay.
	JitterMin time.Duration
	JitterMax time.Duration
}

// Result is the structured outcome of one pipeline run.
type Result struct {
	Success     bool               `json:"success"`
	Date        time.Time          `json:"date"`
	RecordCount int                `json:"record_count"`
	RowsWritten int64              `json:"rows_written"`
	Duration    time.Duration      `json:"duration"`
	ErrorKind   trending.ErrorKind `json:"error_kind,omitempty"`
	Err         error              `json:"-"`
}

// Pipeline runs the scrape stages in strict sequence. The enriching stage is
// best-effort; every other stage failure is tagged with its stage and ends
// the run.
type Pipeline struct {
	fetcher   trending.Fetcher
	parser    trending.Parser
	enricher  trending.Enricher
	archive   trending.ArchiveWriter
	snapshots trending.SnapshotStore
	hasher    trending.Hasher
	clock     trending.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Pipeline. Enricher and snapshots may be nil to disable
// those stages.
func New(
	fetcher trending.Fetcher,
	parser trending.Parser,
	enricher trending.Enricher,
	archive trending.ArchiveWriter,
	snapshots trending.SnapshotStore,
	hasher trending.Hasher,
	clock trending.Clock,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetcher:   fetcher,
		parser:    parser,
		enricher:  enricher,
		archive:   archive,
		snapshots: snapshots,
		hasher:    hasher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes one scrape for the given trending date. A zero date means
// "today" in UTC, so scheduled runs and backfill/testing share one path.
func (p *Pipeline) Run(ctx context.Context, date time.Time) Result {
	start := p.clock.Now()
	if date.IsZero() {
		date = start
	}
	date = trending.DateOf(date)
	logger := p.logger.With(zap.String("trending_date", date.Format(time.DateOnly)))

	markup, err := p.fetch(ctx, logger)
	if err != nil {
		return p.fail(logger, start, date, trending.WrapStage(trending.ErrKindFetch, err))
	}

	records, err := p.parser.Parse(markup)
	if err != nil {
		return p.fail(logger, start, date, trending.WrapStage(trending.ErrKindParse, err))
	}
	logger.Info("page parsed", zap.Int("records", len(records)))
	metrics.ObserveRecordsParsed(len(records))

	records = p.enrich(ctx, logger, records)

	rowsWritten, err := p.archive.UpsertDay(ctx, records, date, p.clock.Now())
	if err != nil {
		return p.fail(logger, start, date, trending.WrapStage(trending.ErrKindPersist, err))
	}
	metrics.ObserveRowsWritten(rowsWritten)

	result := Result{
		Success:     true,
		Date:        date,
		RecordCount: len(records),
		RowsWritten: rowsWritten,
		Duration:    p.clock.Now().Sub(start),
	}
	logger.Info("scrape complete",
		zap.Int("records", result.RecordCount),
		zap.Int64("rows_written", result.RowsWritten),
		zap.Duration("duration", result.Duration),
	)
	metrics.ObserveScrapeRun("success", result.Duration)
	return result
}

func (p *Pipeline) fetch(ctx context.Context, logger *zap.Logger) ([]byte, error) {
	if err := trending.Jitter(ctx, p.cfg.JitterMin, p.cfg.JitterMax); err != nil {
		return nil, err
	}
	markup, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	p.snapshot(ctx, logger, markup)
	return markup, nil
}

// snapshot keeps the raw markup for post-mortem debugging; failures are
// logged and never fail the run.
func (p *Pipeline) snapshot(ctx context.Context, logger *zap.Logger, markup []byte) {
	if p.snapshots == nil || p.hasher == nil {
		return
	}
	hash, err := p.hasher.Hash(markup)
	if err != nil {
		logger.Warn("snapshot hash failed", zap.Error(err))
		return
	}
	path := fmt.Sprintf("%s/%s.html", p.clock.Now().Format(time.DateOnly), hash)
	if _, err := p.snapshots.Put(ctx, path, markup); err != nil {
		logger.Warn("snapshot write failed", zap.Error(err))
	}
}

// enrich runs the best-effort enrichment stage. On failure the original
// records continue through with empty enrichment.
func (p *Pipeline) enrich(ctx context.Context, logger *zap.Logger, records []trending.Record) []trending.Record {
	if p.enricher == nil {
		return records
	}
	enriched, err := p.enricher.Enrich(ctx, records)
	if err != nil {
		logger.Warn("enrichment failed, continuing without topics", zap.Error(err))
		return records
	}
	return enriched
}

func (p *Pipeline) fail(logger *zap.Logger, start, date time.Time, err error) Result {
	kind := trending.KindOf(err)
	duration := p.clock.Now().Sub(start)
	logger.Error("scrape failed",
		zap.String("error_kind", string(kind)),
		zap.Duration("duration", duration),
		zap.Error(err),
	)
	metrics.ObserveScrapeRun(string(kind), duration)
	return Result{
		Date:      date,
		Duration:  duration,
		ErrorKind: kind,
		Err:       err,
	}
}
