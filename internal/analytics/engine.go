// Package analytics derives read-side views from the trending archive:
// streaks, new-entry flags, star history, weekly rollups, and language
// distributions. Everything here is recomputed per request; nothing is
// persisted.
package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github-trending-archive/internal/trending"
)

// Config controls lookback windows.
type Config struct {
	// StreakLookbackDays bounds the streak walk. Defaults to 60.
	StreakLookbackDays int
	// HistoryLookbackDays bounds star history. Defaults to 365.
	HistoryLookbackDays int
}

// Engine answers analytics queries over the archive.
type Engine struct {
	archive trending.ArchiveReader
	cfg     Config
	logger  *zap.Logger
}

// New constructs an Engine.
func New(archive trending.ArchiveReader, cfg Config, logger *zap.Logger) *Engine {
	if cfg.StreakLookbackDays <= 0 {
		cfg.StreakLookbackDays = 60
	}
	if cfg.HistoryLookbackDays <= 0 {
		cfg.HistoryLookbackDays = 365
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{archive: archive, cfg: cfg, logger: logger}
}

// RepoView is one archived repository with its derived enrichments.
type RepoView struct {
	trending.ArchiveRow
	Streak      int                  `json:"streak"`
	IsNewEntry  bool                 `json:"is_new_entry"`
	StarHistory []trending.StarPoint `json:"star_history,omitempty"`
}

// TrendingForDate returns the archived rows for one day decorated with
// streaks, new-entry flags, and star history. Each enrichment degrades
// independently: a failing sub-query logs and leaves its field at the
// default rather than failing the read.
func (e *Engine) TrendingForDate(ctx context.Context, date time.Time) ([]RepoView, error) {
	date = trending.DateOf(date)
	rows, err := e.archive.RowsForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	streaks, err := e.Streaks(ctx, date)
	if err != nil {
		e.logger.Warn("streak computation failed", zap.Error(err))
		streaks = nil
	}
	newEntries, err := e.archive.NewEntries(ctx, date)
	if err != nil {
		e.logger.Warn("new-entry detection failed", zap.Error(err))
		newEntries = nil
	}
	histories, err := e.StarHistories(ctx, date)
	if err != nil {
		e.logger.Warn("star history lookup failed", zap.Error(err))
		histories = nil
	}

	views := make([]RepoView, len(rows))
	for i, row := range rows {
		key := row.Key()
		view := RepoView{ArchiveRow: row, Streak: 1}
		if s, ok := streaks[key]; ok {
			view.Streak = s
		}
		view.IsNewEntry = newEntries[key]
		view.StarHistory = histories[key]
		views[i] = view
	}
	return views, nil
}

// Streaks computes, for every repo present on date, the number of
// consecutive calendar days it has trended ending at date. A repo present
// on date always has a streak of at least 1.
func (e *Engine) Streaks(ctx context.Context, date time.Time) (map[trending.RepoKey]int, error) {
	date = trending.DateOf(date)
	since := date.AddDate(0, 0, -e.cfg.StreakLookbackDays)

	appearances, err := e.archive.AppearanceDates(ctx, date, since)
	if err != nil {
		return nil, err
	}

	streaks := make(map[trending.RepoKey]int, len(appearances))
	for key, dates := range appearances {
		streaks[key] = consecutiveRun(dates, date)
	}
	return streaks, nil
}

// consecutiveRun walks dates (newest first) from the expected day backwards,
// counting matches until the first gap.
func consecutiveRun(dates []time.Time, expected time.Time) int {
	streak := 0
	for _, d := range dates {
		if !trending.SameDay(d, expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	if streak == 0 {
		return 1
	}
	return streak
}

// StarHistories returns per-repo star history for the repos present on
// date. A single point is not a history; repos with fewer than two points
// are omitted.
func (e *Engine) StarHistories(ctx context.Context, date time.Time) (map[trending.RepoKey][]trending.StarPoint, error) {
	date = trending.DateOf(date)
	since := date.AddDate(0, 0, -e.cfg.HistoryLookbackDays)

	histories, err := e.archive.StarHistory(ctx, date, since)
	if err != nil {
		return nil, err
	}
	for key, points := range histories {
		if len(points) < 2 {
			delete(histories, key)
		}
	}
	return histories, nil
}
