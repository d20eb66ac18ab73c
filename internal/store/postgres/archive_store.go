// Package postgres provides the Postgres-backed trending archive.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github-trending-archive/internal/trending"
)

// Config controls the Postgres connection pool for archive rows.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Close()
}

// ArchiveStore reads and writes trending archive rows.
type ArchiveStore struct {
	pool db
}

// New creates a Postgres-backed ArchiveStore using the provided config.
func New(ctx context.Context, cfg Config) (*ArchiveStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ArchiveStore{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for
// testing).
func NewWithPool(pool db) (*ArchiveStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ArchiveStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ArchiveStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const upsertSQL = `
INSERT INTO trending_repos (
	owner,
	name,
	description,
	language,
	language_color,
	total_stars,
	forks,
	stars_today,
	topics,
	trending_date,
	scraped_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
ON CONFLICT (owner, name, trending_date) DO UPDATE SET
	description = EXCLUDED.description,
	language = EXCLUDED.language,
	language_color = EXCLUDED.language_color,
	total_stars = EXCLUDED.total_stars,
	forks = EXCLUDED.forks,
	stars_today = EXCLUDED.stars_today,
	topics = EXCLUDED.topics,
	scraped_at = EXCLUDED.scraped_at`

// UpsertDay writes all records for one trending date as a single batch. The
// identity triple (owner, name, trending_date) is the conflict key; the
// newest scrape wins. The returned count sums rows affected by statements
// that succeeded, so a partially failed batch still reports what actually
// changed.
func (s *ArchiveStore) UpsertDay(
	ctx context.Context,
	records []trending.Record,
	date time.Time,
	scrapedAt time.Time,
) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	date = trending.DateOf(date)

	batch := &pgx.Batch{}
	for _, rec := range records {
		topicsJSON, err := json.Marshal(topicsOrEmpty(rec.Topics))
		if err != nil {
			return 0, fmt.Errorf("marshal topics for %s: %w", rec.Key(), err)
		}
		batch.Queue(upsertSQL,
			rec.Owner,
			rec.Name,
			rec.Description,
			rec.Language,
			rec.LanguageColor,
			rec.TotalStars,
			rec.Forks,
			rec.StarsToday,
			topicsJSON,
			date,
			scrapedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var written int64
	var firstErr error
	for range records {
		tag, err := results.Exec()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		written += tag.RowsAffected()
	}
	if firstErr != nil {
		return written, fmt.Errorf("execute upsert batch: %w", firstErr)
	}
	return written, nil
}

// CountForDate reports how many rows exist for the given day.
func (s *ArchiveStore) CountForDate(ctx context.Context, date time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM trending_repos WHERE trending_date = $1`,
		trending.DateOf(date),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count rows for date: %w", err)
	}
	return count, nil
}

const rowColumns = `
	owner, name, description, language, language_color,
	total_stars, forks, stars_today, topics, trending_date, scraped_at`

// RowsForDate returns the archived rows for one day, highest daily star
// gain first.
func (s *ArchiveStore) RowsForDate(ctx context.Context, date time.Time) ([]trending.ArchiveRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+rowColumns+`
		FROM trending_repos
		WHERE trending_date = $1
		ORDER BY stars_today DESC, owner, name`,
		trending.DateOf(date),
	)
	if err != nil {
		return nil, fmt.Errorf("query rows for date: %w", err)
	}
	return scanArchiveRows(rows)
}

// RowsBetween returns all rows with start <= trending_date <= end.
func (s *ArchiveStore) RowsBetween(ctx context.Context, start, end time.Time) ([]trending.ArchiveRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+rowColumns+`
		FROM trending_repos
		WHERE trending_date BETWEEN $1 AND $2
		ORDER BY trending_date, stars_today DESC, owner, name`,
		trending.DateOf(start), trending.DateOf(end),
	)
	if err != nil {
		return nil, fmt.Errorf("query rows between: %w", err)
	}
	return scanArchiveRows(rows)
}

// AppearanceDates returns, for every repo trending on date, its trending
// dates within [since, date] newest first.
func (s *ArchiveStore) AppearanceDates(
	ctx context.Context,
	date, since time.Time,
) (map[trending.RepoKey][]time.Time, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT hist.owner, hist.name, hist.trending_date
		FROM trending_repos hist
		JOIN trending_repos today
			ON today.owner = hist.owner
			AND today.name = hist.name
			AND today.trending_date = $1
		WHERE hist.trending_date BETWEEN $2 AND $1
		ORDER BY hist.owner, hist.name, hist.trending_date DESC`,
		trending.DateOf(date), trending.DateOf(since),
	)
	if err != nil {
		return nil, fmt.Errorf("query appearance dates: %w", err)
	}
	defer rows.Close()

	out := make(map[trending.RepoKey][]time.Time)
	for rows.Next() {
		var key trending.RepoKey
		var d time.Time
		if err := rows.Scan(&key.Owner, &key.Name, &d); err != nil {
			return nil, fmt.Errorf("scan appearance date: %w", err)
		}
		out[key] = append(out[key], d.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appearance dates: %w", err)
	}
	return out, nil
}

// NewEntries returns the repos trending on date with no archive row before
// it.
func (s *ArchiveStore) NewEntries(ctx context.Context, date time.Time) (map[trending.RepoKey]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cur.owner, cur.name
		FROM trending_repos cur
		WHERE cur.trending_date = $1
		AND NOT EXISTS (
			SELECT 1 FROM trending_repos prev
			WHERE prev.owner = cur.owner
			AND prev.name = cur.name
			AND prev.trending_date < $1
		)`,
		trending.DateOf(date),
	)
	if err != nil {
		return nil, fmt.Errorf("query new entries: %w", err)
	}
	defer rows.Close()

	out := make(map[trending.RepoKey]bool)
	for rows.Next() {
		var key trending.RepoKey
		if err := rows.Scan(&key.Owner, &key.Name); err != nil {
			return nil, fmt.Errorf("scan new entry: %w", err)
		}
		out[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate new entries: %w", err)
	}
	return out, nil
}

// StarHistory returns, for every repo trending on date, its star points
// within [since, date] oldest first.
func (s *ArchiveStore) StarHistory(
	ctx context.Context,
	date, since time.Time,
) (map[trending.RepoKey][]trending.StarPoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT hist.owner, hist.name, hist.trending_date, hist.stars_today
		FROM trending_repos hist
		JOIN trending_repos today
			ON today.owner = hist.owner
			AND today.name = hist.name
			AND today.trending_date = $1
		WHERE hist.trending_date BETWEEN $2 AND $1
		ORDER BY hist.owner, hist.name, hist.trending_date ASC`,
		trending.DateOf(date), trending.DateOf(since),
	)
	if err != nil {
		return nil, fmt.Errorf("query star history: %w", err)
	}
	defer rows.Close()

	out := make(map[trending.RepoKey][]trending.StarPoint)
	for rows.Next() {
		var key trending.RepoKey
		var point trending.StarPoint
		if err := rows.Scan(&key.Owner, &key.Name, &point.Date, &point.StarsToday); err != nil {
			return nil, fmt.Errorf("scan star point: %w", err)
		}
		point.Date = point.Date.UTC()
		out[key] = append(out[key], point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate star history: %w", err)
	}
	return out, nil
}

func scanArchiveRows(rows pgx.Rows) ([]trending.ArchiveRow, error) {
	defer rows.Close()

	var out []trending.ArchiveRow
	for rows.Next() {
		var row trending.ArchiveRow
		var topicsJSON []byte
		err := rows.Scan(
			&row.Owner,
			&row.Name,
			&row.Description,
			&row.Language,
			&row.LanguageColor,
			&row.TotalStars,
			&row.Forks,
			&row.StarsToday,
			&topicsJSON,
			&row.TrendingDate,
			&row.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		if len(topicsJSON) > 0 {
			if err := json.Unmarshal(topicsJSON, &row.Topics); err != nil {
				return nil, fmt.Errorf("unmarshal topics: %w", err)
			}
		}
		row.TrendingDate = row.TrendingDate.UTC()
		row.ScrapedAt = row.ScrapedAt.UTC()
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}
	return out, nil
}

func topicsOrEmpty(topics []string) []string {
	if topics == nil {
		return []string{}
	}
	return topics
}
