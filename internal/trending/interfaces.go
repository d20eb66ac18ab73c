package trending

import (
	"context"
	"time"
)

// Fetcher retrieves the raw markup of the trending page.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Parser extracts the ordered trending records from raw markup. Zero
// recognizable rows is an error, never an empty slice.
type Parser interface {
	Parse(markup []byte) ([]Record, error)
}

// Enricher attaches auxiliary metadata to records. Implementations return a
// new slice and never mutate the input; a returned error means the whole
// enrichment pass failed and callers should keep the original records.
type Enricher interface {
	Enrich(ctx context.Context, records []Record) ([]Record, error)
}

// ArchiveWriter is the write side of the trending archive.
type ArchiveWriter interface {
	// UpsertDay writes records for a trending date, replacing same-day rows
	// for the same repository. It returns the number of rows changed.
	UpsertDay(ctx context.Context, records []Record, date time.Time, scrapedAt time.Time) (int64, error)

	// CountForDate reports how many rows exist for the given day.
	CountForDate(ctx context.Context, date time.Time) (int, error)
}

// ArchiveReader is the read side of the trending archive, consumed by the
// analytics engine.
type ArchiveReader interface {
	// RowsForDate returns the archived rows for one day.
	RowsForDate(ctx context.Context, date time.Time) ([]ArchiveRow, error)

	// RowsBetween returns all rows with start <= trending_date <= end.
	RowsBetween(ctx context.Context, start, end time.Time) ([]ArchiveRow, error)

	// AppearanceDates returns, for every repo present on date, its trending
	// dates within [since, date] in descending order.
	AppearanceDates(ctx context.Context, date, since time.Time) (map[RepoKey][]time.Time, error)

	// NewEntries returns the repos present on date that have no archive row
	// before it.
	NewEntries(ctx context.Context, date time.Time) (map[RepoKey]bool, error)

	// StarHistory returns, for every repo present on date, its star points
	// within [since, date] in ascending date order.
	StarHistory(ctx context.Context, date, since time.Time) (map[RepoKey][]StarPoint, error)
}

// ArchiveStore is the full archive contract.
type ArchiveStore interface {
	ArchiveWriter
	ArchiveReader
}

// CounterStore is a small TTL'd counter facade over an external cache store.
// Absent keys read as zero.
type CounterStore interface {
	Get(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
}

// SnapshotStore keeps raw page snapshots for post-mortem parser debugging.
type SnapshotStore interface {
	Put(ctx context.Context, path string, data []byte) (string, error)
}

// Notifier delivers a pre-formatted operational message to an external sink.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Hasher computes digests for snapshot deduplication.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces opaque identifiers for request tracing.
type IDGenerator interface {
	NewID() (string, error)
}
