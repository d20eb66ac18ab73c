package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-trending-archive/internal/trending"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubFetcher struct {
	body []byte
	err  error
}

func (f stubFetcher) Fetch(context.Context) ([]byte, error) { return f.body, f.err }

type stubParser struct {
	records []trending.Record
	err     error
}

func (p stubParser) Parse([]byte) ([]trending.Record, error) { return p.records, p.err }

type stubEnricher struct {
	err    error
	topics []string
}

func (e stubEnricher) Enrich(_ context.Context, records []trending.Record) ([]trending.Record, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([]trending.Record, len(records))
	copy(out, records)
	for i := range out {
		out[i].Topics = e.topics
	}
	return out, nil
}

type stubArchive struct {
	err      error
	gotDate  time.Time
	gotRecs  []trending.Record
	rowCount int
}

func (a *stubArchive) UpsertDay(_ context.Context, records []trending.Record, date, _ time.Time) (int64, error) {
	if a.err != nil {
		return 0, a.err
	}
	a.gotRecs = records
	a.gotDate = date
	return int64(len(records)), nil
}

func (a *stubArchive) CountForDate(context.Context, time.Time) (int, error) {
	return a.rowCount, nil
}

var testRecords = []trending.Record{
	{Owner: "golang", Name: "go", StarsToday: 1204},
	{Owner: "rust-lang", Name: "rust", StarsToday: 560},
}

func newPipeline(f trending.Fetcher, p trending.Parser, e trending.Enricher, a trending.ArchiveWriter) *Pipeline {
	clock := fixedClock{t: time.Date(2025, 2, 15, 12, 30, 0, 0, time.UTC)}
	return New(f, p, e, a, nil, nil, clock, Config{}, nil)
}

func TestRunSuccess(t *testing.T) {
	t.Parallel()

	archive := &stubArchive{}
	p := newPipeline(
		stubFetcher{body: []byte("<html/>")},
		stubParser{records: testRecords},
		stubEnricher{topics: []string{"systems"}},
		archive,
	)

	result := p.Run(context.Background(), time.Time{})
	require.True(t, result.Success)
	assert.Equal(t, 2, result.RecordCount)
	assert.Equal(t, int64(2), result.RowsWritten)
	assert.Empty(t, result.ErrorKind)
	assert.NoError(t, result.Err)

	// Zero target date resolves to the clock's UTC day.
	assert.Equal(t, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), result.Date)
	assert.Equal(t, result.Date, archive.gotDate)

	// Enriched topics flow into persistence.
	require.Len(t, archive.gotRecs, 2)
	assert.Equal(t, []string{"systems"}, archive.gotRecs[0].Topics)
}

func TestRunHonorsExplicitDate(t *testing.T) {
	t.Parallel()

	archive := &stubArchive{}
	p := newPipeline(
		stubFetcher{body: []byte("<html/>")},
		stubParser{records: testRecords},
		nil,
		archive,
	)

	target := time.Date(2025, 2, 10, 18, 0, 0, 0, time.UTC)
	result := p.Run(context.Background(), target)
	require.True(t, result.Success)
	assert.Equal(t, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), archive.gotDate)
}

func TestRunTagsStageFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		fetcher  trending.Fetcher
		parser   trending.Parser
		archive  *stubArchive
		wantKind trending.ErrorKind
	}{
		{
			name:     "fetch failure",
			fetcher:  stubFetcher{err: errors.New("status 503")},
			parser:   stubParser{records: testRecords},
			archive:  &stubArchive{},
			wantKind: trending.ErrKindFetch,
		},
		{
			name:     "parse failure",
			fetcher:  stubFetcher{body: []byte("<html/>")},
			parser:   stubParser{err: errors.New("no repository rows found")},
			archive:  &stubArchive{},
			wantKind: trending.ErrKindParse,
		},
		{
			name:     "persist failure",
			fetcher:  stubFetcher{body: []byte("<html/>")},
			parser:   stubParser{records: testRecords},
			archive:  &stubArchive{err: errors.New("connection refused")},
			wantKind: trending.ErrKindPersist,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := newPipeline(tc.fetcher, tc.parser, nil, tc.archive)
			result := p.Run(context.Background(), time.Time{})

			assert.False(t, result.Success)
			assert.Equal(t, tc.wantKind, result.ErrorKind)
			assert.Equal(t, tc.wantKind, trending.KindOf(result.Err))
		})
	}
}

func TestRunEnrichmentFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	archive := &stubArchive{}
	p := newPipeline(
		stubFetcher{body: []byte("<html/>")},
		stubParser{records: testRecords},
		stubEnricher{err: errors.New("rate limited")},
		archive,
	)

	result := p.Run(context.Background(), time.Time{})
	require.True(t, result.Success)

	// Records continue through with empty enrichment.
	require.Len(t, archive.gotRecs, 2)
	assert.Nil(t, archive.gotRecs[0].Topics)
}
