package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-trending-archive/internal/pipeline"
	"github-trending-archive/internal/trending"
)

var day = time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubArchive struct {
	count    int
	countErr error
}

func (a *stubArchive) UpsertDay(context.Context, []trending.Record, time.Time, time.Time) (int64, error) {
	return 0, errors.New("not used")
}

func (a *stubArchive) CountForDate(context.Context, time.Time) (int, error) {
	return a.count, a.countErr
}

type fakeCounters struct {
	values  map[string]int64
	ttls    map[string]time.Duration
	getErr  error
	incrErr error
	delErr  error
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{values: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCounters) Get(_ context.Context, key string) (int64, error) {
	if f.getErr != nil {
		return 0, f.getErr
	}
	return f.values[key], nil
}

func (f *fakeCounters) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.values[key]++
	f.ttls[key] = ttl
	return f.values[key], nil
}

func (f *fakeCounters) Delete(_ context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.values, key)
	return nil
}

type stubRunner struct {
	result pipeline.Result
	calls  int
}

func (r *stubRunner) Run(_ context.Context, date time.Time) pipeline.Result {
	r.calls++
	res := r.result
	res.Date = date
	return res
}

type recordingNotifier struct{ messages []string }

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.messages = append(n.messages, message)
	return nil
}

func newController(
	runner Runner,
	archive trending.ArchiveWriter,
	counters trending.CounterStore,
	notifier trending.Notifier,
) *Controller {
	return New(runner, archive, counters, notifier, fixedClock{t: day.Add(6 * time.Hour)}, Config{}, nil)
}

func TestSkipsWhenDayAlreadyArchived(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	c := newController(runner, &stubArchive{count: 25}, newFakeCounters(), nil)

	out := c.RunForDate(context.Background(), day)
	assert.True(t, out.Success)
	assert.Equal(t, SkipAlreadyHasData, out.Skipped)
	assert.Zero(t, runner.calls)
}

func TestConfirmedGapWhenRetriesExhausted(t *testing.T) {
	t.Parallel()

	counters := newFakeCounters()
	counters.values["scrape_retry:2025-02-15"] = 3

	runner := &stubRunner{}
	notifier := &recordingNotifier{}
	c := newController(runner, &stubArchive{}, counters, notifier)

	out := c.RunForDate(context.Background(), day)
	assert.False(t, out.Success)
	assert.Equal(t, SkipMaxRetriesExceeded, out.Skipped)
	assert.Zero(t, runner.calls)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "confirmed gap")
}

func TestFirstAttemptSuccess(t *testing.T) {
	t.Parallel()

	counters := newFakeCounters()
	runner := &stubRunner{result: pipeline.Result{Success: true, RecordCount: 25}}
	c := newController(runner, &stubArchive{}, counters, nil)

	out := c.RunForDate(context.Background(), day)
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Attempt)
	assert.False(t, out.Recovered)
	assert.Empty(t, counters.values)
}

func TestRecoveryClearsCounter(t *testing.T) {
	t.Parallel()

	counters := newFakeCounters()
	counters.values["scrape_retry:2025-02-15"] = 1

	runner := &stubRunner{result: pipeline.Result{Success: true, RecordCount: 25}}
	notifier := &recordingNotifier{}
	c := newController(runner, &stubArchive{}, counters, notifier)

	out := c.RunForDate(context.Background(), day)
	assert.True(t, out.Success)
	assert.True(t, out.Recovered)
	assert.Equal(t, 2, out.Attempt)
	assert.NotContains(t, counters.values, "scrape_retry:2025-02-15")
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "recovered")
}

func TestFailureIncrementsCounterWithTTL(t *testing.T) {
	t.Parallel()

	counters := newFakeCounters()
	runner := &stubRunner{result: pipeline.Result{ErrorKind: trending.ErrKindFetch}}
	c := newController(runner, &stubArchive{}, counters, nil)

	out := c.RunForDate(context.Background(), day)
	assert.False(t, out.Success)
	assert.False(t, out.Recovered)
	assert.Equal(t, 1, out.Attempt)
	assert.Equal(t, int64(1), counters.values["scrape_retry:2025-02-15"])
	assert.Equal(t, 48*time.Hour, counters.ttls["scrape_retry:2025-02-15"])
}

func TestCounterReadFailureFailsOpen(t *testing.T) {
	t.Parallel()

	counters := newFakeCounters()
	counters.getErr = errors.New("redis down")

	runner := &stubRunner{result: pipeline.Result{Success: true}}
	c := newController(runner, &stubArchive{}, counters, nil)

	out := c.RunForDate(context.Background(), day)
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Attempt)
	assert.Equal(t, 1, runner.calls)
}

func TestCounterWriteFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	counters := newFakeCounters()
	counters.incrErr = errors.New("redis down")

	runner := &stubRunner{result: pipeline.Result{ErrorKind: trending.ErrKindParse}}
	c := newController(runner, &stubArchive{}, counters, nil)

	out := c.RunForDate(context.Background(), day)
	assert.False(t, out.Success)
	assert.Equal(t, 1, out.Attempt)
}

func TestArchivePrecheckFailureStillScrapes(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: pipeline.Result{Success: true}}
	c := newController(runner, &stubArchive{countErr: errors.New("db down")}, newFakeCounters(), nil)

	out := c.RunForDate(context.Background(), day)
	assert.True(t, out.Success)
	assert.Equal(t, 1, runner.calls)
}

func TestZeroDateUsesClockDay(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: pipeline.Result{Success: true}}
	c := newController(runner, &stubArchive{}, newFakeCounters(), nil)

	out := c.RunForDate(context.Background(), time.Time{})
	assert.Equal(t, day, out.Date)
}
