package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	gh "github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-trending-archive/internal/trending"
)

func newTestEnricher(t *testing.T, handler http.Handler) (*Enricher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	e := New(Config{BatchSize: 4}, nil)
	client := gh.NewClient(srv.Client())
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	e.gh = client
	return e, srv
}

func TestEnrichAttachesLowercaseTopics(t *testing.T) {
	t.Parallel()

	e, _ := newTestEnricher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/golang/go/topics", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"names":["Language","compiler"," "]}`))
	}))

	in := []trending.Record{{Owner: "golang", Name: "go"}}
	out, err := e.Enrich(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []string{"language", "compiler"}, out[0].Topics)

	// Input records stay untouched.
	assert.Nil(t, in[0].Topics)
}

func TestEnrichTreatsNotFoundAsEmpty(t *testing.T) {
	t.Parallel()

	e, _ := newTestEnricher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))

	out, err := e.Enrich(context.Background(), []trending.Record{{Owner: "gone", Name: "repo"}})
	require.NoError(t, err)
	assert.Empty(t, out[0].Topics)
}

func TestEnrichIsolatesPerRecordFailures(t *testing.T) {
	t.Parallel()

	e, _ := newTestEnricher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/bad/repo/topics" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"names":["ok"]}`))
	}))

	out, err := e.Enrich(context.Background(), []trending.Record{
		{Owner: "bad", Name: "repo"},
		{Owner: "good", Name: "repo"},
	})
	require.NoError(t, err)
	assert.Empty(t, out[0].Topics)
	assert.Equal(t, []string{"ok"}, out[1].Topics)
}

func TestEnrichBoundsConcurrencyPerBatch(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	e, _ := newTestEnricher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"names":[]}`))
	}))
	e.cfg.BatchSize = 2

	records := make([]trending.Record, 7)
	for i := range records {
		records[i] = trending.Record{Owner: "o", Name: string(rune('a' + i))}
	}
	_, err := e.Enrich(context.Background(), records)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestEnrichStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	e, _ := newTestEnricher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Enrich(ctx, []trending.Record{{Owner: "a", Name: "b"}})
	assert.Error(t, err)
}
