// Package github enriches trending records with repository topics from the
// GitHub REST API. Enrichment is strictly best-effort: the archive must not
// depend on a secondary source being up.
package github

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/go-github/v62/github"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github-trending-archive/internal/trending"
)

// Config controls enrichment behavior.
type Config struct {
	// Token authenticates API calls when set; anonymous calls work but are
	// rate-limited hard.
	Token string
	// BatchSize bounds concurrent topic lookups. Defaults to 4.
	BatchSize int
}

// Enricher looks up topics for each record.
type Enricher struct {
	gh     *github.Client
	cfg    Config
	logger *zap.Logger
}

// New builds an Enricher.
func New(cfg Config, logger *zap.Logger) *Enricher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	gh := github.NewClient(nil)
	if cfg.Token != "" {
		gh = gh.WithAuthToken(cfg.Token)
	}
	return &Enricher{gh: gh, cfg: cfg, logger: logger}
}

// Enrich returns a copy of records with Topics populated where the lookup
// succeeded. Records are processed in fixed-size batches, each batch awaited
// fully before the next starts; a failed lookup leaves that record's topics
// empty and never cancels its siblings. Enrich only returns an error when
// the context is done.
func (e *Enricher) Enrich(ctx context.Context, records []trending.Record) ([]trending.Record, error) {
	out := make([]trending.Record, len(records))
	copy(out, records)

	for start := 0; start < len(out); start += e.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + e.cfg.BatchSize
		if end > len(out) {
			end = len(out)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				topics, err := e.fetchTopics(gctx, out[i].Owner, out[i].Name)
				if err != nil {
					e.logger.Debug("topic lookup failed",
						zap.String("repo", out[i].Key().String()),
						zap.Error(err),
					)
					return nil
				}
				out[i].Topics = topics
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// fetchTopics treats 404 as "no topics": repos do get deleted or renamed
// between trending and enrichment.
func (e *Enricher) fetchTopics(ctx context.Context, owner, name string) ([]string, error) {
	topics, resp, err := e.gh.Repositories.ListAllTopics(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}
