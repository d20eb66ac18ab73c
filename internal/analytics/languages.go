package analytics

import (
	"context"
	"sort"
	"time"

	"github-trending-archive/internal/trending"
)

// LanguageDistribution buckets the repos archived in [start, end] by
// language. For multi-day ranges a repo is counted once per language, not
// once per row. Percentages use largest-remainder rounding in integer
// tenths so they always sum to exactly 100.0.
func (e *Engine) LanguageDistribution(ctx context.Context, start, end time.Time) ([]trending.LanguageShare, error) {
	rows, err := e.archive.RowsBetween(ctx, trending.DateOf(start), trending.DateOf(end))
	if err != nil {
		return nil, err
	}

	type bucket struct {
		repos map[trending.RepoKey]struct{}
		color string
	}
	buckets := make(map[string]*bucket)
	for _, row := range rows {
		lang := row.Language
		if lang == "" {
			lang = trending.UnknownLanguage
		}
		b, ok := buckets[lang]
		if !ok {
			b = &bucket{repos: make(map[trending.RepoKey]struct{})}
			buckets[lang] = b
		}
		b.repos[row.Key()] = struct{}{}
		if b.color == "" && row.LanguageColor != "" {
			b.color = row.LanguageColor
		}
	}

	shares := make([]trending.LanguageShare, 0, len(buckets))
	for lang, b := range buckets {
		color := b.color
		if color == "" {
			color = trending.UnknownLanguageColor
		}
		shares = append(shares, trending.LanguageShare{
			Language: lang,
			Color:    color,
			Count:    len(b.repos),
		})
	}

	applyLargestRemainder(shares)

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Language < shares[j].Language
	})
	return shares, nil
}

// applyLargestRemainder converts counts to percentages in integer tenths
// (1000 tenths = 100.0%). Each bucket's share is floored, then the
// shortfall to exactly 1000 is handed out one tenth at a time to the
// buckets with the largest fractional remainder. Naive per-bucket rounding
// cannot guarantee the shares sum to 100.0; this does.
func applyLargestRemainder(shares []trending.LanguageShare) {
	total := 0
	for _, s := range shares {
		total += s.Count
	}
	if total == 0 {
		return
	}

	type fraction struct {
		index     int
		tenths    int
		remainder int
	}
	fractions := make([]fraction, len(shares))
	allocated := 0
	for i, s := range shares {
		raw := s.Count * 1000
		fractions[i] = fraction{
			index:     i,
			tenths:    raw / total,
			remainder: raw % total,
		}
		allocated += raw / total
	}

	sort.Slice(fractions, func(i, j int) bool {
		if fractions[i].remainder != fractions[j].remainder {
			return fractions[i].remainder > fractions[j].remainder
		}
		if shares[fractions[i].index].Count != shares[fractions[j].index].Count {
			return shares[fractions[i].index].Count > shares[fractions[j].index].Count
		}
		return shares[fractions[i].index].Language < shares[fractions[j].index].Language
	})

	for i := 0; i < 1000-allocated; i++ {
		fractions[i%len(fractions)].tenths++
	}
	for _, f := range fractions {
		shares[f.index].Percentage = float64(f.tenths) / 10
	}
}
