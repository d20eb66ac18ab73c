package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github-trending-archive/internal/trending"
)

// WeeklyReport is the rollup for one Monday-Sunday range.
type WeeklyReport struct {
	WeekStart    time.Time                  `json:"week_start"`
	WeekEnd      time.Time                  `json:"week_end"`
	DaysWithData int                        `json:"days_with_data"`
	Partial      bool                       `json:"partial"`
	Repos        []trending.WeeklyAggregate `json:"repos"`
}

// WeeklyReport aggregates the archive over the week starting at weekStart,
// which must be a Monday. Repos are ranked by appearances, ties broken by
// total stars gained. The report is partial when the week extends past
// today or when fewer than seven days have data.
func (e *Engine) WeeklyReport(ctx context.Context, weekStart time.Time, now time.Time) (WeeklyReport, error) {
	weekStart = trending.DateOf(weekStart)
	if weekStart.Weekday() != time.Monday {
		return WeeklyReport{}, fmt.Errorf("week start %s is not a Monday", weekStart.Format(time.DateOnly))
	}
	weekEnd := weekStart.AddDate(0, 0, 6)

	rows, err := e.archive.RowsBetween(ctx, weekStart, weekEnd)
	if err != nil {
		return WeeklyReport{}, err
	}

	type rollup struct {
		agg    trending.WeeklyAggregate
		latest time.Time
	}
	byRepo := make(map[trending.RepoKey]*rollup)
	daysSeen := make(map[time.Time]struct{})

	for _, row := range rows {
		daysSeen[row.TrendingDate] = struct{}{}

		key := row.Key()
		r, ok := byRepo[key]
		if !ok {
			r = &rollup{agg: trending.WeeklyAggregate{Owner: key.Owner, Name: key.Name}}
			byRepo[key] = r
		}
		r.agg.Appearances++
		r.agg.TotalStarsGained += row.StarsToday
		if row.StarsToday > r.agg.MaxStarsToday {
			r.agg.MaxStarsToday = row.StarsToday
		}
		// Latest metadata wins: description, language and counters come
		// from the most recent row in range.
		if !row.TrendingDate.Before(r.latest) {
			r.latest = row.TrendingDate
			r.agg.Description = row.Description
			r.agg.Language = row.Language
			r.agg.TotalStars = row.TotalStars
			r.agg.Forks = row.Forks
		}
	}

	repos := make([]trending.WeeklyAggregate, 0, len(byRepo))
	for _, r := range byRepo {
		repos = append(repos, r.agg)
	}
	sort.Slice(repos, func(i, j int) bool {
		if repos[i].Appearances != repos[j].Appearances {
			return repos[i].Appearances > repos[j].Appearances
		}
		if repos[i].TotalStarsGained != repos[j].TotalStarsGained {
			return repos[i].TotalStarsGained > repos[j].TotalStarsGained
		}
		if repos[i].Owner != repos[j].Owner {
			return repos[i].Owner < repos[j].Owner
		}
		return repos[i].Name < repos[j].Name
	})

	daysWithData := len(daysSeen)
	return WeeklyReport{
		WeekStart:    weekStart,
		WeekEnd:      weekEnd,
		DaysWithData: daysWithData,
		Partial:      weekEnd.After(trending.DateOf(now)) || daysWithData < 7,
		Repos:        repos,
	}, nil
}
