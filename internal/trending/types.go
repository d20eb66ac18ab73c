package trending

import "time"

// RepoKey identifies a repository by its owner and name.
type RepoKey struct {
	Owner string
	Name  string
}

// String returns the "owner/name" form used in logs and messages.
func (k RepoKey) String() string {
	return k.Owner + "/" + k.Name
}

// Record is one trending repository as extracted from a single scrape.
// Owner and Name are required; everything else is best-effort.
type Record struct {
	Owner         string   `json:"owner"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Language      string   `json:"language,omitempty"`
	LanguageColor string   `json:"language_color,omitempty"`
	TotalStars    int      `json:"total_stars"`
	Forks         int      `json:"forks"`
	StarsToday    int      `json:"stars_today"`
	Topics        []string `json:"topics,omitempty"`
}

// Key returns the repository identity of the record.
func (r Record) Key() RepoKey {
	return RepoKey{Owner: r.Owner, Name: r.Name}
}

// ArchiveRow is a Record pinned to the UTC calendar day it trended on.
// The triple (owner, name, trending date) is unique in the archive; a later
// scrape on the same day replaces the earlier row.
type ArchiveRow struct {
	Record
	TrendingDate time.Time `json:"trending_date"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// StarPoint is one entry in a repository's star history.
type StarPoint struct {
	Date       time.Time `json:"date"`
	StarsToday int       `json:"stars_today"`
}

// WeeklyAggregate is the per-repository rollup over a Monday-Sunday range.
type WeeklyAggregate struct {
	Owner            string `json:"owner"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	Language         string `json:"language,omitempty"`
	TotalStars       int    `json:"total_stars"`
	Forks            int    `json:"forks"`
	Appearances      int    `json:"appearances"`
	TotalStarsGained int    `json:"total_stars_gained"`
	MaxStarsToday    int    `json:"max_stars_today"`
}

// LanguageShare is one bucket of a language distribution. Percentages across
// a distribution sum to exactly 100.0.
type LanguageShare struct {
	Language   string  `json:"language"`
	Color      string  `json:"color"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// UnknownLanguage is the bucket for rows without a detected language.
const UnknownLanguage = "Unknown"

// UnknownLanguageColor is the fallback swatch when no color was ever seen
// for a language.
const UnknownLanguageColor = "#ededed"

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}
