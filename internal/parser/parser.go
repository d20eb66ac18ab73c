// Package parser extracts trending records from the raw page markup.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github-trending-archive/internal/trending"
)

// Selectors for the trending page layout. The upstream page has no schema
// contract; when these stop matching the parser fails loudly instead of
// archiving wrong data.
const (
	rowSelector         = "article.Box-row"
	titleAnchorSelector = "h2 a"
	descriptionSelector = "p"
	languageSelector    = `span[itemprop="programmingLanguage"]`
	colorSelector       = "span.repo-language-color"
	starsSelector       = `a[href$="/stargazers"]`
	forksSelector       = `a[href$="/forks"]`
	starsTodaySelector  = "span.d-inline-block.float-sm-right"
)

// Parser turns trending page markup into ordered records.
type Parser struct{}

// New builds a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse extracts one record per repository row. Zero rows is an error: an
// empty result would be indistinguishable from "no data today" and would
// defeat gap detection downstream. A single row whose identity cannot be
// derived aborts the whole parse, since it means the page layout changed.
func (p *Parser) Parse(markup []byte) ([]trending.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("build document: %w", err)
	}

	rows := doc.Find(rowSelector)
	if rows.Length() == 0 {
		return nil, fmt.Errorf("no repository rows found")
	}

	records := make([]trending.Record, 0, rows.Length())
	var rowErr error
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		rec, err := parseRow(row)
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", i, err)
			return false
		}
		records = append(records, rec)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return records, nil
}

func parseRow(row *goquery.Selection) (trending.Record, error) {
	owner, name, err := parseIdentity(row)
	if err != nil {
		return trending.Record{}, err
	}

	rec := trending.Record{
		Owner:       owner,
		Name:        name,
		Description: strings.TrimSpace(row.Find(descriptionSelector).First().Text()),
		Language:    strings.TrimSpace(row.Find(languageSelector).First().Text()),
		TotalStars:  trending.ParseFormattedCount(row.Find(starsSelector).First().Text()),
		Forks:       trending.ParseFormattedCount(row.Find(forksSelector).First().Text()),
		StarsToday:  trending.ParseFormattedCount(row.Find(starsTodaySelector).First().Text()),
	}

	if color := parseLanguageColor(row); trending.ValidHexColor(color) {
		rec.LanguageColor = color
	}
	return rec, nil
}

func parseIdentity(row *goquery.Selection) (owner, name string, err error) {
	anchor := row.Find(titleAnchorSelector).First()
	if anchor.Length() == 0 {
		return "", "", fmt.Errorf("missing title anchor")
	}
	href, ok := anchor.Attr("href")
	if !ok {
		return "", "", fmt.Errorf("title anchor has no href")
	}
	parts := strings.Split(strings.Trim(href, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("unexpected repository href %q", href)
	}
	return parts[0], parts[1], nil
}

// parseLanguageColor reads the inline swatch style, e.g.
// "background-color: #00ADD8".
func parseLanguageColor(row *goquery.Selection) string {
	style, ok := row.Find(colorSelector).First().Attr("style")
	if !ok {
		return ""
	}
	for _, decl := range strings.Split(style, ";") {
		key, value, found := strings.Cut(decl, ":")
		if found && strings.TrimSpace(key) == "background-color" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
