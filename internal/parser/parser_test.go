package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRow = `
<article class="Box-row">
  <h2 class="h3"><a href="/golang/go">golang / go</a></h2>
  <p class="col-9">The Go programming language</p>
  <span itemprop="programmingLanguage">Go</span>
  <span class="repo-language-color" style="background-color: #00ADD8"></span>
  <a href="/golang/go/stargazers">121,337</a>
  <a href="/golang/go/forks">17,412</a>
  <span class="d-inline-block float-sm-right">1,204 stars today</span>
</article>`

func page(rows ...string) []byte {
	body := ""
	for _, r := range rows {
		body += r
	}
	return []byte(fmt.Sprintf("<html><body><div>%s</div></body></html>", body))
}

func TestParseSingleRow(t *testing.T) {
	t.Parallel()

	records, err := New().Parse(page(sampleRow))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "golang", rec.Owner)
	assert.Equal(t, "go", rec.Name)
	assert.Equal(t, "The Go programming language", rec.Description)
	assert.Equal(t, "Go", rec.Language)
	assert.Equal(t, "#00ADD8", rec.LanguageColor)
	assert.Equal(t, 121337, rec.TotalStars)
	assert.Equal(t, 17412, rec.Forks)
	assert.Equal(t, 1204, rec.StarsToday)
}

func TestParseReturnsRecordPerRow(t *testing.T) {
	t.Parallel()

	second := `
<article class="Box-row">
  <h2><a href="/rust-lang/rust"> rust-lang / rust </a></h2>
  <a href="/rust-lang/rust/stargazers">95.3k</a>
  <a href="/rust-lang/rust/forks">12.1k</a>
</article>`

	records, err := New().Parse(page(sampleRow, second))
	require.NoError(t, err)
	require.Len(t, records, 2)

	rec := records[1]
	assert.Equal(t, "rust-lang", rec.Owner)
	assert.Equal(t, "rust", rec.Name)
	assert.Empty(t, rec.Description)
	assert.Empty(t, rec.Language)
	assert.Empty(t, rec.LanguageColor)
	assert.Equal(t, 95300, rec.TotalStars)
	assert.Equal(t, 12100, rec.Forks)
	assert.Zero(t, rec.StarsToday)
}

func TestParseFailsOnZeroRows(t *testing.T) {
	t.Parallel()

	cases := map[string][]byte{
		"empty markup":  []byte(""),
		"no row markup": []byte("<html><body><p>nothing trending</p></body></html>"),
	}
	for name, markup := range cases {
		_, err := New().Parse(markup)
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "no repository rows found")
	}
}

func TestParseFailsOnMalformedIdentity(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing anchor": `<article class="Box-row"><p>orphan row</p></article>`,
		"missing href":   `<article class="Box-row"><h2><a>broken</a></h2></article>`,
		"single segment": `<article class="Box-row"><h2><a href="/golang">broken</a></h2></article>`,
		"empty segments": `<article class="Box-row"><h2><a href="//">broken</a></h2></article>`,
	}
	for name, row := range cases {
		_, err := New().Parse(page(sampleRow, row))
		assert.Error(t, err, name)
	}
}

func TestParseIgnoresInvalidColor(t *testing.T) {
	t.Parallel()

	row := `
<article class="Box-row">
  <h2><a href="/a/b">a / b</a></h2>
  <span class="repo-language-color" style="background-color: var(--color)"></span>
</article>`

	records, err := New().Parse(page(row))
	require.NoError(t, err)
	assert.Empty(t, records[0].LanguageColor)
}
