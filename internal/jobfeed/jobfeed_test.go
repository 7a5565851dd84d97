package jobfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Acme Careers</title>
  <link>https://careers.acme.example</link>
  <description>Open roles</description>
  <item>
    <guid>acme-101</guid>
    <title>Senior PMO Analyst</title>
    <link>https://careers.acme.example/101</link>
    <description>&lt;p&gt;Run the &lt;b&gt;portfolio&lt;/b&gt; office.&lt;/p&gt;</description>
    <category>PMO</category>
    <category>Finance</category>
    <pubDate>Mon, 06 Jan 2025 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Programme Manager</title>
    <link>https://careers.acme.example/102</link>
    <description>Deliver change.</description>
  </item>
  <item>
    <guid>acme-103</guid>
    <description>No title, skipped.</description>
  </item>
</channel>
</rss>`

func TestParse(t *testing.T) {
	items, err := Parse(strings.NewReader(sampleRSS))
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "acme-101", first.GUID)
	assert.Equal(t, "Senior PMO Analyst", first.Title)
	assert.Equal(t, "Run the portfolio office.", first.Description)
	assert.Equal(t, []string{"PMO", "Finance"}, first.Categories)
	assert.Equal(t, time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), first.Published.UTC())

	// Items without a GUID are keyed by link.
	assert.Equal(t, "https://careers.acme.example/102", items[1].GUID)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse(strings.NewReader("not a feed"))
	assert.Error(t, err)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	items, err := NewFetcher(5*time.Second).Fetch(context.Background(), srv.URL+"/jobs.rss")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestFetchRejectsNonHTTP(t *testing.T) {
	f := NewFetcher(time.Second)
	for _, u := range []string{"file:///etc/passwd", "ftp://x/y", "/relative", "::"} {
		_, err := f.Fetch(context.Background(), u)
		assert.ErrorIs(t, err, ErrInvalidURL, u)
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "a & b c", stripHTML("<div>a &amp; b</div>\n\n<span>c</span>"))
}

func TestFetchReportsUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewFetcher(time.Second).Fetch(context.Background(), srv.URL+"/gone.rss")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
