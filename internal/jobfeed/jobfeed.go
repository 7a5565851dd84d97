// Package jobfeed reads job postings from RSS and Atom feeds so employers
// can import vacancies published on their own career sites.
package jobfeed

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pmonetwork/pmo-network/internal/pkg/httpretry"
)

// ErrInvalidURL is returned for feed URLs that are not absolute http(s).
var ErrInvalidURL = errors.New("feed url must be an absolute http(s) URL")

// MaxItems caps the number of items taken from a single feed.
const MaxItems = 200

// Item is one job posting read from a feed.
type Item struct {
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	Location    string    `json:"location"`
	Categories  []string  `json:"categories"`
	Published   time.Time `json:"published"`
}

// maxFeedBytes caps the size of a downloaded feed.
const maxFeedBytes = 5 << 20

const userAgent = "PMO-Network-Importer/1.0"

// Fetcher downloads and parses feeds. Transient upstream failures are
// retried.
type Fetcher struct {
	client httpretry.Doer
}

// NewFetcher creates a fetcher whose HTTP requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{client: httpretry.New(&http.Client{Timeout: timeout}, 2)}
}

// Fetch downloads the feed at rawURL and returns its items.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]Item, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, ErrInvalidURL
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: %s returned %d", u.Host, resp.StatusCode)
	}
	return Parse(io.LimitReader(resp.Body, maxFeedBytes))
}

// Parse reads a feed document from r.
func Parse(r io.Reader) ([]Item, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return items(feed), nil
}

func items(feed *gofeed.Feed) []Item {
	out := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := parseFeedItem(it)
		if item.GUID == "" || item.Title == "" {
			continue
		}
		out = append(out, item)
		if len(out) == MaxItems {
			break
		}
	}
	return out
}

func parseFeedItem(item *gofeed.Item) Item {
	out := Item{
		GUID:        strings.TrimSpace(item.GUID),
		Title:       strings.TrimSpace(item.Title),
		Description: stripHTML(item.Description),
		Link:        item.Link,
	}
	if out.GUID == "" {
		out.GUID = item.Link
	}
	if out.Description == "" {
		out.Description = stripHTML(item.Content)
	}

	switch {
	case item.PublishedParsed != nil:
		out.Published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		out.Published = *item.UpdatedParsed
	default:
		out.Published = time.Now()
	}

	for _, key := range []string{"location", "job_location", "city"} {
		if v := strings.TrimSpace(item.Custom[key]); v != "" {
			out.Location = v
			break
		}
	}

	for _, cat := range item.Categories {
		if cat = strings.TrimSpace(cat); cat != "" {
			out.Categories = append(out.Categories, cat)
		}
	}
	return out
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags and entities and collapses whitespace.
func stripHTML(input string) string {
	text := tagPattern.ReplaceAllString(input, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}
