package importlist

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/database"
)

var (
	imdbTitlePattern = regexp.MustCompile(`/title/(tt\d+)`)
	imdbYearPattern  = regexp.MustCompile(`\((\d{4})`)
)

// IMDbFetcher scrapes the public page of an IMDb list. Items carry only the
// IMDb id; TMDB resolution happens during reconciliation.
type IMDbFetcher struct {
	client  *http.Client
	baseURL string
}

// NewIMDbFetcher creates a fetcher for public IMDb lists.
func NewIMDbFetcher() *IMDbFetcher {
	return &IMDbFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://www.imdb.com",
	}
}

// Fetch downloads and parses the list page. The list's list_id takes
// precedence; a full URL works as an escape hatch.
func (f *IMDbFetcher) Fetch(ctx context.Context, list *database.ImportList) ([]Item, error) {
	url := list.URL
	if list.ListID != "" {
		url = fmt.Sprintf("%s/list/%s/", f.baseURL, list.ListID)
	}
	if url == "" {
		return nil, apperr.Validation("imdb list %q has neither list id nor url", list.Name)
	}

	var doc *goquery.Document
	err := retry.Do(
		func() error {
			var fetchErr error
			doc, fetchErr = f.fetchDocument(ctx, url)
			return fetchErr
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, apperr.Upstream("imdb list fetch failed", err)
	}
	return parseIMDbList(doc), nil
}

func (f *IMDbFetcher) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en-US,en")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imdb returned status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// parseIMDbList walks every title link on the page. IMDb reuses the same
// anchor per item several times, so results are deduplicated by id.
func parseIMDbList(doc *goquery.Document) []Item {
	seen := make(map[string]bool)
	var items []Item

	doc.Find(`a[href*="/title/tt"]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		match := imdbTitlePattern.FindStringSubmatch(href)
		if match == nil || seen[match[1]] {
			return
		}
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			return
		}
		seen[match[1]] = true

		item := Item{ImdbID: match[1], Title: stripListOrdinal(title)}
		// The year lives in a sibling element, e.g. "(2019)" or "(2019– )".
		if parent := sel.Parent(); parent != nil {
			if m := imdbYearPattern.FindStringSubmatch(parent.Text()); m != nil {
				item.Year, _ = strconv.Atoi(m[1])
			}
		}
		items = append(items, item)
	})
	return items
}

// stripListOrdinal removes the "12. " prefix IMDb renders on ranked lists.
func stripListOrdinal(title string) string {
	if i := strings.Index(title, ". "); i > 0 && i <= 4 {
		if _, err := strconv.Atoi(title[:i]); err == nil {
			return strings.TrimSpace(title[i+2:])
		}
	}
	return title
}
