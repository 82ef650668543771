package indexer

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/levijay/mediastack/internal/database"
)

// TorznabClient speaks the torznab/newznab API dialect over HTTP. It serves
// both torrent and usenet indexers; the stored protocol decides which.
type TorznabClient struct {
	cfg  *database.Indexer
	http *http.Client
}

// NewTorznabClient builds a client for one configured indexer.
func NewTorznabClient(cfg *database.Indexer) *TorznabClient {
	return &TorznabClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *TorznabClient) ID() string   { return c.cfg.ID }
func (c *TorznabClient) Name() string { return c.cfg.Name }

// Search queries the indexer's search endpoint.
func (c *TorznabClient) Search(ctx context.Context, criteria SearchCriteria) ([]Release, error) {
	params := url.Values{}
	switch criteria.MediaType {
	case "movie":
		params.Set("t", "movie")
	case "series":
		params.Set("t", "tvsearch")
		if criteria.Season > 0 {
			params.Set("season", strconv.Itoa(criteria.Season))
		}
		if criteria.Episode > 0 {
			params.Set("ep", strconv.Itoa(criteria.Episode))
		}
	default:
		params.Set("t", "search")
	}
	query := criteria.Query
	if criteria.MediaType == "movie" && criteria.Year > 0 {
		query = fmt.Sprintf("%s %d", query, criteria.Year)
	}
	params.Set("q", query)
	if criteria.Limit > 0 {
		params.Set("limit", strconv.Itoa(criteria.Limit))
	}
	return c.fetch(ctx, params)
}

// FetchRSS pulls the indexer's latest-releases feed.
func (c *TorznabClient) FetchRSS(ctx context.Context) ([]Release, error) {
	params := url.Values{}
	params.Set("t", "search")
	params.Set("q", "")
	return c.fetch(ctx, params)
}

// Test checks connectivity via the caps endpoint.
func (c *TorznabClient) Test(ctx context.Context) TestResult {
	params := url.Values{}
	params.Set("t", "caps")
	body, err := c.get(ctx, params)
	if err != nil {
		return TestResult{OK: false, Message: err.Error()}
	}
	var caps capsResponse
	if err := xml.Unmarshal(body, &caps); err != nil {
		return TestResult{OK: false, Message: fmt.Sprintf("unexpected caps response: %v", err)}
	}
	return TestResult{OK: true, Version: caps.Server.Version}
}

func (c *TorznabClient) fetch(ctx context.Context, params url.Values) ([]Release, error) {
	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	return c.parseFeed(body)
}

func (c *TorznabClient) get(ctx context.Context, params url.Values) ([]byte, error) {
	if c.cfg.APIKey != "" {
		params.Set("apikey", c.cfg.APIKey)
	}
	endpoint := fmt.Sprintf("%s/api?%s", c.cfg.URL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer %s: %w", c.cfg.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer %s: status %d", c.cfg.Name, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}

type capsResponse struct {
	XMLName xml.Name `xml:"caps"`
	Server  struct {
		Version string `xml:"version,attr"`
	} `xml:"server"`
}

type torznabFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []torznabItem `xml:"item"`
	} `xml:"channel"`
}

type torznabItem struct {
	Title     string `xml:"title"`
	Link      string `xml:"link"`
	GUID      string `xml:"guid"`
	PubDate   string `xml:"pubDate"`
	Size      int64  `xml:"size"`
	Enclosure struct {
		URL    string `xml:"url,attr"`
		Length int64  `xml:"length,attr"`
	} `xml:"enclosure"`
	Attrs []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value,attr"`
	} `xml:"attr"`
}

func (c *TorznabClient) parseFeed(data []byte) ([]Release, error) {
	var feed torznabFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("indexer %s: parse feed: %w", c.cfg.Name, err)
	}

	releases := make([]Release, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		downloadURL := item.Link
		if downloadURL == "" {
			downloadURL = item.Enclosure.URL
		}
		if downloadURL == "" {
			continue
		}
		guid := item.GUID
		if guid == "" {
			guid = downloadURL
		}
		size := item.Size
		if size == 0 {
			size = item.Enclosure.Length
		}

		r := Release{
			GUID:        guid,
			Title:       item.Title,
			DownloadURL: downloadURL,
			Size:        size,
			PublishDate: parseDate(item.PubDate),
			IndexerID:   c.cfg.ID,
			IndexerName: c.cfg.Name,
			Protocol:    Protocol(c.cfg.Protocol),
		}
		for _, attr := range item.Attrs {
			switch attr.Name {
			case "seeders":
				r.Seeders, _ = strconv.Atoi(attr.Value)
			case "peers", "leechers":
				r.Leechers, _ = strconv.Atoi(attr.Value)
			case "size":
				if r.Size == 0 {
					r.Size, _ = strconv.ParseInt(attr.Value, 10, 64)
				}
			}
		}
		releases = append(releases, r)
	}
	return releases, nil
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
