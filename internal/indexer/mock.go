package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient is an in-memory indexer used by tests and the built-in demo
// configuration. It fabricates a deterministic spread of quality tiers for
// whatever is searched.
type MockClient struct {
	IndexerID   string
	IndexerName string

	// Fixed releases returned by FetchRSS and appended to searches.
	Releases []Release
	// SearchErr forces Search to fail.
	SearchErr error
}

// NewMockClient creates a mock indexer.
func NewMockClient(id, name string) *MockClient {
	return &MockClient{IndexerID: id, IndexerName: name}
}

func (c *MockClient) ID() string   { return c.IndexerID }
func (c *MockClient) Name() string { return c.IndexerName }

func (c *MockClient) Test(ctx context.Context) TestResult {
	return TestResult{OK: true, Version: "mock/1.0"}
}

// Search fabricates releases across the common quality spread for the query.
func (c *MockClient) Search(ctx context.Context, criteria SearchCriteria) ([]Release, error) {
	if c.SearchErr != nil {
		return nil, c.SearchErr
	}

	base := strings.ReplaceAll(strings.TrimSpace(criteria.Query), " ", ".")
	if base == "" {
		return append([]Release(nil), c.Releases...), nil
	}

	suffix := ""
	if criteria.MediaType == "movie" && criteria.Year > 0 {
		suffix = fmt.Sprintf(".%d", criteria.Year)
	} else if criteria.Season > 0 {
		if criteria.Episode > 0 {
			suffix = fmt.Sprintf(".S%02dE%02d", criteria.Season, criteria.Episode)
		} else {
			suffix = fmt.Sprintf(".S%02d", criteria.Season)
		}
	}

	variants := []struct {
		tag     string
		size    int64
		seeders int
	}{
		{"720p.HDTV.x264-MOCK", 1 << 30, 20},
		{"1080p.WEB-DL.x264-MOCK", 4 << 30, 80},
		{"1080p.BluRay.x264-MOCK", 8 << 30, 45},
		{"2160p.WEB-DL.x265-MOCK", 15 << 30, 30},
	}

	releases := make([]Release, 0, len(variants)+len(c.Releases))
	for i, v := range variants {
		title := fmt.Sprintf("%s%s.%s", base, suffix, v.tag)
		releases = append(releases, Release{
			GUID:        fmt.Sprintf("mock-%s-%d", title, i),
			Title:       title,
			DownloadURL: fmt.Sprintf("https://mock.indexer/dl/%s-%d", base, i),
			Size:        v.size,
			Seeders:     v.seeders,
			PublishDate: time.Now().Add(-time.Duration(i) * time.Hour),
			IndexerID:   c.IndexerID,
			IndexerName: c.IndexerName,
			Protocol:    ProtocolTorrent,
		})
	}
	releases = append(releases, c.Releases...)
	return releases, nil
}

// FetchRSS returns the fixed release list.
func (c *MockClient) FetchRSS(ctx context.Context) ([]Release, error) {
	return append([]Release(nil), c.Releases...), nil
}
