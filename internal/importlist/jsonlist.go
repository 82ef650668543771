package importlist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/levijay/mediastack/internal/apperr"
	"github.com/levijay/mediastack/internal/database"
)

// JSONFetcher pulls a list served as a JSON array of items, the interchange
// format used by custom list endpoints.
type JSONFetcher struct {
	client *http.Client
}

// NewJSONFetcher creates a fetcher for JSON list endpoints.
func NewJSONFetcher() *JSONFetcher {
	return &JSONFetcher{client: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch downloads and decodes the list.
func (f *JSONFetcher) Fetch(ctx context.Context, list *database.ImportList) ([]Item, error) {
	if list.URL == "" {
		return nil, apperr.Validation("json list %q has no url", list.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, list.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.Upstream("json list fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Upstream("json list fetch failed",
			fmt.Errorf("status %d from %s", resp.StatusCode, list.URL))
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, apperr.Upstream("json list decode failed", err)
	}
	return items, nil
}
