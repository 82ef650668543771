package importlist

import (
	"context"

	"github.com/levijay/mediastack/internal/database"
)

// MockFetcher returns fixed items, keyed by list id.
type MockFetcher struct {
	Items map[string][]Item
	Err   error
}

// NewMockFetcher creates an empty mock fetcher.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{Items: make(map[string][]Item)}
}

func (m *MockFetcher) Fetch(_ context.Context, list *database.ImportList) ([]Item, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Items[list.ID], nil
}
