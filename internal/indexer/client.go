package indexer

import "context"

// Client is the capability surface one indexer exposes. Implementations
// report failure through the error return; callers treat an errored
// indexer as having produced no releases.
type Client interface {
	ID() string
	Name() string
	Search(ctx context.Context, criteria SearchCriteria) ([]Release, error)
	FetchRSS(ctx context.Context) ([]Release, error)
	Test(ctx context.Context) TestResult
}
