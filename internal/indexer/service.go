package indexer

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/levijay/mediastack/internal/database"
)

// Service manages configured indexers and fans searches out across them.
type Service struct {
	queries *database.Queries
	logger  zerolog.Logger

	mu      sync.Mutex
	clients map[string]Client // overrides, keyed by indexer id (mock/tests)
}

// NewService creates a new indexer service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		queries: database.NewQueries(db),
		logger:  logger.With().Str("component", "indexer").Logger(),
		clients: make(map[string]Client),
	}
}

// RegisterClient installs a client implementation for an indexer id,
// bypassing the default torznab construction. Used for the mock type.
func (s *Service) RegisterClient(id string, client Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[id] = client
}

func (s *Service) clientFor(cfg *database.Indexer) Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[cfg.ID]; ok {
		return c
	}
	return NewTorznabClient(cfg)
}

// SearchAll queries every enabled indexer in parallel and aggregates the
// results. Individual indexer failures are collected, never fatal.
func (s *Service) SearchAll(ctx context.Context, criteria SearchCriteria) (*SearchResult, error) {
	configs, err := s.queries.ListEnabledIndexers(ctx)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Releases: []Release{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, cfg := range configs {
		client := s.clientFor(cfg)
		g.Go(func() error {
			releases, searchErr := client.Search(gctx, criteria)
			mu.Lock()
			defer mu.Unlock()
			if searchErr != nil {
				s.logger.Warn().Err(searchErr).Str("indexer", client.Name()).Msg("Indexer search failed")
				result.Errors = append(result.Errors, SearchError{
					IndexerID:   client.ID(),
					IndexerName: client.Name(),
					Error:       searchErr.Error(),
				})
				return nil
			}
			result.Releases = append(result.Releases, releases...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	sort.SliceStable(result.Releases, func(i, j int) bool {
		return result.Releases[i].PublishDate.After(result.Releases[j].PublishDate)
	})

	s.logger.Debug().
		Str("query", criteria.Query).
		Int("releases", len(result.Releases)).
		Int("indexers", len(configs)).
		Int("errors", len(result.Errors)).
		Msg("Search completed")

	return result, nil
}

// FetchAllRSS pulls the feed of every RSS-enabled indexer. Failures are
// logged per indexer; the remaining feeds still return.
func (s *Service) FetchAllRSS(ctx context.Context) ([]Release, []SearchError, error) {
	configs, err := s.queries.ListRSSIndexers(ctx)
	if err != nil {
		return nil, nil, err
	}

	var releases []Release
	var errors []SearchError
	for _, cfg := range configs {
		client := s.clientFor(cfg)
		items, fetchErr := client.FetchRSS(ctx)
		if fetchErr != nil {
			s.logger.Warn().Err(fetchErr).Str("indexer", client.Name()).Msg("RSS fetch failed")
			errors = append(errors, SearchError{
				IndexerID:   client.ID(),
				IndexerName: client.Name(),
				Error:       fetchErr.Error(),
			})
			continue
		}
		releases = append(releases, items...)
	}
	return releases, errors, nil
}

// Test checks connectivity for one configured indexer.
func (s *Service) Test(ctx context.Context, id string) (TestResult, error) {
	cfg, err := s.queries.GetIndexer(ctx, id)
	if err != nil {
		return TestResult{}, err
	}
	return s.clientFor(cfg).Test(ctx), nil
}
