package metadata

import (
	"context"
	"sync"

	"github.com/levijay/mediastack/internal/apperr"
)

// MockProvider is an in-memory provider for tests and developer mode.
type MockProvider struct {
	mu       sync.Mutex
	movies   map[int64]*MovieResult
	series   map[int]*SeriesResult
	external map[string]*ExternalRef

	// Err forces every call to fail.
	Err error
}

// NewMockProvider creates an empty mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		movies:   make(map[int64]*MovieResult),
		series:   make(map[int]*SeriesResult),
		external: make(map[string]*ExternalRef),
	}
}

// AddMovie seeds a movie result, indexed by TMDB and IMDb id.
func (p *MockProvider) AddMovie(m *MovieResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.movies[m.TmdbID] = m
	if m.ImdbID != "" {
		p.external[m.ImdbID] = &ExternalRef{
			TmdbID: m.TmdbID, MediaType: "movie", Title: m.Title, Year: m.Year,
		}
	}
}

// AddSeries seeds a series result, indexed by TMDB and IMDb id.
func (p *MockProvider) AddSeries(s *SeriesResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series[s.TmdbID] = s
	if s.ImdbID != "" {
		p.external[s.ImdbID] = &ExternalRef{
			TmdbID: int64(s.TmdbID), MediaType: "series", Title: s.Title, Year: s.Year,
		}
	}
}

func (p *MockProvider) GetMovie(_ context.Context, tmdbID int64) (*MovieResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	m, ok := p.movies[tmdbID]
	if !ok {
		return nil, apperr.NotFound("movie %d not found", tmdbID)
	}
	return m, nil
}

func (p *MockProvider) GetSeries(_ context.Context, tmdbID int) (*SeriesResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	s, ok := p.series[tmdbID]
	if !ok {
		return nil, apperr.NotFound("series %d not found", tmdbID)
	}
	return s, nil
}

func (p *MockProvider) GetSeason(ctx context.Context, tmdbID, seasonNumber int) (*SeasonResult, error) {
	series, err := p.GetSeries(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	for i := range series.Seasons {
		if series.Seasons[i].SeasonNumber == seasonNumber {
			return &series.Seasons[i], nil
		}
	}
	return nil, apperr.NotFound("season %d not found", seasonNumber)
}

func (p *MockProvider) FindByExternalID(_ context.Context, imdbID, mediaType string) (*ExternalRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	ref, ok := p.external[imdbID]
	if !ok || (mediaType != "" && ref.MediaType != mediaType) {
		return nil, apperr.NotFound("no match for %s", imdbID)
	}
	return ref, nil
}
