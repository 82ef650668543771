package movies

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/levijay/mediastack/internal/database"
	"github.com/levijay/mediastack/internal/indexer/search"
)

// Relatedness scoring weights.
const (
	scoreSharedCollection = 100
	scoreFranchisePrefix  = 100
	scoreSharedCrew       = 40 // per shared director or writer
	scoreSharedCastBase   = 50 // two shared lead-cast members
	scoreSharedCastExtra  = 10 // each beyond two
)

// Related ranks the catalog's other movies by similarity to the given one
// and returns the top limit entries.
func (s *Service) Related(ctx context.Context, id string, limit int) ([]*database.Movie, error) {
	base, err := s.queries.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.queries.ListMovies(ctx, database.MovieFilter{})
	if err != nil {
		return nil, err
	}

	type ranked struct {
		movie *database.Movie
		score int
	}
	var candidates []ranked
	for _, candidate := range all {
		if candidate.ID == base.ID {
			continue
		}
		if score := relatednessScore(base, candidate); score > 0 {
			candidates = append(candidates, ranked{movie: candidate, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].movie.VoteAverage != candidates[j].movie.VoteAverage {
			return candidates[i].movie.VoteAverage > candidates[j].movie.VoteAverage
		}
		return candidates[i].movie.AddedAt > candidates[j].movie.AddedAt
	})

	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]*database.Movie, 0, limit)
	for _, r := range candidates[:limit] {
		out = append(out, r.movie)
	}
	return out, nil
}

func relatednessScore(base, candidate *database.Movie) int {
	score := 0

	if base.CollectionTitle != "" && strings.EqualFold(base.CollectionTitle, candidate.CollectionTitle) {
		score += scoreSharedCollection
	}

	score += scoreSharedCrew * sharedCount(jsonList(base.Directors), jsonList(candidate.Directors))
	score += scoreSharedCrew * sharedCount(jsonList(base.Writers), jsonList(candidate.Writers))

	if shared := sharedCount(topN(jsonList(base.CastMembers), 5), topN(jsonList(candidate.CastMembers), 5)); shared >= 2 {
		score += scoreSharedCastBase + scoreSharedCastExtra*(shared-2)
	}

	if franchisePrefixMatch(base.Title, candidate.Title) {
		score += scoreFranchisePrefix
	}
	return score
}

// franchisePrefixMatch reports whether one normalized title extends the
// other by at least a word ("Alien" vs "Alien Resurrection").
func franchisePrefixMatch(a, b string) bool {
	na, nb := search.NormalizeTitle(a), search.NormalizeTitle(b)
	if na == "" || nb == "" || na == nb {
		return false
	}
	return strings.HasPrefix(nb, na+" ") || strings.HasPrefix(na, nb+" ")
}

func jsonList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func topN(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

func sharedCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	count := 0
	for _, v := range b {
		if _, ok := set[strings.ToLower(strings.TrimSpace(v))]; ok {
			count++
		}
	}
	return count
}
