package engagement

import (
	"context"
	"fmt"
	"sort"
)

type GameRank struct {
	Game    string `json:"game"`
	Reports int    `json:"reports"`
}

// RankGames counts titles and sorts them by count, descending. Ties keep the
// order in which the titles first appeared.
func RankGames(titles []string) []GameRank {
	index := make(map[string]int, len(titles))
	ranks := make([]GameRank, 0)
	for _, title := range titles {
		if i, ok := index[title]; ok {
			ranks[i].Reports++
			continue
		}
		index[title] = len(ranks)
		ranks = append(ranks, GameRank{Game: title, Reports: 1})
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Reports > ranks[j].Reports
	})
	return ranks
}

// Titles returns the games of ranks in order.
func Titles(ranks []GameRank) []string {
	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.Game
	}
	return out
}

// PopularGames ranks the games of reports created within the popularity
// window. The ranking is cached; cache failures fall back to the database.
func (t *Tracker) PopularGames(ctx context.Context) ([]GameRank, error) {
	if t.ranking != nil {
		var cached []GameRank
		hit, err := t.ranking.GetJSON(ctx, t.cacheKey, &cached)
		if err != nil {
			t.log.Warn("popular games cache read failed", "error", err)
		} else if hit {
			return cached, nil
		}
	}

	titles, err := t.reports.GamesSince(ctx, t.now().Add(-t.window))
	if err != nil {
		return nil, fmt.Errorf("load recent games: %w", err)
	}
	ranks := RankGames(titles)

	if t.ranking != nil {
		if err := t.ranking.SetJSON(ctx, t.cacheKey, ranks, t.cacheTTL); err != nil {
			t.log.Warn("popular games cache write failed", "error", err)
		}
	}
	return ranks, nil
}

// InvalidatePopular drops the cached ranking. Called after a submission or
// an edit that changes the game.
func (t *Tracker) InvalidatePopular(ctx context.Context) {
	if t.ranking == nil {
		return
	}
	if err := t.ranking.Del(ctx, t.cacheKey); err != nil {
		t.log.Warn("popular games cache invalidation failed", "error", err)
	}
}
