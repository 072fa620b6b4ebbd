package notifier

import (
	"sort"

	"github.com/Makar-aka/jellysay/internal/model"
)

// GroupEpisodes batches episode candidates by (series, season). Episode
// numbers within a group are deduplicated and sorted ascending; the first
// observed member becomes the group's metadata sample. Group order follows
// first appearance in the input.
func GroupEpisodes(items []model.MediaItem) []model.EpisodeGroup {
	type groupKey struct {
		series string
		season int
	}

	var order []groupKey
	groups := make(map[groupKey]*model.EpisodeGroup)
	seen := make(map[groupKey]map[int]bool)

	for _, item := range items {
		if item.Type != model.TypeEpisode {
			continue
		}
		k := groupKey{series: item.SeriesName, season: item.SeasonNumber}
		g, ok := groups[k]
		if !ok {
			g = &model.EpisodeGroup{
				SeriesName:   item.SeriesName,
				SeasonNumber: item.SeasonNumber,
				Sample:       item,
			}
			groups[k] = g
			seen[k] = make(map[int]bool)
			order = append(order, k)
		}
		if seen[k][item.EpisodeNumber] {
			continue
		}
		seen[k][item.EpisodeNumber] = true
		g.Episodes = append(g.Episodes, item.EpisodeNumber)
	}

	result := make([]model.EpisodeGroup, 0, len(order))
	for _, k := range order {
		g := groups[k]
		sort.Ints(g.Episodes)
		result = append(result, *g)
	}
	return result
}
