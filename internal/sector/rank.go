package sector

import (
	"sort"

	"sectorscope/internal/models"
)

// Rank orders sector snapshots by average change percent, descending.
// Unavailable sectors sort strictly after every numeric one regardless
// of sign; ties keep input order (stable sort).
func Rank(snapshots []models.SectorSnapshot) []models.SectorSnapshot {
	ranked := make([]models.SectorSnapshot, len(snapshots))
	copy(ranked, snapshots)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Available != b.Available {
			return a.Available
		}
		if !a.Available {
			return false
		}
		return a.AvgChangePct > b.AvgChangePct
	})

	return ranked
}

// SortQuotes orders a sector's quote results by change percent,
// descending, with the same unavailable-sorts-last rule. The snapshot's
// own Quotes slice keeps input order; callers sort a copy for display.
func SortQuotes(quotes []models.QuoteResult) []models.QuoteResult {
	sorted := make([]models.QuoteResult, len(quotes))
	copy(sorted, quotes)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Available != b.Available {
			return a.Available
		}
		if !a.Available {
			return false
		}
		return a.ChangePct > b.ChangePct
	})

	return sorted
}
