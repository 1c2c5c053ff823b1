package sector

import (
	"testing"

	"sectorscope/internal/models"
)

func available(name string, avg float64) models.SectorSnapshot {
	return models.SectorSnapshot{Name: name, AvgChangePct: avg, Available: true}
}

func unavailable(name string) models.SectorSnapshot {
	return models.SectorSnapshot{Name: name}
}

func TestRankDescendingWithUnavailableLast(t *testing.T) {
	input := []models.SectorSnapshot{
		unavailable("NA1"),
		available("LOW", -5.0),
		available("HIGH", 3.2),
		unavailable("NA2"),
		available("MID", 0.1),
	}

	ranked := Rank(input)

	want := []string{"HIGH", "MID", "LOW", "NA1", "NA2"}
	for i, name := range want {
		if ranked[i].Name != name {
			t.Fatalf("rank %d = %s, want %s", i, ranked[i].Name, name)
		}
	}
}

func TestRankUnavailableBelowAnyNegative(t *testing.T) {
	// Unavailable sorts below numeric regardless of sign conventions.
	ranked := Rank([]models.SectorSnapshot{
		unavailable("NA"),
		available("VERYNEG", -99.9),
	})

	if ranked[0].Name != "VERYNEG" || ranked[1].Name != "NA" {
		t.Errorf("unavailable must sort after any numeric average, got %s, %s", ranked[0].Name, ranked[1].Name)
	}
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	ranked := Rank([]models.SectorSnapshot{
		available("FIRST", 1.5),
		available("SECOND", 1.5),
		available("THIRD", 1.5),
	})

	want := []string{"FIRST", "SECOND", "THIRD"}
	for i, name := range want {
		if ranked[i].Name != name {
			t.Fatalf("tie order broken: rank %d = %s, want %s", i, ranked[i].Name, name)
		}
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	input := []models.SectorSnapshot{
		available("B", 1.0),
		available("A", 2.0),
	}
	Rank(input)

	if input[0].Name != "B" {
		t.Error("Rank must not reorder its input slice")
	}
}

func TestSortQuotesUnavailableLast(t *testing.T) {
	quotes := []models.QuoteResult{
		models.UnavailableQuote("NA1"),
		models.NewQuoteResult("DOWN", 95, 100),
		models.NewQuoteResult("UP", 110, 100),
	}

	sorted := SortQuotes(quotes)

	want := []string{"UP", "DOWN", "NA1"}
	for i, sym := range want {
		if sorted[i].Symbol != sym {
			t.Fatalf("sorted %d = %s, want %s", i, sorted[i].Symbol, sym)
		}
	}
}
