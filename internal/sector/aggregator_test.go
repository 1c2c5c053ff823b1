package sector

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sectorscope/internal/models"
)

// stubSource serves canned quotes and records calls.
type stubSource struct {
	mu     sync.Mutex
	quotes map[string][2]float64 // symbol -> {last, prevClose}
	errs   map[string]error
	calls  map[string]int
}

func newStubSource() *stubSource {
	return &stubSource{
		quotes: make(map[string][2]float64),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (s *stubSource) Quote(ctx context.Context, symbol string) (float64, float64, error) {
	s.mu.Lock()
	s.calls[symbol]++
	s.mu.Unlock()

	if err, ok := s.errs[symbol]; ok {
		return 0, 0, err
	}
	q, ok := s.quotes[symbol]
	if !ok {
		return 0, 0, fmt.Errorf("no quote for %s", symbol)
	}
	return q[0], q[1], nil
}

func (s *stubSource) callCount(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[symbol]
}

func newTestAggregator(src *stubSource) *Aggregator {
	return NewAggregator(src, 4, time.Second, zerolog.Nop())
}

func TestFetchSectorIsolatesFailures(t *testing.T) {
	src := newStubSource()
	src.quotes["A"] = [2]float64{110, 100}
	src.errs["B"] = fmt.Errorf("connection refused")

	agg := newTestAggregator(src)
	snap := agg.FetchSector(context.Background(), models.SectorGroup{
		Name:    "TEST",
		Symbols: []string{"A", "B"},
	})

	if len(snap.Quotes) != 2 {
		t.Fatalf("expected 2 results, got %d", len(snap.Quotes))
	}

	a := snap.Quotes[0]
	if !a.Available {
		t.Fatal("A should be available")
	}
	if a.ChangePct < 9.99 || a.ChangePct > 10.01 {
		t.Errorf("A change = %.4f, want +10.00", a.ChangePct)
	}

	if snap.Quotes[1].Available {
		t.Error("B should be unavailable after fetch failure")
	}

	// Sector average excludes the failed symbol.
	if !snap.Available {
		t.Fatal("sector average should be available")
	}
	if snap.AvgChangePct < 9.99 || snap.AvgChangePct > 10.01 {
		t.Errorf("sector avg = %.4f, want +10.00", snap.AvgChangePct)
	}
}

func TestFetchSectorZeroPrevCloseIsUnavailable(t *testing.T) {
	src := newStubSource()
	src.quotes["X"] = [2]float64{50, 0}

	agg := newTestAggregator(src)
	snap := agg.FetchSector(context.Background(), models.SectorGroup{
		Name:    "TEST",
		Symbols: []string{"X"},
	})

	if snap.Quotes[0].Available {
		t.Error("zero previous close must be unavailable, never 0%")
	}
	if snap.Available {
		t.Error("sector with no available quotes must have an unavailable average")
	}
}

func TestFetchSectorPreservesInputOrder(t *testing.T) {
	src := newStubSource()
	symbols := []string{"D", "A", "C", "B"}
	for i, sym := range symbols {
		src.quotes[sym] = [2]float64{100 + float64(i), 100}
	}

	agg := newTestAggregator(src)
	snap := agg.FetchSector(context.Background(), models.SectorGroup{Name: "T", Symbols: symbols})

	for i, sym := range symbols {
		if snap.Quotes[i].Symbol != sym {
			t.Fatalf("result %d = %s, want %s (input order)", i, snap.Quotes[i].Symbol, sym)
		}
	}
}

func TestFetchSectorDuplicateSymbolsFetchedTwice(t *testing.T) {
	src := newStubSource()
	src.quotes["A"] = [2]float64{101, 100}

	agg := newTestAggregator(src)
	snap := agg.FetchSector(context.Background(), models.SectorGroup{Name: "T", Symbols: []string{"A", "A"}})

	if len(snap.Quotes) != 2 {
		t.Fatalf("expected 2 results, got %d", len(snap.Quotes))
	}
	if got := src.callCount("A"); got != 2 {
		t.Errorf("A fetched %d times, want 2", got)
	}
}

func TestAggregateAllCompletesEveryGroup(t *testing.T) {
	src := newStubSource()
	src.quotes["A"] = [2]float64{110, 100}
	src.quotes["B"] = [2]float64{95, 100}
	src.errs["C"] = fmt.Errorf("timeout")

	agg := newTestAggregator(src)
	groups := []models.SectorGroup{
		{Name: "UP", Symbols: []string{"A"}},
		{Name: "DOWN", Symbols: []string{"B"}},
		{Name: "BROKEN", Symbols: []string{"C"}},
	}

	snapshots := agg.AggregateAll(context.Background(), groups)

	if len(snapshots) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snapshots))
	}
	if !snapshots["UP"].Available || !snapshots["DOWN"].Available {
		t.Error("UP and DOWN should have available averages")
	}
	if snapshots["BROKEN"].Available {
		t.Error("BROKEN should have an unavailable average")
	}
}

// panicSource panics on a specific symbol.
type panicSource struct {
	stub  *stubSource
	panic string
}

func (p *panicSource) Quote(ctx context.Context, symbol string) (float64, float64, error) {
	if symbol == p.panic {
		panic("malformed response")
	}
	return p.stub.Quote(ctx, symbol)
}

func TestFetchSectorIsolatesPanics(t *testing.T) {
	stub := newStubSource()
	stub.quotes["OK"] = [2]float64{102, 100}
	src := &panicSource{stub: stub, panic: "BOOM"}

	agg := NewAggregator(src, 2, time.Second, zerolog.Nop())
	snap := agg.FetchSector(context.Background(), models.SectorGroup{Name: "T", Symbols: []string{"BOOM", "OK"}})

	if snap.Quotes[0].Available {
		t.Error("panicking symbol should be unavailable")
	}
	if !snap.Quotes[1].Available {
		t.Error("sibling symbol must survive a panic")
	}
}
