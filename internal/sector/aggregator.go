// Package sector provides concurrent sector quote aggregation and
// failure-aware ranking.
package sector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"sectorscope/internal/logging"
	"sectorscope/internal/models"
	"sectorscope/internal/quote"
)

// Aggregator fetches quotes for sector groups in parallel and builds
// per-sector snapshots. A failed symbol fetch is recorded as an
// unavailable result and never aborts sibling fetches or the group.
type Aggregator struct {
	src          quote.Source
	workers      int
	fetchTimeout time.Duration
	log          zerolog.Logger
}

// NewAggregator creates a new Aggregator. workers bounds the number of
// concurrent symbol fetches per group; zero or negative falls back to 8.
func NewAggregator(src quote.Source, workers int, fetchTimeout time.Duration, logger zerolog.Logger) *Aggregator {
	if workers <= 0 {
		workers = 8
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &Aggregator{
		src:          src,
		workers:      workers,
		fetchTimeout: fetchTimeout,
		log:          logger,
	}
}

// FetchSector fetches every symbol in the group concurrently and builds
// the sector snapshot. Result order matches input order; each task owns
// its result slot until the pool joins, so there is no shared mutation.
func (a *Aggregator) FetchSector(ctx context.Context, group models.SectorGroup) models.SectorSnapshot {
	log := logging.WithSector(a.log, group.Name)
	results := make([]models.QuoteResult, len(group.Symbols))

	p := pool.New().WithMaxGoroutines(a.workers)
	for i, symbol := range group.Symbols {
		i, symbol := i, symbol
		p.Go(func() {
			results[i] = a.fetchOne(ctx, log, symbol)
		})
	}
	p.Wait()

	return buildSnapshot(group.Name, results)
}

// fetchOne fetches a single symbol, mapping every failure mode
// (transport error, malformed response, panic, zero previous close) to
// an unavailable result.
func (a *Aggregator) fetchOne(ctx context.Context, log zerolog.Logger, symbol string) (result models.QuoteResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogQuoteFailure(log, symbol, fmt.Errorf("panic: %v", r))
			result = models.UnavailableQuote(symbol)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	last, prevClose, err := a.src.Quote(callCtx, symbol)
	if err != nil {
		logging.LogQuoteFailure(log, symbol, err)
		return models.UnavailableQuote(symbol)
	}

	return models.NewQuoteResult(symbol, last, prevClose)
}

// AggregateAll fetches all groups concurrently, one task per group, and
// returns once every group has completed or failed.
func (a *Aggregator) AggregateAll(ctx context.Context, groups []models.SectorGroup) map[string]models.SectorSnapshot {
	snapshots := make([]models.SectorSnapshot, len(groups))

	var wg conc.WaitGroup
	for i, group := range groups {
		i, group := i, group
		wg.Go(func() {
			snapshots[i] = a.FetchSector(ctx, group)
		})
	}
	wg.Wait()

	out := make(map[string]models.SectorSnapshot, len(groups))
	for _, snap := range snapshots {
		out[snap.Name] = snap
	}
	return out
}

// buildSnapshot computes the sector average over available results only.
func buildSnapshot(name string, results []models.QuoteResult) models.SectorSnapshot {
	var sum float64
	var available int
	for _, r := range results {
		if r.Available {
			sum += r.ChangePct
			available++
		}
	}

	snap := models.SectorSnapshot{
		Name:   name,
		Quotes: results,
	}
	if available > 0 {
		snap.AvgChangePct = sum / float64(available)
		snap.Available = true
	}
	return snap
}
