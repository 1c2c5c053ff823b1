package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"sectorscope/internal/broker"
	"sectorscope/internal/config"
	"sectorscope/internal/logging"
	"sectorscope/internal/models"
	"sectorscope/internal/notify"
)

// State is the pipeline lifecycle state.
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateQuerying
	StateProcessingHits
	StateDone
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateQuerying:
		return "querying"
	case StateProcessingHits:
		return "processing_hits"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OutcomeKind classifies how a single hit was handled.
type OutcomeKind string

const (
	// OutcomeAlerted means the trigger fired and a notification was
	// attempted; Delivery carries the result, success or not.
	OutcomeAlerted OutcomeKind = "alerted"
	// OutcomeTriggered means the trigger fired but alerting is
	// disabled, so no notification was attempted.
	OutcomeTriggered OutcomeKind = "triggered"
	// OutcomeNotTriggered means the snapshot did not qualify.
	OutcomeNotTriggered OutcomeKind = "not_triggered"
	// OutcomeNotFound means symbol resolution found no instrument.
	OutcomeNotFound OutcomeKind = "not_found"
	// OutcomeUnavailable means resolution or the snapshot fetch failed.
	OutcomeUnavailable OutcomeKind = "unavailable"
	// OutcomeAbandoned means the run deadline expired before the hit
	// was processed. Abandoned hits are not errors.
	OutcomeAbandoned OutcomeKind = "abandoned"
)

// HitOutcome records the handling of one screener hit.
type HitOutcome struct {
	Symbol   string
	Kind     OutcomeKind
	Gap      float64
	Delivery *notify.DeliveryResult
}

// RunReport summarizes one pipeline run. A Failed run carries a nil
// report slice for hits because per-hit processing never started.
type RunReport struct {
	State      State
	Hits       int
	Outcomes   []HitOutcome
	AlertsSent int
	Started    time.Time
	Finished   time.Time
}

// Screener defines the scanner the pipeline consumes.
type Screener interface {
	Query(ctx context.Context, scanClause string) ([]models.ScreenerHit, error)
}

// Pipeline runs the screener-driven alert flow end to end. It is
// sequential by design: the broker session has a single writer (login)
// and read-only access afterwards, and per-hit calls are spaced by a
// fixed-interval gate for rate-limit compliance.
type Pipeline struct {
	broker   broker.Session
	screener Screener
	notifier notify.Notifier
	cfg      config.AlertConfig
	creds    config.BrokerCredentials
	log      zerolog.Logger

	state State
}

// NewPipeline creates a new alert pipeline.
func NewPipeline(
	brokerSession broker.Session,
	scr Screener,
	notifier notify.Notifier,
	cfg config.AlertConfig,
	creds config.BrokerCredentials,
	logger zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		broker:   brokerSession,
		screener: scr,
		notifier: notifier,
		cfg:      cfg,
		creds:    creds,
		log:      logger,
		state:    StateIdle,
	}
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State {
	return p.state
}

// Run executes one pipeline run. Authentication or screener failure is
// fatal and returns an error with state Failed; every per-hit failure
// is isolated and the run still reaches Done. When the run deadline
// expires, remaining hits are recorded as abandoned, not failed.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{Started: time.Now()}
	defer func() {
		report.State = p.state
		report.Finished = time.Now()
	}()

	runCtx := ctx
	if p.cfg.RunDeadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.RunDeadline)
		defer cancel()
	}

	// Idle -> Authenticating
	p.transition(StateAuthenticating)
	session, err := p.login(runCtx)
	if err != nil {
		p.transition(StateFailed)
		return report, fmt.Errorf("authenticating: %w", err)
	}

	// Authenticating -> Querying
	p.transition(StateQuerying)
	hits, err := p.query(runCtx)
	if err != nil {
		p.transition(StateFailed)
		return report, fmt.Errorf("querying screener: %w", err)
	}
	report.Hits = len(hits)

	// Querying -> ProcessingHits. Hits are processed in the order
	// received, serialized, with a minimum spacing before each
	// resolve+fetch pair.
	p.transition(StateProcessingHits)
	limiter := rate.NewLimiter(rate.Every(p.cfg.CallSpacing), 1)

	for i, hit := range hits {
		outcome := p.processHit(runCtx, limiter, session, hit)
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Kind == OutcomeAlerted {
			report.AlertsSent++
		}
		if outcome.Kind == OutcomeAbandoned {
			// Deadline hit: mark the rest without touching the network.
			for _, rest := range hits[i+1:] {
				report.Outcomes = append(report.Outcomes, HitOutcome{
					Symbol: rest.Symbol,
					Kind:   OutcomeAbandoned,
				})
			}
			p.log.Warn().
				Int("abandoned", len(hits)-i).
				Msg("Run deadline expired, abandoning remaining hits")
			break
		}
	}

	// ProcessingHits -> Done, regardless of how many alerts were sent.
	p.transition(StateDone)
	return report, nil
}

// processHit runs resolve -> snapshot -> evaluate -> notify for one
// hit. No failure here ever propagates; everything maps to an outcome.
func (p *Pipeline) processHit(ctx context.Context, limiter *rate.Limiter, session models.Session, hit models.ScreenerHit) HitOutcome {
	log := logging.WithSymbol(p.log, hit.Symbol)

	if err := limiter.Wait(ctx); err != nil {
		return HitOutcome{Symbol: hit.Symbol, Kind: OutcomeAbandoned}
	}

	instrument, err := p.resolve(ctx, session, hit.Symbol)
	if err != nil {
		if ctx.Err() != nil {
			return HitOutcome{Symbol: hit.Symbol, Kind: OutcomeAbandoned}
		}
		if errors.Is(err, broker.ErrNotFound) {
			log.Info().Msg("Symbol not resolvable, skipping hit")
			return HitOutcome{Symbol: hit.Symbol, Kind: OutcomeNotFound}
		}
		log.Warn().Err(err).Msg("Resolution failed, skipping hit")
		return HitOutcome{Symbol: hit.Symbol, Kind: OutcomeUnavailable}
	}

	snap, err := p.snapshot(ctx, session, instrument)
	if err != nil {
		if ctx.Err() != nil {
			return HitOutcome{Symbol: hit.Symbol, Kind: OutcomeAbandoned}
		}
		log.Warn().Err(err).Msg("Snapshot unavailable, skipping hit")
		return HitOutcome{Symbol: hit.Symbol, Kind: OutcomeUnavailable}
	}

	if !Triggers(snap, p.cfg.GapThreshold) {
		return HitOutcome{Symbol: hit.Symbol, Kind: OutcomeNotTriggered, Gap: snap.Gap()}
	}

	logging.LogAlert(log, hit.Symbol, snap.LastPrice, snap.Gap())

	if !p.cfg.Enabled {
		return HitOutcome{Symbol: hit.Symbol, Kind: OutcomeTriggered, Gap: snap.Gap()}
	}

	if ctx.Err() != nil {
		// Cancellation stops new notifications from being issued.
		return HitOutcome{Symbol: hit.Symbol, Kind: OutcomeAbandoned}
	}

	// The send context is detached from the run context so an in-flight
	// notification completes even if the run is cancelled under it; it
	// still carries its own timeout.
	sendCtx := context.WithoutCancel(ctx)
	if p.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, p.cfg.CallTimeout)
		defer cancel()
	}

	message := FormatAlert(hit, snap)
	delivery := p.notifier.Send(sendCtx, message)
	logging.LogDelivery(log, hit.Symbol, delivery.Success, delivery.StatusCode)

	return HitOutcome{
		Symbol:   hit.Symbol,
		Kind:     OutcomeAlerted,
		Gap:      snap.Gap(),
		Delivery: &delivery,
	}
}

func (p *Pipeline) login(ctx context.Context) (models.Session, error) {
	callCtx, cancel := p.callContext(ctx)
	defer cancel()
	return p.broker.Login(callCtx, p.creds)
}

func (p *Pipeline) query(ctx context.Context) ([]models.ScreenerHit, error) {
	callCtx, cancel := p.callContext(ctx)
	defer cancel()
	return p.screener.Query(callCtx, p.cfg.ScanClause)
}

func (p *Pipeline) resolve(ctx context.Context, session models.Session, symbol string) (models.Instrument, error) {
	callCtx, cancel := p.callContext(ctx)
	defer cancel()
	exchange := models.Exchange(p.cfg.Exchange)
	return p.broker.ResolveSymbol(callCtx, session, exchange, symbol)
}

func (p *Pipeline) snapshot(ctx context.Context, session models.Session, instrument models.Instrument) (models.MarketSnapshot, error) {
	callCtx, cancel := p.callContext(ctx)
	defer cancel()
	return p.broker.FetchSnapshot(callCtx, session, instrument)
}

// callContext applies the per-call timeout on top of the run context.
func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.CallTimeout > 0 {
		return context.WithTimeout(ctx, p.cfg.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func (p *Pipeline) transition(next State) {
	p.log.Debug().
		Str("from", p.state.String()).
		Str("to", next.String()).
		Msg("Pipeline state transition")
	p.state = next
}
