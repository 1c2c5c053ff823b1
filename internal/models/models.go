// Package models provides domain models for the sector scope application.
package models

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
)

// SectorGroup is a named, fixed set of ticker symbols treated as one
// ranking unit. Symbol order is preserved; duplicates are fetched twice.
type SectorGroup struct {
	Name    string
	Symbols []string
}

// QuoteResult holds the outcome of a single symbol quote fetch.
// Available is false when the fetch failed or the previous close was
// zero; in that case the price fields are meaningless.
type QuoteResult struct {
	Symbol    string
	LastPrice float64
	PrevClose float64
	ChangePct float64
	Available bool
}

// NewQuoteResult builds an available QuoteResult with the change percent
// computed against the previous close. A zero or negative previous close
// yields an unavailable result, never a 0% change.
func NewQuoteResult(symbol string, last, prevClose float64) QuoteResult {
	if prevClose <= 0 {
		return UnavailableQuote(symbol)
	}
	return QuoteResult{
		Symbol:    symbol,
		LastPrice: last,
		PrevClose: prevClose,
		ChangePct: (last - prevClose) / prevClose * 100,
		Available: true,
	}
}

// UnavailableQuote marks a symbol whose fetch failed.
func UnavailableQuote(symbol string) QuoteResult {
	return QuoteResult{Symbol: symbol}
}

// SectorSnapshot aggregates one sector's quote results. Quotes keeps the
// input symbol order. AvgChangePct is computed over available results
// only; Available is false when the sector has none.
type SectorSnapshot struct {
	Name         string
	Quotes       []QuoteResult
	AvgChangePct float64
	Available    bool
}

// ScreenerHit is a single symbol returned by the market scanner.
type ScreenerHit struct {
	Symbol    string
	Name      string
	Close     float64
	PerChange float64
	Volume    int64
}

// Instrument is a broker-specific identifier for a symbol, obtained via
// symbol resolution. Its lifetime is bounded by the owning session.
type Instrument struct {
	Symbol   string
	Token    string
	Exchange Exchange
}

// MarketSnapshot is a point-in-time read of an instrument. Complete is
// false when the broker response was missing any of the price fields;
// an incomplete snapshot never triggers an alert.
type MarketSnapshot struct {
	Token     string
	LastPrice float64
	High      float64
	Low       float64
	Open      float64
	Complete  bool
}

// Gap returns the alert trigger metric, day high minus last price.
func (s MarketSnapshot) Gap() float64 {
	return s.High - s.LastPrice
}

// Session holds the tokens obtained from broker authentication. It is
// built once by login and treated as read-only by every subsequent
// call; it is dropped at the end of the run.
type Session struct {
	ClientCode   string
	AccessToken  string
	RefreshToken string
	FeedToken    string
}

// Valid reports whether the session carries a usable access token.
func (s Session) Valid() bool {
	return s.AccessToken != ""
}
