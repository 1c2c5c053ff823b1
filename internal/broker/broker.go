// Package broker provides the brokerage session: authentication,
// symbol resolution and live snapshot retrieval.
package broker

import (
	"context"
	"errors"

	"sectorscope/internal/config"
	"sectorscope/internal/models"
)

// ErrNotFound is returned by symbol resolution when the broker knows no
// instrument for the symbol. Non-fatal: the caller skips the hit.
var ErrNotFound = errors.New("instrument not found")

// ErrUnavailable is returned by snapshot retrieval when the broker
// could not supply a quote for the token. Non-fatal: the caller skips
// the hit.
var ErrUnavailable = errors.New("snapshot unavailable")

// Session defines the brokerage operations the alert pipeline consumes.
// Login failure is fatal for a run; ResolveSymbol and FetchSnapshot
// failures are isolated per hit.
type Session interface {
	Login(ctx context.Context, creds config.BrokerCredentials) (models.Session, error)
	ResolveSymbol(ctx context.Context, session models.Session, exchange models.Exchange, symbol string) (models.Instrument, error)
	FetchSnapshot(ctx context.Context, session models.Session, instrument models.Instrument) (models.MarketSnapshot, error)
}
