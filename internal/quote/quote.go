// Package quote provides equity quote retrieval.
package quote

import (
	"context"
)

// Source defines the interface for per-symbol quote retrieval. A quote
// is the last traded price and the previous session's closing price.
type Source interface {
	Quote(ctx context.Context, symbol string) (last, prevClose float64, err error)
}
